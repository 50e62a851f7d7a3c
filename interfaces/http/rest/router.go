package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/KiraKC/Spectacle-Hypertext/application/ports"
	"github.com/KiraKC/Spectacle-Hypertext/infrastructure/gateways/remote"
	"github.com/KiraKC/Spectacle-Hypertext/interfaces/http/rest/handlers"
	"github.com/KiraKC/Spectacle-Hypertext/interfaces/http/rest/middleware"
	"github.com/KiraKC/Spectacle-Hypertext/pkg/observability"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// ReadinessCheck reports whether the backing store can serve requests.
type ReadinessCheck func(ctx context.Context) error

// RouterConfig holds the optional parts of the router
type RouterConfig struct {
	ResourcePath   string
	EnableCORS     bool
	AllowedOrigins []string
	RequestTimeout time.Duration
	Metrics        *observability.Collector
	Ready          ReadinessCheck
}

// Router creates and configures the HTTP router
type Router struct {
	gateway ports.NodeAnchorGateway
	logger  *zap.Logger
	config  RouterConfig
}

// NewRouter creates a new router instance
func NewRouter(gateway ports.NodeAnchorGateway, logger *zap.Logger, config RouterConfig) *Router {
	if config.ResourcePath == "" {
		config.ResourcePath = remote.DefaultResourcePath
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		gateway: gateway,
		logger:  logger,
		config:  config,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))
	router.Use(middleware.Metrics(rt.config.Metrics))
	if rt.config.RequestTimeout > 0 {
		router.Use(chimiddleware.Timeout(rt.config.RequestTimeout))
	}

	if rt.config.EnableCORS {
		origins := rt.config.AllowedOrigins
		if len(origins) == 0 {
			origins = []string{"*"}
		}
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	if rt.config.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", rt.config.Metrics.Handler())
	}

	anchorHandler := handlers.NewAnchorHandler(rt.gateway, rt.logger)
	router.Route(rt.config.ResourcePath, func(r chi.Router) {
		r.Post("/", anchorHandler.CreateAnchor)
		r.Get("/list/{ids}", anchorHandler.GetAnchors)
		r.Delete("/list/{ids}", anchorHandler.DeleteAnchors)
		r.Get("/node/{nodeId}", anchorHandler.GetAnchorsByNode)
		r.Delete("/node/{nodeId}", anchorHandler.DeleteAnchorsByNode)
		r.Get("/{anchorId}", anchorHandler.GetAnchor)
		r.Delete("/{anchorId}", anchorHandler.DeleteAnchor)
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck reports 503 while the store is unreachable
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if rt.config.Ready != nil {
		if err := rt.config.Ready(req.Context()); err != nil {
			rt.logger.Warn("Readiness check failed", zap.Error(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}
