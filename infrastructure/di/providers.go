package di

import (
	"context"
	"fmt"

	"github.com/KiraKC/Spectacle-Hypertext/application/ports"
	"github.com/KiraKC/Spectacle-Hypertext/application/services"
	"github.com/KiraKC/Spectacle-Hypertext/infrastructure/config"
	"github.com/KiraKC/Spectacle-Hypertext/infrastructure/decorators"
	"github.com/KiraKC/Spectacle-Hypertext/infrastructure/gateways/remote"
	"github.com/KiraKC/Spectacle-Hypertext/infrastructure/persistence/abstractions"
	"github.com/KiraKC/Spectacle-Hypertext/infrastructure/persistence/adapters"
	anchordynamodb "github.com/KiraKC/Spectacle-Hypertext/infrastructure/persistence/dynamodb"
	"github.com/KiraKC/Spectacle-Hypertext/infrastructure/persistence/memory"
	"github.com/KiraKC/Spectacle-Hypertext/infrastructure/persistence/sqlite"
	"github.com/KiraKC/Spectacle-Hypertext/interfaces/http/rest"
	"github.com/KiraKC/Spectacle-Hypertext/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const serviceName = "anchor-service"

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	if cfg.LogLevel != "" {
		level, err := zapcore.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
		}
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("service", serviceName)), nil
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config, cfg *config.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg, func(o *awsdynamodb.Options) {
		if cfg.DynamoDBEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.DynamoDBEndpoint)
		}
	})
}

// ProvideCollection opens the collection for the configured store driver.
// The returned cleanup releases it. In proxy mode no collection is opened
// and the result is nil.
func ProvideCollection(ctx context.Context, cfg *config.Config, logger *zap.Logger) (abstractions.Collection, func(), error) {
	if cfg.IsProxy() {
		return nil, func() {}, nil
	}
	logger.Info("Opening anchor collection", zap.String("driver", cfg.StoreDriver))

	switch cfg.StoreDriver {
	case config.DriverDynamoDB:
		awsCfg, err := ProvideAWSConfig(ctx, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		client := ProvideDynamoDBClient(awsCfg, cfg)
		collection := anchordynamodb.NewCollection(client, cfg.DynamoDBTable, cfg.NodeIndexName, logger.Named("dynamodb"))
		return collection, func() {}, nil

	case config.DriverSQLite:
		collection, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		cleanup := func() {
			if err := collection.Close(); err != nil {
				logger.Error("Failed to close sqlite database", zap.Error(err))
			}
		}
		return collection, cleanup, nil

	case config.DriverMemory:
		collection, err := memory.NewCollection()
		if err != nil {
			return nil, nil, err
		}
		return collection, func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

type pinger interface {
	Ping(ctx context.Context) error
}

// ProvideReadinessCheck pings collections that support it. A nil
// collection has nothing to ping.
func ProvideReadinessCheck(collection abstractions.Collection) rest.ReadinessCheck {
	p, ok := collection.(pinger)
	if !ok {
		return nil
	}
	return p.Ping
}

// ProvideAnchorStore creates the anchor store adapter
func ProvideAnchorStore(collection abstractions.Collection, logger *zap.Logger) ports.AnchorStore {
	if collection == nil {
		return nil
	}
	return adapters.NewAnchorStore(collection, logger)
}

// ProvideAnchorGateway creates the storage-backed gateway
func ProvideAnchorGateway(store ports.AnchorStore, logger *zap.Logger, cfg *config.Config) *services.AnchorGateway {
	if store == nil {
		return nil
	}
	return services.NewAnchorGateway(store, logger,
		services.RequireMediaTimeStamp(cfg.RequireMediaTimeStamp),
	)
}

// ProvideMetrics creates the metrics collector, or nil when disabled
func ProvideMetrics(cfg *config.Config) *observability.Collector {
	if !cfg.EnableMetrics {
		return nil
	}
	return observability.NewCollector("anchors")
}

// ProvideTracing initializes OpenTelemetry tracing
func ProvideTracing(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*observability.TracerProvider, func(), error) {
	tp, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:     cfg.EnableTracing,
		ServiceName: serviceName,
		Environment: cfg.Environment,
		Endpoint:    cfg.OTLPEndpoint,
	})
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Error("Failed to shut down tracer provider", zap.Error(err))
		}
	}
	return tp, cleanup, nil
}

// ProvideNodeAnchorGateway picks the backend the server exposes and wraps
// it with instrumentation. With REMOTE_BASE_URL set the server proxies to
// another anchor service instead of its own store.
func ProvideNodeAnchorGateway(
	gateway *services.AnchorGateway,
	logger *zap.Logger,
	metrics *observability.Collector,
	tp *observability.TracerProvider,
	cfg *config.Config,
) (ports.NodeAnchorGateway, error) {
	instrument := func(inner ports.NodeAnchorGateway, backend string) ports.NodeAnchorGateway {
		return decorators.NewInstrumentedGateway(
			inner,
			logger,
			metrics,
			tp.Tracer(),
			decorators.DefaultInstrumentationConfig(backend),
		)
	}
	if !cfg.IsProxy() {
		return instrument(gateway, "store"), nil
	}

	remoteGateway, err := remote.NewGateway(cfg.RemoteBaseURL,
		remote.WithResourcePath(cfg.AnchorResourcePath),
		remote.WithTimeout(cfg.RequestTimeout),
		remote.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create remote gateway: %w", err)
	}
	logger.Info("Proxying anchor operations", zap.String("base_url", cfg.RemoteBaseURL))
	return instrument(remoteGateway, "remote"), nil
}

// ProvideRouter creates the REST router
func ProvideRouter(
	gateway ports.NodeAnchorGateway,
	logger *zap.Logger,
	metrics *observability.Collector,
	ready rest.ReadinessCheck,
	cfg *config.Config,
) *rest.Router {
	return rest.NewRouter(gateway, logger, rest.RouterConfig{
		ResourcePath:   cfg.AnchorResourcePath,
		EnableCORS:     cfg.EnableCORS,
		AllowedOrigins: cfg.AllowedOrigins,
		RequestTimeout: cfg.RequestTimeout,
		Metrics:        metrics,
		Ready:          ready,
	})
}
