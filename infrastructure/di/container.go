package di

import (
	"github.com/KiraKC/Spectacle-Hypertext/application/ports"
	"github.com/KiraKC/Spectacle-Hypertext/infrastructure/config"
	"github.com/KiraKC/Spectacle-Hypertext/interfaces/http/rest"
	"github.com/KiraKC/Spectacle-Hypertext/pkg/observability"

	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config  *config.Config
	Logger  *zap.Logger
	// Store is nil in proxy mode.
	Store   ports.AnchorStore
	Gateway ports.NodeAnchorGateway
	Metrics *observability.Collector
	Tracing *observability.TracerProvider
	Router  *rest.Router
}
