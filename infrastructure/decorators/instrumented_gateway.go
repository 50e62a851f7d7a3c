// Package decorators adds logging, metrics and tracing around an anchor
// gateway without changing its behavior.
package decorators

import (
	"context"
	"time"

	"github.com/KiraKC/Spectacle-Hypertext/application/ports"
	"github.com/KiraKC/Spectacle-Hypertext/domain/core/entities"
	"github.com/KiraKC/Spectacle-Hypertext/pkg/common"
	"github.com/KiraKC/Spectacle-Hypertext/pkg/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

// InstrumentationConfig controls the decorator
type InstrumentationConfig struct {
	// Backend labels metrics and spans, e.g. "store" or "remote".
	Backend       string
	SlowThreshold time.Duration
}

// DefaultInstrumentationConfig returns defaults for the given backend label
func DefaultInstrumentationConfig(backend string) InstrumentationConfig {
	return InstrumentationConfig{
		Backend:       backend,
		SlowThreshold: time.Second,
	}
}

// InstrumentedGateway records every call of the wrapped gateway. A failed
// envelope counts as a failed operation.
type InstrumentedGateway struct {
	inner   ports.NodeAnchorGateway
	logger  *zap.Logger
	metrics *observability.Collector
	tracer  trace.Tracer
	config  InstrumentationConfig
}

var _ ports.NodeAnchorGateway = (*InstrumentedGateway)(nil)

// NewInstrumentedGateway wraps inner. Metrics and tracer may be nil.
func NewInstrumentedGateway(
	inner ports.NodeAnchorGateway,
	logger *zap.Logger,
	metrics *observability.Collector,
	tracer trace.Tracer,
	config InstrumentationConfig,
) *InstrumentedGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("anchors")
	}
	return &InstrumentedGateway{
		inner:   inner,
		logger:  logger.Named("gateway"),
		metrics: metrics,
		tracer:  tracer,
		config:  config,
	}
}

func (g *InstrumentedGateway) CreateAnchor(ctx context.Context, anchor *entities.Anchor) common.ServiceResponse[*entities.Anchor] {
	var attrs []attribute.KeyValue
	if anchor != nil {
		attrs = append(attrs,
			attribute.String("anchor.id", anchor.AnchorID),
			attribute.String("node.id", anchor.NodeID),
		)
	}
	return observe(ctx, g, "CreateAnchor", attrs, func(ctx context.Context) common.ServiceResponse[*entities.Anchor] {
		return g.inner.CreateAnchor(ctx, anchor)
	})
}

func (g *InstrumentedGateway) GetAnchor(ctx context.Context, anchorID string) common.ServiceResponse[*entities.Anchor] {
	attrs := []attribute.KeyValue{attribute.String("anchor.id", anchorID)}
	return observe(ctx, g, "GetAnchor", attrs, func(ctx context.Context) common.ServiceResponse[*entities.Anchor] {
		return g.inner.GetAnchor(ctx, anchorID)
	})
}

func (g *InstrumentedGateway) GetAnchors(ctx context.Context, anchorIDs []string) common.ServiceResponse[ports.AnchorMap] {
	attrs := []attribute.KeyValue{attribute.Int("anchor.requested", len(anchorIDs))}
	resp := observe(ctx, g, "GetAnchors", attrs, func(ctx context.Context) common.ServiceResponse[ports.AnchorMap] {
		return g.inner.GetAnchors(ctx, anchorIDs)
	})
	g.countReturned("GetAnchors", resp)
	return resp
}

func (g *InstrumentedGateway) DeleteAnchor(ctx context.Context, anchorID string) common.ServiceResponse[common.Empty] {
	attrs := []attribute.KeyValue{attribute.String("anchor.id", anchorID)}
	return observe(ctx, g, "DeleteAnchor", attrs, func(ctx context.Context) common.ServiceResponse[common.Empty] {
		return g.inner.DeleteAnchor(ctx, anchorID)
	})
}

func (g *InstrumentedGateway) DeleteAnchors(ctx context.Context, anchorIDs []string) common.ServiceResponse[common.Empty] {
	attrs := []attribute.KeyValue{attribute.Int("anchor.requested", len(anchorIDs))}
	return observe(ctx, g, "DeleteAnchors", attrs, func(ctx context.Context) common.ServiceResponse[common.Empty] {
		return g.inner.DeleteAnchors(ctx, anchorIDs)
	})
}

func (g *InstrumentedGateway) GetAnchorsByNode(ctx context.Context, nodeID string) common.ServiceResponse[ports.AnchorMap] {
	attrs := []attribute.KeyValue{attribute.String("node.id", nodeID)}
	resp := observe(ctx, g, "GetAnchorsByNode", attrs, func(ctx context.Context) common.ServiceResponse[ports.AnchorMap] {
		return g.inner.GetAnchorsByNode(ctx, nodeID)
	})
	g.countReturned("GetAnchorsByNode", resp)
	return resp
}

func (g *InstrumentedGateway) DeleteAnchorsByNode(ctx context.Context, nodeID string) common.ServiceResponse[common.Empty] {
	attrs := []attribute.KeyValue{attribute.String("node.id", nodeID)}
	return observe(ctx, g, "DeleteAnchorsByNode", attrs, func(ctx context.Context) common.ServiceResponse[common.Empty] {
		return g.inner.DeleteAnchorsByNode(ctx, nodeID)
	})
}

func (g *InstrumentedGateway) countReturned(op string, resp common.ServiceResponse[ports.AnchorMap]) {
	if g.metrics != nil && resp.Success {
		g.metrics.RecordAnchorsReturned(op, g.config.Backend, len(resp.Payload))
	}
}

func observe[T any](
	ctx context.Context,
	g *InstrumentedGateway,
	op string,
	attrs []attribute.KeyValue,
	call func(context.Context) common.ServiceResponse[T],
) common.ServiceResponse[T] {
	ctx, span := g.tracer.Start(ctx, "gateway."+op,
		trace.WithAttributes(append(attrs, attribute.String("gateway.backend", g.config.Backend))...),
	)
	defer span.End()

	start := time.Now()
	resp := call(ctx)
	duration := time.Since(start)

	if g.metrics != nil {
		g.metrics.RecordGatewayOperation(op, g.config.Backend, resp.Success, duration)
	}

	fields := []zap.Field{
		zap.String("operation", op),
		zap.String("backend", g.config.Backend),
		zap.Duration("duration", duration),
		zap.Bool("success", resp.Success),
	}
	if !resp.Success {
		span.SetStatus(codes.Error, resp.Message)
		g.logger.Warn("Anchor operation failed", append(fields, zap.String("message", resp.Message))...)
		return resp
	}

	span.SetStatus(codes.Ok, "")
	if g.config.SlowThreshold > 0 && duration > g.config.SlowThreshold {
		g.logger.Warn("Slow anchor operation", fields...)
	} else {
		g.logger.Debug("Anchor operation completed", fields...)
	}
	return resp
}
