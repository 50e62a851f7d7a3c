package services

import (
	"context"

	"github.com/KiraKC/Spectacle-Hypertext/application/ports"
	"github.com/KiraKC/Spectacle-Hypertext/domain/core/entities"
	"github.com/KiraKC/Spectacle-Hypertext/pkg/common"

	"go.uber.org/zap"
)

// AnchorGateway serves the anchor contract from a local store.
type AnchorGateway struct {
	store                 ports.AnchorStore
	logger                *zap.Logger
	requireMediaTimeStamp bool
}

var _ ports.NodeAnchorGateway = (*AnchorGateway)(nil)

// GatewayOption configures an AnchorGateway.
type GatewayOption func(*AnchorGateway)

// RequireMediaTimeStamp makes CreateAnchor reject anchors without a media
// timestamp before touching the store.
func RequireMediaTimeStamp(required bool) GatewayOption {
	return func(g *AnchorGateway) {
		g.requireMediaTimeStamp = required
	}
}

// NewAnchorGateway creates a store-backed gateway
func NewAnchorGateway(store ports.AnchorStore, logger *zap.Logger, opts ...GatewayOption) *AnchorGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &AnchorGateway{
		store:  store,
		logger: logger.Named("anchor_gateway"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *AnchorGateway) CreateAnchor(ctx context.Context, anchor *entities.Anchor) common.ServiceResponse[*entities.Anchor] {
	if anchor == nil {
		return common.Failure[*entities.Anchor]("input is null")
	}
	if g.requireMediaTimeStamp && !anchor.HasMediaTimeStamp() {
		g.logger.Debug("Rejected anchor without media timestamp", zap.String("anchorID", anchor.AnchorID))
		return common.Failuref[*entities.Anchor]("Failed to create anchor %s: mediaTimeStamp is required.", anchor.AnchorID)
	}
	return g.store.InsertOne(ctx, anchor)
}

func (g *AnchorGateway) GetAnchor(ctx context.Context, anchorID string) common.ServiceResponse[*entities.Anchor] {
	return g.store.FindOne(ctx, anchorID)
}

func (g *AnchorGateway) GetAnchors(ctx context.Context, anchorIDs []string) common.ServiceResponse[ports.AnchorMap] {
	return g.store.FindMany(ctx, anchorIDs)
}

func (g *AnchorGateway) DeleteAnchor(ctx context.Context, anchorID string) common.ServiceResponse[common.Empty] {
	return g.store.DeleteOne(ctx, anchorID)
}

func (g *AnchorGateway) DeleteAnchors(ctx context.Context, anchorIDs []string) common.ServiceResponse[common.Empty] {
	return g.store.DeleteMany(ctx, anchorIDs)
}

// GetAnchorsByNode returns every anchor attached to a node.
func (g *AnchorGateway) GetAnchorsByNode(ctx context.Context, nodeID string) common.ServiceResponse[ports.AnchorMap] {
	return g.store.FindManyByNode(ctx, nodeID)
}

// DeleteAnchorsByNode removes the anchors of a node that is being deleted.
func (g *AnchorGateway) DeleteAnchorsByNode(ctx context.Context, nodeID string) common.ServiceResponse[common.Empty] {
	resp := g.store.DeleteManyByNode(ctx, nodeID)
	if resp.Success {
		g.logger.Debug("Deleted anchors of node", zap.String("nodeID", nodeID))
	}
	return resp
}
