package ports

import (
	"context"

	"github.com/KiraKC/Spectacle-Hypertext/domain/core/entities"
	"github.com/KiraKC/Spectacle-Hypertext/pkg/common"
)

// AnchorMap indexes anchors by anchor id.
type AnchorMap map[string]*entities.Anchor

// AnchorGateway is the backend-agnostic anchor contract. Implementations
// never return Go errors: every outcome, including transport failures,
// arrives as a ServiceResponse.
type AnchorGateway interface {
	// CreateAnchor stores a new anchor. Creating an id that already
	// exists fails and leaves the stored anchor untouched.
	CreateAnchor(ctx context.Context, anchor *entities.Anchor) common.ServiceResponse[*entities.Anchor]

	// GetAnchor fails when no anchor has the given id.
	GetAnchor(ctx context.Context, anchorID string) common.ServiceResponse[*entities.Anchor]

	// GetAnchors returns the subset of ids that were found. It fails only
	// when none were.
	GetAnchors(ctx context.Context, anchorIDs []string) common.ServiceResponse[AnchorMap]

	// DeleteAnchor succeeds whether or not the anchor existed.
	DeleteAnchor(ctx context.Context, anchorID string) common.ServiceResponse[common.Empty]

	// DeleteAnchors succeeds regardless of how many of the ids existed.
	DeleteAnchors(ctx context.Context, anchorIDs []string) common.ServiceResponse[common.Empty]
}

// NodeAnchorGateway adds the node-scoped queries used when a node is deleted.
type NodeAnchorGateway interface {
	AnchorGateway
	GetAnchorsByNode(ctx context.Context, nodeID string) common.ServiceResponse[AnchorMap]
	DeleteAnchorsByNode(ctx context.Context, nodeID string) common.ServiceResponse[common.Empty]
}

// AnchorStore maps anchors onto a document store. Multi-id operations are
// single set-membership queries, never per-id loops.
type AnchorStore interface {
	InsertOne(ctx context.Context, anchor *entities.Anchor) common.ServiceResponse[*entities.Anchor]
	InsertMany(ctx context.Context, anchors []*entities.Anchor) common.ServiceResponse[common.Empty]
	FindOne(ctx context.Context, anchorID string) common.ServiceResponse[*entities.Anchor]
	FindMany(ctx context.Context, anchorIDs []string) common.ServiceResponse[AnchorMap]
	FindManyByNode(ctx context.Context, nodeID string) common.ServiceResponse[AnchorMap]
	DeleteOne(ctx context.Context, anchorID string) common.ServiceResponse[common.Empty]
	DeleteMany(ctx context.Context, anchorIDs []string) common.ServiceResponse[common.Empty]
	DeleteManyByNode(ctx context.Context, nodeID string) common.ServiceResponse[common.Empty]

	// ClearAll removes every anchor. Administrative and test use only.
	ClearAll(ctx context.Context) common.ServiceResponse[common.Empty]
}
