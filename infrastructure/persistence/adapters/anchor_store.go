package adapters

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/KiraKC/Spectacle-Hypertext/application/ports"
	"github.com/KiraKC/Spectacle-Hypertext/domain/core/entities"
	"github.com/KiraKC/Spectacle-Hypertext/infrastructure/persistence/abstractions"
	"github.com/KiraKC/Spectacle-Hypertext/pkg/common"
	"github.com/KiraKC/Spectacle-Hypertext/pkg/errors"

	"go.uber.org/zap"
)

// AnchorStore implements ports.AnchorStore on top of a document collection.
type AnchorStore struct {
	collection abstractions.Collection
	logger     *zap.Logger
	now        func() time.Time
}

var _ ports.AnchorStore = (*AnchorStore)(nil)

// NewAnchorStore creates an anchor store backed by the given collection
func NewAnchorStore(collection abstractions.Collection, logger *zap.Logger) *AnchorStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnchorStore{
		collection: collection,
		logger:     logger.Named("anchor_store"),
		now:        time.Now,
	}
}

// InsertOne stores a single anchor. The failure message names the anchor id
// so duplicates can be diagnosed.
func (s *AnchorStore) InsertOne(ctx context.Context, anchor *entities.Anchor) common.ServiceResponse[*entities.Anchor] {
	row, err := toRow(anchor, s.now())
	if err != nil {
		if anchor == nil {
			return common.Failure[*entities.Anchor](errors.GetAppError(err).Message)
		}
		return common.Failuref[*entities.Anchor]("Failed to create new anchor with anchorId: %s. %s", anchor.AnchorID, errors.GetAppError(err).Message)
	}

	result, err := s.collection.InsertOne(ctx, row)
	if err != nil {
		s.logger.Warn("Failed to insert anchor",
			zap.String("anchorID", row.ID),
			zap.Error(err),
		)
		if errors.IsConflict(err) {
			return common.Failuref[*entities.Anchor]("Failed to create new anchor, an anchor with anchorId: %s already exists.", row.ID)
		}
		return common.Failuref[*entities.Anchor]("Failed to create new anchor with anchorId: %s. %v", row.ID, err)
	}
	if !result.OK {
		return common.Failuref[*entities.Anchor]("Failed to create new anchor with anchorId: %s, write was not acknowledged.", row.ID)
	}

	s.logger.Debug("Anchor inserted",
		zap.String("anchorID", row.ID),
		zap.String("nodeID", row.NodeID),
	)
	return common.Success(anchor)
}

// InsertMany maps every anchor before writing anything and then stores them
// in one bulk write. A single bad anchor aborts the whole batch.
func (s *AnchorStore) InsertMany(ctx context.Context, anchors []*entities.Anchor) common.ServiceResponse[common.Empty] {
	if anchors == nil {
		return common.Failure[common.Empty]("input is null")
	}
	if len(anchors) == 0 {
		return common.Success(common.Empty{})
	}

	now := s.now()
	rows := make([]abstractions.Row, 0, len(anchors))
	for i, anchor := range anchors {
		row, err := toRow(anchor, now)
		if err != nil {
			return common.Failuref[common.Empty]("Failed to map anchor at index %d: %s", i, errors.GetAppError(err).Message)
		}
		rows = append(rows, row)
	}

	result, err := s.collection.InsertMany(ctx, rows)
	if err != nil {
		s.logger.Warn("Failed to insert anchors", zap.Int("count", len(rows)), zap.Error(err))
		return common.Failuref[common.Empty]("Failed to create new anchors. %v", err)
	}
	if !result.OK {
		return common.Failure[common.Empty]("Failed to create new anchors.")
	}
	return common.Success(common.Empty{})
}

// FindOne looks up an anchor by id.
func (s *AnchorStore) FindOne(ctx context.Context, anchorID string) common.ServiceResponse[*entities.Anchor] {
	if anchorID == "" {
		return common.Failure[*entities.Anchor]("input is null")
	}

	doc, err := s.collection.FindOne(ctx, abstractions.ByID(anchorID))
	if stderrors.Is(err, abstractions.ErrNoDocuments) {
		return common.Failuref[*entities.Anchor]("Failed to find anchor with anchorId: %s", anchorID)
	}
	if err != nil {
		s.logger.Warn("Failed to query anchor", zap.String("anchorID", anchorID), zap.Error(err))
		return common.Failuref[*entities.Anchor]("Failed to find anchor with anchorId: %s. %v", anchorID, err)
	}

	anchor, err := decodeAnchor(doc)
	if err == nil && anchor.AnchorID != anchorID {
		err = errors.NewMappingError("row key does not match " + anchorID)
	}
	return common.FromResult(anchor, err, "Failed to find anchor\n")
}

// FindMany returns every requested anchor that exists and maps cleanly.
// Missing ids are absent from the result; the call fails only when nothing
// was found.
func (s *AnchorStore) FindMany(ctx context.Context, anchorIDs []string) common.ServiceResponse[ports.AnchorMap] {
	if anchorIDs == nil {
		return common.Failure[ports.AnchorMap]("input is null")
	}
	if len(anchorIDs) == 0 {
		return common.Failure[ports.AnchorMap]("Failed to find any anchors at that path.")
	}
	return s.findMany(ctx, abstractions.ByIDs(anchorIDs))
}

// FindManyByNode returns the anchors attached to a node, with the same
// partial-result policy as FindMany.
func (s *AnchorStore) FindManyByNode(ctx context.Context, nodeID string) common.ServiceResponse[ports.AnchorMap] {
	if nodeID == "" {
		return common.Failure[ports.AnchorMap]("input is null")
	}
	return s.findMany(ctx, abstractions.ByNode(nodeID))
}

func (s *AnchorStore) findMany(ctx context.Context, filter abstractions.Filter) common.ServiceResponse[ports.AnchorMap] {
	docs, err := s.collection.Find(ctx, filter)
	if err != nil {
		s.logger.Warn("Failed to query anchors",
			zap.String("field", filter.Field),
			zap.Int("keys", len(filter.Values)),
			zap.Error(err),
		)
		return common.Failuref[ports.AnchorMap]("Failed to find anchors. %v", err)
	}

	anchors := make(ports.AnchorMap, len(docs))
	skipped := 0
	for _, doc := range docs {
		anchor, err := decodeAnchor(doc)
		if err != nil {
			skipped++
			s.logger.Debug("Skipping unmappable anchor row", zap.Error(err))
			continue
		}
		anchors[anchor.AnchorID] = anchor
	}
	if skipped > 0 {
		s.logger.Warn("Skipped unmappable anchor rows",
			zap.String("field", filter.Field),
			zap.Int("skipped", skipped),
			zap.Int("found", len(anchors)),
		)
	}

	if len(anchors) == 0 {
		return common.Failure[ports.AnchorMap]("Failed to find any anchors at that path.")
	}
	return common.Success(anchors)
}

// DeleteOne removes an anchor. Deleting an id that does not exist succeeds.
func (s *AnchorStore) DeleteOne(ctx context.Context, anchorID string) common.ServiceResponse[common.Empty] {
	if anchorID == "" {
		return common.Failure[common.Empty]("input is null")
	}
	return s.delete(ctx, "DeleteOne", s.collection.DeleteOne, abstractions.ByID(anchorID), "Failed to delete")
}

// DeleteMany removes every listed anchor in one command.
func (s *AnchorStore) DeleteMany(ctx context.Context, anchorIDs []string) common.ServiceResponse[common.Empty] {
	if anchorIDs == nil {
		return common.Failure[common.Empty]("input is null")
	}
	if len(anchorIDs) == 0 {
		return common.Success(common.Empty{})
	}
	return s.delete(ctx, "DeleteMany", s.collection.DeleteMany, abstractions.ByIDs(anchorIDs), "Failed to delete anchors")
}

// DeleteManyByNode removes every anchor attached to a node.
func (s *AnchorStore) DeleteManyByNode(ctx context.Context, nodeID string) common.ServiceResponse[common.Empty] {
	if nodeID == "" {
		return common.Failure[common.Empty]("input is null")
	}
	return s.delete(ctx, "DeleteManyByNode", s.collection.DeleteMany, abstractions.ByNode(nodeID), "Failed to delete anchors")
}

// ClearAll removes every anchor in the collection.
func (s *AnchorStore) ClearAll(ctx context.Context) common.ServiceResponse[common.Empty] {
	return s.delete(ctx, "ClearAll", s.collection.DeleteMany, abstractions.All(), "Failed to clear anchor collection.")
}

type deleteFunc func(ctx context.Context, filter abstractions.Filter) (abstractions.Result, error)

// delete runs one delete command. op only labels the log entries.
func (s *AnchorStore) delete(ctx context.Context, op string, del deleteFunc, filter abstractions.Filter, message string) common.ServiceResponse[common.Empty] {
	result, err := del(ctx, filter)
	if err != nil {
		s.logger.Warn("Delete command failed",
			zap.String("operation", op),
			zap.String("field", filter.Field),
			zap.Error(err),
		)
		return common.Failuref[common.Empty]("%s. %v", strings.TrimSuffix(message, "."), err)
	}
	if !result.OK {
		return common.Failure[common.Empty](message)
	}

	s.logger.Debug("Delete command executed",
		zap.String("operation", op),
		zap.String("field", filter.Field),
		zap.Int("deleted", result.N),
	)
	return common.Success(common.Empty{})
}

func decodeAnchor(doc abstractions.Document) (*entities.Anchor, error) {
	var row abstractions.Row
	if err := doc.Decode(&row); err != nil {
		return nil, errors.NewMappingError("row cannot be decoded").WithCause(err)
	}
	return toAnchor(row)
}
