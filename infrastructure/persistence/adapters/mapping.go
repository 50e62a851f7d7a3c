package adapters

import (
	"fmt"
	"time"

	"github.com/KiraKC/Spectacle-Hypertext/domain/core/entities"
	"github.com/KiraKC/Spectacle-Hypertext/infrastructure/persistence/abstractions"
	"github.com/KiraKC/Spectacle-Hypertext/pkg/errors"
)

// toRow converts an anchor into its storage row. It fails when a required
// field is missing or the extent is inconsistent.
func toRow(anchor *entities.Anchor, now time.Time) (abstractions.Row, error) {
	if anchor == nil {
		return abstractions.Row{}, errors.NewMappingError("anchor is nil")
	}
	if err := anchor.Validate(); err != nil {
		return abstractions.Row{}, errors.NewMappingError(err.Error())
	}

	row := abstractions.Row{
		ID:             anchor.AnchorID,
		EntityType:     abstractions.EntityTypeAnchor,
		NodeID:         anchor.NodeID,
		MediaTimeStamp: copyFloat(anchor.MediaTimeStamp),
		CreatedAt:      now.UTC().Format(time.RFC3339),
	}
	if ext := anchor.Extent; ext != nil {
		start, end := ext.StartCharacter, ext.EndCharacter
		row.ExtentType = ext.Type
		row.StartCharacter = &start
		row.EndCharacter = &end
		row.Text = ext.Text
	}
	return row, nil
}

// toAnchor converts a stored row back into an anchor. Rows written by other
// tools or older schemas may be rejected here.
func toAnchor(row abstractions.Row) (*entities.Anchor, error) {
	if row.ID == "" {
		return nil, errors.NewMappingError("row has no _id")
	}
	if row.EntityType != abstractions.EntityTypeAnchor {
		return nil, errors.NewMappingError(fmt.Sprintf("row %s has entity type %q", row.ID, row.EntityType))
	}

	anchor := &entities.Anchor{
		AnchorID:       row.ID,
		NodeID:         row.NodeID,
		MediaTimeStamp: copyFloat(row.MediaTimeStamp),
	}

	hasRange := row.StartCharacter != nil || row.EndCharacter != nil
	switch {
	case row.ExtentType != "" && row.StartCharacter != nil && row.EndCharacter != nil:
		anchor.Extent = &entities.Extent{
			Type:           row.ExtentType,
			StartCharacter: *row.StartCharacter,
			EndCharacter:   *row.EndCharacter,
			Text:           row.Text,
		}
	case row.ExtentType != "" || hasRange:
		return nil, errors.NewMappingError(fmt.Sprintf("row %s has an incomplete extent", row.ID))
	}

	if err := anchor.Validate(); err != nil {
		return nil, errors.NewMappingError(fmt.Sprintf("row %s: %v", row.ID, err))
	}
	return anchor, nil
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
