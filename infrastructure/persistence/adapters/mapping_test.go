package adapters

import (
	"testing"
	"time"

	"github.com/KiraKC/Spectacle-Hypertext/domain/core/entities"
	"github.com/KiraKC/Spectacle-Hypertext/infrastructure/persistence/abstractions"
	"github.com/KiraKC/Spectacle-Hypertext/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToRow(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	a, err := entities.NewTextAnchor("a1", "n1", 2, 5, "abcd")
	require.NoError(t, err)

	row, err := toRow(a, now)
	require.NoError(t, err)
	assert.Equal(t, "a1", row.ID)
	assert.Equal(t, abstractions.EntityTypeAnchor, row.EntityType)
	assert.Equal(t, "text", row.ExtentType)
	require.NotNil(t, row.StartCharacter)
	assert.Equal(t, 2, *row.StartCharacter)
	assert.Equal(t, 5, *row.EndCharacter)
	assert.Equal(t, "2024-03-01T12:00:00Z", row.CreatedAt)
	assert.Nil(t, row.MediaTimeStamp)
}

func TestToRowRejectsInvalidAnchor(t *testing.T) {
	_, err := toRow(nil, time.Now())
	assert.True(t, errors.IsType(err, errors.ErrorTypeMapping))

	_, err = toRow(&entities.Anchor{NodeID: "n1"}, time.Now())
	assert.True(t, errors.IsType(err, errors.ErrorTypeMapping))
}

func TestToAnchor(t *testing.T) {
	start, end := 1, 3
	ts := 9.5

	tests := []struct {
		name    string
		row     abstractions.Row
		wantErr bool
	}{
		{
			name: "text extent",
			row:  abstractions.Row{ID: "a1", EntityType: "ANCHOR", NodeID: "n1", ExtentType: "text", StartCharacter: &start, EndCharacter: &end, Text: "xy"},
		},
		{
			name: "media timestamp",
			row:  abstractions.Row{ID: "a1", EntityType: "ANCHOR", NodeID: "n1", MediaTimeStamp: &ts},
		},
		{
			name:    "missing id",
			row:     abstractions.Row{EntityType: "ANCHOR", NodeID: "n1"},
			wantErr: true,
		},
		{
			name:    "foreign entity type",
			row:     abstractions.Row{ID: "a1", EntityType: "NODE", NodeID: "n1"},
			wantErr: true,
		},
		{
			name:    "missing node",
			row:     abstractions.Row{ID: "a1", EntityType: "ANCHOR"},
			wantErr: true,
		},
		{
			name:    "range without type",
			row:     abstractions.Row{ID: "a1", EntityType: "ANCHOR", NodeID: "n1", StartCharacter: &start, EndCharacter: &end},
			wantErr: true,
		},
		{
			name:    "inverted range",
			row:     abstractions.Row{ID: "a1", EntityType: "ANCHOR", NodeID: "n1", ExtentType: "text", StartCharacter: &end, EndCharacter: &start},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			anchor, err := toAnchor(tt.row)
			if tt.wantErr {
				assert.True(t, errors.IsType(err, errors.ErrorTypeMapping))
				assert.Nil(t, anchor)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.row.ID, anchor.AnchorID)
		})
	}
}
