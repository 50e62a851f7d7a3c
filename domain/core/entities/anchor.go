package entities

import (
	"fmt"

	"github.com/KiraKC/Spectacle-Hypertext/pkg/utils"
)

// ExtentTypeText marks an extent that selects a character range of a text node.
const ExtentTypeText = "text"

// Anchor binds a piece of metadata to a node of the document graph.
// Anchors are immutable once stored; replacing one means delete and create.
type Anchor struct {
	AnchorID       string   `json:"anchorId" validate:"required,excludesall=0x2C"`
	NodeID         string   `json:"nodeId" validate:"required"`
	Extent         *Extent  `json:"extent,omitempty" validate:"omitempty"`
	MediaTimeStamp *float64 `json:"mediaTimeStamp,omitempty" validate:"omitempty,min=0"`
}

// Extent is the text range an anchor selects.
type Extent struct {
	Type           string `json:"type" validate:"required,oneof=text"`
	StartCharacter int    `json:"startCharacter" validate:"min=0"`
	EndCharacter   int    `json:"endCharacter" validate:"gtefield=StartCharacter"`
	Text           string `json:"text"`
}

// NewTextAnchor creates an anchor over the characters [start, end] of a text node.
func NewTextAnchor(anchorID, nodeID string, start, end int, text string) (*Anchor, error) {
	a := &Anchor{
		AnchorID: anchorID,
		NodeID:   nodeID,
		Extent: &Extent{
			Type:           ExtentTypeText,
			StartCharacter: start,
			EndCharacter:   end,
			Text:           text,
		},
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// NewMediaAnchor creates an anchor at a timestamp (in seconds) of a media node.
func NewMediaAnchor(anchorID, nodeID string, timestamp float64) (*Anchor, error) {
	a := &Anchor{
		AnchorID:       anchorID,
		NodeID:         nodeID,
		MediaTimeStamp: &timestamp,
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// Validate checks the required fields and the extent range.
func (a *Anchor) Validate() error {
	if a == nil {
		return fmt.Errorf("anchor is nil")
	}
	return utils.ValidateStruct(a)
}

// HasMediaTimeStamp reports whether the anchor carries a media timestamp.
func (a *Anchor) HasMediaTimeStamp() bool {
	return a != nil && a.MediaTimeStamp != nil
}

// Equals compares two anchors field by field.
func (a *Anchor) Equals(other *Anchor) bool {
	if a == nil || other == nil {
		return a == other
	}
	if a.AnchorID != other.AnchorID || a.NodeID != other.NodeID {
		return false
	}
	if (a.Extent == nil) != (other.Extent == nil) {
		return false
	}
	if a.Extent != nil && *a.Extent != *other.Extent {
		return false
	}
	if (a.MediaTimeStamp == nil) != (other.MediaTimeStamp == nil) {
		return false
	}
	return a.MediaTimeStamp == nil || *a.MediaTimeStamp == *other.MediaTimeStamp
}
