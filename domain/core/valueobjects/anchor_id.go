package valueobjects

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// IDListSeparator joins anchor ids in a single URL path segment. Ids must
// never contain it.
const IDListSeparator = ","

// NewAnchorID creates a new random anchor id
func NewAnchorID() string {
	return uuid.New().String()
}

// ValidateAnchorID checks that an id can be stored and sent in an id list.
func ValidateAnchorID(id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("anchor ID cannot be empty")
	}
	if strings.Contains(id, IDListSeparator) {
		return fmt.Errorf("anchor ID %q must not contain %q", id, IDListSeparator)
	}
	return nil
}

// AnchorIDList is an ordered sequence of anchor ids addressed in one bulk call.
type AnchorIDList []string

// NewAnchorIDList validates every id and drops repeats, keeping first-seen order.
func NewAnchorIDList(ids ...string) (AnchorIDList, error) {
	if len(ids) == 0 {
		return nil, errors.New("anchor ID list cannot be empty")
	}
	seen := make(map[string]struct{}, len(ids))
	list := make(AnchorIDList, 0, len(ids))
	for _, id := range ids {
		if err := ValidateAnchorID(id); err != nil {
			return nil, err
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		list = append(list, id)
	}
	return list, nil
}

// ParseAnchorIDList splits a path segment produced by AnchorIDList.String.
func ParseAnchorIDList(segment string) (AnchorIDList, error) {
	if segment == "" {
		return nil, errors.New("anchor ID list cannot be empty")
	}
	return NewAnchorIDList(strings.Split(segment, IDListSeparator)...)
}

// String joins the ids with IDListSeparator.
func (l AnchorIDList) String() string {
	return strings.Join(l, IDListSeparator)
}

// Strings returns the ids as a plain slice.
func (l AnchorIDList) Strings() []string {
	return []string(l)
}
