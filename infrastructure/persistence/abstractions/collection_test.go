package abstractions

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterMatches(t *testing.T) {
	row := Row{ID: "a1", NodeID: "n1"}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"all", All(), true},
		{"by id", ByID("a1"), true},
		{"other id", ByID("a2"), false},
		{"id set", ByIDs([]string{"x", "a1"}), true},
		{"empty id set", ByIDs(nil), false},
		{"by node", ByNode("n1"), true},
		{"other node", ByNode("n2"), false},
		{"unknown field", Filter{Field: "text", Values: []string{"a1"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(row))
		})
	}
}

func TestRowDocumentDecode(t *testing.T) {
	var row Row
	err := RowDocument(Row{ID: "a1", NodeID: "n1"}).Decode(&row)
	assert.NoError(t, err)
	assert.Equal(t, "a1", row.ID)
	assert.Equal(t, "n1", row.NodeID)
}
