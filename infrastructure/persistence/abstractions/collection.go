package abstractions

import (
	"context"
	"errors"
)

// ErrNoDocuments is returned by FindOne when no row matches the filter.
var ErrNoDocuments = errors.New("no documents in result")

// Row field names usable in filters.
const (
	FieldID     = "_id"
	FieldNodeID = "nodeId"
)

// EntityTypeAnchor tags anchor rows.
const EntityTypeAnchor = "ANCHOR"

// Row is the driver-neutral document an anchor is stored as.
type Row struct {
	ID             string   `dynamodbav:"PK" json:"_id"`
	EntityType     string   `dynamodbav:"EntityType" json:"entityType"`
	NodeID         string   `dynamodbav:"NodeID" json:"nodeId"`
	ExtentType     string   `dynamodbav:"ExtentType,omitempty" json:"extentType,omitempty"`
	StartCharacter *int     `dynamodbav:"StartCharacter,omitempty" json:"startCharacter,omitempty"`
	EndCharacter   *int     `dynamodbav:"EndCharacter,omitempty" json:"endCharacter,omitempty"`
	Text           string   `dynamodbav:"Text,omitempty" json:"text,omitempty"`
	MediaTimeStamp *float64 `dynamodbav:"MediaTimeStamp,omitempty" json:"mediaTimeStamp,omitempty"`
	CreatedAt      string   `dynamodbav:"CreatedAt" json:"createdAt"`
}

// Document is a row as returned by a driver. Decoding is deferred so that
// one malformed row does not fail a whole query.
type Document interface {
	Decode(row *Row) error
}

// RowDocument is a Document that is already decoded.
type RowDocument Row

// Decode copies the row.
func (d RowDocument) Decode(row *Row) error {
	*row = Row(d)
	return nil
}

// FilterOperator defines the type of comparison
type FilterOperator string

const (
	OpEqual FilterOperator = "eq"
	OpIn    FilterOperator = "in"
)

// Filter selects rows whose Field equals one of Values. The zero Filter
// matches every row.
type Filter struct {
	Field    string
	Operator FilterOperator
	Values   []string
}

// ByID matches a single primary key.
func ByID(id string) Filter {
	return Filter{Field: FieldID, Operator: OpEqual, Values: []string{id}}
}

// ByIDs matches any of the given primary keys.
func ByIDs(ids []string) Filter {
	return Filter{Field: FieldID, Operator: OpIn, Values: ids}
}

// ByNode matches every row attached to a node.
func ByNode(nodeID string) Filter {
	return Filter{Field: FieldNodeID, Operator: OpIn, Values: []string{nodeID}}
}

// All matches every row.
func All() Filter {
	return Filter{}
}

// IsAll reports whether the filter matches every row.
func (f Filter) IsAll() bool {
	return f.Field == ""
}

// Matches evaluates the filter against a decoded row.
func (f Filter) Matches(row Row) bool {
	if f.IsAll() {
		return true
	}
	var value string
	switch f.Field {
	case FieldID:
		value = row.ID
	case FieldNodeID:
		value = row.NodeID
	default:
		return false
	}
	for _, v := range f.Values {
		if v == value {
			return true
		}
	}
	return false
}

// Result acknowledges a write or delete command. OK is false when the store
// did not confirm the command; N counts affected rows where the driver
// knows it.
type Result struct {
	OK bool
	N  int
}

// Collection is the document-store surface the anchor store is written
// against. Drivers return errors for execution failures and report rejected
// duplicates as conflict errors.
type Collection interface {
	InsertOne(ctx context.Context, row Row) (Result, error)
	InsertMany(ctx context.Context, rows []Row) (Result, error)
	FindOne(ctx context.Context, filter Filter) (Document, error)
	Find(ctx context.Context, filter Filter) ([]Document, error)
	DeleteOne(ctx context.Context, filter Filter) (Result, error)
	DeleteMany(ctx context.Context, filter Filter) (Result, error)
}
