// Package memory provides an in-process anchor collection backed by
// go-memdb. It is used for local development and tests.
package memory

import (
	"context"
	"fmt"

	"github.com/KiraKC/Spectacle-Hypertext/infrastructure/persistence/abstractions"
	"github.com/KiraKC/Spectacle-Hypertext/pkg/errors"

	"github.com/hashicorp/go-memdb"
)

const (
	tableAnchors = "anchors"
	indexID      = "id"
	indexNode    = "node"
)

var schema = &memdb.DBSchema{
	Tables: map[string]*memdb.TableSchema{
		tableAnchors: {
			Name: tableAnchors,
			Indexes: map[string]*memdb.IndexSchema{
				indexID: {
					Name:    indexID,
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "ID"},
				},
				indexNode: {
					Name:         indexNode,
					AllowMissing: true,
					Indexer:      &memdb.StringFieldIndex{Field: "NodeID"},
				},
			},
		},
	},
}

// Collection is an abstractions.Collection held in memory.
type Collection struct {
	db *memdb.MemDB
}

var _ abstractions.Collection = (*Collection)(nil)

// NewCollection creates an empty in-memory collection.
func NewCollection() (*Collection, error) {
	db, err := memdb.NewMemDB(schema)
	if err != nil {
		return nil, fmt.Errorf("create memdb: %w", err)
	}
	return &Collection{db: db}, nil
}

func (c *Collection) InsertOne(ctx context.Context, row abstractions.Row) (abstractions.Result, error) {
	return c.InsertMany(ctx, []abstractions.Row{row})
}

// InsertMany writes all rows in a single transaction. Nothing is written if
// any id already exists.
func (c *Collection) InsertMany(ctx context.Context, rows []abstractions.Row) (abstractions.Result, error) {
	if err := ctx.Err(); err != nil {
		return abstractions.Result{}, err
	}

	txn := c.db.Txn(true)
	defer txn.Abort()

	for i := range rows {
		row := rows[i]
		existing, err := txn.First(tableAnchors, indexID, row.ID)
		if err != nil {
			return abstractions.Result{}, errors.NewDatabaseError("insert", err)
		}
		if existing != nil {
			return abstractions.Result{}, errors.NewConflictError(fmt.Sprintf("duplicate key %s", row.ID))
		}
		if err := txn.Insert(tableAnchors, &row); err != nil {
			return abstractions.Result{}, errors.NewDatabaseError("insert", err)
		}
	}

	txn.Commit()
	return abstractions.Result{OK: true, N: len(rows)}, nil
}

func (c *Collection) FindOne(ctx context.Context, filter abstractions.Filter) (abstractions.Document, error) {
	docs, err := c.find(ctx, c.db.Txn(false), filter, 1)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, abstractions.ErrNoDocuments
	}
	return abstractions.RowDocument(*docs[0]), nil
}

func (c *Collection) Find(ctx context.Context, filter abstractions.Filter) ([]abstractions.Document, error) {
	rows, err := c.find(ctx, c.db.Txn(false), filter, 0)
	if err != nil {
		return nil, err
	}
	docs := make([]abstractions.Document, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, abstractions.RowDocument(*row))
	}
	return docs, nil
}

func (c *Collection) DeleteOne(ctx context.Context, filter abstractions.Filter) (abstractions.Result, error) {
	return c.delete(ctx, filter, 1)
}

func (c *Collection) DeleteMany(ctx context.Context, filter abstractions.Filter) (abstractions.Result, error) {
	return c.delete(ctx, filter, 0)
}

func (c *Collection) delete(ctx context.Context, filter abstractions.Filter, limit int) (abstractions.Result, error) {
	txn := c.db.Txn(true)
	defer txn.Abort()

	rows, err := c.find(ctx, txn, filter, limit)
	if err != nil {
		return abstractions.Result{}, err
	}
	for _, row := range rows {
		if err := txn.Delete(tableAnchors, row); err != nil {
			return abstractions.Result{}, errors.NewDatabaseError("delete", err)
		}
	}

	txn.Commit()
	return abstractions.Result{OK: true, N: len(rows)}, nil
}

// find collects matching rows. A limit of zero means no limit.
func (c *Collection) find(ctx context.Context, txn *memdb.Txn, filter abstractions.Filter, limit int) ([]*abstractions.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var index string
	switch filter.Field {
	case "":
		return collect(limit, func() (memdb.ResultIterator, error) {
			return txn.Get(tableAnchors, indexID)
		})
	case abstractions.FieldID:
		index = indexID
	case abstractions.FieldNodeID:
		index = indexNode
	default:
		return nil, errors.NewValidationError(fmt.Sprintf("unsupported filter field %q", filter.Field))
	}

	seen := make(map[string]struct{})
	var rows []*abstractions.Row
	for _, value := range filter.Values {
		matched, err := collect(0, func() (memdb.ResultIterator, error) {
			return txn.Get(tableAnchors, index, value)
		})
		if err != nil {
			return nil, err
		}
		for _, row := range matched {
			if _, dup := seen[row.ID]; dup {
				continue
			}
			seen[row.ID] = struct{}{}
			rows = append(rows, row)
			if limit > 0 && len(rows) == limit {
				return rows, nil
			}
		}
	}
	return rows, nil
}

func collect(limit int, get func() (memdb.ResultIterator, error)) ([]*abstractions.Row, error) {
	it, err := get()
	if err != nil {
		return nil, errors.NewDatabaseError("find", err)
	}
	var rows []*abstractions.Row
	for obj := it.Next(); obj != nil; obj = it.Next() {
		rows = append(rows, obj.(*abstractions.Row))
		if limit > 0 && len(rows) == limit {
			break
		}
	}
	return rows, nil
}
