// Package sqlite stores anchors in a single SQLite table using the pure-Go
// modernc.org/sqlite driver. Each row keeps the full document as JSON next
// to the indexed key columns.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/KiraKC/Spectacle-Hypertext/infrastructure/persistence/abstractions"
	"github.com/KiraKC/Spectacle-Hypertext/pkg/errors"

	sqlitedriver "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const driverName = "sqlite"

// Collection is an abstractions.Collection over an SQLite database.
type Collection struct {
	db *sql.DB
}

var _ abstractions.Collection = (*Collection)(nil)

// Open opens (creating if needed) the database at path and applies the
// schema. ":memory:" gives a private in-memory database.
func Open(path string) (*Collection, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps ":memory:"
	// databases from splitting across connections.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Collection{db: db}, nil
}

// Close releases the database handle.
func (c *Collection) Close() error {
	return c.db.Close()
}

// Ping checks that the database is reachable.
func (c *Collection) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *Collection) InsertOne(ctx context.Context, row abstractions.Row) (abstractions.Result, error) {
	return c.InsertMany(ctx, []abstractions.Row{row})
}

// InsertMany writes all rows in one transaction.
func (c *Collection) InsertMany(ctx context.Context, rows []abstractions.Row) (abstractions.Result, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return abstractions.Result{}, errors.NewDatabaseError("begin", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO anchors (anchor_id, node_id, body, created_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return abstractions.Result{}, errors.NewDatabaseError("prepare insert", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		body, err := json.Marshal(row)
		if err != nil {
			return abstractions.Result{}, errors.NewMappingError("cannot encode row " + row.ID).WithCause(err)
		}
		createdAt := row.CreatedAt
		if createdAt == "" {
			createdAt = time.Now().UTC().Format(time.RFC3339)
		}
		if _, err := stmt.ExecContext(ctx, row.ID, row.NodeID, string(body), createdAt); err != nil {
			if isConstraintViolation(err) {
				return abstractions.Result{}, errors.NewConflictError(fmt.Sprintf("duplicate key %s", row.ID)).WithCause(err)
			}
			return abstractions.Result{}, errors.NewDatabaseError("insert", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return abstractions.Result{}, errors.NewDatabaseError("commit", err)
	}
	return abstractions.Result{OK: true, N: len(rows)}, nil
}

func (c *Collection) FindOne(ctx context.Context, filter abstractions.Filter) (abstractions.Document, error) {
	where, args, err := whereClause(filter)
	if err != nil {
		return nil, err
	}

	var body string
	err = c.db.QueryRowContext(ctx, "SELECT body FROM anchors WHERE "+where+" LIMIT 1", args...).Scan(&body)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, abstractions.ErrNoDocuments
	}
	if err != nil {
		return nil, errors.NewDatabaseError("find", err)
	}
	return jsonDocument(body), nil
}

func (c *Collection) Find(ctx context.Context, filter abstractions.Filter) ([]abstractions.Document, error) {
	where, args, err := whereClause(filter)
	if err != nil {
		return nil, err
	}

	rows, err := c.db.QueryContext(ctx, "SELECT body FROM anchors WHERE "+where+" ORDER BY created_at, anchor_id", args...)
	if err != nil {
		return nil, errors.NewDatabaseError("find", err)
	}
	defer rows.Close()

	var docs []abstractions.Document
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, errors.NewDatabaseError("scan", err)
		}
		docs = append(docs, jsonDocument(body))
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDatabaseError("find", err)
	}
	return docs, nil
}

func (c *Collection) DeleteOne(ctx context.Context, filter abstractions.Filter) (abstractions.Result, error) {
	where, args, err := whereClause(filter)
	if err != nil {
		return abstractions.Result{}, err
	}
	return c.exec(ctx,
		"DELETE FROM anchors WHERE rowid IN (SELECT rowid FROM anchors WHERE "+where+" LIMIT 1)", args...)
}

func (c *Collection) DeleteMany(ctx context.Context, filter abstractions.Filter) (abstractions.Result, error) {
	where, args, err := whereClause(filter)
	if err != nil {
		return abstractions.Result{}, err
	}
	return c.exec(ctx, "DELETE FROM anchors WHERE "+where, args...)
}

func (c *Collection) exec(ctx context.Context, query string, args ...any) (abstractions.Result, error) {
	res, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return abstractions.Result{}, errors.NewDatabaseError("delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return abstractions.Result{OK: true}, nil
	}
	return abstractions.Result{OK: true, N: int(n)}, nil
}

// whereClause renders a filter as an SQL predicate with positional args.
func whereClause(filter abstractions.Filter) (string, []any, error) {
	var column string
	switch filter.Field {
	case "":
		return "1 = 1", nil, nil
	case abstractions.FieldID:
		column = "anchor_id"
	case abstractions.FieldNodeID:
		column = "node_id"
	default:
		return "", nil, errors.NewValidationError(fmt.Sprintf("unsupported filter field %q", filter.Field))
	}

	if len(filter.Values) == 0 {
		return "1 = 0", nil, nil
	}
	if len(filter.Values) == 1 {
		return column + " = ?", []any{filter.Values[0]}, nil
	}

	placeholders := make([]string, len(filter.Values))
	args := make([]any, len(filter.Values))
	for i, v := range filter.Values {
		placeholders[i] = "?"
		args[i] = v
	}
	return column + " IN (" + strings.Join(placeholders, ", ") + ")", args, nil
}

func isConstraintViolation(err error) bool {
	var sqliteErr *sqlitedriver.Error
	if stderrors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
	}
	return false
}

// jsonDocument is a row body that has not been decoded yet.
type jsonDocument string

func (d jsonDocument) Decode(row *abstractions.Row) error {
	return json.Unmarshal([]byte(d), row)
}
