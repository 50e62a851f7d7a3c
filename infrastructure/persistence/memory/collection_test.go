package memory

import (
	"context"
	"testing"

	"github.com/KiraKC/Spectacle-Hypertext/infrastructure/persistence/abstractions"
	"github.com/KiraKC/Spectacle-Hypertext/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func row(id, node string) abstractions.Row {
	return abstractions.Row{ID: id, EntityType: abstractions.EntityTypeAnchor, NodeID: node}
}

func newCollection(t *testing.T, rows ...abstractions.Row) *Collection {
	t.Helper()
	c, err := NewCollection()
	require.NoError(t, err)
	if len(rows) > 0 {
		_, err = c.InsertMany(context.Background(), rows)
		require.NoError(t, err)
	}
	return c
}

func ids(t *testing.T, docs []abstractions.Document) []string {
	t.Helper()
	out := make([]string, 0, len(docs))
	for _, doc := range docs {
		var r abstractions.Row
		require.NoError(t, doc.Decode(&r))
		out = append(out, r.ID)
	}
	return out
}

func TestCollection_InsertOneRejectsDuplicate(t *testing.T) {
	ctx := context.Background()
	c := newCollection(t)

	res, err := c.InsertOne(ctx, row("a1", "n1"))
	require.NoError(t, err)
	assert.Equal(t, abstractions.Result{OK: true, N: 1}, res)

	_, err = c.InsertOne(ctx, row("a1", "n2"))
	require.Error(t, err)
	assert.True(t, errors.IsConflict(err))

	doc, err := c.FindOne(ctx, abstractions.ByID("a1"))
	require.NoError(t, err)
	var stored abstractions.Row
	require.NoError(t, doc.Decode(&stored))
	assert.Equal(t, "n1", stored.NodeID)
}

func TestCollection_InsertManyIsAtomic(t *testing.T) {
	ctx := context.Background()
	c := newCollection(t, row("a1", "n1"))

	_, err := c.InsertMany(ctx, []abstractions.Row{row("a2", "n1"), row("a1", "n1")})
	require.Error(t, err)
	assert.True(t, errors.IsConflict(err))

	_, err = c.FindOne(ctx, abstractions.ByID("a2"))
	assert.ErrorIs(t, err, abstractions.ErrNoDocuments)
}

func TestCollection_Find(t *testing.T) {
	ctx := context.Background()
	c := newCollection(t, row("a1", "n1"), row("a2", "n1"), row("a3", "n2"))

	docs, err := c.Find(ctx, abstractions.ByIDs([]string{"a1", "a3", "missing", "a1"}))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a1", "a3"}, ids(t, docs))

	docs, err = c.Find(ctx, abstractions.ByNode("n1"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a1", "a2"}, ids(t, docs))

	docs, err = c.Find(ctx, abstractions.All())
	require.NoError(t, err)
	assert.Len(t, docs, 3)

	docs, err = c.Find(ctx, abstractions.ByIDs([]string{}))
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestCollection_FindOneMissing(t *testing.T) {
	c := newCollection(t)
	_, err := c.FindOne(context.Background(), abstractions.ByID("nope"))
	assert.ErrorIs(t, err, abstractions.ErrNoDocuments)
}

func TestCollection_RowsWithoutNodeAreStored(t *testing.T) {
	ctx := context.Background()
	c := newCollection(t, abstractions.Row{ID: "orphan"})

	docs, err := c.Find(ctx, abstractions.ByIDs([]string{"orphan"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"orphan"}, ids(t, docs))

	docs, err = c.Find(ctx, abstractions.ByNode("n1"))
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestCollection_Delete(t *testing.T) {
	ctx := context.Background()
	c := newCollection(t, row("a1", "n1"), row("a2", "n1"), row("a3", "n2"), row("a4", "n3"))

	res, err := c.DeleteOne(ctx, abstractions.ByID("a4"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.N)

	res, err = c.DeleteOne(ctx, abstractions.ByID("a4"))
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Zero(t, res.N)

	res, err = c.DeleteMany(ctx, abstractions.ByNode("n1"))
	require.NoError(t, err)
	assert.Equal(t, 2, res.N)

	docs, err := c.Find(ctx, abstractions.All())
	require.NoError(t, err)
	assert.Equal(t, []string{"a3"}, ids(t, docs))

	res, err = c.DeleteMany(ctx, abstractions.All())
	require.NoError(t, err)
	assert.Equal(t, 1, res.N)
}

func TestCollection_UnsupportedField(t *testing.T) {
	c := newCollection(t)
	_, err := c.Find(context.Background(), abstractions.Filter{Field: "text", Values: []string{"x"}})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestCollection_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newCollection(t)
	_, err := c.InsertOne(ctx, row("a1", "n1"))
	assert.ErrorIs(t, err, context.Canceled)
}
