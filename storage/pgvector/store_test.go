package pgvector

import (
	"context"
	"os"
	"testing"

	"github.com/poiesic/quickrag/core"
	"github.com/poiesic/quickrag/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestStore connects to QUICKRAG_TEST_DATABASE_URL and empties the
// documents table. Tests are skipped when the variable is unset.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("QUICKRAG_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("QUICKRAG_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	store, err := Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	_, err = store.db.ExecContext(ctx, `TRUNCATE quickrag_documents`)
	require.NoError(t, err)
	return store
}

func makeDoc(content string, vector ...float32) *core.Document {
	doc := core.NewDocument(content, map[string]string{"source_id": "src"})
	doc.Embedding = vector
	return doc
}

func TestOpen_EmptyDSN(t *testing.T) {
	_, err := Open(context.Background(), "")
	assert.Error(t, err)
}

func TestMarshalMeta(t *testing.T) {
	data, err := marshalMeta(nil)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))

	var doc core.Document
	require.NoError(t, unmarshalMeta(data, &doc))
	assert.Nil(t, doc.Meta)

	data, err = marshalMeta(map[string]string{"split_id": "3"})
	require.NoError(t, err)
	require.NoError(t, unmarshalMeta(data, &doc))
	assert.Equal(t, map[string]string{"split_id": "3"}, doc.Meta)

	assert.ErrorIs(t, unmarshalMeta([]byte("{"), &doc), storage.ErrSerializationFailed)
}

func TestWriteDocuments_Policies(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	docs := []*core.Document{makeDoc("alpha", 1, 0), makeDoc("beta", 0, 1)}
	res, err := store.WriteDocuments(ctx, docs, core.DuplicatePolicySkip)
	require.NoError(t, err)
	assert.Equal(t, core.WriteResult{Written: 2}, res)

	res, err = store.WriteDocuments(ctx, []*core.Document{makeDoc("alpha", 0, 1)}, core.DuplicatePolicySkip)
	require.NoError(t, err)
	assert.Equal(t, core.WriteResult{Skipped: 1}, res)

	got, err := store.GetDocuments(ctx, docs[0].ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []float32{1, 0}, got[0].Embedding)

	res, err = store.WriteDocuments(ctx, []*core.Document{makeDoc("alpha", 0, 1)}, core.DuplicatePolicyOverwrite)
	require.NoError(t, err)
	assert.Equal(t, core.WriteResult{Written: 1}, res)

	_, err = store.WriteDocuments(ctx, []*core.Document{makeDoc("gamma", 1, 0), makeDoc("beta", 0, 1)}, core.DuplicatePolicyFail)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	count, err := store.CountDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestFindSimilar(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	docs := []*core.Document{
		makeDoc("exact", 1, 0),
		makeDoc("close", 0.8, 0.6),
		makeDoc("orthogonal", 0, 1),
	}
	_, err := store.WriteDocuments(ctx, docs, core.DuplicatePolicySkip)
	require.NoError(t, err)

	results, err := store.FindSimilar(ctx, []float32{1, 0}, 0.5, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "exact", results[0].Content)
	assert.InDelta(t, 1.0, results[0].Score, 0.0001)
	assert.Equal(t, "close", results[1].Content)
	assert.Equal(t, map[string]string{"source_id": "src"}, results[1].Meta)

	_, err = store.FindSimilar(ctx, nil, 0, 1)
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)
}

func TestFindSimilar_SkipsOtherDimensions(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	docs := []*core.Document{
		makeDoc("two dims", 1, 0),
		makeDoc("three dims", 1, 0, 0),
	}
	_, err := store.WriteDocuments(ctx, docs, core.DuplicatePolicySkip)
	require.NoError(t, err)

	results, err := store.FindSimilar(ctx, []float32{1, 0}, 0, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "two dims", results[0].Content)

	results, err = store.FindSimilar(ctx, []float32{0, 0, 1, 0}, -1, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}
