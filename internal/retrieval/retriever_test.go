package retrieval

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/askdb/internal/corpus"
	"github.com/jonathan/askdb/internal/index"
)

// keywordEmbedder maps text onto a fixed vocabulary, one dimension per word
type keywordEmbedder struct {
	calls    atomic.Int32
	failures atomic.Int32
}

var vocabulary = []string{"sales", "customer", "product", "order", "date"}

func (e *keywordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.calls.Add(1)
	if e.failures.Add(-1) >= 0 {
		return nil, errors.New("transient")
	}
	lower := strings.ToLower(text)
	vec := make([]float32, len(vocabulary))
	for i, w := range vocabulary {
		vec[i] = float32(strings.Count(lower, w))
	}
	return vec, nil
}

func (e *keywordEmbedder) Name() string { return "keywords" }

const examplesCSV = `id,question,sql
e1,total sales by date,SELECT sum(soh.TotalDue) FROM SalesOrderHeader soh
e2,customer names,SELECT c.Name FROM Customer c
e3,product list,SELECT p.Name FROM Product p
`

const schemaCSV = `id,description,table
s1,sales order header with order date,Table: SalesOrderHeader
s2,customer table,Table: Customer
s3,product catalog,Table: Product
`

func newTestRetriever(t *testing.T, emb *keywordEmbedder, idx index.Index) *Retriever {
	t.Helper()
	examples, err := corpus.ParseCSV(corpus.Examples, strings.NewReader(examplesCSV), nil)
	require.NoError(t, err)
	schema, err := corpus.ParseCSV(corpus.Schema, strings.NewReader(schemaCSV), nil)
	require.NoError(t, err)
	return New(emb, idx, nil, examples, schema)
}

func openIndex(t *testing.T, path string) *index.SQLiteIndex {
	t.Helper()
	idx, err := index.OpenSQLite(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestRetriever_RetrieveContext(t *testing.T) {
	ctx := context.Background()
	emb := &keywordEmbedder{}
	r := newTestRetriever(t, emb, openIndex(t, filepath.Join(t.TempDir(), "idx.db")))

	_, err := r.Build(ctx)
	require.NoError(t, err)

	rc, err := r.RetrieveContext(ctx, "Show total sales this year by order date")
	require.NoError(t, err)
	require.Len(t, rc.ExampleIDs, 2)
	require.Len(t, rc.SchemaIDs, 2)
	assert.Equal(t, "e1", rc.ExampleIDs[0])
	assert.Equal(t, "s1", rc.SchemaIDs[0])
}

func TestRetriever_Deterministic(t *testing.T) {
	ctx := context.Background()
	r := newTestRetriever(t, &keywordEmbedder{}, openIndex(t, filepath.Join(t.TempDir(), "idx.db")))
	_, err := r.Build(ctx)
	require.NoError(t, err)

	first, err := r.Retrieve(ctx, corpus.Examples, "customer product")
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := r.Retrieve(ctx, corpus.Examples, "customer product")
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	// equal scores are ordered by id
	assert.Equal(t, []string{"e2", "e3"}, first)
}

func TestRetriever_BuildIsIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "idx.db")

	emb := &keywordEmbedder{}
	stats, err := newTestRetriever(t, emb, openIndex(t, path)).Build(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, 3, stats[0].Added)
	assert.Equal(t, int32(6), emb.calls.Load())

	// a second startup against the same index file embeds nothing
	emb2 := &keywordEmbedder{}
	idx2 := openIndex(t, path)
	stats, err = newTestRetriever(t, emb2, idx2).Build(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats[0].Added)
	assert.Equal(t, 3, stats[0].Skipped)
	assert.Equal(t, int32(0), emb2.calls.Load())

	n, err := idx2.Count(ctx, corpus.Examples)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestRetriever_BuildRetriesTransientEmbedFailures(t *testing.T) {
	emb := &keywordEmbedder{}
	emb.failures.Store(1)
	r := newTestRetriever(t, emb, openIndex(t, filepath.Join(t.TempDir(), "idx.db")))

	_, err := r.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(7), emb.calls.Load())
}

func TestRetriever_EmptyCorpus(t *testing.T) {
	empty, err := corpus.ParseCSV(corpus.Examples, strings.NewReader("id,q,sql\n"), nil)
	require.NoError(t, err)
	emb := &keywordEmbedder{}
	r := New(emb, openIndex(t, filepath.Join(t.TempDir(), "idx.db")), nil, empty)

	ids, err := r.Retrieve(context.Background(), corpus.Examples, "anything")
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.NotNil(t, ids)

	ids, err = r.Retrieve(context.Background(), corpus.Schema, "anything")
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Equal(t, int32(0), emb.calls.Load())
}

func TestRetriever_SmallCorpus(t *testing.T) {
	one, err := corpus.ParseCSV(corpus.Schema, strings.NewReader("id,d,t\ns1,sales,Table: S\n"), nil)
	require.NoError(t, err)
	r := New(&keywordEmbedder{}, openIndex(t, filepath.Join(t.TempDir(), "idx.db")), nil, one)
	_, err = r.Build(context.Background())
	require.NoError(t, err)

	ids, err := r.Retrieve(context.Background(), corpus.Schema, "sales")
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, ids)
}

func TestRetriever_RebuildTracksCorpusChanges(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "idx.db")

	full, err := corpus.ParseCSV(corpus.Schema, strings.NewReader(schemaCSV), nil)
	require.NoError(t, err)
	_, err = New(&keywordEmbedder{}, openIndex(t, path), nil, full).Build(ctx)
	require.NoError(t, err)

	tests := []struct {
		name        string
		csv         string
		question    string
		want        []string
		wantAdded   int
		wantRemoved int
	}{
		{
			name:        "removed rows are pruned",
			csv:         "id,description,table\ns3,product catalog,Table: Product\n",
			question:    "sales order by customer",
			want:        []string{"s3"},
			wantRemoved: 2,
		},
		{
			name:      "changed rows are embedded again",
			csv:       "id,description,table\ns3,sales per customer,Table: Product\n",
			question:  "sales per customer",
			want:      []string{"s3"},
			wantAdded: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := corpus.ParseCSV(corpus.Schema, strings.NewReader(tt.csv), nil)
			require.NoError(t, err)
			idx := openIndex(t, path)
			r := New(&keywordEmbedder{}, idx, nil, c)

			stats, err := r.Build(ctx)
			require.NoError(t, err)
			require.Len(t, stats, 1)
			assert.Equal(t, tt.wantAdded, stats[0].Added)
			assert.Equal(t, tt.wantRemoved, stats[0].Removed)

			ids, err := r.Retrieve(ctx, corpus.Schema, tt.question)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids)

			n, err := idx.Count(ctx, corpus.Schema)
			require.NoError(t, err)
			assert.Equal(t, 1, n)
		})
	}

	// the re-embedded vector now matches the new text
	idx := openIndex(t, path)
	emb := &keywordEmbedder{}
	vec, err := emb.Embed(ctx, "sales per customer")
	require.NoError(t, err)
	matches, err := idx.Search(ctx, corpus.Schema, vec, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-6)
}

func TestRetriever_SkipsIdsMissingFromCorpus(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "idx.db")

	full, err := corpus.ParseCSV(corpus.Schema, strings.NewReader(schemaCSV), nil)
	require.NoError(t, err)
	_, err = New(&keywordEmbedder{}, openIndex(t, path), nil, full).Build(ctx)
	require.NoError(t, err)

	// no rebuild: the index still holds s1 and s2
	only, err := corpus.ParseCSV(corpus.Schema, strings.NewReader("id,description,table\ns3,product catalog,Table: Product\n"), nil)
	require.NoError(t, err)
	r := New(&keywordEmbedder{}, openIndex(t, path), nil, only)

	ids, err := r.Retrieve(ctx, corpus.Schema, "sales order by customer")
	require.NoError(t, err)
	assert.Equal(t, []string{"s3"}, ids)
}
