package pgvector

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adiirockstar/trial-matthew-schramm/internal/core/domain"
)

func TestNewIndex_Validation(t *testing.T) {
	ctx := context.Background()

	_, err := NewIndex(ctx, "", "", 3)
	assert.ErrorIs(t, err, domain.ErrConfigMissing)

	_, err = NewIndex(ctx, "postgres://localhost/codex", "", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = NewIndex(ctx, "::not a url::", "", 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing connection string")
}

func TestIndex_SQL(t *testing.T) {
	idx := &Index{table: "codex_vectors", dimension: 1536}

	t.Run("schema sizes the embedding column", func(t *testing.T) {
		stmts := idx.schemaStatements()
		require.Len(t, stmts, 3)
		assert.Equal(t, "CREATE EXTENSION IF NOT EXISTS vector", stmts[0])
		assert.Contains(t, stmts[1], `CREATE TABLE IF NOT EXISTS "codex_vectors"`)
		assert.Contains(t, stmts[1], "vector(1536)")
		assert.Contains(t, stmts[2], `"codex_vectors_file_idx" ON "codex_vectors" (file)`)
	})

	t.Run("upsert overwrites on conflict", func(t *testing.T) {
		assert.Contains(t, idx.upsertSQL(), "ON CONFLICT (id) DO UPDATE")
	})

	t.Run("query uses cosine distance", func(t *testing.T) {
		q := idx.querySQL()
		assert.Contains(t, q, "1 - (embedding <=> $1)")
		assert.Contains(t, q, "ORDER BY embedding <=> $1")
		assert.Contains(t, q, "LIMIT $2")
	})

	t.Run("table names are quoted", func(t *testing.T) {
		odd := &Index{table: `x"; DROP TABLE y; --`, dimension: 3}
		assert.True(t, strings.HasPrefix(odd.ident(), `"x""; DROP`))
	})
}

// TestIndex_Integration runs against a live database when CODEX_TEST_DATABASE_URL is set.
func TestIndex_Integration(t *testing.T) {
	dsn := os.Getenv("CODEX_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("CODEX_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	idx, err := NewIndex(ctx, dsn, "codex_vectors_test", 2)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = idx.pool.Exec(ctx, `DROP TABLE IF EXISTS "codex_vectors_test"`)
		_ = idx.Close()
	})

	dim, err := idx.Dimension(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, dim)

	require.NoError(t, idx.Upsert(ctx, []domain.VectorRecord{
		{ID: "a.md:0000", Values: []float32{1, 0}, Metadata: domain.ChunkMetadata{File: "a.md", Text: "a", Tags: []string{}}},
		{ID: "b.md:0000", Values: []float32{0, 1}, Metadata: domain.ChunkMetadata{File: "b.md", Text: "b", Tags: []string{}}},
	}))

	matches, err := idx.Query(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "a.md:0000", matches[0].ID)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-6)
	assert.Equal(t, "a", matches[0].Metadata.Text)

	require.NoError(t, idx.DeleteByFilename(ctx, "a.md"))
	matches, err = idx.Query(ctx, []float32{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "b.md:0000", matches[0].ID)
}
