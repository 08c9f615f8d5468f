// Package pgvector implements the vector index port on PostgreSQL with the
// pgvector extension.
package pgvector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/adiirockstar/trial-matthew-schramm/internal/core/domain"
	"github.com/adiirockstar/trial-matthew-schramm/internal/core/ports/driven"
)

const pingTimeout = 5 * time.Second

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Index stores chunk vectors in a single PostgreSQL table.
type Index struct {
	pool      *pgxpool.Pool
	table     string
	dimension int
}

// NewIndex connects to the database at connString and ensures the table exists.
// dimension sizes the embedding column when the table is created.
func NewIndex(ctx context.Context, connString, table string, dimension int) (*Index, error) {
	if connString == "" {
		return nil, fmt.Errorf("%w: DATABASE_URL", domain.ErrConfigMissing)
	}
	if table == "" {
		table = domain.DefaultPgvectorTable
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: pgvector dimension must be positive", domain.ErrInvalidInput)
	}

	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}
	config.MaxConns = 10
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %w", domain.ErrVectorIndexUnavailable, err)
	}

	idx := &Index{pool: pool, table: table, dimension: dimension}
	if err := idx.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return idx, nil
}

func (i *Index) ident() string {
	return pgx.Identifier{i.table}.Sanitize()
}

// schemaStatements returns the DDL for the index table.
func (i *Index) schemaStatements() []string {
	t := i.ident()
	fileIdx := pgx.Identifier{i.table + "_file_idx"}.Sanitize()
	return []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id         TEXT PRIMARY KEY,
			file       TEXT NOT NULL,
			embedding  vector(%d) NOT NULL,
			metadata   JSONB NOT NULL DEFAULT '{}'::jsonb,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, t, i.dimension),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (file)", fileIdx, t),
	}
}

func (i *Index) ensureSchema(ctx context.Context) error {
	for _, stmt := range i.schemaStatements() {
		if _, err := i.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	return nil
}

func (i *Index) upsertSQL() string {
	return fmt.Sprintf(`INSERT INTO %s (id, file, embedding, metadata, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (id) DO UPDATE SET
			file = EXCLUDED.file,
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata,
			updated_at = NOW()`, i.ident())
}

func (i *Index) querySQL() string {
	return fmt.Sprintf(`SELECT id, 1 - (embedding <=> $1) AS score, metadata
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT $2`, i.ident())
}

// Upsert writes records in one pgx batch.
func (i *Index) Upsert(ctx context.Context, records []domain.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	query := i.upsertSQL()
	batch := &pgx.Batch{}
	for _, r := range records {
		meta, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling metadata for %s: %w", r.ID, err)
		}
		batch.Queue(query, r.ID, r.Metadata.File, pgvector.NewVector(r.Values), meta)
	}

	br := i.pool.SendBatch(ctx, batch)
	defer br.Close()

	for n := range records {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upserting %s: %w", records[n].ID, err)
		}
	}
	return nil
}

// Query returns the topK nearest records by cosine similarity.
func (i *Index) Query(ctx context.Context, vector []float32, topK int) ([]domain.RetrievalMatch, error) {
	rows, err := i.pool.Query(ctx, i.querySQL(), pgvector.NewVector(vector), topK)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	var matches []domain.RetrievalMatch
	for rows.Next() {
		var (
			m    domain.RetrievalMatch
			meta []byte
		)
		if err := rows.Scan(&m.ID, &m.Score, &meta); err != nil {
			return nil, fmt.Errorf("scanning match: %w", err)
		}
		if err := json.Unmarshal(meta, &m.Metadata); err != nil {
			return nil, fmt.Errorf("parsing metadata for %s: %w", m.ID, err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating matches: %w", err)
	}
	return matches, nil
}

// DeleteByFilename removes every record for filename.
func (i *Index) DeleteByFilename(ctx context.Context, filename string) error {
	_, err := i.pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE file = $1", i.ident()), filename)
	if err != nil {
		return fmt.Errorf("deleting vectors for %s: %w", filename, err)
	}
	return nil
}

// Dimension reads the declared length of the embedding column.
func (i *Index) Dimension(ctx context.Context) (int, error) {
	var dim int
	err := i.pool.QueryRow(ctx,
		`SELECT atttypmod FROM pg_attribute
		 WHERE attrelid = to_regclass($1) AND attname = 'embedding'`,
		i.ident(),
	).Scan(&dim)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading dimension: %w", err)
	}
	if dim < 0 {
		return 0, nil
	}
	return dim, nil
}

// Close closes the connection pool.
func (i *Index) Close() error {
	i.pool.Close()
	return nil
}
