package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/adiirockstar/trial-matthew-schramm/internal/adapters/driven/vector/sqlite/migrations"
	"github.com/adiirockstar/trial-matthew-schramm/internal/adapters/driven/vector/vecmath"
	"github.com/adiirockstar/trial-matthew-schramm/internal/core/domain"
	"github.com/adiirockstar/trial-matthew-schramm/internal/core/ports/driven"
)

// dimensionKey is the index_settings key holding the fixed vector length.
const dimensionKey = "dimension"

// Ensure Store implements the interface.
var _ driven.VectorIndex = (*Store)(nil)

// Store is a SQLite-backed vector index.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (or creates) the index database at dbPath.
// A positive dimension fixes the vector length when the index is empty.
func NewStore(dbPath string, dimension int) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("%w: sqlite index path is empty", domain.ErrConfigMissing)
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	if dimension > 0 {
		if _, err := db.Exec(
			"INSERT OR IGNORE INTO index_settings (key, value) VALUES (?, ?)",
			dimensionKey, strconv.Itoa(dimension),
		); err != nil {
			db.Close()
			return nil, fmt.Errorf("recording dimension: %w", err)
		}
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_vectors.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}

		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// Upsert writes records in a single transaction. Existing IDs are overwritten.
func (s *Store) Upsert(ctx context.Context, records []domain.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	dim, err := s.Dimension(ctx)
	if err != nil {
		return err
	}
	if dim == 0 {
		dim = len(records[0].Values)
	}
	for _, r := range records {
		if len(r.Values) != dim {
			return fmt.Errorf("%w: record %s has %d values, index has %d",
				domain.ErrDimensionMismatch, r.ID, len(r.Values), dim)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO index_settings (key, value) VALUES (?, ?)",
		dimensionKey, strconv.Itoa(dim),
	); err != nil {
		return fmt.Errorf("recording dimension: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO vectors (id, file, dimension, embedding, metadata, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			file = excluded.file,
			dimension = excluded.dimension,
			embedding = excluded.embedding,
			metadata = excluded.metadata,
			updated_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		metaJSON, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling metadata for %s: %w", r.ID, err)
		}
		if _, err := stmt.ExecContext(ctx,
			r.ID, r.Metadata.File, len(r.Values), float32SliceToBytes(r.Values), string(metaJSON),
		); err != nil {
			return fmt.Errorf("upserting %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing upsert: %w", err)
	}
	return nil
}

// Query scans every stored vector and returns the topK most similar.
func (s *Store) Query(ctx context.Context, vector []float32, topK int) ([]domain.RetrievalMatch, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, embedding, metadata FROM vectors")
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	var matches []domain.RetrievalMatch
	for rows.Next() {
		var (
			id       string
			blob     []byte
			metaJSON string
		)
		if err := rows.Scan(&id, &blob, &metaJSON); err != nil {
			return nil, fmt.Errorf("scanning vector: %w", err)
		}

		var meta domain.ChunkMetadata
		if err := json.Unmarshal([]byte(metaJSON), &meta); err != nil {
			return nil, fmt.Errorf("parsing metadata for %s: %w", id, err)
		}

		matches = append(matches, domain.RetrievalMatch{
			ID:       id,
			Score:    vecmath.Cosine(vector, bytesToFloat32Slice(blob)),
			Metadata: meta,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating vectors: %w", err)
	}

	return vecmath.TopK(matches, topK), nil
}

// DeleteByFilename removes every vector belonging to filename.
func (s *Store) DeleteByFilename(ctx context.Context, filename string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM vectors WHERE file = ?", filename); err != nil {
		return fmt.Errorf("deleting vectors for %s: %w", filename, err)
	}
	return nil
}

// Dimension returns the fixed vector length, or 0 when none has been recorded.
func (s *Store) Dimension(ctx context.Context) (int, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM index_settings WHERE key = ?", dimensionKey,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading dimension: %w", err)
	}

	dim, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("parsing dimension %q: %w", value, err)
	}
	return dim, nil
}

// Count returns the number of stored vectors.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM vectors").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting vectors: %w", err)
	}
	return n, nil
}

// float32SliceToBytes converts a float32 slice to bytes for BLOB storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts bytes from BLOB storage to a float32 slice.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
