package index

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/jonathan/askdb/internal/embedding"
	_ "modernc.org/sqlite"
)

const createVectorsTable = `CREATE TABLE IF NOT EXISTS corpus_vectors (
	corpus     TEXT NOT NULL,
	id         TEXT NOT NULL,
	document   TEXT NOT NULL,
	embedding  BLOB NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (corpus, id)
)`

// SQLiteIndex keeps vectors in a local SQLite file and scores them in process.
// Corpora here are small enough that a full scan per query is fine.
type SQLiteIndex struct {
	db *sql.DB
	mu sync.RWMutex
}

// OpenSQLite opens (or creates) the index file at path
func OpenSQLite(ctx context.Context, path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("index path is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	for _, p := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", p, err)
		}
	}
	if _, err := db.ExecContext(ctx, createVectorsTable); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create index table: %w", err)
	}
	return &SQLiteIndex{db: db}, nil
}

// Missing returns the ids of docs not present for corpus or stored with other text
func (s *SQLiteIndex) Missing(ctx context.Context, corpus string, docs []Document) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, document FROM corpus_vectors WHERE corpus = ?`, corpus)
	if err != nil {
		return nil, fmt.Errorf("failed to list indexed ids: %w", err)
	}
	defer func() { _ = rows.Close() }()

	known := make(map[string]string)
	for rows.Next() {
		var id, text string
		if err := rows.Scan(&id, &text); err != nil {
			return nil, fmt.Errorf("failed to scan id: %w", err)
		}
		known[id] = text
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list indexed ids: %w", err)
	}
	return stale(docs, known), nil
}

// Upsert inserts documents and replaces those whose text changed
func (s *SQLiteIndex) Upsert(ctx context.Context, corpus string, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO corpus_vectors (corpus, id, document, embedding) VALUES (?, ?, ?, ?)
		 ON CONFLICT (corpus, id) DO UPDATE SET document = excluded.document, embedding = excluded.embedding,
		 created_at = CURRENT_TIMESTAMP
		 WHERE corpus_vectors.document <> excluded.document`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, d := range docs {
		if _, err := stmt.ExecContext(ctx, corpus, d.ID, d.Text, encodeVector(d.Vector)); err != nil {
			return fmt.Errorf("failed to insert %s/%s: %w", corpus, d.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// Prune deletes the documents of corpus that are not in keep
func (s *SQLiteIndex) Prune(ctx context.Context, corpus string, keep []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wanted := make(map[string]bool, len(keep))
	for _, id := range keep {
		wanted[id] = true
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `SELECT id FROM corpus_vectors WHERE corpus = ?`, corpus)
	if err != nil {
		return 0, fmt.Errorf("failed to list indexed ids: %w", err)
	}
	var drop []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return 0, fmt.Errorf("failed to scan id: %w", err)
		}
		if !wanted[id] {
			drop = append(drop, id)
		}
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("failed to list indexed ids: %w", err)
	}
	if len(drop) == 0 {
		return 0, nil
	}

	for _, id := range drop {
		if _, err := tx.ExecContext(ctx, `DELETE FROM corpus_vectors WHERE corpus = ? AND id = ?`, corpus, id); err != nil {
			return 0, fmt.Errorf("failed to delete %s/%s: %w", corpus, id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}
	return len(drop), nil
}

// Search scores every vector in corpus against vector
func (s *SQLiteIndex) Search(ctx context.Context, corpus string, vector []float32, k int) ([]Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, embedding FROM corpus_vectors WHERE corpus = ?`, corpus)
	if err != nil {
		return nil, fmt.Errorf("failed to query vectors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var matches []Match
	for rows.Next() {
		var (
			id   string
			blob []byte
		)
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan vector: %w", err)
		}
		score, err := embedding.CosineSimilarity(vector, decodeVector(blob))
		if err != nil {
			return nil, fmt.Errorf("vector %s/%s: %w", corpus, id, err)
		}
		matches = append(matches, Match{ID: id, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to query vectors: %w", err)
	}
	return rank(matches, k), nil
}

// Count returns the number of documents in corpus
func (s *SQLiteIndex) Count(ctx context.Context, corpus string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM corpus_vectors WHERE corpus = ?`, corpus).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count vectors: %w", err)
	}
	return n, nil
}

// Close closes the database
func (s *SQLiteIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v
}
