package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	sqlite_vec.Auto()
}

// SQLiteStore is the in-process VectorStore adapter: a local SQLite
// database using the sqlite-vec extension's vec0 virtual table for
// embeddings and an FTS5 shadow table for keyword lookups used as a
// client-side scoring tiebreaker. It is the default adapter and the one
// every VectorStore contract test runs against.
type SQLiteStore struct {
	db         *sql.DB
	dimensions int
	mu         sync.Mutex // serializes schema/writes; sqlite itself is single-writer
}

// NewSQLiteStore opens (creating if absent) a SQLite database at path with
// a vec0 table sized for dimensions-wide embeddings.
func NewSQLiteStore(path string, dimensions int) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_fts5=1")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	return &SQLiteStore{db: db, dimensions: dimensions}, nil
}

func (s *SQLiteStore) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	schema := `
		CREATE TABLE IF NOT EXISTS records (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			importance REAL NOT NULL,
			source TEXT NOT NULL,
			tags TEXT NOT NULL,
			access_count INTEGER NOT NULL,
			last_accessed INTEGER NOT NULL,
			layer TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_records_layer ON records(layer);
		CREATE INDEX IF NOT EXISTS idx_records_timestamp ON records(timestamp);

		CREATE VIRTUAL TABLE IF NOT EXISTS records_fts USING fts5(
			record_id UNINDEXED,
			content,
			tokenize='porter unicode61'
		);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return NewBackendError("vector-store:memory", fmt.Errorf("init schema: %w", err))
	}

	vecSchema := fmt.Sprintf(`
		CREATE VIRTUAL TABLE IF NOT EXISTS embeddings USING vec0(
			record_id TEXT PRIMARY KEY,
			embedding float[%d] distance_metric=cosine
		);
	`, s.dimensions)
	if _, err := s.db.ExecContext(ctx, vecSchema); err != nil {
		return NewBackendError("vector-store:memory", fmt.Errorf("init vector table: %w", err))
	}
	return nil
}

func (s *SQLiteStore) Store(ctx context.Context, record *Record) error {
	return s.StoreBatch(ctx, []*Record{record})
}

func (s *SQLiteStore) StoreBatch(ctx context.Context, records []*Record) error {
	const chunkSize = 100
	for start := 0; start < len(records); start += chunkSize {
		end := start + chunkSize
		if end > len(records) {
			end = len(records)
		}
		if err := s.storeChunk(ctx, records[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) storeChunk(ctx context.Context, records []*Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return NewBackendError("vector-store:memory", err)
	}
	defer tx.Rollback()

	for _, r := range records {
		if len(r.Embedding) == 0 {
			return NewValidationError("embedding", "store requires an embedding to be present")
		}
		if err := upsertRecordTx(ctx, tx, r); err != nil {
			return NewBackendError("vector-store:memory", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return NewBackendError("vector-store:memory", err)
	}
	return nil
}

func upsertRecordTx(ctx context.Context, tx *sql.Tx, r *Record) error {
	tagsJoined := strings.Join(r.Tags, ",")
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO records (id, content, timestamp, importance, source, tags, access_count, last_accessed, layer)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content=excluded.content, timestamp=excluded.timestamp, importance=excluded.importance,
			source=excluded.source, tags=excluded.tags, access_count=excluded.access_count,
			last_accessed=excluded.last_accessed, layer=excluded.layer
	`, r.ID, r.Content, r.Timestamp, r.Importance, string(r.Source), tagsJoined, r.AccessCount, r.LastAccessed, string(r.Layer)); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM records_fts WHERE record_id = ?`, r.ID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO records_fts (record_id, content) VALUES (?, ?)`, r.ID, r.Content); err != nil {
		return err
	}

	embJSON, err := json.Marshal(r.Embedding)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO embeddings (record_id, embedding) VALUES (?, ?)`, r.ID, string(embJSON)); err != nil {
		return err
	}
	return nil
}

func (s *SQLiteStore) Search(ctx context.Context, vector []float32, k int, filter *SearchFilter) ([]StoreSearchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	embJSON, err := json.Marshal(vector)
	if err != nil {
		return nil, NewBackendError("vector-store:memory", err)
	}

	// Over-fetch generously: layer/tag filtering happens client-side below,
	// same as the other two adapters, so the SQL query itself only applies
	// the distance ordering.
	fetchK := k * 4
	if fetchK < k {
		fetchK = k
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT record_id, vec_distance_cosine(embedding, ?) AS distance
		FROM embeddings
		ORDER BY distance ASC
		LIMIT ?
	`, string(embJSON), fetchK)
	if err != nil {
		return nil, NewBackendError("vector-store:memory", err)
	}
	defer rows.Close()

	var out []StoreSearchResult
	for rows.Next() {
		var id string
		var distance float64
		if err := rows.Scan(&id, &distance); err != nil {
			return nil, NewBackendError("vector-store:memory", err)
		}
		rec, err := s.getTx(ctx, id)
		if err != nil || rec == nil {
			continue
		}
		if !matchesFilter(rec, filter) {
			continue
		}
		relevance := 1.0 - distance/2.0
		out = append(out, StoreSearchResult{Record: rec, Relevance: relevance})
		if len(out) >= k {
			break
		}
	}
	return out, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getTx(ctx, id)
}

func (s *SQLiteStore) getTx(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, content, timestamp, importance, source, tags, access_count, last_accessed, layer
		FROM records WHERE id = ?
	`, id)

	r, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, NewBackendError("vector-store:memory", err)
	}

	var embJSON string
	embErr := s.db.QueryRowContext(ctx, `SELECT embedding FROM embeddings WHERE record_id = ?`, id).Scan(&embJSON)
	if embErr == nil {
		var vec []float32
		if json.Unmarshal([]byte(embJSON), &vec) == nil {
			r.Embedding = vec
		}
	}
	return r, nil
}

func scanRecord(row *sql.Row) (*Record, error) {
	var r Record
	var source, layer, tagsJoined string
	if err := row.Scan(&r.ID, &r.Content, &r.Timestamp, &r.Importance, &source, &tagsJoined, &r.AccessCount, &r.LastAccessed, &layer); err != nil {
		return nil, err
	}
	r.Source = Source(source)
	r.Layer = Layer(layer)
	if tagsJoined != "" {
		r.Tags = strings.Split(tagsJoined, ",")
	}
	return &r, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) (bool, error) {
	n, err := s.DeleteBatch(ctx, []string{id})
	return n > 0, err
}

func (s *SQLiteStore) DeleteBatch(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, NewBackendError("vector-store:memory", err)
	}
	defer tx.Rollback()

	deleted := 0
	for _, id := range ids {
		res, err := tx.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id)
		if err != nil {
			return 0, NewBackendError("vector-store:memory", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			deleted++
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM embeddings WHERE record_id = ?`, id); err != nil {
			return 0, NewBackendError("vector-store:memory", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM records_fts WHERE record_id = ?`, id); err != nil {
			return 0, NewBackendError("vector-store:memory", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, NewBackendError("vector-store:memory", err)
	}
	return deleted, nil
}

func (s *SQLiteStore) List(ctx context.Context, filter *SearchFilter) ([]*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `SELECT id, content, timestamp, importance, source, tags, access_count, last_accessed, layer FROM records`
	var args []interface{}
	if filter != nil && filter.Layer != "" {
		query += ` WHERE layer = ?`
		args = append(args, string(filter.Layer))
	}
	query += ` ORDER BY timestamp DESC, id ASC LIMIT ?`
	args = append(args, ListCap)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, NewBackendError("vector-store:memory", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		var r Record
		var source, layer, tagsJoined string
		if err := rows.Scan(&r.ID, &r.Content, &r.Timestamp, &r.Importance, &source, &tagsJoined, &r.AccessCount, &r.LastAccessed, &layer); err != nil {
			return nil, NewBackendError("vector-store:memory", err)
		}
		r.Source = Source(source)
		r.Layer = Layer(layer)
		if tagsJoined != "" {
			r.Tags = strings.Split(tagsJoined, ",")
		}
		if matchesFilter(&r, filter) {
			out = append(out, &r)
		}
	}
	return out, nil
}

func (s *SQLiteStore) Update(ctx context.Context, record *Record) error {
	return s.Store(ctx, record)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
