package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/lumina/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db   *sql.DB
	path string
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	// The DSN pragmas apply to every pooled connection, not just the first.
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}

	return &SQLiteStorage{db: db, path: dbPath}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS chunks (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		text TEXT NOT NULL,
		metadata TEXT,
		vector BLOB NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS sources (
		id TEXT PRIMARY KEY,
		path TEXT NOT NULL,
		mod_time INTEGER NOT NULL,
		size INTEGER NOT NULL,
		chunks INTEGER NOT NULL DEFAULT 0,
		ingested_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_sources_path ON sources(path);
	`
	_, err := db.Exec(schema)
	return err
}

// Path returns the database file path.
func (s *SQLiteStorage) Path() string {
	return s.path
}

// AppendChunks inserts chunks in a transaction, preserving their order.
func (s *SQLiteStorage) AppendChunks(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (id, text, metadata, vector, created_at) VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for _, c := range chunks {
		metadataJSON, err := json.Marshal(c.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, c.ID, c.Text, string(metadataJSON), encodeVector(c.Vector), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LoadChunks returns all stored chunks in insertion order.
func (s *SQLiteStorage) LoadChunks(ctx context.Context) ([]models.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, text, metadata, vector FROM chunks ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []models.Chunk
	for rows.Next() {
		var c models.Chunk
		var metadataJSON sql.NullString
		var blob []byte
		if err := rows.Scan(&c.ID, &c.Text, &metadataJSON, &blob); err != nil {
			return nil, err
		}
		if metadataJSON.Valid && metadataJSON.String != "" && metadataJSON.String != "null" {
			md, err := decodeMetadata(metadataJSON.String)
			if err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata for %s: %w", c.ID, err)
			}
			c.Metadata = md
		}
		c.Vector = decodeVector(blob)
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// ClearChunks removes every stored chunk.
func (s *SQLiteStorage) ClearChunks(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM chunks`)
	return err
}

const sourceColumns = `id, path, mod_time, size, chunks, ingested_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSource(row rowScanner) (*models.Source, error) {
	var src models.Source
	if err := row.Scan(&src.ID, &src.Path, &src.ModTime, &src.Size, &src.Chunks, &src.IngestedAt); err != nil {
		return nil, err
	}
	return &src, nil
}

// GetSource returns the registry entry for id, or nil if none exists.
func (s *SQLiteStorage) GetSource(ctx context.Context, id string) (*models.Source, error) {
	src, err := scanSource(s.db.QueryRowContext(ctx,
		`SELECT `+sourceColumns+` FROM sources WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return src, err
}

// PutSource inserts or replaces a registry entry.
func (s *SQLiteStorage) PutSource(ctx context.Context, src *models.Source) error {
	if src.IngestedAt.IsZero() {
		src.IngestedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sources (`+sourceColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   path = excluded.path, mod_time = excluded.mod_time, size = excluded.size,
		   chunks = excluded.chunks, ingested_at = excluded.ingested_at`,
		src.ID, src.Path, src.ModTime, src.Size, src.Chunks, src.IngestedAt,
	)
	return err
}

// ListSources returns all registry entries, most recent first.
func (s *SQLiteStorage) ListSources(ctx context.Context) ([]*models.Source, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sourceColumns+` FROM sources ORDER BY ingested_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Source
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, src)
	}
	return out, rows.Err()
}

// ClearSources empties the sources registry.
func (s *SQLiteStorage) ClearSources(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sources`)
	return err
}

// CountChunks returns the number of stored chunks.
func (s *SQLiteStorage) CountChunks(ctx context.Context) (int64, error) {
	return s.count(ctx, "chunks")
}

// CountSources returns the number of registry entries.
func (s *SQLiteStorage) CountSources(ctx context.Context) (int64, error) {
	return s.count(ctx, "sources")
}

func (s *SQLiteStorage) count(ctx context.Context, table string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n)
	return n, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// decodeMetadata restores integral numbers as int so that metadata such as page and row
// has the same types as when the loaders produced it.
func decodeMetadata(raw string) (map[string]interface{}, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var md map[string]interface{}
	if err := dec.Decode(&md); err != nil {
		return nil, err
	}
	for k, v := range md {
		md[k] = restoreNumbers(v)
	}
	return md, nil
}

func restoreNumbers(v interface{}) interface{} {
	switch t := v.(type) {
	case json.Number:
		if n, err := strconv.Atoi(t.String()); err == nil {
			return n
		}
		f, _ := t.Float64()
		return f
	case map[string]interface{}:
		for k, e := range t {
			t[k] = restoreNumbers(e)
		}
	case []interface{}:
		for i, e := range t {
			t[i] = restoreNumbers(e)
		}
	}
	return v
}

// encodeVector packs v as little-endian float32s.
func encodeVector(v []float32) []byte {
	out := make([]byte, 0, 4*len(v))
	for _, f := range v {
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(f))
	}
	return out
}

func decodeVector(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return out
}
