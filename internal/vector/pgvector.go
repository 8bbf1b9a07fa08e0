package vector

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

const pgTablePrefix = "lumina_"

// PgVectorClient implements Client on PostgreSQL with the pgvector extension.
// Each index is a table lumina_<name> with an HNSW cosine index.
type PgVectorClient struct {
	db *pgxpool.Pool
}

// NewPgVectorClient opens a connection pool. No connection is made until first use.
func NewPgVectorClient(ctx context.Context, url string, maxConns int) (*PgVectorClient, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("pgvector parse url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = int32(maxConns)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgvector connect: %w", err)
	}
	return &PgVectorClient{db: pool}, nil
}

func pgTable(name string) string {
	return pgx.Identifier{pgTablePrefix + name}.Sanitize()
}

// ListIndexes returns the names of all lumina_ tables in the current schema.
func (c *PgVectorClient) ListIndexes(ctx context.Context) ([]string, error) {
	rows, err := c.db.Query(ctx,
		`SELECT table_name FROM information_schema.tables
		 WHERE table_schema = current_schema() AND table_name LIKE $1 ESCAPE '\'`,
		strings.ReplaceAll(pgTablePrefix, "_", `\_`)+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("pgvector list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var table string
		if err := rows.Scan(&table); err != nil {
			return nil, fmt.Errorf("pgvector scan table: %w", err)
		}
		tables = append(tables, table)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return indexNames(tables), nil
}

// indexNames maps lumina_ table names to index names, ignoring any other table.
func indexNames(tables []string) []string {
	var names []string
	for _, table := range tables {
		if name, ok := strings.CutPrefix(table, pgTablePrefix); ok && name != "" {
			names = append(names, name)
		}
	}
	return names
}

// CreateIndex creates the table and its HNSW index.
func (c *PgVectorClient) CreateIndex(ctx context.Context, name string, dim int, distance Distance) error {
	if distance != DistanceCosine {
		return fmt.Errorf("pgvector: unsupported distance %q", distance)
	}
	if dim <= 0 {
		return fmt.Errorf("pgvector: invalid dimension %d", dim)
	}
	table := pgTable(name)
	idx := pgx.Identifier{pgTablePrefix + name + "_embedding_idx"}.Sanitize()
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (id TEXT PRIMARY KEY, embedding vector(%d) NOT NULL)`, table, dim),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s USING hnsw (embedding vector_cosine_ops)`, idx, table),
	}
	for _, stmt := range stmts {
		if _, err := c.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("pgvector create index %s: %w", name, err)
		}
	}
	return nil
}

// DeleteIndex drops the table.
func (c *PgVectorClient) DeleteIndex(ctx context.Context, name string) error {
	if _, err := c.db.Exec(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, pgTable(name))); err != nil {
		return fmt.Errorf("pgvector delete index %s: %w", name, err)
	}
	return nil
}

// Index returns a handle bound to the named table.
func (c *PgVectorClient) Index(name string) (Index, error) {
	if name == "" {
		return nil, fmt.Errorf("pgvector: empty index name")
	}
	return &pgIndex{db: c.db, table: pgTable(name)}, nil
}

// Close closes the pool.
func (c *PgVectorClient) Close() error {
	c.db.Close()
	return nil
}

type pgIndex struct {
	db    *pgxpool.Pool
	table string
}

func (i *pgIndex) Insert(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("pgvector insert: %d ids for %d vectors", len(ids), len(vectors))
	}
	tx, err := i.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	stmt := fmt.Sprintf(`INSERT INTO %s (id, embedding) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET embedding = EXCLUDED.embedding`, i.table)
	for n, id := range ids {
		if _, err := tx.Exec(ctx, stmt, id, pgvector.NewVector(vectors[n])); err != nil {
			return fmt.Errorf("insert %s: %w", id, err)
		}
	}
	return tx.Commit(ctx)
}

func (i *pgIndex) Query(ctx context.Context, vector []float32, topK int) ([]Match, error) {
	rows, err := i.db.Query(ctx,
		fmt.Sprintf(`SELECT id, 1 - (embedding <=> $1) AS score FROM %s ORDER BY embedding <=> $1 LIMIT $2`, i.table),
		pgvector.NewVector(vector), topK,
	)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.ID, &m.Score); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}
