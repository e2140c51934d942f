// Package postgres implements backend.VectorBackend on PostgreSQL.
//
// Like the sqlite backend, embedding runs in-process and similarity is
// brute-force cosine over the index's records. The pgvector extension is
// deliberately not required; vectors live in plain text columns so any
// stock PostgreSQL serves.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/vectormem/vectormem-go/pkg/backend"
	"github.com/vectormem/vectormem-go/pkg/embedder"
)

// uniqueViolation is the PostgreSQL error code for unique constraint hits.
const uniqueViolation = "23505"

// Client is a PostgreSQL-backed vector index store.
type Client struct {
	db       *sql.DB
	embedder embedder.Provider
}

// Config is the configuration for the PostgreSQL backend.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string

	// Embedder converts text to vectors. Required.
	Embedder embedder.Provider
}

// NewClient creates a new PostgreSQL backend, creating the schema on first
// use.
func NewClient(cfg *Config) (*Client, error) {
	if cfg.Embedder == nil {
		return nil, errors.New("postgres: embedder is required")
	}

	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, sslMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}

	client := &Client{db: db, embedder: cfg.Embedder}
	if err := client.createTables(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return client, nil
}

func (c *Client) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS vector_indexes (
		id        TEXT PRIMARY KEY,
		name      TEXT NOT NULL UNIQUE,
		dimension INTEGER NOT NULL,
		metric    TEXT NOT NULL,
		metadata  JSONB
	);
	CREATE TABLE IF NOT EXISTS vector_records (
		id       TEXT NOT NULL,
		index_id TEXT NOT NULL,
		vector   TEXT NOT NULL,
		metadata JSONB,
		PRIMARY KEY (id, index_id)
	);
	CREATE INDEX IF NOT EXISTS idx_vector_records_index ON vector_records(index_id);
	`
	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("postgres: create tables: %w", err)
	}
	return nil
}

// ListIndexes returns all indexes in the database.
func (c *Client) ListIndexes(ctx context.Context) ([]backend.IndexInfo, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT id, name, dimension, metric, metadata FROM vector_indexes`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list indexes: %w", err)
	}
	defer rows.Close()

	var indexes []backend.IndexInfo
	for rows.Next() {
		var info backend.IndexInfo
		var metadataJSON sql.NullString
		if err := rows.Scan(&info.ID, &info.Name, &info.Dimension, &info.Metric, &metadataJSON); err != nil {
			return nil, fmt.Errorf("postgres: scan index: %w", err)
		}
		if metadataJSON.Valid && metadataJSON.String != "" {
			_ = json.Unmarshal([]byte(metadataJSON.String), &info.Metadata)
		}
		indexes = append(indexes, info)
	}
	return indexes, rows.Err()
}

// CreateIndex creates a new index. A name collision surfaces as
// backend.ErrIndexExists via the unique constraint.
func (c *Client) CreateIndex(ctx context.Context, req *backend.CreateIndexRequest) (*backend.IndexInfo, error) {
	metadataJSON, err := json.Marshal(req.Metadata)
	if err != nil {
		return nil, fmt.Errorf("postgres: encode metadata: %w", err)
	}

	id := "idx_" + req.Name
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO vector_indexes (id, name, dimension, metric, metadata) VALUES ($1, $2, $3, $4, $5)`,
		id, req.Name, req.Dimension, req.Metric, string(metadataJSON))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return nil, fmt.Errorf("postgres: index %q: %w", req.Name, backend.ErrIndexExists)
		}
		return nil, fmt.Errorf("postgres: create index: %w", err)
	}

	return &backend.IndexInfo{
		ID:        id,
		Name:      req.Name,
		Dimension: req.Dimension,
		Metric:    req.Metric,
		Metadata:  req.Metadata,
	}, nil
}

// UpsertText embeds the text in-process and stores the record.
func (c *Client) UpsertText(ctx context.Context, indexID string, req *backend.UpsertRequest) (string, error) {
	vector, err := c.embedder.Embed(ctx, req.Text)
	if err != nil {
		return "", fmt.Errorf("postgres: embed text: %w", err)
	}
	vectorJSON, err := backend.EncodeVector(vector)
	if err != nil {
		return "", fmt.Errorf("postgres: encode vector: %w", err)
	}
	metadataJSON, err := json.Marshal(req.Metadata)
	if err != nil {
		return "", fmt.Errorf("postgres: encode metadata: %w", err)
	}

	id := req.ID
	if id == "" {
		return "", errors.New("postgres: record id is required")
	}

	_, err = c.db.ExecContext(ctx,
		`INSERT INTO vector_records (id, index_id, vector, metadata) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id, index_id) DO UPDATE SET vector = EXCLUDED.vector, metadata = EXCLUDED.metadata`,
		id, indexID, vectorJSON, string(metadataJSON))
	if err != nil {
		return "", fmt.Errorf("postgres: upsert record: %w", err)
	}
	return id, nil
}

// SearchText embeds the query in-process and scans the index with cosine
// similarity, applying the metadata filter before ranking.
func (c *Client) SearchText(ctx context.Context, indexID string, req *backend.SearchRequest) ([]backend.Hit, error) {
	queryVector, err := c.embedder.Embed(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("postgres: embed query: %w", err)
	}

	rows, err := c.db.QueryContext(ctx,
		`SELECT id, vector, metadata FROM vector_records WHERE index_id = $1`, indexID)
	if err != nil {
		return nil, fmt.Errorf("postgres: search records: %w", err)
	}
	defer rows.Close()

	var hits []backend.Hit
	for rows.Next() {
		var id, vectorJSON string
		var metadataJSON sql.NullString
		if err := rows.Scan(&id, &vectorJSON, &metadataJSON); err != nil {
			return nil, fmt.Errorf("postgres: scan record: %w", err)
		}

		var metadata map[string]interface{}
		if metadataJSON.Valid && metadataJSON.String != "" {
			_ = json.Unmarshal([]byte(metadataJSON.String), &metadata)
		}
		if !backend.MatchesFilter(metadata, req.Filter) {
			continue
		}

		vector, err := backend.DecodeVector(vectorJSON)
		if err != nil {
			continue
		}

		hit := backend.Hit{ID: id, Score: backend.CosineSimilarity(queryVector, vector)}
		if req.IncludeMetadata {
			hit.Metadata = metadata
		}
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: search records: %w", err)
	}

	return backend.SortHitsByScore(hits, req.TopK), nil
}

// GetRecord fetches a record by id.
func (c *Client) GetRecord(ctx context.Context, indexID, recordID string) (*backend.Record, error) {
	var metadataJSON sql.NullString
	err := c.db.QueryRowContext(ctx,
		`SELECT metadata FROM vector_records WHERE id = $1 AND index_id = $2`,
		recordID, indexID).Scan(&metadataJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("postgres: record %q: %w", recordID, backend.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get record: %w", err)
	}

	record := &backend.Record{ID: recordID}
	if metadataJSON.Valid && metadataJSON.String != "" {
		_ = json.Unmarshal([]byte(metadataJSON.String), &record.Metadata)
	}
	return record, nil
}

// UpdateRecord replaces the stored metadata, leaving the vector alone.
func (c *Client) UpdateRecord(ctx context.Context, indexID, recordID string, metadata map[string]interface{}) error {
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("postgres: encode metadata: %w", err)
	}

	result, err := c.db.ExecContext(ctx,
		`UPDATE vector_records SET metadata = $1 WHERE id = $2 AND index_id = $3`,
		string(metadataJSON), recordID, indexID)
	if err != nil {
		return fmt.Errorf("postgres: update record: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("postgres: record %q: %w", recordID, backend.ErrNotFound)
	}
	return nil
}

// DeleteRecord deletes a record by id. Deleting an absent record succeeds.
func (c *Client) DeleteRecord(ctx context.Context, indexID, recordID string) error {
	_, err := c.db.ExecContext(ctx,
		`DELETE FROM vector_records WHERE id = $1 AND index_id = $2`, recordID, indexID)
	if err != nil {
		return fmt.Errorf("postgres: delete record: %w", err)
	}
	return nil
}

// Close closes the database and the embedding provider.
func (c *Client) Close() error {
	embErr := c.embedder.Close()
	dbErr := c.db.Close()
	if dbErr != nil {
		return dbErr
	}
	return embErr
}
