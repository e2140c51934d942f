// Package mysql implements backend.VectorBackend on MySQL.
//
// Embedding runs in-process and similarity is brute-force cosine over the
// index's records, same as the other self-hosted backends. MySQL 8's
// native VECTOR type is not assumed; vectors live in plain text columns.
package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	gomysql "github.com/go-sql-driver/mysql"

	"github.com/vectormem/vectormem-go/pkg/backend"
	"github.com/vectormem/vectormem-go/pkg/embedder"
)

// duplicateEntry is the MySQL error number for unique key violations.
const duplicateEntry = 1062

// Client is a MySQL-backed vector index store.
type Client struct {
	db       *sql.DB
	embedder embedder.Provider
}

// Config is the configuration for the MySQL backend.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string

	// Embedder converts text to vectors. Required.
	Embedder embedder.Provider
}

// NewClient creates a new MySQL backend, creating the schema on first use.
func NewClient(cfg *Config) (*Client, error) {
	if cfg.Embedder == nil {
		return nil, errors.New("mysql: embedder is required")
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("mysql: open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("mysql: connect: %w", err)
	}

	client := &Client{db: db, embedder: cfg.Embedder}
	if err := client.createTables(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return client, nil
}

func (c *Client) createTables() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS vector_indexes (
			id        VARCHAR(255) PRIMARY KEY,
			name      VARCHAR(255) NOT NULL UNIQUE,
			dimension INT NOT NULL,
			metric    VARCHAR(32) NOT NULL,
			metadata  JSON
		)`,
		`CREATE TABLE IF NOT EXISTS vector_records (
			id       VARCHAR(255) NOT NULL,
			index_id VARCHAR(255) NOT NULL,
			vector   LONGTEXT NOT NULL,
			metadata JSON,
			PRIMARY KEY (id, index_id),
			KEY idx_vector_records_index (index_id)
		)`,
	}
	for _, stmt := range statements {
		if _, err := c.db.Exec(stmt); err != nil {
			return fmt.Errorf("mysql: create tables: %w", err)
		}
	}
	return nil
}

// ListIndexes returns all indexes in the database.
func (c *Client) ListIndexes(ctx context.Context) ([]backend.IndexInfo, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT id, name, dimension, metric, metadata FROM vector_indexes`)
	if err != nil {
		return nil, fmt.Errorf("mysql: list indexes: %w", err)
	}
	defer rows.Close()

	var indexes []backend.IndexInfo
	for rows.Next() {
		var info backend.IndexInfo
		var metadataJSON sql.NullString
		if err := rows.Scan(&info.ID, &info.Name, &info.Dimension, &info.Metric, &metadataJSON); err != nil {
			return nil, fmt.Errorf("mysql: scan index: %w", err)
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
		return nil, fmt.Errorf("mysql: encode metadata: %w", err)
	}

	id := "idx_" + req.Name
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO vector_indexes (id, name, dimension, metric, metadata) VALUES (?, ?, ?, ?, ?)`,
		id, req.Name, req.Dimension, req.Metric, string(metadataJSON))
	if err != nil {
		var mysqlErr *gomysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == duplicateEntry {
			return nil, fmt.Errorf("mysql: index %q: %w", req.Name, backend.ErrIndexExists)
		}
		return nil, fmt.Errorf("mysql: create index: %w", err)
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
		return "", fmt.Errorf("mysql: embed text: %w", err)
	}
	vectorJSON, err := backend.EncodeVector(vector)
	if err != nil {
		return "", fmt.Errorf("mysql: encode vector: %w", err)
	}
	metadataJSON, err := json.Marshal(req.Metadata)
	if err != nil {
		return "", fmt.Errorf("mysql: encode metadata: %w", err)
	}

	id := req.ID
	if id == "" {
		return "", errors.New("mysql: record id is required")
	}

	_, err = c.db.ExecContext(ctx,
		`INSERT INTO vector_records (id, index_id, vector, metadata) VALUES (?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE vector = VALUES(vector), metadata = VALUES(metadata)`,
		id, indexID, vectorJSON, string(metadataJSON))
	if err != nil {
		return "", fmt.Errorf("mysql: upsert record: %w", err)
	}
	return id, nil
}

// SearchText embeds the query in-process and scans the index with cosine
// similarity, applying the metadata filter before ranking.
func (c *Client) SearchText(ctx context.Context, indexID string, req *backend.SearchRequest) ([]backend.Hit, error) {
	queryVector, err := c.embedder.Embed(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("mysql: embed query: %w", err)
	}

	rows, err := c.db.QueryContext(ctx,
		`SELECT id, vector, metadata FROM vector_records WHERE index_id = ?`, indexID)
	if err != nil {
		return nil, fmt.Errorf("mysql: search records: %w", err)
	}
	defer rows.Close()

	var hits []backend.Hit
	for rows.Next() {
		var id, vectorJSON string
		var metadataJSON sql.NullString
		if err := rows.Scan(&id, &vectorJSON, &metadataJSON); err != nil {
			return nil, fmt.Errorf("mysql: scan record: %w", err)
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
		return nil, fmt.Errorf("mysql: search records: %w", err)
	}

	return backend.SortHitsByScore(hits, req.TopK), nil
}

// GetRecord fetches a record by id.
func (c *Client) GetRecord(ctx context.Context, indexID, recordID string) (*backend.Record, error) {
	var metadataJSON sql.NullString
	err := c.db.QueryRowContext(ctx,
		`SELECT metadata FROM vector_records WHERE id = ? AND index_id = ?`,
		recordID, indexID).Scan(&metadataJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("mysql: record %q: %w", recordID, backend.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("mysql: get record: %w", err)
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
		return fmt.Errorf("mysql: encode metadata: %w", err)
	}

	result, err := c.db.ExecContext(ctx,
		`UPDATE vector_records SET metadata = ? WHERE id = ? AND index_id = ?`,
		string(metadataJSON), recordID, indexID)
	if err != nil {
		return fmt.Errorf("mysql: update record: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("mysql: record %q: %w", recordID, backend.ErrNotFound)
	}
	return nil
}

// DeleteRecord deletes a record by id. Deleting an absent record succeeds.
func (c *Client) DeleteRecord(ctx context.Context, indexID, recordID string) error {
	_, err := c.db.ExecContext(ctx,
		`DELETE FROM vector_records WHERE id = ? AND index_id = ?`, recordID, indexID)
	if err != nil {
		return fmt.Errorf("mysql: delete record: %w", err)
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
