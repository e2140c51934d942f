// Package backend defines the contract between the memory core and the
// vector-index service it runs on.
//
// The core never stores vectors itself. It talks to a VectorBackend, which
// owns indexes (named, fixed-dimension collections of embedded records) and
// performs embedding server-side on upsert and search. The remote
// implementation lives in pkg/backend/remote; self-hosted implementations
// for development and tests live in pkg/backend/sqlite, pkg/backend/postgres
// and pkg/backend/mysql.
package backend

import (
	"context"
	"errors"
)

// Sentinel errors shared by all backend implementations.
var (
	// ErrNotFound indicates that a requested index or record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrIndexExists indicates that an index with the requested name already
	// exists. Callers use this as the race-resolution signal for
	// create-if-absent: on conflict, re-list and adopt the winner.
	ErrIndexExists = errors.New("index already exists")
)

// IndexInfo describes an existing backing index.
type IndexInfo struct {
	// ID is the backend-assigned identifier of the index.
	ID string `json:"id"`

	// Name is the caller-chosen index name, unique per backend.
	Name string `json:"name"`

	// Dimension is the embedding dimension the index was created with.
	Dimension int `json:"dimension"`

	// Metric is the distance metric ("cosine", "l2", "ip").
	Metric string `json:"metric"`

	// Metadata contains the tags recorded at creation time.
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// CreateIndexRequest contains the parameters for creating a backing index.
type CreateIndexRequest struct {
	// Name is the index name. Must be unique per backend.
	Name string `json:"name"`

	// Dimension is the embedding dimension. Immutable after creation.
	Dimension int `json:"dimension"`

	// Metric is the distance metric ("cosine", "l2", "ip").
	Metric string `json:"metric"`

	// VectorType is the vector representation ("dense", "sparse").
	VectorType string `json:"vector_type"`

	// CloudProvider and Region select the placement of the index.
	// Self-hosted backends ignore them.
	CloudProvider string `json:"cloud_provider,omitempty"`
	Region        string `json:"region,omitempty"`

	// DeleteProtection prevents accidental index deletion when supported.
	DeleteProtection bool `json:"delete_protection,omitempty"`

	// Metadata contains tags stored on the index itself.
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// UpsertRequest contains a single text record to embed and store.
//
// The backend performs the embedding; the caller only names the model.
type UpsertRequest struct {
	// ID is the record identifier. If empty, the backend assigns one.
	ID string `json:"id,omitempty"`

	// Text is the content to embed.
	Text string `json:"text"`

	// Model is the embedding model name.
	Model string `json:"model"`

	// Metadata is stored verbatim alongside the vector.
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// SearchRequest contains the parameters for a semantic search.
type SearchRequest struct {
	// Query is the text to embed and match against the index.
	Query string `json:"query"`

	// Model is the embedding model name for the query.
	Model string `json:"model"`

	// TopK is the maximum number of hits to return.
	TopK int `json:"top_k"`

	// Filter restricts hits to records whose metadata matches every
	// key/value pair exactly.
	Filter map[string]interface{} `json:"filter,omitempty"`

	// IncludeMetadata requests record metadata in each hit.
	IncludeMetadata bool `json:"include_metadata"`
}

// Hit is a single search result.
type Hit struct {
	// ID is the record identifier.
	ID string `json:"id"`

	// Score is the similarity score, higher is closer.
	Score float64 `json:"score"`

	// Metadata is the record metadata (present when requested).
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Record is a stored record fetched by id.
type Record struct {
	// ID is the record identifier.
	ID string `json:"id"`

	// Metadata is the full stored metadata.
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// VectorBackend is the interface every vector-index backend must satisfy.
//
// Implementations do not retry; retry and backoff, when desired, belong to
// the transport underneath the implementation.
type VectorBackend interface {
	// ListIndexes returns all indexes visible to the caller.
	ListIndexes(ctx context.Context) ([]IndexInfo, error)

	// CreateIndex creates a new index. Returns ErrIndexExists (possibly
	// wrapped) when an index with the same name already exists.
	CreateIndex(ctx context.Context, req *CreateIndexRequest) (*IndexInfo, error)

	// UpsertText embeds req.Text with req.Model and stores it with
	// req.Metadata, returning the record id.
	UpsertText(ctx context.Context, indexID string, req *UpsertRequest) (string, error)

	// SearchText embeds req.Query and returns the closest records that
	// pass req.Filter, sorted by score descending.
	SearchText(ctx context.Context, indexID string, req *SearchRequest) ([]Hit, error)

	// GetRecord fetches a record by id. Returns ErrNotFound (possibly
	// wrapped) when absent.
	GetRecord(ctx context.Context, indexID, recordID string) (*Record, error)

	// UpdateRecord replaces the stored metadata of a record. The embedding
	// is left untouched; re-embedding goes through UpsertText.
	UpdateRecord(ctx context.Context, indexID, recordID string, metadata map[string]interface{}) error

	// DeleteRecord deletes a record by id. Deleting an absent record is
	// not an error.
	DeleteRecord(ctx context.Context, indexID, recordID string) error

	// Close releases the backend's resources.
	Close() error
}

// MatchesFilter reports whether metadata satisfies every equality condition
// in filter. Shared by the self-hosted backends; the remote service applies
// its own filtering server-side.
func MatchesFilter(metadata, filter map[string]interface{}) bool {
	for k, want := range filter {
		got, ok := metadata[k]
		if !ok || got != want {
			return false
		}
	}
	return true
}
