// Package core provides the vectormem client and memory orchestration layer.
package core

import "time"

// MemoryType classifies a memory record.
//
// Types control how records are meant to be used and retained:
//   - TypeFactual: durable structured knowledge
//   - TypeEpisodic: a specific past interaction
//   - TypeWorking: short-lived session context, subject to TTL cleanup
//   - TypeSemantic: pattern-derived generalization
type MemoryType string

const (
	// TypeFactual is durable structured knowledge. Default for direct adds.
	TypeFactual MemoryType = "factual"

	// TypeEpisodic is a specific past interaction. Default for
	// conversation-derived adds.
	TypeEpisodic MemoryType = "episodic"

	// TypeWorking is short-lived session context, eligible for
	// CleanupWorkingMemory eviction.
	TypeWorking MemoryType = "working"

	// TypeSemantic is a generalization derived across interactions.
	TypeSemantic MemoryType = "semantic"
)

// MemoryTypes lists all valid memory types.
var MemoryTypes = []MemoryType{TypeFactual, TypeEpisodic, TypeWorking, TypeSemantic}

// Valid reports whether t is one of the defined memory types.
func (t MemoryType) Valid() bool {
	switch t {
	case TypeFactual, TypeEpisodic, TypeWorking, TypeSemantic:
		return true
	}
	return false
}

// MemoryRecord is the externally visible unit of memory.
//
// A record belongs to exactly one user; the user id is immutable after
// creation and every retrieval path filters on it.
type MemoryRecord struct {
	// ID is the unique identifier of the record.
	ID string `json:"id"`

	// Content is the text payload remembered.
	Content string `json:"content"`

	// MemoryType classifies the record.
	MemoryType MemoryType `json:"memory_type"`

	// UserID identifies the owning principal.
	UserID string `json:"user_id"`

	// Metadata contains caller-supplied and system-managed fields.
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	// CreatedAt is when the record was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the record's content or metadata last changed.
	UpdatedAt time.Time `json:"updated_at"`

	// ImportanceScore is a caller-managed sortable attribute. Defaults to
	// 1.0 and is never computed from content.
	ImportanceScore float64 `json:"importance_score"`

	// AccessCount is incremented each time the record is returned from a
	// search, as a usage signal.
	AccessCount int `json:"access_count"`

	// Score is the similarity score from search operations, higher is
	// closer. Zero outside search results.
	Score float64 `json:"score,omitempty"`
}

// Message represents a single conversation turn passed to AddMessages.
type Message struct {
	// Role is the speaker role: "system", "user", or "assistant".
	Role string `json:"role"`

	// Content is the turn's text.
	Content string `json:"content"`
}

// SortField names a sortable attribute for ListAllMemories.
type SortField string

const (
	// SortByCreatedAt sorts by record creation time.
	SortByCreatedAt SortField = "created_at"

	// SortByUpdatedAt sorts by last modification time.
	SortByUpdatedAt SortField = "updated_at"

	// SortByImportance sorts by importance score.
	SortByImportance SortField = "importance_score"

	// SortByAccessCount sorts by access count.
	SortByAccessCount SortField = "access_count"
)

// Valid reports whether f is one of the sortable fields.
func (f SortField) Valid() bool {
	switch f {
	case SortByCreatedAt, SortByUpdatedAt, SortByImportance, SortByAccessCount:
		return true
	}
	return false
}

// MemoryStats aggregates a user's memory collection.
type MemoryStats struct {
	// TotalMemories is the number of records scanned.
	TotalMemories int `json:"total_memories"`

	// ByType counts records per memory type. Every defined type appears,
	// zero or not, so callers can range without existence checks.
	ByType map[MemoryType]int `json:"by_type"`

	// LastUpdatedAt is the most recent UpdatedAt across the user's
	// records. Zero when the user has no records.
	LastUpdatedAt time.Time `json:"last_updated_at"`
}

// Settings is an immutable snapshot of the client's active configuration.
type Settings struct {
	// EmbeddingModel is the active embedding model name.
	EmbeddingModel string `json:"embedding_model"`

	// EmbeddingDimension is the dimension derived from EmbeddingModel.
	EmbeddingDimension int `json:"embedding_dimension"`

	// InferenceModel is the active chat model for conversation inference.
	InferenceModel string `json:"inference_model"`

	// StoreName is the active logical memory store name.
	StoreName string `json:"store_name"`

	// CloudProvider and Region select placement for newly created indexes.
	CloudProvider string `json:"cloud_provider"`
	Region        string `json:"region"`
}
