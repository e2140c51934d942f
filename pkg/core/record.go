package core

import (
	"encoding/json"
	"time"
)

// Metadata keys managed by the core. Everything the core needs to
// reconstruct a MemoryRecord travels in backend metadata, so a record
// round-trips through any backend without a schema of its own.
const (
	metaUserID         = "user_id"
	metaMemoryType     = "memory_type"
	metaContent        = "content"
	metaEmbeddingModel = "embedding_model"
	metaStoreName      = "store_name"
	metaCreatedAt      = "created_at"
	metaUpdatedAt      = "updated_at"
	metaImportance     = "importance_score"
	metaAccessCount    = "access_count"
)

// buildRecordMetadata assembles the stored metadata for a new record.
//
// System fields are written first and caller metadata is merged on top, so
// callers can override classification, timestamps or scores when they know
// better. The single exception is the owning user id: ownership is
// assigned at creation and no metadata override moves a record between
// users.
func buildRecordMetadata(content, userID string, memoryType MemoryType, snap Settings, now time.Time, callerMeta map[string]interface{}) map[string]interface{} {
	metadata := map[string]interface{}{
		metaUserID:         userID,
		metaMemoryType:     string(memoryType),
		metaContent:        content,
		metaEmbeddingModel: snap.EmbeddingModel,
		metaStoreName:      snap.StoreName,
		metaCreatedAt:      now.UTC().Format(time.RFC3339),
		metaUpdatedAt:      now.UTC().Format(time.RFC3339),
		metaImportance:     1.0,
		metaAccessCount:    0,
	}
	for k, v := range callerMeta {
		if k == metaUserID {
			continue
		}
		metadata[k] = v
	}
	return metadata
}

// recordFromMetadata reconstructs a MemoryRecord from stored metadata.
//
// Reads are tolerant: records written by older versions or touched by
// out-of-band tools may miss fields, and a read must never fail over a
// gap. Missing importance defaults to 1.0, missing access count to 0,
// missing or unknown type to factual, and unparseable timestamps stay
// zero.
func recordFromMetadata(id string, score float64, metadata map[string]interface{}) *MemoryRecord {
	record := &MemoryRecord{
		ID:              id,
		Score:           score,
		MemoryType:      TypeFactual,
		ImportanceScore: 1.0,
		Metadata:        make(map[string]interface{}),
	}

	for k, v := range metadata {
		switch k {
		case metaUserID:
			record.UserID, _ = v.(string)
		case metaContent:
			record.Content, _ = v.(string)
		case metaMemoryType:
			if s, ok := v.(string); ok && MemoryType(s).Valid() {
				record.MemoryType = MemoryType(s)
			}
		case metaCreatedAt:
			record.CreatedAt = parseTimestamp(v)
		case metaUpdatedAt:
			record.UpdatedAt = parseTimestamp(v)
		case metaImportance:
			if f, ok := toFloat(v); ok {
				record.ImportanceScore = f
			}
		case metaAccessCount:
			if f, ok := toFloat(v); ok {
				record.AccessCount = int(f)
			}
		default:
			record.Metadata[k] = v
		}
	}

	return record
}

// mergeForUpdate produces the metadata for an updated record.
//
// The merge is shallow over the existing stored metadata: keys the caller
// does not touch survive, so a partial metadata object never erases the
// rest. Content, the update timestamp and the active embedding model are
// always refreshed (the record is re-embedded under the current model);
// the creation timestamp and owning user are never touched.
func mergeForUpdate(existing map[string]interface{}, newContent string, snap Settings, now time.Time, callerMeta map[string]interface{}, importance *float64) map[string]interface{} {
	merged := make(map[string]interface{}, len(existing)+len(callerMeta)+3)
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range callerMeta {
		if k == metaUserID {
			continue
		}
		merged[k] = v
	}

	merged[metaContent] = newContent
	merged[metaEmbeddingModel] = snap.EmbeddingModel
	merged[metaUpdatedAt] = now.UTC().Format(time.RFC3339)
	if importance != nil {
		merged[metaImportance] = *importance
	}
	return merged
}

// parseTimestamp reads an RFC3339 metadata value, returning the zero time
// when absent or malformed.
func parseTimestamp(v interface{}) time.Time {
	s, ok := v.(string)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// toFloat normalizes the numeric types JSON decoding and Go literals
// produce for metadata values.
func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
