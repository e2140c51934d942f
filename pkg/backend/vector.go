package backend

import (
	"encoding/json"
	"math"
	"sort"
)

// EncodeVector serializes an embedding for storage in a text column. The
// self-hosted backends store vectors as JSON arrays; dedicated vector
// column types are not assumed.
func EncodeVector(vector []float64) (string, error) {
	data, err := json.Marshal(vector)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeVector deserializes an embedding stored by EncodeVector.
func DecodeVector(s string) ([]float64, error) {
	var vector []float64
	if err := json.Unmarshal([]byte(s), &vector); err != nil {
		return nil, err
	}
	return vector, nil
}

// CosineSimilarity computes the cosine similarity between two vectors.
// Returns 0 for mismatched lengths or zero-magnitude vectors.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// SortHitsByScore orders hits best first and truncates to topK (when
// topK > 0).
func SortHitsByScore(hits []Hit, topK int) []Hit {
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	return hits
}
