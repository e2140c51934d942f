package core

// modelDimensions maps embedding-model names to their output dimensionality.
//
// The table is fixed: an index is created with the dimension active at
// creation time and never changes it afterwards, so additions here only
// affect stores created after the addition.
var modelDimensions = map[string]int{
	"multilingual-e5-large":  1024,
	"llama-text-embed-v2":    1024,
	"text-embedding-v4":      1024,
	"text-embedding-ada-002": 1536,
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
}

// defaultModelDimension is the dimension used for embedding models missing
// from the table. It is a deliberate fallback, not a guess about the
// model's true output size: a consistent wrong dimension keeps a store
// internally coherent, whereas failing here would make every unknown model
// unusable. Callers mixing an unknown model with pre-existing stores still
// hit ErrDimensionMismatch in the resolver.
const defaultModelDimension = 1024

// DimensionForModel returns the embedding dimension for a model name,
// falling back to defaultModelDimension for unknown models.
func DimensionForModel(model string) int {
	if dim, ok := modelDimensions[model]; ok {
		return dim
	}
	return defaultModelDimension
}
