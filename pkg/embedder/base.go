// Package embedder provides the embedding provider interface used by the
// self-hosted backends.
//
// The remote vector service embeds text server-side, so the core never
// touches this package; only pkg/backend/sqlite, pkg/backend/postgres and
// pkg/backend/mysql consume it.
package embedder

import "context"

// Provider defines the interface for embedding providers.
type Provider interface {
	// Embed converts a single text into a vector.
	Embed(ctx context.Context, text string) ([]float64, error)

	// Dimensions returns the dimension of vectors produced by this provider.
	Dimensions() int

	// Close closes the provider and releases resources.
	Close() error
}
