package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vectormem/vectormem-go/pkg/backend"
)

// storePurposeTag marks indexes created by this library.
const storePurposeTag = "unified-memory-store"

// indexResolver maps logical store names to backing index ids.
//
// Resolution is lazy: nothing talks to the backend until a store is first
// used. Resolved ids are cached for the process lifetime; an entry is
// dropped only when the client switches away from its store name.
//
// The cache does not serialize resolution of the same name across
// goroutines: two concurrent first resolutions can race and both attempt
// creation. The backend's ErrIndexExists conflict answer settles the race,
// with the loser re-listing and adopting the winner's index.
type indexResolver struct {
	backend backend.VectorBackend

	mu    sync.Mutex
	cache map[string]string
}

func newIndexResolver(b backend.VectorBackend) *indexResolver {
	return &indexResolver{
		backend: b,
		cache:   make(map[string]string),
	}
}

// Resolve returns the backing index id for storeName, creating the index
// on first use with the dimension of the embedding model in snap.
//
// Resolving an existing index whose dimension differs from the active
// model's dimension returns ErrDimensionMismatch: a store never silently
// changes dimension, and the caller must switch back to a matching model
// (or a fresh store) explicitly.
//
// Creation failures propagate to the caller; the resolver performs no
// retries of its own.
func (r *indexResolver) Resolve(ctx context.Context, storeName string, snap Settings) (string, error) {
	r.mu.Lock()
	if id, ok := r.cache[storeName]; ok {
		r.mu.Unlock()
		return id, nil
	}
	r.mu.Unlock()

	id, err := r.lookup(ctx, storeName, snap)
	if err != nil {
		return "", err
	}
	if id != "" {
		r.store(storeName, id)
		return id, nil
	}

	info, err := r.backend.CreateIndex(ctx, &backend.CreateIndexRequest{
		Name:          storeName,
		Dimension:     snap.EmbeddingDimension,
		Metric:        "cosine",
		VectorType:    "dense",
		CloudProvider: snap.CloudProvider,
		Region:        snap.Region,
		Metadata: map[string]interface{}{
			"purpose":         storePurposeTag,
			"embedding_model": snap.EmbeddingModel,
			"created_at":      time.Now().UTC().Format(time.RFC3339),
		},
	})
	if errors.Is(err, backend.ErrIndexExists) {
		// Lost the creation race; the winner's index is the store now.
		id, err = r.lookup(ctx, storeName, snap)
		if err != nil {
			return "", err
		}
		if id == "" {
			return "", fmt.Errorf("%w: index %q reported existing but not listed", ErrStoreOperation, storeName)
		}
		r.store(storeName, id)
		return id, nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: create index %q: %v", ErrStoreOperation, storeName, err)
	}

	r.store(storeName, info.ID)
	return info.ID, nil
}

// lookup scans the backend's index list for a name match. Returns an empty
// id when absent.
func (r *indexResolver) lookup(ctx context.Context, storeName string, snap Settings) (string, error) {
	indexes, err := r.backend.ListIndexes(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: list indexes: %v", ErrStoreOperation, err)
	}
	for _, info := range indexes {
		if info.Name != storeName {
			continue
		}
		if info.Dimension > 0 && info.Dimension != snap.EmbeddingDimension {
			return "", fmt.Errorf("%w: store %q has dimension %d, embedding model %q produces %d",
				ErrDimensionMismatch, storeName, info.Dimension, snap.EmbeddingModel, snap.EmbeddingDimension)
		}
		return info.ID, nil
	}
	return "", nil
}

func (r *indexResolver) store(storeName, id string) {
	r.mu.Lock()
	r.cache[storeName] = id
	r.mu.Unlock()
}

// invalidate drops a store's cache entry. Called when the client switches
// away from the store name.
func (r *indexResolver) invalidate(storeName string) {
	r.mu.Lock()
	delete(r.cache, storeName)
	r.mu.Unlock()
}
