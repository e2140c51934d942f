package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vectormem/vectormem-go/pkg/backend"
)

func testSettings() Settings {
	return Settings{
		EmbeddingModel:     "llama-text-embed-v2",
		EmbeddingDimension: 1024,
		StoreName:          "test-memories",
		CloudProvider:      "aws",
		Region:             "us-east-1",
	}
}

func TestResolverCreatesMissingIndex(t *testing.T) {
	fb := newFakeBackend()
	resolver := newIndexResolver(fb)
	ctx := context.Background()

	id, err := resolver.Resolve(ctx, "test-memories", testSettings())
	require.NoError(t, err)
	assert.Equal(t, "idx_test-memories", id)
	assert.Equal(t, 1, fb.createCalls)

	// The created index carries the dimension and provenance tags.
	indexes, err := fb.ListIndexes(ctx)
	require.NoError(t, err)
	require.Len(t, indexes, 1)
	assert.Equal(t, 1024, indexes[0].Dimension)
	assert.Equal(t, storePurposeTag, indexes[0].Metadata["purpose"])
	assert.Equal(t, "llama-text-embed-v2", indexes[0].Metadata["embedding_model"])
}

func TestResolverAdoptsExistingIndex(t *testing.T) {
	fb := newFakeBackend()
	ctx := context.Background()
	_, err := fb.CreateIndex(ctx, &backend.CreateIndexRequest{
		Name: "test-memories", Dimension: 1024, Metric: "cosine",
	})
	require.NoError(t, err)
	fb.createCalls = 0

	resolver := newIndexResolver(fb)
	id, err := resolver.Resolve(ctx, "test-memories", testSettings())
	require.NoError(t, err)
	assert.Equal(t, "idx_test-memories", id)
	assert.Equal(t, 0, fb.createCalls, "an existing index is adopted, not recreated")
}

func TestResolverCachesResolution(t *testing.T) {
	fb := newFakeBackend()
	resolver := newIndexResolver(fb)
	ctx := context.Background()

	first, err := resolver.Resolve(ctx, "test-memories", testSettings())
	require.NoError(t, err)

	// Subsequent resolutions never hit the backend again.
	fb.listErr = errors.New("backend down")
	second, err := resolver.Resolve(ctx, "test-memories", testSettings())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestResolverInvalidateDropsCacheEntry(t *testing.T) {
	fb := newFakeBackend()
	resolver := newIndexResolver(fb)
	ctx := context.Background()

	_, err := resolver.Resolve(ctx, "test-memories", testSettings())
	require.NoError(t, err)

	resolver.invalidate("test-memories")
	fb.listErr = errors.New("backend down")
	_, err = resolver.Resolve(ctx, "test-memories", testSettings())
	assert.ErrorIs(t, err, ErrStoreOperation)
}

func TestResolverCreationRace(t *testing.T) {
	fb := newFakeBackend()
	ctx := context.Background()

	// Another client wins the creation race between our list and create.
	fb.onCreateIndex = func() {
		fb.mu.Lock()
		defer fb.mu.Unlock()
		if len(fb.indexes) > 0 {
			return
		}
		info := backend.IndexInfo{
			ID: "idx_test-memories", Name: "test-memories", Dimension: 1024, Metric: "cosine",
		}
		fb.indexes = append(fb.indexes, info)
		fb.records[info.ID] = make(map[string]*fakeStoredRecord)
	}

	resolver := newIndexResolver(fb)
	id, err := resolver.Resolve(ctx, "test-memories", testSettings())
	require.NoError(t, err)
	assert.Equal(t, "idx_test-memories", id, "the loser adopts the winner's index")
}

func TestResolverDimensionMismatch(t *testing.T) {
	fb := newFakeBackend()
	ctx := context.Background()
	_, err := fb.CreateIndex(ctx, &backend.CreateIndexRequest{
		Name: "test-memories", Dimension: 1536, Metric: "cosine",
	})
	require.NoError(t, err)

	resolver := newIndexResolver(fb)
	_, err = resolver.Resolve(ctx, "test-memories", testSettings())
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestResolverCreateFailurePropagates(t *testing.T) {
	fb := newFakeBackend()
	fb.createErr = errors.New("quota exceeded")

	resolver := newIndexResolver(fb)
	_, err := resolver.Resolve(context.Background(), "test-memories", testSettings())
	assert.ErrorIs(t, err, ErrStoreOperation)
}
