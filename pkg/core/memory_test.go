package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddAndGetRoundtrip(t *testing.T) {
	client, err := newTestClient(nil, nil)
	require.NoError(t, err)
	ctx := context.Background()

	record, err := client.Add(ctx, "User prefers dark mode", "user_001")
	require.NoError(t, err)
	require.NotEmpty(t, record.ID)
	assert.Equal(t, "User prefers dark mode", record.Content)
	assert.Equal(t, TypeFactual, record.MemoryType)
	assert.Equal(t, "user_001", record.UserID)
	assert.Equal(t, 1.0, record.ImportanceScore)
	assert.Equal(t, 0, record.AccessCount)
	assert.False(t, record.CreatedAt.IsZero())

	fetched, err := client.Get(ctx, record.ID, "user_001")
	require.NoError(t, err)
	assert.Equal(t, record.ID, fetched.ID)
	assert.Equal(t, record.Content, fetched.Content)
	assert.Equal(t, record.MemoryType, fetched.MemoryType)
}

func TestAddValidation(t *testing.T) {
	client, err := newTestClient(nil, nil)
	require.NoError(t, err)
	ctx := context.Background()

	tests := []struct {
		name    string
		content string
		userID  string
		opts    []AddOption
	}{
		{name: "empty content", content: "", userID: "user_001"},
		{name: "empty user id", content: "something", userID: ""},
		{name: "unknown memory type", content: "something", userID: "user_001",
			opts: []AddOption{WithMemoryType("imaginary")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.Add(ctx, tt.content, tt.userID, tt.opts...)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestAddWithOptions(t *testing.T) {
	client, err := newTestClient(nil, nil)
	require.NoError(t, err)
	ctx := context.Background()

	record, err := client.Add(ctx, "Session scratch note", "user_001",
		WithID("mem_custom"),
		WithMemoryType(TypeWorking),
		WithMetadata(map[string]interface{}{
			"source":  "session",
			"user_id": "intruder",
		}),
	)
	require.NoError(t, err)
	assert.Equal(t, "mem_custom", record.ID)
	assert.Equal(t, TypeWorking, record.MemoryType)
	assert.Equal(t, "session", record.Metadata["source"])
	// The owning user id is never overridable through metadata.
	assert.Equal(t, "user_001", record.UserID)
}

func TestAddFailsLoudOnBackendError(t *testing.T) {
	fb := newFakeBackend()
	client, err := newTestClient(fb, nil)
	require.NoError(t, err)

	fb.upsertErr = errors.New("service unavailable")
	_, err = client.Add(context.Background(), "content", "user_001")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStoreOperation)
}

func TestGetOwnershipHiding(t *testing.T) {
	client, err := newTestClient(nil, nil)
	require.NoError(t, err)
	ctx := context.Background()

	record, err := client.Add(ctx, "User prefers dark mode", "user_001")
	require.NoError(t, err)

	// A foreign record and an absent record are indistinguishable.
	_, err = client.Get(ctx, record.ID, "user_002")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = client.Get(ctx, "mem_does_not_exist", "user_001")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearchRelevanceAndThreshold(t *testing.T) {
	client, err := newTestClient(nil, nil)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = client.Add(ctx, "I love Italian food", "user_001")
	require.NoError(t, err)
	_, err = client.Add(ctx, "The weather is nice today", "user_001")
	require.NoError(t, err)

	results, err := client.Search(ctx, "Italian food", "user_001", WithThreshold(0.3))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "I love Italian food", results[0].Content)
	assert.Greater(t, results[0].Score, 0.3)
}

func TestSearchThresholdSuperset(t *testing.T) {
	client, err := newTestClient(nil, nil)
	require.NoError(t, err)
	ctx := context.Background()

	contents := []string{
		"I love Italian food",
		"Italian wine pairs well with food",
		"The weather is nice today",
	}
	for _, content := range contents {
		_, err := client.Add(ctx, content, "user_001")
		require.NoError(t, err)
	}

	strict, err := client.Search(ctx, "Italian food", "user_001", WithThreshold(0.4))
	require.NoError(t, err)
	loose, err := client.Search(ctx, "Italian food", "user_001", WithThreshold(0.1))
	require.NoError(t, err)

	assert.GreaterOrEqual(t, len(loose), len(strict))
	looseIDs := make(map[string]bool)
	for _, r := range loose {
		looseIDs[r.ID] = true
	}
	for _, r := range strict {
		assert.True(t, looseIDs[r.ID], "strict result %s missing from loose results", r.ID)
	}
}

func TestSearchUserIsolation(t *testing.T) {
	client, err := newTestClient(nil, nil)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = client.Add(ctx, "I love Italian food", "user_001")
	require.NoError(t, err)
	_, err = client.Add(ctx, "I love Italian food", "user_002")
	require.NoError(t, err)

	results, err := client.Search(ctx, "Italian food", "user_001")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "user_001", results[0].UserID)
}

func TestSearchDegradesOnBackendError(t *testing.T) {
	fb := newFakeBackend()
	client, err := newTestClient(fb, nil)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = client.Add(ctx, "I love Italian food", "user_001")
	require.NoError(t, err)

	fb.searchErr = errors.New("service unavailable")
	results, err := client.Search(ctx, "Italian food", "user_001")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchEmptyQueryBroadScan(t *testing.T) {
	client, err := newTestClient(nil, nil)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = client.Add(ctx, "I love Italian food", "user_001")
	require.NoError(t, err)

	results, err := client.Search(ctx, "", "user_001")
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSearchBumpsAccessCount(t *testing.T) {
	client, err := newTestClient(nil, nil)
	require.NoError(t, err)
	ctx := context.Background()

	record, err := client.Add(ctx, "I love Italian food", "user_001")
	require.NoError(t, err)

	_, err = client.Search(ctx, "Italian food", "user_001")
	require.NoError(t, err)

	fetched, err := client.Get(ctx, record.ID, "user_001")
	require.NoError(t, err)
	assert.Equal(t, 1, fetched.AccessCount)
	// Reading is not modification; the update timestamp stays put.
	assert.Equal(t, record.UpdatedAt.Unix(), fetched.UpdatedAt.Unix())
}

func TestGetAllReturnsEverything(t *testing.T) {
	client, err := newTestClient(nil, nil)
	require.NoError(t, err)
	ctx := context.Background()

	for _, content := range []string{"alpha", "beta", "gamma"} {
		_, err := client.Add(ctx, content, "user_001")
		require.NoError(t, err)
	}
	_, err = client.Add(ctx, "other user's memory", "user_002")
	require.NoError(t, err)

	results, err := client.GetAll(ctx, "user_001")
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestUpdateReflectsInSearch(t *testing.T) {
	client, err := newTestClient(nil, nil)
	require.NoError(t, err)
	ctx := context.Background()

	record, err := client.Add(ctx, "I love Italian food", "user_001",
		WithMetadata(map[string]interface{}{"source": "chat"}),
	)
	require.NoError(t, err)

	updated, err := client.Update(ctx, record.ID, "I love Thai food", "user_001",
		WithImportanceScore(0.9),
		WithMetadataForUpdate(map[string]interface{}{"reviewed": true}),
	)
	require.NoError(t, err)
	assert.Equal(t, "I love Thai food", updated.Content)
	assert.Equal(t, 0.9, updated.ImportanceScore)
	assert.Equal(t, "chat", updated.Metadata["source"], "untouched metadata keys survive")
	assert.Equal(t, true, updated.Metadata["reviewed"])
	assert.Equal(t, record.CreatedAt.Unix(), updated.CreatedAt.Unix())
	assert.False(t, updated.UpdatedAt.Before(record.UpdatedAt))

	results, err := client.Search(ctx, "Thai food", "user_001", WithThreshold(0.3))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "I love Thai food", results[0].Content)

	results, err = client.Search(ctx, "Italian food", "user_001", WithThreshold(0.4))
	require.NoError(t, err)
	assert.Empty(t, results, "old content no longer matches")
}

func TestUpdateOwnership(t *testing.T) {
	client, err := newTestClient(nil, nil)
	require.NoError(t, err)
	ctx := context.Background()

	record, err := client.Add(ctx, "I love Italian food", "user_001")
	require.NoError(t, err)

	_, err = client.Update(ctx, record.ID, "hijacked", "user_002")
	assert.ErrorIs(t, err, ErrNotFound)

	fetched, err := client.Get(ctx, record.ID, "user_001")
	require.NoError(t, err)
	assert.Equal(t, "I love Italian food", fetched.Content)
}

func TestDeleteIsIdempotent(t *testing.T) {
	client, err := newTestClient(nil, nil)
	require.NoError(t, err)
	ctx := context.Background()

	record, err := client.Add(ctx, "I love Italian food", "user_001")
	require.NoError(t, err)

	require.NoError(t, client.Delete(ctx, record.ID, "user_001"))
	_, err = client.Get(ctx, record.ID, "user_001")
	assert.ErrorIs(t, err, ErrNotFound)

	// Second delete of the same id succeeds silently.
	assert.NoError(t, client.Delete(ctx, record.ID, "user_001"))
	// So does deleting an id that never existed.
	assert.NoError(t, client.Delete(ctx, "mem_never_existed", "user_001"))
}

func TestDeleteRespectsOwnership(t *testing.T) {
	client, err := newTestClient(nil, nil)
	require.NoError(t, err)
	ctx := context.Background()

	record, err := client.Add(ctx, "I love Italian food", "user_001")
	require.NoError(t, err)

	// A foreign delete is a silent no-op; the record survives.
	require.NoError(t, client.Delete(ctx, record.ID, "user_002"))
	_, err = client.Get(ctx, record.ID, "user_001")
	assert.NoError(t, err)
}

func TestDeleteAll(t *testing.T) {
	client, err := newTestClient(nil, nil)
	require.NoError(t, err)
	ctx := context.Background()

	for _, content := range []string{"alpha", "beta", "gamma"} {
		_, err := client.Add(ctx, content, "user_001")
		require.NoError(t, err)
	}
	other, err := client.Add(ctx, "survivor", "user_002")
	require.NoError(t, err)

	deleted, err := client.DeleteAll(ctx, "user_001")
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)

	remaining, err := client.GetAll(ctx, "user_001")
	require.NoError(t, err)
	assert.Empty(t, remaining)

	_, err = client.Get(ctx, other.ID, "user_002")
	assert.NoError(t, err, "other users' memories untouched")
}

func TestGetMemoriesByType(t *testing.T) {
	client, err := newTestClient(nil, nil)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = client.Add(ctx, "durable fact", "user_001")
	require.NoError(t, err)
	_, err = client.Add(ctx, "session note", "user_001", WithMemoryType(TypeWorking))
	require.NoError(t, err)

	working, err := client.GetMemoriesByType(ctx, TypeWorking, "user_001")
	require.NoError(t, err)
	require.Len(t, working, 1)
	assert.Equal(t, "session note", working[0].Content)

	_, err = client.GetMemoriesByType(ctx, "imaginary", "user_001")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCleanupWorkingMemory(t *testing.T) {
	client, err := newTestClient(nil, nil)
	require.NoError(t, err)
	ctx := context.Background()

	stale := time.Now().Add(-3 * time.Hour).UTC().Format(time.RFC3339)

	expired, err := client.Add(ctx, "old session note", "user_001",
		WithMemoryType(TypeWorking),
		WithMetadata(map[string]interface{}{"created_at": stale}),
	)
	require.NoError(t, err)
	fresh, err := client.Add(ctx, "current session note", "user_001",
		WithMemoryType(TypeWorking),
	)
	require.NoError(t, err)
	oldFact, err := client.Add(ctx, "old but durable", "user_001",
		WithMetadata(map[string]interface{}{"created_at": stale}),
	)
	require.NoError(t, err)

	removed, err := client.CleanupWorkingMemory(ctx, "user_001")
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = client.Get(ctx, expired.ID, "user_001")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = client.Get(ctx, fresh.ID, "user_001")
	assert.NoError(t, err, "fresh working memory survives")
	_, err = client.Get(ctx, oldFact.ID, "user_001")
	assert.NoError(t, err, "non-working memory is never evicted")
}

func TestListAllMemoriesSorting(t *testing.T) {
	client, err := newTestClient(nil, nil)
	require.NoError(t, err)
	ctx := context.Background()

	now := time.Now().UTC()
	type seed struct {
		content    string
		createdAt  time.Time
		importance float64
	}
	seeds := []seed{
		{"oldest", now.Add(-3 * time.Hour), 0.2},
		{"middle", now.Add(-2 * time.Hour), 0.9},
		{"newest", now.Add(-1 * time.Hour), 0.5},
	}
	for _, s := range seeds {
		_, err := client.Add(ctx, s.content, "user_001",
			WithMetadata(map[string]interface{}{
				"created_at":       s.createdAt.Format(time.RFC3339),
				"importance_score": s.importance,
			}),
		)
		require.NoError(t, err)
	}

	byCreated, err := client.ListAllMemories(ctx, "user_001")
	require.NoError(t, err)
	require.Len(t, byCreated, 3)
	assert.Equal(t, "newest", byCreated[0].Content, "defaults to newest first")
	assert.Equal(t, "oldest", byCreated[2].Content)

	byImportance, err := client.ListAllMemories(ctx, "user_001",
		WithSortBy(SortByImportance), WithAscending())
	require.NoError(t, err)
	require.Len(t, byImportance, 3)
	assert.Equal(t, "oldest", byImportance[0].Content)
	assert.Equal(t, "middle", byImportance[2].Content)

	_, err = client.ListAllMemories(ctx, "user_001", WithSortBy("imaginary"))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestGetStats(t *testing.T) {
	client, err := newTestClient(nil, nil)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = client.Add(ctx, "fact one", "user_001")
	require.NoError(t, err)
	_, err = client.Add(ctx, "fact two", "user_001")
	require.NoError(t, err)
	_, err = client.Add(ctx, "session note", "user_001", WithMemoryType(TypeWorking))
	require.NoError(t, err)

	stats, err := client.GetStats(ctx, "user_001")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalMemories)
	assert.Equal(t, 2, stats.ByType[TypeFactual])
	assert.Equal(t, 1, stats.ByType[TypeWorking])
	assert.False(t, stats.LastUpdatedAt.IsZero())

	// Every type is present in the map, zero or not.
	for _, mt := range MemoryTypes {
		_, ok := stats.ByType[mt]
		assert.True(t, ok, "type %s missing from stats", mt)
	}

	empty, err := client.GetStats(ctx, "user_never_seen")
	require.NoError(t, err)
	assert.Equal(t, 0, empty.TotalMemories)
	assert.True(t, empty.LastUpdatedAt.IsZero())
}

func TestSwitchConfigurationStoreIsolation(t *testing.T) {
	client, err := newTestClient(nil, nil)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = client.Add(ctx, "memory in first store", "user_001")
	require.NoError(t, err)

	require.NoError(t, client.SwitchConfiguration(WithStoreName("second-store")))
	assert.Equal(t, "second-store", client.CurrentConfiguration().StoreName)

	results, err := client.GetAll(ctx, "user_001")
	require.NoError(t, err)
	assert.Empty(t, results, "stores do not share records")

	_, err = client.Add(ctx, "memory in second store", "user_001")
	require.NoError(t, err)

	require.NoError(t, client.SwitchConfiguration(WithStoreName("test-memories")))
	results, err = client.GetAll(ctx, "user_001")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "memory in first store", results[0].Content)
}

func TestSwitchConfigurationValidation(t *testing.T) {
	client, err := newTestClient(nil, nil)
	require.NoError(t, err)

	err = client.SwitchConfiguration(WithStoreName(""))
	assert.ErrorIs(t, err, ErrInvalidConfig)
	err = client.SwitchConfiguration(WithEmbeddingModel(""))
	assert.ErrorIs(t, err, ErrInvalidConfig)
	// A failed switch leaves the settings untouched.
	assert.Equal(t, "test-memories", client.CurrentConfiguration().StoreName)
}

func TestSwitchConfigurationEmbeddingModel(t *testing.T) {
	client, err := newTestClient(nil, nil)
	require.NoError(t, err)

	require.NoError(t, client.SwitchConfiguration(WithEmbeddingModel("text-embedding-3-large")))
	settings := client.CurrentConfiguration()
	assert.Equal(t, "text-embedding-3-large", settings.EmbeddingModel)
	assert.Equal(t, 3072, settings.EmbeddingDimension)
}

func TestSwitchConfigurationDimensionMismatch(t *testing.T) {
	client, err := newTestClient(nil, nil)
	require.NoError(t, err)
	ctx := context.Background()

	// The store's index is created at 1024 dimensions.
	_, err = client.Add(ctx, "memory at original dimension", "user_001")
	require.NoError(t, err)

	// Switching to a 3072-dimension model makes the store unusable until
	// the configuration is corrected; nothing auto-heals.
	require.NoError(t, client.SwitchConfiguration(WithEmbeddingModel("text-embedding-3-large")))

	_, err = client.Search(ctx, "anything", "user_001")
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	_, err = client.Add(ctx, "new memory", "user_001")
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	// Switching back restores access.
	require.NoError(t, client.SwitchConfiguration(WithEmbeddingModel("llama-text-embed-v2")))
	results, err := client.Search(ctx, "memory original dimension", "user_001")
	require.NoError(t, err)
	assert.NotEmpty(t, results)
}

func TestSwitchConfigurationInferenceModel(t *testing.T) {
	client, err := newTestClient(nil, nil)
	require.NoError(t, err)

	require.NoError(t, client.SwitchConfiguration(WithInferenceModel("other-model")))
	assert.Equal(t, "other-model", client.CurrentConfiguration().InferenceModel)
}

func TestUserIDRequiredEverywhere(t *testing.T) {
	client, err := newTestClient(nil, nil)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = client.Search(ctx, "query", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = client.GetAll(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = client.Get(ctx, "mem_1", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = client.Update(ctx, "mem_1", "content", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
	err = client.Delete(ctx, "mem_1", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = client.DeleteAll(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = client.GetMemoriesByType(ctx, TypeFactual, "")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = client.CleanupWorkingMemory(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = client.ListAllMemories(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = client.GetStats(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAssistantMemoryScenario(t *testing.T) {
	client, err := newTestClient(nil, nil)
	require.NoError(t, err)
	ctx := context.Background()
	userID := "user_scenario"

	// Session one: the assistant learns a preference.
	stored, err := client.Add(ctx, "User prefers vegetarian restaurants", userID)
	require.NoError(t, err)

	// Session two: retrieval brings the preference back.
	results, err := client.Search(ctx, "vegetarian restaurants", userID, WithThreshold(0.3))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, stored.ID, results[0].ID)

	// The preference changes.
	_, err = client.Update(ctx, stored.ID, "User now eats fish but prefers vegetarian restaurants", userID)
	require.NoError(t, err)

	fetched, err := client.Get(ctx, stored.ID, userID)
	require.NoError(t, err)
	assert.Contains(t, fetched.Content, "fish")

	// The user asks to be forgotten.
	deleted, err := client.DeleteAll(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	stats, err := client.GetStats(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalMemories)
}
