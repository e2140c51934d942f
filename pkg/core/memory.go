package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/vectormem/vectormem-go/pkg/backend"
	"github.com/vectormem/vectormem-go/pkg/backend/mysql"
	"github.com/vectormem/vectormem-go/pkg/backend/postgres"
	"github.com/vectormem/vectormem-go/pkg/backend/remote"
	"github.com/vectormem/vectormem-go/pkg/backend/sqlite"
	embedderopenai "github.com/vectormem/vectormem-go/pkg/embedder/openai"
	"github.com/vectormem/vectormem-go/pkg/llm"
	llmopenai "github.com/vectormem/vectormem-go/pkg/llm/openai"
)

const (
	// defaultSearchLimit is the result cap for Search when the caller sets
	// none.
	defaultSearchLimit = 10

	// defaultGetAllLimit is the result cap for GetAll-derived reads when
	// the caller sets none.
	defaultGetAllLimit = 100

	// maxScanLimit caps the bulk scans behind DeleteAll and
	// CleanupWorkingMemory.
	maxScanLimit = 1000

	// workingMemoryTTL is how long a working memory survives before
	// CleanupWorkingMemory evicts it.
	workingMemoryTTL = 2 * time.Hour

	// placeholderQuery stands in for an empty search query. Vector search
	// needs some embedding to rank against; a generic term degrades the
	// query to "roughly everything" instead of failing it.
	placeholderQuery = "memory"
)

// Client is the top-level entry point for memory operations.
//
// A Client holds one vector backend, one inference provider and a mutable
// configuration snapshot. All methods are safe for concurrent use; writes
// to the configuration go through SwitchConfiguration, and every operation
// works on the snapshot taken at its start.
//
// Example:
//
//	config, _ := core.LoadConfigFromEnv()
//	client, err := core.NewClient(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	record, err := client.Add(ctx, "User prefers dark mode", "user_001")
type Client struct {
	backend  backend.VectorBackend
	llm      llm.Provider
	logger   *slog.Logger
	node     *snowflake.Node
	resolver *indexResolver

	mu       sync.RWMutex
	settings Settings
}

// NewClient creates a new memory client from a configuration.
//
// The configuration is validated first; the backend and inference
// providers are then constructed from it. The backing index is not
// resolved here: resolution is deferred to the first operation that needs
// it, so constructing a client is cheap and offline-safe.
func NewClient(config *Config, opts ...ClientOption) (*Client, error) {
	if config == nil {
		return nil, NewMemoryError("NewClient", fmt.Errorf("%w: config is nil", ErrInvalidConfig))
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	vb, err := initBackend(config)
	if err != nil {
		return nil, NewMemoryError("NewClient", err)
	}

	lp, err := llmopenai.NewClient(&llmopenai.Config{
		APIKey:  config.LLM.APIKey,
		Model:   config.LLM.Model,
		BaseURL: config.LLM.BaseURL,
	})
	if err != nil {
		_ = vb.Close()
		return nil, NewMemoryError("NewClient", err)
	}

	return NewClientWithProviders(config, vb, lp, opts...)
}

// NewClientWithProviders creates a memory client on caller-constructed
// providers. Useful for tests and for backends or inference endpoints this
// package does not construct itself.
func NewClientWithProviders(config *Config, vb backend.VectorBackend, lp llm.Provider, opts ...ClientOption) (*Client, error) {
	if config == nil {
		return nil, NewMemoryError("NewClient", fmt.Errorf("%w: config is nil", ErrInvalidConfig))
	}
	if vb == nil {
		return nil, NewMemoryError("NewClient", fmt.Errorf("%w: backend is nil", ErrInvalidConfig))
	}
	if lp == nil {
		return nil, NewMemoryError("NewClient", fmt.Errorf("%w: llm provider is nil", ErrInvalidConfig))
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, NewMemoryError("NewClient", err)
	}

	client := &Client{
		backend:  vb,
		llm:      lp,
		logger:   slog.Default(),
		node:     node,
		resolver: newIndexResolver(vb),
		settings: Settings{
			EmbeddingModel:     config.Memory.EmbeddingModel,
			EmbeddingDimension: DimensionForModel(config.Memory.EmbeddingModel),
			InferenceModel:     config.LLM.Model,
			StoreName:          config.Memory.StoreName,
			CloudProvider:      config.Memory.CloudProvider,
			Region:             config.Memory.Region,
		},
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// initBackend constructs the vector backend named by the configuration.
func initBackend(config *Config) (backend.VectorBackend, error) {
	cfg := config.Backend.Config

	switch config.Backend.Provider {
	case "remote":
		return remote.NewClient(&remote.Config{
			BaseURL: configString(cfg, "base_url"),
			APIKey:  configString(cfg, "api_key"),
		})
	case "sqlite":
		emb, err := newEmbedder(config)
		if err != nil {
			return nil, err
		}
		return sqlite.NewClient(&sqlite.Config{
			DBPath:   configString(cfg, "db_path"),
			Embedder: emb,
		})
	case "postgres":
		emb, err := newEmbedder(config)
		if err != nil {
			return nil, err
		}
		return postgres.NewClient(&postgres.Config{
			Host:     configString(cfg, "host"),
			Port:     configInt(cfg, "port", 5432),
			User:     configString(cfg, "user"),
			Password: configString(cfg, "password"),
			DBName:   configString(cfg, "db_name"),
			SSLMode:  configString(cfg, "ssl_mode"),
			Embedder: emb,
		})
	case "mysql":
		emb, err := newEmbedder(config)
		if err != nil {
			return nil, err
		}
		return mysql.NewClient(&mysql.Config{
			Host:     configString(cfg, "host"),
			Port:     configInt(cfg, "port", 3306),
			User:     configString(cfg, "user"),
			Password: configString(cfg, "password"),
			DBName:   configString(cfg, "db_name"),
			Embedder: emb,
		})
	default:
		return nil, fmt.Errorf("%w: unsupported backend provider: %s", ErrInvalidConfig, config.Backend.Provider)
	}
}

// newEmbedder constructs the embedding provider the self-hosted backends
// need. The remote backend embeds server-side and never calls this.
func newEmbedder(config *Config) (*embedderopenai.Client, error) {
	if config.Embedder == nil {
		return nil, fmt.Errorf("%w: embedder configuration is required", ErrInvalidConfig)
	}
	return embedderopenai.NewClient(&embedderopenai.Config{
		APIKey:     config.Embedder.APIKey,
		Model:      config.Embedder.Model,
		BaseURL:    config.Embedder.BaseURL,
		Dimensions: DimensionForModel(config.Embedder.Model),
	})
}

// configString reads a string value from a provider config map. JSON
// decoding can hand back non-string scalars, which are stringified.
func configString(cfg map[string]interface{}, key string) string {
	switch v := cfg[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	}
	return ""
}

// configInt reads an integer value from a provider config map, accepting
// the string form env files produce.
func configInt(cfg map[string]interface{}, key string, def int) int {
	switch v := cfg[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// generateID creates a unique memory record id.
func (c *Client) generateID() string {
	return "mem_" + c.node.Generate().String()
}

// snapshot returns a copy of the active settings. Operations work on the
// snapshot taken at their start, so a concurrent SwitchConfiguration never
// tears an in-flight operation.
func (c *Client) snapshot() Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.settings
}

// resolveIndex resolves the backing index for the snapshot's store.
func (c *Client) resolveIndex(ctx context.Context, snap Settings) (string, error) {
	return c.resolver.Resolve(ctx, snap.StoreName, snap)
}

// Add stores a single memory for a user.
//
// The memory type defaults to factual; caller metadata is merged over the
// system fields, with only the owning user id protected from override.
// Write failures are returned to the caller.
//
// Example:
//
//	record, err := client.Add(ctx, "User prefers dark mode", "user_001",
//	    core.WithMemoryType(core.TypeFactual),
//	    core.WithMetadata(map[string]interface{}{"source": "settings"}),
//	)
func (c *Client) Add(ctx context.Context, content, userID string, opts ...AddOption) (*MemoryRecord, error) {
	const op = "Add"

	if content == "" {
		return nil, NewMemoryError(op, fmt.Errorf("%w: content is empty", ErrInvalidInput))
	}
	if userID == "" {
		return nil, NewMemoryError(op, fmt.Errorf("%w: user id is empty", ErrInvalidInput))
	}

	options := applyAddOptions(opts)
	memoryType := options.MemoryType
	if memoryType == "" {
		memoryType = TypeFactual
	}
	if !memoryType.Valid() {
		return nil, NewMemoryError(op, fmt.Errorf("%w: unknown memory type: %s", ErrInvalidInput, memoryType))
	}

	snap := c.snapshot()
	indexID, err := c.resolveIndex(ctx, snap)
	if err != nil {
		return nil, NewMemoryError(op, err)
	}

	id := options.ID
	if id == "" {
		id = c.generateID()
	}

	now := time.Now()
	metadata := buildRecordMetadata(content, userID, memoryType, snap, now, options.Metadata)

	storedID, err := c.backend.UpsertText(ctx, indexID, &backend.UpsertRequest{
		ID:       id,
		Text:     content,
		Model:    snap.EmbeddingModel,
		Metadata: metadata,
	})
	if err != nil {
		return nil, NewMemoryError(op, fmt.Errorf("%w: %v", ErrStoreOperation, err))
	}
	if storedID != "" {
		id = storedID
	}

	return recordFromMetadata(id, 0, metadata), nil
}

// Search retrieves the user's memories most relevant to a query.
//
// Reads degrade instead of failing: a backend search error is logged and
// an empty result returned, so a flaky retrieval layer never takes the
// caller down. Configuration problems (unresolvable store, dimension
// mismatch) still fail loudly, since silence there would mask persistent
// misconfiguration.
//
// An empty query falls back to a placeholder term, turning the call into a
// recency-agnostic broad scan rather than an error.
func (c *Client) Search(ctx context.Context, query, userID string, opts ...SearchOption) ([]*MemoryRecord, error) {
	const op = "Search"

	if userID == "" {
		return nil, NewMemoryError(op, fmt.Errorf("%w: user id is empty", ErrInvalidInput))
	}

	options := applySearchOptions(opts)
	return c.search(ctx, op, query, userID, options.Limit, options.Threshold)
}

// GetAll retrieves up to limit of the user's memories, with no relevance
// cutoff. It is the degenerate case of Search: placeholder query, zero
// threshold, larger default limit, the same retrieval path underneath.
func (c *Client) GetAll(ctx context.Context, userID string, opts ...SearchOption) ([]*MemoryRecord, error) {
	const op = "GetAll"

	if userID == "" {
		return nil, NewMemoryError(op, fmt.Errorf("%w: user id is empty", ErrInvalidInput))
	}

	options := applySearchOptions(append([]SearchOption{WithLimit(defaultGetAllLimit)}, opts...))
	return c.search(ctx, op, "", userID, options.Limit, 0)
}

// search is the shared retrieval path behind Search and GetAll.
func (c *Client) search(ctx context.Context, op, query, userID string, limit int, threshold float64) ([]*MemoryRecord, error) {
	snap := c.snapshot()
	indexID, err := c.resolveIndex(ctx, snap)
	if err != nil {
		return nil, NewMemoryError(op, err)
	}

	if query == "" {
		query = placeholderQuery
	}

	hits, err := c.backend.SearchText(ctx, indexID, &backend.SearchRequest{
		Query:           query,
		Model:           snap.EmbeddingModel,
		TopK:            limit,
		Filter:          map[string]interface{}{metaUserID: userID},
		IncludeMetadata: true,
	})
	if err != nil {
		c.logger.Warn("memory search failed, returning empty result",
			"op", op, "store", snap.StoreName, "user_id", userID, "error", err)
		return []*MemoryRecord{}, nil
	}

	records := make([]*MemoryRecord, 0, len(hits))
	for _, hit := range hits {
		// Ownership re-check, in case a backend ignores the filter.
		if owner, _ := hit.Metadata[metaUserID].(string); owner != userID {
			continue
		}
		if threshold > 0 && hit.Score < threshold {
			continue
		}
		records = append(records, recordFromMetadata(hit.ID, hit.Score, hit.Metadata))
	}

	c.bumpAccessCounts(ctx, indexID, records)

	return records, nil
}

// bumpAccessCounts increments the access counter of returned records. The
// bumps are best effort: a failed bump is logged and never affects the
// search result, and the update timestamp is left alone since reading is
// not modification.
func (c *Client) bumpAccessCounts(ctx context.Context, indexID string, records []*MemoryRecord) {
	for _, record := range records {
		stored, err := c.backend.GetRecord(ctx, indexID, record.ID)
		if err != nil {
			c.logger.Debug("access count bump skipped", "memory_id", record.ID, "error", err)
			continue
		}
		metadata := stored.Metadata
		if metadata == nil {
			metadata = make(map[string]interface{})
		}
		count := 0
		if f, ok := toFloat(metadata[metaAccessCount]); ok {
			count = int(f)
		}
		metadata[metaAccessCount] = count + 1
		if err := c.backend.UpdateRecord(ctx, indexID, record.ID, metadata); err != nil {
			c.logger.Debug("access count bump failed", "memory_id", record.ID, "error", err)
		}
	}
}

// Get fetches a single memory by id, scoped to its owner.
//
// A memory that does not exist and a memory owned by someone else both
// return ErrNotFound; the caller cannot distinguish them.
func (c *Client) Get(ctx context.Context, memoryID, userID string) (*MemoryRecord, error) {
	const op = "Get"

	if memoryID == "" {
		return nil, NewMemoryError(op, fmt.Errorf("%w: memory id is empty", ErrInvalidInput))
	}
	if userID == "" {
		return nil, NewMemoryError(op, fmt.Errorf("%w: user id is empty", ErrInvalidInput))
	}

	snap := c.snapshot()
	indexID, err := c.resolveIndex(ctx, snap)
	if err != nil {
		return nil, NewMemoryError(op, err)
	}

	record, err := c.fetchOwned(ctx, indexID, memoryID, userID)
	if err != nil {
		return nil, NewMemoryError(op, err)
	}

	return recordFromMetadata(record.ID, 0, record.Metadata), nil
}

// fetchOwned retrieves a stored record and verifies ownership. Absence and
// foreign ownership are both ErrNotFound.
func (c *Client) fetchOwned(ctx context.Context, indexID, memoryID, userID string) (*backend.Record, error) {
	record, err := c.backend.GetRecord(ctx, indexID, memoryID)
	if errors.Is(err, backend.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreOperation, err)
	}

	if owner, _ := record.Metadata[metaUserID].(string); owner != userID {
		return nil, ErrNotFound
	}

	return record, nil
}

// Update replaces a memory's content and re-embeds it under the active
// embedding model. Caller metadata is shallow-merged over the stored
// metadata; untouched keys survive. The owning user and the creation
// timestamp never change.
//
// Example:
//
//	record, err := client.Update(ctx, "mem_123", "User now prefers light mode", "user_001",
//	    core.WithImportanceScore(0.9),
//	)
func (c *Client) Update(ctx context.Context, memoryID, newContent, userID string, opts ...UpdateOption) (*MemoryRecord, error) {
	const op = "Update"

	if memoryID == "" {
		return nil, NewMemoryError(op, fmt.Errorf("%w: memory id is empty", ErrInvalidInput))
	}
	if newContent == "" {
		return nil, NewMemoryError(op, fmt.Errorf("%w: content is empty", ErrInvalidInput))
	}
	if userID == "" {
		return nil, NewMemoryError(op, fmt.Errorf("%w: user id is empty", ErrInvalidInput))
	}

	options := applyUpdateOptions(opts)

	snap := c.snapshot()
	indexID, err := c.resolveIndex(ctx, snap)
	if err != nil {
		return nil, NewMemoryError(op, err)
	}

	existing, err := c.fetchOwned(ctx, indexID, memoryID, userID)
	if err != nil {
		return nil, NewMemoryError(op, err)
	}

	merged := mergeForUpdate(existing.Metadata, newContent, snap, time.Now(), options.Metadata, options.ImportanceScore)

	if _, err := c.backend.UpsertText(ctx, indexID, &backend.UpsertRequest{
		ID:       memoryID,
		Text:     newContent,
		Model:    snap.EmbeddingModel,
		Metadata: merged,
	}); err != nil {
		return nil, NewMemoryError(op, fmt.Errorf("%w: %v", ErrStoreOperation, err))
	}

	return recordFromMetadata(memoryID, 0, merged), nil
}

// Delete removes a memory by id. Deleting a memory that does not exist, or
// one owned by someone else, succeeds silently: delete is idempotent and
// the outcome (the caller owns no such memory) already holds.
func (c *Client) Delete(ctx context.Context, memoryID, userID string) error {
	const op = "Delete"

	if memoryID == "" {
		return NewMemoryError(op, fmt.Errorf("%w: memory id is empty", ErrInvalidInput))
	}
	if userID == "" {
		return NewMemoryError(op, fmt.Errorf("%w: user id is empty", ErrInvalidInput))
	}

	snap := c.snapshot()
	indexID, err := c.resolveIndex(ctx, snap)
	if err != nil {
		return NewMemoryError(op, err)
	}

	if _, err := c.fetchOwned(ctx, indexID, memoryID, userID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return NewMemoryError(op, err)
	}

	if err := c.backend.DeleteRecord(ctx, indexID, memoryID); err != nil {
		return NewMemoryError(op, fmt.Errorf("%w: %v", ErrStoreOperation, err))
	}

	return nil
}

// DeleteAll removes every memory belonging to a user and returns the
// number deleted. Individual delete failures are logged and skipped; the
// returned count reflects what was actually removed.
func (c *Client) DeleteAll(ctx context.Context, userID string) (int, error) {
	const op = "DeleteAll"

	if userID == "" {
		return 0, NewMemoryError(op, fmt.Errorf("%w: user id is empty", ErrInvalidInput))
	}

	snap := c.snapshot()
	indexID, err := c.resolveIndex(ctx, snap)
	if err != nil {
		return 0, NewMemoryError(op, err)
	}

	records, err := c.search(ctx, op, "", userID, maxScanLimit, 0)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, record := range records {
		if err := c.backend.DeleteRecord(ctx, indexID, record.ID); err != nil {
			c.logger.Warn("delete failed during bulk removal",
				"memory_id", record.ID, "user_id", userID, "error", err)
			continue
		}
		deleted++
	}

	return deleted, nil
}

// GetMemoriesByType retrieves the user's memories of a single type.
func (c *Client) GetMemoriesByType(ctx context.Context, memoryType MemoryType, userID string, opts ...SearchOption) ([]*MemoryRecord, error) {
	const op = "GetMemoriesByType"

	if userID == "" {
		return nil, NewMemoryError(op, fmt.Errorf("%w: user id is empty", ErrInvalidInput))
	}
	if !memoryType.Valid() {
		return nil, NewMemoryError(op, fmt.Errorf("%w: unknown memory type: %s", ErrInvalidInput, memoryType))
	}

	options := applySearchOptions(append([]SearchOption{WithLimit(defaultGetAllLimit)}, opts...))
	records, err := c.search(ctx, op, "", userID, options.Limit, 0)
	if err != nil {
		return nil, err
	}

	filtered := make([]*MemoryRecord, 0, len(records))
	for _, record := range records {
		if record.MemoryType == memoryType {
			filtered = append(filtered, record)
		}
	}
	return filtered, nil
}

// CleanupWorkingMemory evicts the user's expired working memories and
// returns the number removed.
//
// A working memory expires when it is strictly older than the TTL;
// a record exactly at the boundary survives. Other memory types are never
// touched.
func (c *Client) CleanupWorkingMemory(ctx context.Context, userID string) (int, error) {
	const op = "CleanupWorkingMemory"

	if userID == "" {
		return 0, NewMemoryError(op, fmt.Errorf("%w: user id is empty", ErrInvalidInput))
	}

	snap := c.snapshot()
	indexID, err := c.resolveIndex(ctx, snap)
	if err != nil {
		return 0, NewMemoryError(op, err)
	}

	records, err := c.search(ctx, op, "", userID, maxScanLimit, 0)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	removed := 0
	for _, record := range records {
		if record.MemoryType != TypeWorking {
			continue
		}
		if record.CreatedAt.IsZero() || now.Sub(record.CreatedAt) <= workingMemoryTTL {
			continue
		}
		if err := c.backend.DeleteRecord(ctx, indexID, record.ID); err != nil {
			c.logger.Warn("working memory eviction failed",
				"memory_id", record.ID, "user_id", userID, "error", err)
			continue
		}
		removed++
	}

	return removed, nil
}

// ListAllMemories retrieves the user's memories sorted by a record
// attribute. Defaults to newest first by creation time.
//
// Example:
//
//	records, err := client.ListAllMemories(ctx, "user_001",
//	    core.WithSortBy(core.SortByImportance),
//	    core.WithListLimit(20),
//	)
func (c *Client) ListAllMemories(ctx context.Context, userID string, opts ...ListOption) ([]*MemoryRecord, error) {
	const op = "ListAllMemories"

	if userID == "" {
		return nil, NewMemoryError(op, fmt.Errorf("%w: user id is empty", ErrInvalidInput))
	}

	options := applyListOptions(opts)
	if !options.SortBy.Valid() {
		return nil, NewMemoryError(op, fmt.Errorf("%w: unknown sort field: %s", ErrInvalidInput, options.SortBy))
	}

	records, err := c.search(ctx, op, "", userID, options.Limit, 0)
	if err != nil {
		return nil, err
	}

	sortRecords(records, options.SortBy, options.Ascending)
	return records, nil
}

// sortRecords orders records by the given attribute in place.
func sortRecords(records []*MemoryRecord, field SortField, ascending bool) {
	less := func(a, b *MemoryRecord) bool {
		switch field {
		case SortByUpdatedAt:
			return a.UpdatedAt.Before(b.UpdatedAt)
		case SortByImportance:
			return a.ImportanceScore < b.ImportanceScore
		case SortByAccessCount:
			return a.AccessCount < b.AccessCount
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}
	sort.SliceStable(records, func(i, j int) bool {
		if ascending {
			return less(records[i], records[j])
		}
		return less(records[j], records[i])
	})
}

// GetStats aggregates the user's memory collection: total count, count per
// type (every type present, zero or not) and the most recent update time.
func (c *Client) GetStats(ctx context.Context, userID string) (*MemoryStats, error) {
	const op = "GetStats"

	if userID == "" {
		return nil, NewMemoryError(op, fmt.Errorf("%w: user id is empty", ErrInvalidInput))
	}

	records, err := c.search(ctx, op, "", userID, maxScanLimit, 0)
	if err != nil {
		return nil, err
	}

	stats := &MemoryStats{
		ByType: make(map[MemoryType]int, len(MemoryTypes)),
	}
	for _, t := range MemoryTypes {
		stats.ByType[t] = 0
	}

	for _, record := range records {
		stats.TotalMemories++
		stats.ByType[record.MemoryType]++
		if record.UpdatedAt.After(stats.LastUpdatedAt) {
			stats.LastUpdatedAt = record.UpdatedAt
		}
	}

	return stats, nil
}

// SwitchConfiguration changes the client's active settings at runtime.
//
// Unset options leave their setting unchanged; set options must carry
// non-empty values. Changing the embedding model recomputes the active
// dimension; changing the store name drops the old store's resolution
// cache entry, and the new store's backing index is resolved lazily on
// first use. In-flight operations keep the snapshot they started with.
//
// Example:
//
//	err := client.SwitchConfiguration(
//	    core.WithStoreName("project-memories"),
//	    core.WithEmbeddingModel("multilingual-e5-large"),
//	)
func (c *Client) SwitchConfiguration(opts ...SettingOption) error {
	const op = "SwitchConfiguration"

	var update settingsUpdate
	for _, opt := range opts {
		opt(&update)
	}

	for name, v := range map[string]*string{
		"embedding model": update.embeddingModel,
		"inference model": update.inferenceModel,
		"store name":      update.storeName,
		"cloud provider":  update.cloudProvider,
		"region":          update.region,
	} {
		if v != nil && *v == "" {
			return NewMemoryError(op, fmt.Errorf("%w: %s is empty", ErrInvalidConfig, name))
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if update.storeName != nil && *update.storeName != c.settings.StoreName {
		c.resolver.invalidate(c.settings.StoreName)
		c.settings.StoreName = *update.storeName
	}
	if update.embeddingModel != nil && *update.embeddingModel != c.settings.EmbeddingModel {
		c.settings.EmbeddingModel = *update.embeddingModel
		c.settings.EmbeddingDimension = DimensionForModel(*update.embeddingModel)
		// Force re-resolution of the active store so a dimension mismatch
		// against the new model surfaces instead of hiding behind the cache.
		c.resolver.invalidate(c.settings.StoreName)
	}
	if update.inferenceModel != nil {
		c.settings.InferenceModel = *update.inferenceModel
	}
	if update.cloudProvider != nil {
		c.settings.CloudProvider = *update.cloudProvider
	}
	if update.region != nil {
		c.settings.Region = *update.region
	}

	return nil
}

// CurrentConfiguration returns a copy of the active settings.
func (c *Client) CurrentConfiguration() Settings {
	return c.snapshot()
}

// Close releases the client's backend and inference resources. The first
// error encountered is returned; both providers are always closed.
func (c *Client) Close() error {
	backendErr := c.backend.Close()
	llmErr := c.llm.Close()
	if backendErr != nil {
		return NewMemoryError("Close", backendErr)
	}
	if llmErr != nil {
		return NewMemoryError("Close", llmErr)
	}
	return nil
}
