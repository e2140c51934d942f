package core

import "log/slog"

// ClientOption configures a Client at construction time.
type ClientOption func(*Client)

// WithLogger sets the structured logger used for soft-failure warnings.
// Defaults to slog.Default().
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// AddOption is a function type for configuring Add and AddMessages.
type AddOption func(*AddOptions)

// AddOptions contains configuration options for add operations.
type AddOptions struct {
	// ID supplies the record id instead of generating one.
	ID string

	// Metadata contains caller metadata merged over the system fields.
	// It can override everything except the owning user id.
	Metadata map[string]interface{}

	// MemoryType overrides the default type (factual for Add, episodic
	// for AddMessages).
	MemoryType MemoryType

	// Infer enables fact extraction for AddMessages: the conversation is
	// summarized by the inference model instead of stored verbatim.
	Infer bool
}

// WithID supplies the record id for an add. Ids are otherwise generated
// locally.
func WithID(id string) AddOption {
	return func(opts *AddOptions) {
		opts.ID = id
	}
}

// WithMetadata sets caller metadata for add operations.
//
// Example:
//
//	record, _ := client.Add(ctx, "content", "user_001",
//	    core.WithMetadata(map[string]interface{}{
//	        "source": "conversation",
//	    }),
//	)
func WithMetadata(metadata map[string]interface{}) AddOption {
	return func(opts *AddOptions) {
		opts.Metadata = metadata
	}
}

// WithMemoryType sets the memory type for add operations.
func WithMemoryType(memoryType MemoryType) AddOption {
	return func(opts *AddOptions) {
		opts.MemoryType = memoryType
	}
}

// WithInfer enables or disables fact extraction for AddMessages.
func WithInfer(infer bool) AddOption {
	return func(opts *AddOptions) {
		opts.Infer = infer
	}
}

// applyAddOptions applies AddOption functions to the default options.
func applyAddOptions(opts []AddOption) *AddOptions {
	options := &AddOptions{}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// SearchOption is a function type for configuring Search, GetAll and the
// read operations derived from them.
type SearchOption func(*SearchOptions)

// SearchOptions contains configuration options for search operations.
type SearchOptions struct {
	// Limit sets the maximum number of results. Defaults to 10 for
	// Search and 100 for GetAll.
	Limit int

	// Threshold is the minimum similarity score for a hit to be kept.
	// Zero or negative means return everything.
	Threshold float64
}

// WithLimit sets the maximum number of results for search operations.
func WithLimit(limit int) SearchOption {
	return func(opts *SearchOptions) {
		opts.Limit = limit
	}
}

// WithThreshold sets the relevance threshold for search operations.
// A threshold of 0 (or below) keeps every hit.
func WithThreshold(threshold float64) SearchOption {
	return func(opts *SearchOptions) {
		opts.Threshold = threshold
	}
}

// applySearchOptions applies SearchOption functions to the default options.
func applySearchOptions(opts []SearchOption) *SearchOptions {
	options := &SearchOptions{
		Limit: defaultSearchLimit,
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.Limit <= 0 {
		options.Limit = defaultSearchLimit
	}
	return options
}

// UpdateOption is a function type for configuring Update.
type UpdateOption func(*UpdateOptions)

// UpdateOptions contains configuration options for update operations.
type UpdateOptions struct {
	// Metadata is shallow-merged over the record's existing metadata.
	// Untouched keys survive; a partial metadata object never erases the
	// rest.
	Metadata map[string]interface{}

	// ImportanceScore replaces the record's importance score when set.
	ImportanceScore *float64
}

// WithMetadataForUpdate sets caller metadata to merge into the record.
func WithMetadataForUpdate(metadata map[string]interface{}) UpdateOption {
	return func(opts *UpdateOptions) {
		opts.Metadata = metadata
	}
}

// WithImportanceScore replaces the record's importance score.
func WithImportanceScore(score float64) UpdateOption {
	return func(opts *UpdateOptions) {
		opts.ImportanceScore = &score
	}
}

// applyUpdateOptions applies UpdateOption functions to the default options.
func applyUpdateOptions(opts []UpdateOption) *UpdateOptions {
	options := &UpdateOptions{}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// ListOption is a function type for configuring ListAllMemories.
type ListOption func(*ListOptions)

// ListOptions contains configuration options for sorted listing.
type ListOptions struct {
	// Limit sets the maximum number of records fetched. Defaults to 100.
	Limit int

	// SortBy names the attribute to sort on. Defaults to created_at.
	SortBy SortField

	// Ascending sorts smallest/oldest first when true. Defaults to
	// descending (newest/largest first).
	Ascending bool
}

// WithListLimit sets the maximum number of records for ListAllMemories.
func WithListLimit(limit int) ListOption {
	return func(opts *ListOptions) {
		opts.Limit = limit
	}
}

// WithSortBy sets the sort attribute for ListAllMemories.
func WithSortBy(field SortField) ListOption {
	return func(opts *ListOptions) {
		opts.SortBy = field
	}
}

// WithAscending sorts results in ascending order.
func WithAscending() ListOption {
	return func(opts *ListOptions) {
		opts.Ascending = true
	}
}

// applyListOptions applies ListOption functions to the default options.
func applyListOptions(opts []ListOption) *ListOptions {
	options := &ListOptions{
		Limit:  defaultGetAllLimit,
		SortBy: SortByCreatedAt,
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.Limit <= 0 {
		options.Limit = defaultGetAllLimit
	}
	return options
}

// SettingOption is a function type for SwitchConfiguration. Unset fields
// are left unchanged.
type SettingOption func(*settingsUpdate)

// settingsUpdate carries the subset of settings a switch touches.
type settingsUpdate struct {
	embeddingModel *string
	inferenceModel *string
	storeName      *string
	cloudProvider  *string
	region         *string
}

// WithEmbeddingModel switches the active embedding model. The new model's
// dimension applies to indexes created afterwards; already-created indexes
// keep theirs, and resolving one against a mismatching model fails.
func WithEmbeddingModel(model string) SettingOption {
	return func(u *settingsUpdate) {
		u.embeddingModel = &model
	}
}

// WithInferenceModel switches the active chat-inference model.
func WithInferenceModel(model string) SettingOption {
	return func(u *settingsUpdate) {
		u.inferenceModel = &model
	}
}

// WithStoreName switches the active logical store. Resolution of the new
// store's backing index is deferred to first use.
func WithStoreName(name string) SettingOption {
	return func(u *settingsUpdate) {
		u.storeName = &name
	}
}

// WithCloudProvider switches the cloud provider for newly created indexes.
func WithCloudProvider(provider string) SettingOption {
	return func(u *settingsUpdate) {
		u.cloudProvider = &provider
	}
}

// WithRegion switches the region for newly created indexes.
func WithRegion(region string) SettingOption {
	return func(u *settingsUpdate) {
		u.region = &region
	}
}
