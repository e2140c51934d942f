package core

import (
	"context"
	"strings"
	"sync"

	"github.com/vectormem/vectormem-go/pkg/backend"
	"github.com/vectormem/vectormem-go/pkg/llm"
)

// fakeBackend is an in-memory VectorBackend. Similarity is word-overlap
// Jaccard between query and stored text, which makes relevance ordering
// deterministic without real embeddings.
type fakeBackend struct {
	mu      sync.Mutex
	indexes []backend.IndexInfo
	records map[string]map[string]*fakeStoredRecord

	searchErr     error
	upsertErr     error
	listErr       error
	createErr     error
	createCalls   int
	onCreateIndex func()
}

type fakeStoredRecord struct {
	text     string
	metadata map[string]interface{}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		records: make(map[string]map[string]*fakeStoredRecord),
	}
}

func (f *fakeBackend) ListIndexes(ctx context.Context) ([]backend.IndexInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]backend.IndexInfo, len(f.indexes))
	copy(out, f.indexes)
	return out, nil
}

func (f *fakeBackend) CreateIndex(ctx context.Context, req *backend.CreateIndexRequest) (*backend.IndexInfo, error) {
	f.mu.Lock()
	f.createCalls++
	hook := f.onCreateIndex
	f.mu.Unlock()
	if hook != nil {
		hook()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	for _, info := range f.indexes {
		if info.Name == req.Name {
			return nil, backend.ErrIndexExists
		}
	}
	info := backend.IndexInfo{
		ID:        "idx_" + req.Name,
		Name:      req.Name,
		Dimension: req.Dimension,
		Metric:    req.Metric,
		Metadata:  req.Metadata,
	}
	f.indexes = append(f.indexes, info)
	f.records[info.ID] = make(map[string]*fakeStoredRecord)
	return &info, nil
}

func (f *fakeBackend) UpsertText(ctx context.Context, indexID string, req *backend.UpsertRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return "", f.upsertErr
	}
	if f.records[indexID] == nil {
		f.records[indexID] = make(map[string]*fakeStoredRecord)
	}
	meta := make(map[string]interface{}, len(req.Metadata))
	for k, v := range req.Metadata {
		meta[k] = v
	}
	f.records[indexID][req.ID] = &fakeStoredRecord{text: req.Text, metadata: meta}
	return req.ID, nil
}

func (f *fakeBackend) SearchText(ctx context.Context, indexID string, req *backend.SearchRequest) ([]backend.Hit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	var hits []backend.Hit
	for id, rec := range f.records[indexID] {
		if !backend.MatchesFilter(rec.metadata, req.Filter) {
			continue
		}
		hit := backend.Hit{ID: id, Score: wordOverlap(req.Query, rec.text)}
		if req.IncludeMetadata {
			meta := make(map[string]interface{}, len(rec.metadata))
			for k, v := range rec.metadata {
				meta[k] = v
			}
			hit.Metadata = meta
		}
		hits = append(hits, hit)
	}
	return backend.SortHitsByScore(hits, req.TopK), nil
}

func (f *fakeBackend) GetRecord(ctx context.Context, indexID, recordID string) (*backend.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[indexID][recordID]
	if !ok {
		return nil, backend.ErrNotFound
	}
	meta := make(map[string]interface{}, len(rec.metadata))
	for k, v := range rec.metadata {
		meta[k] = v
	}
	return &backend.Record{ID: recordID, Metadata: meta}, nil
}

func (f *fakeBackend) UpdateRecord(ctx context.Context, indexID, recordID string, metadata map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[indexID][recordID]
	if !ok {
		return backend.ErrNotFound
	}
	meta := make(map[string]interface{}, len(metadata))
	for k, v := range metadata {
		meta[k] = v
	}
	rec.metadata = meta
	return nil
}

func (f *fakeBackend) DeleteRecord(ctx context.Context, indexID, recordID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.records[indexID], recordID)
	return nil
}

func (f *fakeBackend) Close() error { return nil }

// wordOverlap computes Jaccard similarity over lowercased word sets.
func wordOverlap(a, b string) float64 {
	setA := wordSet(a)
	setB := wordSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	intersection := 0
	for w := range setA {
		if setB[w] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		set[strings.Trim(w, ".,!?'\"")] = true
	}
	return set
}

// fakeLLM returns a scripted response, or a scripted error.
type fakeLLM struct {
	mu       sync.Mutex
	response string
	err      error
	calls    int
	lastMsgs []llm.Message
}

func (f *fakeLLM) GenerateWithMessages(ctx context.Context, messages []llm.Message, opts ...llm.GenerateOption) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastMsgs = messages
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *fakeLLM) Close() error { return nil }

// testConfig returns a valid configuration for a client on fakes.
func testConfig() *Config {
	return &Config{
		Backend: BackendConfig{Provider: "remote", Config: map[string]interface{}{}},
		LLM:     LLMConfig{APIKey: "test-key", Model: "test-model"},
		Memory: MemoryConfig{
			EmbeddingModel: "llama-text-embed-v2",
			StoreName:      "test-memories",
			CloudProvider:  "aws",
			Region:         "us-east-1",
		},
	}
}

// newTestClient builds a client on a fresh fake backend and fake LLM.
func newTestClient(fb *fakeBackend, fl *fakeLLM) (*Client, error) {
	if fb == nil {
		fb = newFakeBackend()
	}
	if fl == nil {
		fl = &fakeLLM{response: `{"facts": []}`}
	}
	return NewClientWithProviders(testConfig(), fb, fl)
}

var _ backend.VectorBackend = (*fakeBackend)(nil)
var _ llm.Provider = (*fakeLLM)(nil)
