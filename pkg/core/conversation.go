package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vectormem/vectormem-go/pkg/llm"
)

// factExtractionPrompt instructs the inference model to distill a
// conversation into standalone memory-worthy statements. The model must
// answer with a JSON object so the response survives machine parsing.
const factExtractionPrompt = `You are a memory extraction system. Extract durable, memory-worthy facts from the conversation below.

Rules:
- Extract user preferences, personal details, plans, opinions and other information worth remembering across sessions.
- Each fact must be a self-contained statement, understandable without the conversation.
- Do not extract greetings, small talk or assistant boilerplate.
- If the conversation contains nothing worth remembering, return an empty list.

Respond with JSON only, no prose, in exactly this shape:
{"facts": ["fact 1", "fact 2"]}`

// factResponse is the wire shape the extraction prompt asks for.
type factResponse struct {
	Facts []string `json:"facts"`
}

// AddMessages stores a conversation as memories for a user.
//
// Without inference (the default), each non-empty message becomes one
// episodic record, prefixed with its speaker role. With WithInfer(true),
// the transcript is distilled by the inference model into standalone
// facts, each stored as its own episodic record.
//
// Inference is best effort: when the model call fails or its answer does
// not parse, the raw transcript is stored as a single record tagged with
// inference_fallback metadata, and a warning is logged. The conversation
// is never lost to a flaky model. A model that answers with zero facts is
// not a failure; nothing is stored and an empty result is returned.
//
// Example:
//
//	records, err := client.AddMessages(ctx, []core.Message{
//	    {Role: "user", Content: "I'm planning a trip to Tokyo in May"},
//	    {Role: "assistant", Content: "May is a great time to visit."},
//	}, "user_001", core.WithInfer(true))
func (c *Client) AddMessages(ctx context.Context, messages []Message, userID string, opts ...AddOption) ([]*MemoryRecord, error) {
	const op = "AddMessages"

	if len(messages) == 0 {
		return nil, NewMemoryError(op, fmt.Errorf("%w: messages are empty", ErrInvalidInput))
	}
	if userID == "" {
		return nil, NewMemoryError(op, fmt.Errorf("%w: user id is empty", ErrInvalidInput))
	}

	options := applyAddOptions(opts)
	memoryType := options.MemoryType
	if memoryType == "" {
		memoryType = TypeEpisodic
	}
	if !memoryType.Valid() {
		return nil, NewMemoryError(op, fmt.Errorf("%w: unknown memory type: %s", ErrInvalidInput, memoryType))
	}

	if !options.Infer {
		return c.addVerbatim(ctx, op, messages, userID, memoryType, options.Metadata)
	}
	return c.addInferred(ctx, op, messages, userID, memoryType, options.Metadata)
}

// addVerbatim stores each non-empty message as its own record. The content
// is stored exactly as spoken; the speaker role travels in metadata.
func (c *Client) addVerbatim(ctx context.Context, op string, messages []Message, userID string, memoryType MemoryType, callerMeta map[string]interface{}) ([]*MemoryRecord, error) {
	records := make([]*MemoryRecord, 0, len(messages))
	for _, msg := range messages {
		if strings.TrimSpace(msg.Content) == "" {
			continue
		}
		meta := make(map[string]interface{}, len(callerMeta)+1)
		for k, v := range callerMeta {
			meta[k] = v
		}
		if msg.Role != "" {
			meta["role"] = msg.Role
		}
		record, err := c.Add(ctx, msg.Content, userID,
			WithMemoryType(memoryType),
			WithMetadata(meta),
		)
		if err != nil {
			return nil, NewMemoryError(op, fmt.Errorf("store message %d of %d: %w", len(records)+1, len(messages), err))
		}
		records = append(records, record)
	}
	return records, nil
}

// addInferred distills the conversation into facts and stores each fact as
// its own record, falling back to the raw transcript when inference fails.
func (c *Client) addInferred(ctx context.Context, op string, messages []Message, userID string, memoryType MemoryType, callerMeta map[string]interface{}) ([]*MemoryRecord, error) {
	transcript := flattenTranscript(messages)
	if transcript == "" {
		return []*MemoryRecord{}, nil
	}

	snap := c.snapshot()

	facts, err := c.extractFacts(ctx, transcript, snap)
	if err != nil {
		c.logger.Warn("fact extraction failed, storing raw transcript",
			"user_id", userID, "model", snap.InferenceModel, "error", err)

		fallbackMeta := make(map[string]interface{}, len(callerMeta)+1)
		for k, v := range callerMeta {
			fallbackMeta[k] = v
		}
		fallbackMeta["inference_fallback"] = true

		record, addErr := c.Add(ctx, transcript, userID,
			WithMemoryType(memoryType),
			WithMetadata(fallbackMeta),
		)
		if addErr != nil {
			return nil, NewMemoryError(op, addErr)
		}
		return []*MemoryRecord{record}, nil
	}

	records := make([]*MemoryRecord, 0, len(facts))
	for _, fact := range facts {
		fact = strings.TrimSpace(fact)
		if fact == "" {
			continue
		}
		record, err := c.Add(ctx, fact, userID,
			WithMemoryType(memoryType),
			WithMetadata(callerMeta),
		)
		if err != nil {
			return nil, NewMemoryError(op, fmt.Errorf("store fact %d of %d: %w", len(records)+1, len(facts), err))
		}
		records = append(records, record)
	}
	return records, nil
}

// extractFacts runs one extraction call against the inference model and
// parses its JSON answer.
func (c *Client) extractFacts(ctx context.Context, transcript string, snap Settings) ([]string, error) {
	response, err := c.llm.GenerateWithMessages(ctx, []llm.Message{
		{Role: "system", Content: factExtractionPrompt},
		{Role: "user", Content: transcript},
	}, llm.WithModel(snap.InferenceModel))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInferenceOperation, err)
	}

	var parsed factResponse
	if err := json.Unmarshal([]byte(stripCodeFences(response)), &parsed); err != nil {
		return nil, fmt.Errorf("%w: unparseable extraction response: %v", ErrInferenceOperation, err)
	}

	return parsed.Facts, nil
}

// flattenTranscript renders the conversation as "role: content" lines.
// System turns carry orchestration instructions, not user information, so
// they are skipped along with empty turns.
func flattenTranscript(messages []Message) string {
	var b strings.Builder
	for _, msg := range messages {
		if msg.Role == "system" || strings.TrimSpace(msg.Content) == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		role := msg.Role
		if role == "" {
			role = "user"
		}
		b.WriteString(role)
		b.WriteString(": ")
		b.WriteString(msg.Content)
	}
	return b.String()
}

// stripCodeFences removes a markdown fence wrapper from a model response.
// Models often wrap JSON in ```json fences despite instructions not to.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
