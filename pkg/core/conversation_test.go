package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddMessagesVerbatim(t *testing.T) {
	fl := &fakeLLM{}
	client, err := newTestClient(nil, fl)
	require.NoError(t, err)
	ctx := context.Background()

	records, err := client.AddMessages(ctx, []Message{
		{Role: "user", Content: "I'm planning a trip to Tokyo"},
		{Role: "assistant", Content: "May is a great time to visit"},
		{Role: "user", Content: "   "},
	}, "user_001")
	require.NoError(t, err)

	// One record per non-empty turn, content verbatim, episodic by default.
	require.Len(t, records, 2)
	assert.Equal(t, "I'm planning a trip to Tokyo", records[0].Content)
	assert.Equal(t, "user", records[0].Metadata["role"])
	assert.Equal(t, "May is a great time to visit", records[1].Content)
	assert.Equal(t, "assistant", records[1].Metadata["role"])
	for _, r := range records {
		assert.Equal(t, TypeEpisodic, r.MemoryType)
	}

	// Storing verbatim never touches the inference model.
	assert.Equal(t, 0, fl.calls)
}

func TestAddMessagesValidation(t *testing.T) {
	client, err := newTestClient(nil, nil)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = client.AddMessages(ctx, nil, "user_001")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = client.AddMessages(ctx, []Message{{Role: "user", Content: "hi"}}, "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAddMessagesInferred(t *testing.T) {
	fl := &fakeLLM{response: `{"facts": ["User is planning a trip to Tokyo in May", "User loves ramen"]}`}
	client, err := newTestClient(nil, fl)
	require.NoError(t, err)
	ctx := context.Background()

	records, err := client.AddMessages(ctx, []Message{
		{Role: "system", Content: "You are a travel assistant"},
		{Role: "user", Content: "I'm planning a trip to Tokyo in May"},
		{Role: "assistant", Content: "Any particular interests?"},
		{Role: "user", Content: "I love ramen"},
	}, "user_001", WithInfer(true))
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, "User is planning a trip to Tokyo in May", records[0].Content)
	assert.Equal(t, "User loves ramen", records[1].Content)

	// One extraction call for the whole conversation.
	assert.Equal(t, 1, fl.calls)
	// System turns never reach the extraction transcript.
	require.Len(t, fl.lastMsgs, 2)
	assert.NotContains(t, fl.lastMsgs[1].Content, "travel assistant")
	assert.Contains(t, fl.lastMsgs[1].Content, "user: I'm planning a trip to Tokyo in May")
}

func TestAddMessagesInferredFencedResponse(t *testing.T) {
	fl := &fakeLLM{response: "```json\n{\"facts\": [\"User loves ramen\"]}\n```"}
	client, err := newTestClient(nil, fl)
	require.NoError(t, err)

	records, err := client.AddMessages(context.Background(), []Message{
		{Role: "user", Content: "I love ramen"},
	}, "user_001", WithInfer(true))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "User loves ramen", records[0].Content)
}

func TestAddMessagesInferredZeroFacts(t *testing.T) {
	fl := &fakeLLM{response: `{"facts": []}`}
	client, err := newTestClient(nil, fl)
	require.NoError(t, err)
	ctx := context.Background()

	records, err := client.AddMessages(ctx, []Message{
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "hi there"},
	}, "user_001", WithInfer(true))
	require.NoError(t, err)

	// Nothing memory-worthy is not a failure; nothing is stored.
	assert.Empty(t, records)
	all, err := client.GetAll(ctx, "user_001")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestAddMessagesInferenceFallback(t *testing.T) {
	tests := []struct {
		name string
		llm  *fakeLLM
	}{
		{name: "model error", llm: &fakeLLM{err: errors.New("model overloaded")}},
		{name: "unparseable response", llm: &fakeLLM{response: "I could not find any facts, sorry!"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := newTestClient(nil, tt.llm)
			require.NoError(t, err)
			ctx := context.Background()

			records, err := client.AddMessages(ctx, []Message{
				{Role: "user", Content: "I'm planning a trip to Tokyo in May"},
				{Role: "assistant", Content: "Sounds fun"},
			}, "user_001", WithInfer(true))
			require.NoError(t, err)

			// The raw transcript is stored instead; the conversation is
			// never lost to a flaky model.
			require.Len(t, records, 1)
			assert.Contains(t, records[0].Content, "user: I'm planning a trip to Tokyo in May")
			assert.Contains(t, records[0].Content, "assistant: Sounds fun")
			assert.Equal(t, true, records[0].Metadata["inference_fallback"])
		})
	}
}

func TestAddMessagesCustomType(t *testing.T) {
	client, err := newTestClient(nil, nil)
	require.NoError(t, err)

	records, err := client.AddMessages(context.Background(), []Message{
		{Role: "user", Content: "remember this for the session"},
	}, "user_001", WithMemoryType(TypeWorking))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, TypeWorking, records[0].MemoryType)
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		expected string
	}{
		{name: "bare json", in: `{"facts": []}`, expected: `{"facts": []}`},
		{name: "json fence", in: "```json\n{\"facts\": []}\n```", expected: `{"facts": []}`},
		{name: "plain fence", in: "```\n{\"facts\": []}\n```", expected: `{"facts": []}`},
		{name: "surrounding whitespace", in: "  {\"facts\": []}  ", expected: `{"facts": []}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, stripCodeFences(tt.in))
		})
	}
}

func TestFlattenTranscript(t *testing.T) {
	transcript := flattenTranscript([]Message{
		{Role: "system", Content: "instructions"},
		{Role: "user", Content: "first"},
		{Role: "", Content: "unattributed"},
		{Role: "assistant", Content: ""},
		{Role: "assistant", Content: "second"},
	})
	assert.Equal(t, "user: first\nuser: unattributed\nassistant: second", transcript)
}
