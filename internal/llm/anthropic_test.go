package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-chat-relay/internal/config"
)

func TestAnthropic_Send(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"msg_1","type":"message","role":"assistant","model":"claude-test",
			"content":[{"type":"text","text":"Claro, "},{"type":"text","text":"aquí estoy."}],
			"stop_reason":"end_turn","stop_sequence":null,"usage":{"input_tokens":3,"output_tokens":4}}`)
	}))
	defer srv.Close()

	c := NewAnthropicClient(config.LLMConfig{
		Provider: "anthropic", APIKey: "test-key", BaseURL: srv.URL, Model: "claude-test",
	}, "sys", option.WithMaxRetries(0))

	got, err := c.Send(context.Background(), "hola")
	require.NoError(t, err)
	assert.Equal(t, "Claro, aquí estoy.", got)
	assert.Equal(t, "claude-test", body["model"])
	assert.EqualValues(t, defaultAnthropicMaxTokens, body["max_tokens"])
}

func TestAnthropic_SendUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"type":"error","error":{"type":"invalid_request_error","message":"nope"}}`)
	}))
	defer srv.Close()

	c := NewAnthropicClient(config.LLMConfig{APIKey: "k", BaseURL: srv.URL}, "", option.WithMaxRetries(0))
	_, err := c.Send(context.Background(), "hola")
	assert.Error(t, err)
}

func newFakeAnthropicStream(t *testing.T, deltas ...string) *AnthropicClient {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &body)
		assert.Equal(t, true, body["stream"])

		w.Header().Set("Content-Type", "text/event-stream")
		event := func(name, data string) {
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
		}
		event("message_start", `{"type":"message_start","message":{"id":"msg_1","type":"message","role":"assistant","content":[],"model":"claude-test","stop_reason":null,"stop_sequence":null,"usage":{"input_tokens":3,"output_tokens":1}}}`)
		event("content_block_start", `{"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`)
		for _, d := range deltas {
			text, _ := json.Marshal(d)
			event("content_block_delta", `{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":`+string(text)+`}}`)
		}
		event("content_block_stop", `{"type":"content_block_stop","index":0}`)
		event("message_delta", `{"type":"message_delta","delta":{"stop_reason":"end_turn","stop_sequence":null},"usage":{"output_tokens":5}}`)
		event("message_stop", `{"type":"message_stop"}`)
	}))
	t.Cleanup(srv.Close)

	return NewAnthropicClient(config.LLMConfig{
		Provider: "anthropic", APIKey: "test-key", BaseURL: srv.URL, Model: "claude-test",
	}, "", option.WithMaxRetries(0))
}

func TestAnthropic_SendStreaming(t *testing.T) {
	c := newFakeAnthropicStream(t, "¡Hola", ", mun", "do!")

	got, err := c.SendStreaming(context.Background(), "hola", 3)
	require.NoError(t, err)
	assert.Equal(t, "¡Hola, mundo!", got)
}

func TestAnthropic_SendStreamingEmpty(t *testing.T) {
	c := newFakeAnthropicStream(t, "  ")

	_, err := c.SendStreaming(context.Background(), "hola", 3)
	assert.ErrorIs(t, err, ErrEmptyResponse)
}
