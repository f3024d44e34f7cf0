package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-chat-relay/internal/config"
)

func newFakeOpenAI(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := config.LLMConfig{Provider: "deepseek", APIKey: "test-key", BaseURL: srv.URL, MaxTokens: 64}
	return NewOpenAIClient(cfg, "sys", option.WithMaxRetries(0))
}

func TestOpenAI_Send(t *testing.T) {
	var body map[string]any
	c := newFakeOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","created":1,"model":"deepseek-chat",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"42"}}]}`)
	})

	got, err := c.Send(context.Background(), "¿sentido de la vida?")
	require.NoError(t, err)
	assert.Equal(t, "42", got)
	assert.Equal(t, "deepseek-chat", body["model"])
	msgs, _ := body["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "¿sentido de la vida?", msgs[1].(map[string]any)["content"])
}

func TestOpenAI_SendEmpty(t *testing.T) {
	c := newFakeOpenAI(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","created":1,"model":"m","choices":[]}`)
	})
	_, err := c.Send(context.Background(), "x")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestOpenAI_SendUpstreamError(t *testing.T) {
	c := newFakeOpenAI(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	})
	_, err := c.Send(context.Background(), "x")
	assert.Error(t, err)
}

func TestOpenAI_SendStreaming(t *testing.T) {
	parts := []string{"Hola, ", "¿en qué ", "puedo ayudarte?"}
	c := newFakeOpenAI(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, p := range parts {
			fmt.Fprintf(w, "data: {\"id\":\"c1\",\"object\":\"chat.completion.chunk\",\"created\":1,\"model\":\"m\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", p)
		}
		_, _ = io.WriteString(w, "data: [DONE]\n\n")
	})

	got, err := c.SendStreaming(context.Background(), "hola", 4)
	require.NoError(t, err)
	assert.Equal(t, strings.Join(parts, ""), got)
}
