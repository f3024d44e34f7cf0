package llm

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-chat-relay/internal/config"
)

func TestNew_Providers(t *testing.T) {
	c, err := New(config.LLMConfig{Provider: "deepseek", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "deepseek", c.Provider())
	oc := c.(*OpenAIClient)
	assert.Equal(t, "deepseek-chat", oc.model)
	assert.Equal(t, DefaultSystemPrompt, oc.system)

	c, err = New(config.LLMConfig{Provider: "openai", APIKey: "k", Model: "gpt-x"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-x", c.(*OpenAIClient).model)

	c, err = New(config.LLMConfig{Provider: "anthropic", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", c.Provider())
	assert.Equal(t, int64(defaultAnthropicMaxTokens), c.(*AnthropicClient).maxTokens)
}

func TestNew_Errors(t *testing.T) {
	_, err := New(config.LLMConfig{Provider: "openai", APIKey: "  "})
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = New(config.LLMConfig{Provider: "gemini", APIKey: "k"})
	assert.Error(t, err)

	_, err = New(config.LLMConfig{Provider: "openai", APIKey: "k", SystemPromptPath: filepath.Join(t.TempDir(), "nope.txt")})
	assert.Error(t, err)
}

func TestSystemPrompt_FileWins(t *testing.T) {
	p := filepath.Join(t.TempDir(), "system.txt")
	require.NoError(t, os.WriteFile(p, []byte("  Eres un asistente.\n"), 0o600))

	got, err := systemPrompt(config.LLMConfig{SystemPrompt: "inline", SystemPromptPath: p})
	require.NoError(t, err)
	assert.Equal(t, "Eres un asistente.", got)

	got, err = systemPrompt(config.LLMConfig{SystemPrompt: "inline"})
	require.NoError(t, err)
	assert.Equal(t, "inline", got)
}
