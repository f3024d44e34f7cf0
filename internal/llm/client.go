// Package llm wraps the upstream model providers behind a small capability
// interface: send a prompt, get the complete text back.
//
// Streaming is buffered: the provider stream is drained, regrouped into
// fixed-size rune chunks, and reassembled before returning. Callers always
// receive the whole reply.
package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/tbourn/go-chat-relay/internal/config"
)

var (
	// ErrEmptyResponse is returned when the provider answered without text.
	ErrEmptyResponse = errors.New("llm: empty response")

	// ErrMissingAPIKey is returned by New when no credential is configured.
	ErrMissingAPIKey = errors.New("llm: missing api key")
)

// Client sends one prompt and returns the full reply.
type Client interface {
	Send(ctx context.Context, prompt string) (string, error)
	// Provider names the upstream (openai, deepseek, anthropic).
	Provider() string
}

// StreamingClient additionally consumes the provider's streaming endpoint.
// The returned text is identical in shape to Send's.
type StreamingClient interface {
	Client
	SendStreaming(ctx context.Context, prompt string, chunkSize int) (string, error)
}

// DefaultSystemPrompt is used when neither LLM_SYSTEM_PROMPT nor
// LLM_SYSTEM_PROMPT_PATH is set.
const DefaultSystemPrompt = "You are a helpful assistant"

// New builds the client for cfg.Provider.
func New(cfg config.LLMConfig) (StreamingClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	system, err := systemPrompt(cfg)
	if err != nil {
		return nil, err
	}

	switch cfg.Provider {
	case "openai", "deepseek":
		return NewOpenAIClient(cfg, system), nil
	case "anthropic":
		return NewAnthropicClient(cfg, system), nil
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
}

// systemPrompt prefers the file at SystemPromptPath over the inline value.
func systemPrompt(cfg config.LLMConfig) (string, error) {
	if cfg.SystemPromptPath != "" {
		b, err := os.ReadFile(cfg.SystemPromptPath)
		if err != nil {
			return "", fmt.Errorf("llm: read system prompt: %w", err)
		}
		if s := strings.TrimSpace(string(b)); s != "" {
			return s, nil
		}
	}
	if s := strings.TrimSpace(cfg.SystemPrompt); s != "" {
		return s, nil
	}
	return DefaultSystemPrompt, nil
}
