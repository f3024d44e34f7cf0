package llm

import (
	"context"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/tbourn/go-chat-relay/internal/config"
	"github.com/tbourn/go-chat-relay/internal/sysutil"
)

var providerDefaults = map[string]struct{ baseURL, model string }{
	"openai":   {baseURL: "https://api.openai.com/v1/", model: "gpt-4o-mini"},
	"deepseek": {baseURL: "https://api.deepseek.com/", model: "deepseek-chat"},
}

// OpenAIClient talks to any OpenAI-compatible chat completions API
// (OpenAI itself, DeepSeek).
type OpenAIClient struct {
	client    *openai.Client
	provider  string
	model     string
	system    string
	maxTokens int64
}

// NewOpenAIClient builds a client for cfg. Empty BaseURL/Model fall back to
// the provider defaults. Extra options are appended after the defaults.
func NewOpenAIClient(cfg config.LLMConfig, system string, opts ...option.RequestOption) *OpenAIClient {
	def := providerDefaults[cfg.Provider]
	baseURL := sysutil.FirstNonEmpty(cfg.BaseURL, def.baseURL)
	model := sysutil.FirstNonEmpty(cfg.Model, def.model)

	reqOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(withTrailingSlash(baseURL)))
	}
	reqOpts = append(reqOpts, opts...)

	return &OpenAIClient{
		client:    openai.NewClient(reqOpts...),
		provider:  sysutil.FirstNonEmpty(cfg.Provider, "openai"),
		model:     model,
		system:    system,
		maxTokens: int64(cfg.MaxTokens),
	}
}

// Provider implements Client.
func (c *OpenAIClient) Provider() string { return c.provider }

func (c *OpenAIClient) params(prompt string) openai.ChatCompletionNewParams {
	var sys, user any = c.system, prompt
	p := openai.ChatCompletionNewParams{
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{
			openai.ChatCompletionMessageParam{
				Role:    openai.F(openai.ChatCompletionMessageParamRoleSystem),
				Content: openai.F(sys),
			},
			openai.ChatCompletionMessageParam{
				Role:    openai.F(openai.ChatCompletionMessageParamRoleUser),
				Content: openai.F(user),
			},
		}),
		Model: openai.F(openai.ChatModel(c.model)),
	}
	if c.maxTokens > 0 {
		p.MaxTokens = openai.F(c.maxTokens)
	}
	return p
}

// Send implements Client.
func (c *OpenAIClient) Send(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, c.params(prompt))
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

// SendStreaming implements StreamingClient.
func (c *OpenAIClient) SendStreaming(ctx context.Context, prompt string, chunkSize int) (string, error) {
	stream := c.client.Chat.Completions.NewStreaming(ctx, c.params(prompt))
	defer stream.Close()

	var b strings.Builder
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) > 0 {
			b.WriteString(chunk.Choices[0].Delta.Content)
		}
	}
	if err := stream.Err(); err != nil {
		return "", err
	}
	text := reassemble(Rechunk(b.String(), chunkSize))
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func withTrailingSlash(u string) string {
	if strings.HasSuffix(u, "/") {
		return u
	}
	return u + "/"
}
