package llm

import (
	"context"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/tbourn/go-chat-relay/internal/config"
	"github.com/tbourn/go-chat-relay/internal/sysutil"
)

const (
	defaultAnthropicModel     = "claude-3-5-haiku-latest"
	defaultAnthropicMaxTokens = 1024
)

// AnthropicClient talks to the Anthropic Messages API.
type AnthropicClient struct {
	client    anthropic.Client
	model     string
	system    string
	maxTokens int64
}

// NewAnthropicClient builds a client for cfg. Extra options are appended
// after the configured ones.
func NewAnthropicClient(cfg config.LLMConfig, system string, opts ...option.RequestOption) *AnthropicClient {
	reqOpts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(withTrailingSlash(cfg.BaseURL)))
	}
	reqOpts = append(reqOpts, opts...)

	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}
	return &AnthropicClient{
		client:    anthropic.NewClient(reqOpts...),
		model:     sysutil.FirstNonEmpty(cfg.Model, defaultAnthropicModel),
		system:    system,
		maxTokens: maxTokens,
	}
}

// Provider implements Client.
func (c *AnthropicClient) Provider() string { return "anthropic" }

func (c *AnthropicClient) params(prompt string) anthropic.MessageNewParams {
	p := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if c.system != "" {
		p.System = []anthropic.TextBlockParam{{Text: c.system}}
	}
	return p
}

// Send implements Client.
func (c *AnthropicClient) Send(ctx context.Context, prompt string) (string, error) {
	msg, err := c.client.Messages.New(ctx, c.params(prompt))
	if err != nil {
		return "", err
	}
	return joinText(msg)
}

// SendStreaming implements StreamingClient.
func (c *AnthropicClient) SendStreaming(ctx context.Context, prompt string, chunkSize int) (string, error) {
	stream := c.client.Messages.NewStreaming(ctx, c.params(prompt))
	defer stream.Close()

	msg := anthropic.Message{}
	for stream.Next() {
		if err := msg.Accumulate(stream.Current()); err != nil {
			return "", err
		}
	}
	if err := stream.Err(); err != nil {
		return "", err
	}
	text, err := joinText(&msg)
	if err != nil {
		return "", err
	}
	return reassemble(Rechunk(text, chunkSize)), nil
}

// joinText concatenates the text blocks of a reply.
func joinText(msg *anthropic.Message) (string, error) {
	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", ErrEmptyResponse
	}
	return b.String(), nil
}
