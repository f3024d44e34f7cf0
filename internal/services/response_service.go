// Package services – ResponseService
//
// ResponseService decides where a reply comes from: the business-rule table
// first, then the optional reply cache, then the upstream model. Rules take
// strict precedence; the model is never called when a rule matches.

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-chat-relay/internal/cache"
	"github.com/tbourn/go-chat-relay/internal/domain"
	"github.com/tbourn/go-chat-relay/internal/llm"
	"github.com/tbourn/go-chat-relay/internal/rules"
)

// RuleMatcher is satisfied by *rules.Matcher.
type RuleMatcher interface {
	Match(query string) (rules.Match, bool)
}

// Answer is a generated reply and where it came from.
type Answer struct {
	Text   string
	Source string // domain.Source*
	// Metadata describes the match (strategy, keyword, score) or the model call.
	Metadata map[string]any
}

// ResponseService is the response orchestrator.
type ResponseService struct {
	Rules RuleMatcher
	Cache cache.ReplyCache // optional
	LLM   llm.Client

	// Timeout bounds each model call; 0 means no extra bound.
	Timeout time.Duration
	// ChunkSize is the rune size used by buffered streaming.
	ChunkSize int

	Log zerolog.Logger
}

// Respond returns the reply for message. Failures from the model (including
// timeouts and empty text) wrap ErrGeneration; the call is not retried.
func (s *ResponseService) Respond(ctx context.Context, message string, stream bool) (Answer, error) {
	tr := otel.Tracer("services/ResponseService")
	ctx, span := tr.Start(ctx, "Respond",
		trace.WithAttributes(
			attribute.Bool("stream", stream),
			attribute.Int("message.runes", len([]rune(message))),
		),
	)
	defer span.End()

	if s.Rules != nil {
		if m, ok := s.Rules.Match(message); ok {
			ruleLookups.WithLabelValues(string(m.Strategy)).Inc()
			span.SetAttributes(attribute.String("source", domain.SourceRule), attribute.String("rule.strategy", string(m.Strategy)))
			meta := map[string]any{"strategy": string(m.Strategy), "keyword": m.Keyword}
			switch m.Strategy {
			case rules.StrategyApproximate:
				meta["score"] = m.Score
			case rules.StrategyEditDistance:
				meta["distance"] = m.Distance
			}
			return Answer{Text: m.Response, Source: domain.SourceRule, Metadata: meta}, nil
		}
	}
	ruleLookups.WithLabelValues("none").Inc()

	key := cacheKey(message)
	if s.Cache != nil && key != "" {
		e, err := s.Cache.Get(ctx, key)
		switch {
		case err == nil && e != nil && e.Text != "":
			replyCache.WithLabelValues("hit").Inc()
			span.SetAttributes(attribute.String("source", domain.SourceCache))
			return Answer{Text: e.Text, Source: domain.SourceCache, Metadata: map[string]any{"provider": e.Provider}}, nil
		case err == nil, errors.Is(err, cache.ErrCacheMiss):
			replyCache.WithLabelValues("miss").Inc()
		default:
			replyCache.WithLabelValues("error").Inc()
			s.Log.Warn().Err(err).Msg("reply cache lookup failed")
		}
	}

	if s.LLM == nil {
		return Answer{}, fmt.Errorf("%w: no model configured", ErrGeneration)
	}
	text, streamed, err := s.generate(ctx, message, stream)
	if err != nil {
		span.RecordError(err)
		s.Log.Error().Err(err).Str("provider", s.LLM.Provider()).Bool("stream", stream).Msg("llm request failed")
		return Answer{}, fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	span.SetAttributes(attribute.String("source", domain.SourceLLM))

	if s.Cache != nil && key != "" {
		if err := s.Cache.Set(ctx, key, &cache.Entry{Text: text, Provider: s.LLM.Provider()}); err != nil {
			s.Log.Warn().Err(err).Msg("reply cache store failed")
		}
	}
	return Answer{
		Text:     text,
		Source:   domain.SourceLLM,
		Metadata: map[string]any{"provider": s.LLM.Provider(), "streamed": streamed},
	}, nil
}

// generate performs the bounded model call and records metrics.
func (s *ResponseService) generate(ctx context.Context, message string, stream bool) (text string, streamed bool, err error) {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	provider := s.LLM.Provider()
	start := time.Now()
	if sc, ok := s.LLM.(llm.StreamingClient); ok && stream {
		streamed = true
		text, err = sc.SendStreaming(ctx, message, s.ChunkSize)
	} else {
		text, err = s.LLM.Send(ctx, message)
	}
	llmLatency.WithLabelValues(provider).Observe(time.Since(start).Seconds())

	if err == nil && strings.TrimSpace(text) == "" {
		err = llm.ErrEmptyResponse
	}
	if err != nil {
		llmRequests.WithLabelValues(provider, "error").Inc()
		return "", streamed, err
	}
	llmRequests.WithLabelValues(provider, "ok").Inc()
	return text, streamed, nil
}

// cacheKey folds case and whitespace; digits and punctuation are kept so
// distinct questions never share a cached reply.
func cacheKey(message string) string {
	return strings.Join(strings.Fields(strings.ToLower(message)), " ")
}
