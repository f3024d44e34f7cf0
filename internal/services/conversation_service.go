// Package services – ConversationService
//
// ConversationService runs the receive-data pipeline for one request:
//
//	validate → upsert user → insert pending conversation → respond → commit
//
// Steps run strictly in that order. A storage failure before the response is
// generated aborts with ErrPersistence; a generation failure still commits
// the fallback text (status failed) so no conversation is left pending.
//
// Observability: all public methods are OpenTelemetry-instrumented.

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tbourn/go-chat-relay/internal/domain"
	"github.com/tbourn/go-chat-relay/internal/repo"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100

	// DefaultFallbackMessage is committed when the model cannot answer.
	DefaultFallbackMessage = "Unable to process the request right now."
)

// Store is the persistence contract used by ConversationService.
type Store interface {
	UpsertUser(ctx context.Context, db *gorm.DB, u *domain.User) (*domain.User, error)
	InsertConversation(ctx context.Context, db *gorm.DB, userID, message string, meta datatypes.JSON) (*domain.Conversation, error)
	ResolveConversation(ctx context.Context, db *gorm.DB, id uint, r domain.Resolution) error
	GetConversation(ctx context.Context, db *gorm.DB, id uint) (*domain.Conversation, error)
	ListConversationsByUser(ctx context.Context, db *gorm.DB, userID string, limit int) ([]domain.Conversation, error)
	DeleteConversation(ctx context.Context, db *gorm.DB, id uint) (bool, error)
	GetIdempotency(ctx context.Context, db *gorm.DB, userID, key string, now time.Time) (*domain.Idempotency, error)
	CreateIdempotency(ctx context.Context, db *gorm.DB, userID, key string, conversationID uint, status int, ttl time.Duration) (*domain.Idempotency, error)
}

// Responder produces the reply text for a message.
type Responder interface {
	Respond(ctx context.Context, message string, stream bool) (Answer, error)
}

// Reply is the pipeline result returned to the transport.
type Reply struct {
	ConversationID uint   `json:"conversation_id"`
	Response       string `json:"response"`
	Source         string `json:"source"`
	Status         string `json:"status"`
}

// ConversationService is the request pipeline.
type ConversationService struct {
	DB        *gorm.DB
	Store     Store
	Responder Responder
	Validator *PayloadValidator

	FallbackMessage string
	IdempotencyTTL  time.Duration

	Log zerolog.Logger
}

// NewConversationService wires a pipeline with default validation and
// fallback text.
func NewConversationService(db *gorm.DB, store Store, responder Responder, log zerolog.Logger) *ConversationService {
	return &ConversationService{
		DB:              db,
		Store:           store,
		Responder:       responder,
		Validator:       NewPayloadValidator(255),
		FallbackMessage: DefaultFallbackMessage,
		IdempotencyTTL:  24 * time.Hour,
		Log:             log,
	}
}

// Decode parses and validates a raw receive-data body.
func (s *ConversationService) Decode(r io.Reader) (*domain.ChatPayload, error) {
	return s.validator().Decode(r)
}

// Process runs the pipeline for one payload.
//
// Errors: *ValidationError (ErrValidation), ErrPersistence, or ErrGeneration.
// With ErrGeneration the returned Reply is non-nil and carries the committed
// fallback text.
func (s *ConversationService) Process(ctx context.Context, p *domain.ChatPayload) (*Reply, error) {
	tr := otel.Tracer("services/ConversationService")
	ctx, span := tr.Start(ctx, "Process")
	defer span.End()

	// Received → Validated
	if err := s.validator().Validate(p); err != nil {
		return nil, err
	}
	userID := strings.TrimSpace(p.UserData.ID)
	prompt := strings.TrimSpace(p.PromptUser)
	span.SetAttributes(attribute.String("user.id", userID), attribute.Bool("stream", p.Stream))
	log := s.Log.With().Str("user_id", userID).Logger()

	// Validated → UserUpserted
	u := p.UserData.ToUser()
	u.UserID = userID
	if _, err := s.Store.UpsertUser(ctx, s.DB, &u); err != nil {
		log.Error().Err(err).Msg("user upsert failed")
		return nil, fmt.Errorf("%w: upsert user: %w", ErrPersistence, err)
	}

	// UserUpserted → ConversationCreated
	base := map[string]any{}
	if p.Datetime != nil {
		base["client_datetime"] = *p.Datetime
	}
	conv, err := s.Store.InsertConversation(ctx, s.DB, userID, prompt, encodeMeta(base))
	if err != nil {
		log.Error().Err(err).Msg("conversation insert failed")
		return nil, fmt.Errorf("%w: insert conversation: %w", ErrPersistence, err)
	}
	span.SetAttributes(attribute.Int64("conversation.id", int64(conv.ID)))
	log = log.With().Uint("conversation_id", conv.ID).Logger()

	// ConversationCreated → ResponseGenerated
	ans, genErr := s.Responder.Respond(ctx, prompt, p.Stream)
	if genErr != nil {
		if !errors.Is(genErr, ErrGeneration) {
			genErr = fmt.Errorf("%w: %w", ErrGeneration, genErr)
		}
		span.RecordError(genErr)
		reply := &Reply{
			ConversationID: conv.ID,
			Response:       s.fallback(),
			Source:         domain.SourceFallback,
			Status:         domain.StatusFailed,
		}
		base["error"] = "generation_failed"
		res := domain.Resolution{Response: reply.Response, Status: reply.Status, Source: reply.Source, Metadata: encodeMeta(base)}
		if err := s.Store.ResolveConversation(ctx, s.DB, conv.ID, res); err != nil {
			// The pending sweeper will fail this row later.
			log.Error().Err(err).Msg("failed to commit fallback response")
		}
		pipelineOutcomes.WithLabelValues(reply.Status, reply.Source).Inc()
		return reply, genErr
	}

	// ResponseGenerated → ResponseCommitted
	for k, v := range ans.Metadata {
		base[k] = v
	}
	res := domain.Resolution{Response: ans.Text, Status: domain.StatusAnswered, Source: ans.Source, Metadata: encodeMeta(base)}
	if err := s.Store.ResolveConversation(ctx, s.DB, conv.ID, res); err != nil {
		log.Error().Err(err).Msg("failed to commit response")
		return nil, fmt.Errorf("%w: commit response: %w", ErrPersistence, err)
	}
	pipelineOutcomes.WithLabelValues(domain.StatusAnswered, ans.Source).Inc()
	log.Debug().Str("source", ans.Source).Msg("conversation answered")

	return &Reply{
		ConversationID: conv.ID,
		Response:       ans.Text,
		Source:         ans.Source,
		Status:         domain.StatusAnswered,
	}, nil
}

// History returns a user's conversations, newest first. limit is clamped to
// [1,100]; non-positive means the default of 20.
func (s *ConversationService) History(ctx context.Context, userID string, limit int) ([]domain.Conversation, error) {
	tr := otel.Tracer("services/ConversationService")
	ctx, span := tr.Start(ctx, "History",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.Int("limit", limit),
		),
	)
	defer span.End()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, invalid("user_id", "is required")
	}
	items, err := s.Store.ListConversationsByUser(ctx, s.DB, userID, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return items, nil
}

// Stats returns the conversation count and latest update time for a user.
// Handlers derive history ETags from it.
func (s *ConversationService) Stats(ctx context.Context, userID string) (int64, *time.Time, error) {
	return repo.ConversationStats(ctx, s.DB, userID)
}

// Delete removes a conversation, or returns ErrConversationNotFound.
func (s *ConversationService) Delete(ctx context.Context, id uint) error {
	tr := otel.Tracer("services/ConversationService")
	ctx, span := tr.Start(ctx, "Delete",
		trace.WithAttributes(attribute.Int64("conversation.id", int64(id))),
	)
	defer span.End()

	ok, err := s.Store.DeleteConversation(ctx, s.DB, id)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if !ok {
		return ErrConversationNotFound
	}
	return nil
}

// Replay returns the committed reply recorded for (userID, key), or
// ErrConversationNotFound when there is none.
func (s *ConversationService) Replay(ctx context.Context, userID, key string) (*Reply, error) {
	tr := otel.Tracer("services/ConversationService")
	ctx, span := tr.Start(ctx, "Replay",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	rec, err := s.Store.GetIdempotency(ctx, s.DB, userID, key, time.Now().UTC())
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	conv, err := s.Store.GetConversation(ctx, s.DB, rec.ConversationID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if conv.Response == nil {
		// Still in flight.
		return nil, ErrConversationNotFound
	}
	return &Reply{
		ConversationID: conv.ID,
		Response:       *conv.Response,
		Source:         conv.Source,
		Status:         conv.Status,
	}, nil
}

// Remember records that (userID, key) was answered by reply. A concurrent
// duplicate is not an error.
func (s *ConversationService) Remember(ctx context.Context, userID, key string, reply *Reply, status int) error {
	if reply == nil || strings.TrimSpace(key) == "" {
		return nil
	}
	_, err := s.Store.CreateIdempotency(ctx, s.DB, userID, key, reply.ConversationID, status, s.IdempotencyTTL)
	if err != nil && !errors.Is(err, repo.ErrDuplicate) {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return nil
}

var defaultValidator = NewPayloadValidator(0)

func (s *ConversationService) validator() *PayloadValidator {
	if s.Validator == nil {
		return defaultValidator
	}
	return s.Validator
}

func (s *ConversationService) fallback() string {
	if strings.TrimSpace(s.FallbackMessage) == "" {
		return DefaultFallbackMessage
	}
	return s.FallbackMessage
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultHistoryLimit
	case limit > maxHistoryLimit:
		return maxHistoryLimit
	default:
		return limit
	}
}

func encodeMeta(m map[string]any) datatypes.JSON {
	if len(m) == 0 {
		return nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}
