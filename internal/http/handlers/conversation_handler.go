// Conversation HTTP handlers.
//
// This file exposes the widget-facing endpoints:
//   - POST   /receive-data                     (pipeline, Idempotency-Key aware)
//   - HEAD   /receive-data                     (liveness probe)
//   - GET    /health-check
//   - GET    /users/{user_id}/conversations    (history, ETag support)
//   - DELETE /conversations/{id}
//
// Handlers are transport-thin: they decode input, call the conversation
// service, and translate its errors into the ErrorResponse envelope.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-chat-relay/internal/domain"
	"github.com/tbourn/go-chat-relay/internal/http/middleware"
	"github.com/tbourn/go-chat-relay/internal/services"
	"github.com/tbourn/go-chat-relay/internal/utils"
)

// ConversationService is the pipeline and history contract consumed by the
// handlers. Implementations must be safe for concurrent use.
type ConversationService interface {
	// Decode parses and validates a raw receive-data body.
	Decode(r io.Reader) (*domain.ChatPayload, error)
	// Process runs validate → upsert → insert → respond → commit.
	Process(ctx context.Context, p *domain.ChatPayload) (*services.Reply, error)
	// Replay returns the reply stored for an idempotency key.
	Replay(ctx context.Context, userID, key string) (*services.Reply, error)
	// Remember stores the reply for an idempotency key.
	Remember(ctx context.Context, userID, key string, reply *services.Reply, status int) error
	History(ctx context.Context, userID string, limit int) ([]domain.Conversation, error)
	Stats(ctx context.Context, userID string) (int64, *time.Time, error)
	Delete(ctx context.Context, id uint) error
}

// Handlers groups the HTTP endpoints of the relay.
type Handlers struct {
	conv ConversationService
}

// New constructs a Handlers bound to the conversation service.
func New(conv ConversationService) *Handlers {
	return &Handlers{conv: conv}
}

// ReceiveDataResponse is the success body of POST /receive-data.
type ReceiveDataResponse struct {
	Response       string `json:"response" example:"¡Hola! ¿En qué puedo ayudarte?"`
	ConversationID uint   `json:"conversation_id" example:"42"`
	// rule, cache, or llm
	Source string `json:"source" example:"rule"`
	// Present only with ?format=html
	ResponseHTML string `json:"response_html,omitempty" example:"<p>¡Hola!</p>"`
}

// HealthResponse is the body of GET /health-check.
type HealthResponse struct {
	Status  string `json:"status" example:"ok"`
	Message string `json:"message" example:"server is up"`
}

// ListConversationsResponse wraps a user's history, newest first.
type ListConversationsResponse struct {
	Conversations []domain.Conversation `json:"conversations"`
	Count         int                   `json:"count"`
}

// ReceiveData godoc
// @ID          receiveData
// @Summary     Answer a widget message
// @Description Validates the payload, upserts the user, stores the conversation and answers it from the business rules, the reply cache, or the language model.
// @Description Supports idempotency via the Idempotency-Key header (same key → same result, `Idempotency-Replayed: true`).
// @Tags        Conversations
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       format           query   string  false "Set to html to include response_html"  Enums(html)
// @Param       body             body    domain.ChatPayload  true  "Widget payload"
//
// @Success     200  {object}  handlers.ReceiveDataResponse
// @Header      200  {string}  Idempotency-Replayed  "true when served from a previous request"
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid payload"
// @Failure     429  {object}  handlers.ErrorResponse  "Rate limited"
// @Failure     502  {object}  handlers.ErrorResponse  "Model unavailable; message holds the fallback text"
// @Failure     503  {object}  handlers.ErrorResponse  "Storage unavailable"
// @Router      /receive-data [post]
func (h *Handlers) ReceiveData(c *gin.Context) {
	ctx := c.Request.Context()

	p, err := h.conv.Decode(c.Request.Body)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}
	uid := strings.TrimSpace(p.UserData.ID)
	middleware.SetUserID(c, uid)

	key, hasKey := middleware.GetIdempotencyKey(c)
	if hasKey {
		if prev, err := h.conv.Replay(ctx, uid, key); err == nil {
			c.Header(middleware.HeaderIdempotencyReplayed, "true")
			h.writeReply(c, prev, nil)
			return
		}
	}

	reply, err := h.conv.Process(ctx, p)
	if hasKey && reply != nil {
		status := http.StatusOK
		if err != nil {
			status = http.StatusBadGateway
		}
		if rerr := h.conv.Remember(ctx, uid, key, reply, status); rerr != nil {
			middleware.LoggerFrom(c).Warn().Err(rerr).Msg("idempotency record not stored")
		}
	}
	h.writeReply(c, reply, err)
}

func (h *Handlers) writeReply(c *gin.Context, reply *services.Reply, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	case errors.Is(err, services.ErrPersistence):
		fail(c, http.StatusServiceUnavailable, ErrCodePersistenceFailed, "conversation could not be stored")
		return
	case errors.Is(err, services.ErrGeneration) && reply != nil:
		abort(c, http.StatusBadGateway, ErrorResponse{
			Code:           ErrCodeGenerationFailed,
			Message:        reply.Response,
			ConversationID: reply.ConversationID,
		})
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
		return
	}

	// Replays of a failed exchange answer the way the original request did.
	if reply.Status == domain.StatusFailed {
		abort(c, http.StatusBadGateway, ErrorResponse{
			Code:           ErrCodeGenerationFailed,
			Message:        reply.Response,
			ConversationID: reply.ConversationID,
		})
		return
	}

	resp := ReceiveDataResponse{
		Response:       reply.Response,
		ConversationID: reply.ConversationID,
		Source:         reply.Source,
	}
	if strings.EqualFold(c.Query("format"), "html") {
		if out, rerr := renderHTML(reply.Response); rerr == nil {
			resp.ResponseHTML = out
		} else {
			middleware.LoggerFrom(c).Warn().Err(rerr).Msg("markdown render failed")
		}
	}
	ok(c, http.StatusOK, resp)
}

// ReceiveDataHead godoc
// @ID          receiveDataHead
// @Summary     Widget liveness probe
// @Tags        Conversations
// @Success     200  {string}  string  "OK"
// @Router      /receive-data [head]
func (h *Handlers) ReceiveDataHead(c *gin.Context) {
	c.Status(http.StatusOK)
}

// HealthCheck godoc
// @ID          healthCheck
// @Summary     Health check
// @Tags        Health
// @Produce     json
// @Success     200  {object}  handlers.HealthResponse
// @Router      /health-check [get]
func (h *Handlers) HealthCheck(c *gin.Context) {
	ok(c, http.StatusOK, HealthResponse{Status: "ok", Message: "server is up"})
}

// ListConversations godoc
// @ID          listConversations
// @Summary     List a user's conversations
// @Description Returns the user's conversations, newest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Conversations
// @Produce     json
//
// @Param       user_id        path    string  true   "External user id"  example(user123)
// @Param       limit          query   int     false  "Maximum items"     minimum(1) maximum(100) default(20)
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
//
// @Success     200  {object}  handlers.ListConversationsResponse
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string "Not Modified"
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /users/{user_id}/conversations [get]
func (h *Handlers) ListConversations(c *gin.Context) {
	ctx := c.Request.Context()
	uid := strings.TrimSpace(c.Param("user_id"))
	limit := utils.AtoiDefault(c.Query("limit"), 0)

	// ETag pre-check (best effort).
	if count, maxTS, err := h.conv.Stats(ctx, uid); err == nil {
		var ts int64
		if maxTS != nil {
			ts = maxTS.UnixNano()
		}
		etag := fmt.Sprintf(`W/"conversations:%s:%d:%d:%d"`, uid, limit, count, ts)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	items, err := h.conv.History(ctx, uid, limit)
	switch {
	case errors.Is(err, services.ErrValidation):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list conversations")
		return
	}
	if items == nil {
		items = []domain.Conversation{}
	}
	ok(c, http.StatusOK, ListConversationsResponse{Conversations: items, Count: len(items)})
}

// DeleteConversation godoc
// @ID          deleteConversation
// @Summary     Delete a conversation
// @Tags        Conversations
//
// @Param       id  path  int  true  "Conversation ID"  example(42)
//
// @Success     204  {string}  string "No Content"
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse "Conversation not found"
// @Failure     503  {object}  handlers.ErrorResponse "Storage unavailable"
// @Router      /conversations/{id} [delete]
func (h *Handlers) DeleteConversation(c *gin.Context) {
	id, valid := utils.ParseID(c.Param("id"))
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "conversation id must be a positive integer")
		return
	}

	switch err := h.conv.Delete(c.Request.Context(), id); {
	case errors.Is(err, services.ErrConversationNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "conversation not found")
	case err != nil:
		fail(c, http.StatusServiceUnavailable, ErrCodePersistenceFailed, "conversation could not be deleted")
	default:
		noContent(c)
	}
}
