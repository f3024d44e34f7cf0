// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the response helpers shared by every endpoint. All error
// responses use ErrorResponse with a stable code; fail() logs 5xx responses
// with the request-scoped logger.
//
// Example error response:
//
//	HTTP/1.1 404 Not Found
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "not_found",
//	  "message": "conversation not found"
//	}
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-chat-relay/internal/http/middleware"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"not_found"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"conversation not found"`
	// Set when the failure still produced a stored conversation
	ConversationID uint `json:"conversation_id,omitempty" example:"42"`
}

// fail aborts the request with a structured error and logs server-side errors.
func fail(c *gin.Context, status int, code, msg string) {
	abort(c, status, ErrorResponse{Code: code, Message: msg})
}

// Fail is the exported variant of fail() for the router's NoRoute/NoMethod
// handlers.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

func abort(c *gin.Context, status int, resp ErrorResponse) {
	resp.RequestID = requestID(c)

	if status >= http.StatusInternalServerError {
		lg := middleware.LoggerFrom(c)
		lg.Error().
			Int("status", status).
			Str("code", resp.Code).
			Str("message", resp.Message).
			Uint("conversation_id", resp.ConversationID).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, resp)
}

func requestID(c *gin.Context) string {
	if rid := middleware.GetRequestID(c); rid != "" {
		return rid
	}
	return c.Writer.Header().Get("X-Request-ID")
}

// ok writes a success JSON response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// noContent writes an HTTP 204 No Content response.
func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
