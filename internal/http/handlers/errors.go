// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// Codes are stable, lowercase snake_case strings that clients branch on. Each
// error response carries one of them alongside the HTTP status (see fail()).
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "generation_failed",
//	  "message": "Unable to process the request right now.",
//	  "conversation_id": 42
//	}
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Pipeline outcomes:
	ErrCodePersistenceFailed = "persistence_failed"
	ErrCodeGenerationFailed  = "generation_failed"
	ErrCodeListFailed        = "list_failed"
)
