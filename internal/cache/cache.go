// Package cache holds the optional reply cache consulted after a rule miss,
// so repeated questions do not reach the model twice within the TTL.
package cache

import (
	"context"
	"errors"
)

// ErrCacheMiss is returned by Get when no entry exists.
var ErrCacheMiss = errors.New("cache miss")

// Entry is one cached model reply.
type Entry struct {
	Text     string `json:"text"`
	Provider string `json:"provider"`
}

// ReplyCache stores model replies keyed by normalized prompt.
type ReplyCache interface {
	Get(ctx context.Context, prompt string) (*Entry, error)
	Set(ctx context.Context, prompt string, e *Entry) error
}
