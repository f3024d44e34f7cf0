package rules

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/go-chat-relay/internal/config"
	"github.com/tbourn/go-chat-relay/internal/repo"
)

// Source yields the rule records a Matcher is built from.
type Source interface {
	Load(ctx context.Context) ([]Rule, error)
	Name() string
}

// FileSource reads rules from a JSON document shaped like
//
//	{"rules": [{"keywords": ["hola", "buenas"], "response": "¡Hola!"}]}
type FileSource struct {
	Path string
}

// Name implements Source.
func (s FileSource) Name() string { return "json:" + s.Path }

// Load implements Source.
func (s FileSource) Load(_ context.Context) ([]Rule, error) {
	b, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, err
	}
	var doc struct {
		Rules []Rule `json:"rules"`
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.Path, err)
	}
	return doc.Rules, nil
}

// TableSource reads one keyword/response pair per row from a SQL table.
type TableSource struct {
	DB    *gorm.DB
	Table string
}

// Name implements Source.
func (s TableSource) Name() string { return "sql:" + s.Table }

// Load implements Source.
func (s TableSource) Load(ctx context.Context) ([]Rule, error) {
	if s.DB == nil {
		return nil, fmt.Errorf("rules table %q: no database", s.Table)
	}
	rows, err := repo.ListBusinessRules(ctx, s.DB, s.Table)
	if err != nil {
		return nil, err
	}
	out := make([]Rule, 0, len(rows))
	for _, r := range rows {
		out = append(out, Rule{Keywords: []string{r.Keyword}, Response: r.Response})
	}
	return out, nil
}

// NewSource picks the implementation named by cfg.Source.
func NewSource(cfg config.RulesConfig, db *gorm.DB) (Source, error) {
	switch cfg.Source {
	case "json":
		return FileSource{Path: cfg.Path}, nil
	case "sql":
		return TableSource{DB: db, Table: cfg.Table}, nil
	default:
		return nil, fmt.Errorf("unknown rule source %q", cfg.Source)
	}
}

// LoadMatcher loads src once and builds a Matcher. A load failure is logged
// as a warning and yields an empty Matcher, so every query falls through to
// the model.
func LoadMatcher(ctx context.Context, src Source, log zerolog.Logger, opts ...Option) *Matcher {
	rs, err := src.Load(ctx)
	if err != nil {
		log.Warn().Err(err).Str("source", src.Name()).Msg("business rules not loaded; continuing without rules")
		return NewMatcher(nil, opts...)
	}
	m := NewMatcher(rs, opts...)
	log.Info().Str("source", src.Name()).Int("keywords", m.Len()).Msg("business rules loaded")
	return m
}
