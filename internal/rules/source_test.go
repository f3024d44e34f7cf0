package rules

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-chat-relay/internal/config"
	"github.com/tbourn/go-chat-relay/internal/domain"
	"github.com/tbourn/go-chat-relay/internal/repo"
)

func writeRules(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "rules.json")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestFileSource_Load(t *testing.T) {
	p := writeRules(t, `{"rules":[{"keywords":["hola","buenas"],"response":"¡Hola!"},{"keywords":["horario"],"response":"9 a 18h"}]}`)
	rs, err := FileSource{Path: p}.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, rs, 2)
	assert.Equal(t, []string{"hola", "buenas"}, rs[0].Keywords)
	assert.Equal(t, "9 a 18h", rs[1].Response)
}

func TestFileSource_Errors(t *testing.T) {
	_, err := FileSource{Path: filepath.Join(t.TempDir(), "missing.json")}.Load(context.Background())
	assert.Error(t, err)

	p := writeRules(t, `{"rules": [`)
	_, err = FileSource{Path: p}.Load(context.Background())
	assert.Error(t, err)
}

func TestTableSource_Load(t *testing.T) {
	db, err := repo.OpenSQLite(filepath.Join(t.TempDir(), "rules.db"))
	require.NoError(t, err)
	db.Logger = logger.Default.LogMode(logger.Silent)
	require.NoError(t, repo.AutoMigrate(db))
	require.NoError(t, db.Create(&[]domain.BusinessRule{
		{Keyword: "hola", Response: "¡Hola!"},
		{Keyword: "envío", Response: "5€"},
	}).Error)

	src := TableSource{DB: db, Table: "business_rules"}
	rs, err := src.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, rs, 2)
	assert.Equal(t, Rule{Keywords: []string{"hola"}, Response: "¡Hola!"}, rs[0])

	m := LoadMatcher(context.Background(), src, zerolog.Nop())
	got, ok := m.Match("ENVÍO")
	require.True(t, ok)
	assert.Equal(t, "5€", got.Response)
}

func TestTableSource_NoDB(t *testing.T) {
	_, err := TableSource{Table: "x"}.Load(context.Background())
	assert.Error(t, err)
}

func TestNewSource(t *testing.T) {
	s, err := NewSource(config.RulesConfig{Source: "json", Path: "a.json"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "json:a.json", s.Name())

	s, err = NewSource(config.RulesConfig{Source: "sql", Table: "faq"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "sql:faq", s.Name())

	_, err = NewSource(config.RulesConfig{Source: "yaml"}, nil)
	assert.Error(t, err)
}

func TestLoadMatcher_FailureYieldsEmptyMatcher(t *testing.T) {
	m := LoadMatcher(context.Background(), FileSource{Path: "/nonexistent/rules.json"}, zerolog.Nop())
	require.NotNil(t, m)
	assert.Equal(t, 0, m.Len())
	_, ok := m.Match("hola")
	assert.False(t, ok)
}
