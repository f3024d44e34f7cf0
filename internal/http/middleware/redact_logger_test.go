package middleware

import (
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestRedact(t *testing.T) {
	cases := map[string]string{
		"":                         "",
		"mail ana@example.com now": "mail [REDACTED:email] now",
		"id=123e4567-e89b-12d3-a456-426614174000": "id=[REDACTED:id]",
		"call 212-555-1212": "call [REDACTED:phone]",
		"nothing here":      "nothing here",
	}
	for in, want := range cases {
		if got := Redact(in); got != want {
			t.Fatalf("Redact(%q)=%q want %q", in, got, want)
		}
	}
}

func TestRedactingLogger_ScrubsAndLevels(t *testing.T) {
	buf := withCapturedLogger(t)
	r := gin.New()
	r.Use(RequestID(), RedactingLogger(RedactOptions{MaskHeaders: []string{"X-Secret"}}))
	r.GET("/users/:user_id/conversations", func(c *gin.Context) {
		LoggerFrom(c).Info().Msg("inside")
		c.String(http.StatusOK, "ok")
	})
	r.GET("/bad", func(c *gin.Context) { c.Status(http.StatusBadRequest) })
	r.GET("/err", func(c *gin.Context) { c.Status(http.StatusBadGateway) })

	do(r, http.MethodGet, "/users/u1/conversations?email=a@b.io", map[string]string{
		"Authorization": "Bearer t",
		"X-Secret":      "s",
		HeaderUserID:    "u1",
		"X-Request-ID":  "rid-9",
	})
	line := lastLogLine(t, buf)
	if line["level"] != "info" || line["path"] != "/users/:user_id/conversations" {
		t.Fatalf("unexpected line: %v", line)
	}
	if line["query"] != "email=[REDACTED:email]" || line["user_id"] != "u1" || line["request_id"] != "rid-9" {
		t.Fatalf("unexpected fields: %v", line)
	}
	hdrs, _ := line["headers"].(map[string]any)
	if hdrs["Authorization"] != "[REDACTED]" || hdrs["X-Secret"] != "[REDACTED]" {
		t.Fatalf("headers not masked: %v", hdrs)
	}
	if !strings.Contains(buf.String(), `"message":"inside"`) {
		t.Fatal("request-scoped logger not attached")
	}

	do(r, http.MethodGet, "/bad", nil)
	if lastLogLine(t, buf)["level"] != "warn" {
		t.Fatal("4xx should log at warn")
	}
	do(r, http.MethodGet, "/err", nil)
	if lastLogLine(t, buf)["level"] != "error" {
		t.Fatal("5xx should log at error")
	}
}

func TestRedactingLogger_TruncatesQuery(t *testing.T) {
	buf := withCapturedLogger(t)
	r := gin.New()
	r.Use(RedactingLogger(RedactOptions{MaxQuery: 4}))
	r.GET("/x", func(*gin.Context) {})
	do(r, http.MethodGet, "/x?abcdefgh", nil)
	if q := lastLogLine(t, buf)["query"]; q != "abcd…" {
		t.Fatalf("query not truncated: %v", q)
	}
}
