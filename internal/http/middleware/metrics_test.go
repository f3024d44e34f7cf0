package middleware

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_RouteLabelsAndUnmatched(t *testing.T) {
	r := gin.New()
	r.Use(Metrics())
	r.GET("/users/:user_id/conversations", func(c *gin.Context) { c.String(http.StatusOK, "[]") })

	route := httpReqs.WithLabelValues("GET", "/users/:user_id/conversations", "200")
	unmatched := httpReqs.WithLabelValues("GET", "unmatched", "404")
	baseRoute, baseUnmatched := testutil.ToFloat64(route), testutil.ToFloat64(unmatched)

	do(r, http.MethodGet, "/users/a/conversations", nil)
	do(r, http.MethodGet, "/users/b/conversations", nil)
	do(r, http.MethodGet, "/nope", nil)

	if d := testutil.ToFloat64(route) - baseRoute; d != 2 {
		t.Fatalf("route counter delta %v, want 2", d)
	}
	if d := testutil.ToFloat64(unmatched) - baseUnmatched; d != 1 {
		t.Fatalf("unmatched counter delta %v, want 1", d)
	}
	if v := testutil.ToFloat64(httpInflight); v != 0 {
		t.Fatalf("inflight not released: %v", v)
	}
}
