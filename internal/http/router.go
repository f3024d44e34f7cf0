// Package httpapi wires the HTTP transport (Gin) to the relay services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, idempotency, and rate limiting.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tbourn/go-chat-relay/internal/cache"
	"github.com/tbourn/go-chat-relay/internal/config"
	"github.com/tbourn/go-chat-relay/internal/domain"
	"github.com/tbourn/go-chat-relay/internal/http/handlers"
	"github.com/tbourn/go-chat-relay/internal/http/middleware"
	"github.com/tbourn/go-chat-relay/internal/llm"
	"github.com/tbourn/go-chat-relay/internal/repo"
	"github.com/tbourn/go-chat-relay/internal/services"
)

// conversationStoreShim adapts the repository free functions to the
// services.Store interface expected by the ConversationService.
type conversationStoreShim struct{}

func (conversationStoreShim) UpsertUser(ctx context.Context, db *gorm.DB, u *domain.User) (*domain.User, error) {
	return repo.UpsertUser(ctx, db, u)
}

func (conversationStoreShim) InsertConversation(ctx context.Context, db *gorm.DB, userID, message string, meta datatypes.JSON) (*domain.Conversation, error) {
	return repo.InsertConversation(ctx, db, userID, message, meta)
}

func (conversationStoreShim) ResolveConversation(ctx context.Context, db *gorm.DB, id uint, r domain.Resolution) error {
	return repo.ResolveConversation(ctx, db, id, r)
}

func (conversationStoreShim) GetConversation(ctx context.Context, db *gorm.DB, id uint) (*domain.Conversation, error) {
	return repo.GetConversation(ctx, db, id)
}

func (conversationStoreShim) ListConversationsByUser(ctx context.Context, db *gorm.DB, userID string, limit int) ([]domain.Conversation, error) {
	return repo.ListConversationsByUser(ctx, db, userID, limit)
}

func (conversationStoreShim) DeleteConversation(ctx context.Context, db *gorm.DB, id uint) (bool, error) {
	return repo.DeleteConversation(ctx, db, id)
}

func (conversationStoreShim) GetIdempotency(ctx context.Context, db *gorm.DB, userID, key string, now time.Time) (*domain.Idempotency, error) {
	return repo.GetIdempotency(ctx, db, userID, key, now)
}

func (conversationStoreShim) CreateIdempotency(ctx context.Context, db *gorm.DB, userID, key string, conversationID uint, status int, ttl time.Duration) (*domain.Idempotency, error) {
	return repo.CreateIdempotency(ctx, db, userID, key, conversationID, status, ttl)
}

// Deps are the long-lived collaborators built at startup.
type Deps struct {
	DB      *gorm.DB
	Matcher services.RuleMatcher
	LLM     llm.Client
	// Cache is optional; leave nil to disable reply caching.
	Cache cache.ReplyCache
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and returns the conversation service it built.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Idempotency validator (before rate limiter to allow bypass on replay)
//  8. Rate limiter (per user/IP, bypass on replay)
//  9. CORS and Security headers
//
// The widget routes are mounted under API_BASE_PATH and again at the root,
// where the embedded widget has always posted.
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) *services.ConversationService {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(1 << 20))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{MaxLen: 200},
		func(ctx context.Context, userID, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, deps.DB, userID, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	allowHeaders := []string{"Origin", "Content-Type", "Accept", middleware.HeaderUserID, middleware.HeaderIdempotencyKey}
	exposeHeaders := []string{"X-Request-ID", "Content-Length", "ETag", middleware.HeaderIdempotencyReplayed}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Widgets are embedded on arbitrary sites; ACAO: * even without an
		// Origin header.
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "HEAD", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	} else {
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "HEAD", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		EnablePolicy: true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	if cfg.FrontendURL != "" {
		r.GET("/", func(c *gin.Context) { c.Redirect(http.StatusFound, cfg.FrontendURL) })
	}
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db/rules/llm/cache
	responder := &services.ResponseService{
		Rules:     deps.Matcher,
		Cache:     deps.Cache,
		LLM:       deps.LLM,
		Timeout:   cfg.LLM.Timeout,
		ChunkSize: cfg.LLM.StreamChunkSize,
		Log:       log.Logger.With().Str("component", "responder").Logger(),
	}
	convSvc := services.NewConversationService(deps.DB, conversationStoreShim{}, responder,
		log.Logger.With().Str("component", "pipeline").Logger())
	convSvc.Validator = services.NewPayloadValidator(cfg.MaxPromptRunes)
	if cfg.FallbackMessage != "" {
		convSvc.FallbackMessage = cfg.FallbackMessage
	}
	if cfg.IdempotencyTTL > 0 {
		convSvc.IdempotencyTTL = cfg.IdempotencyTTL
	}
	h := handlers.New(convSvc)

	api := groupWithPrefix(r, cfg.APIBasePath)
	mount(api, h)
	if api.BasePath() != "/" {
		mount(r.Group(""), h)
	}
	return convSvc
}

func mount(g *gin.RouterGroup, h *handlers.Handlers) {
	g.POST("/receive-data", h.ReceiveData)
	g.POST("/receive-data/", h.ReceiveData)
	g.HEAD("/receive-data", h.ReceiveDataHead)
	g.GET("/health-check", h.HealthCheck)
	g.GET("/users/:user_id/conversations", h.ListConversations)
	g.DELETE("/conversations/:id", h.DeleteConversation)
}

// limitBody caps the request body size for all endpoints to maxBytes using
// http.MaxBytesReader. Requests exceeding the cap will cause downstream body
// reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
