// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server, database,
// business-rule, LLM provider, cache, and observability settings.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-chat-relay")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// DBConfig selects the relational store.
type DBConfig struct {
	Driver string // sqlite|mysql|postgres
	Path   string // SQLite file path
	DSN    string // mysql/postgres connection string
}

// RulesConfig controls where business rules come from and how loosely they match.
type RulesConfig struct {
	Source      string  // json|sql
	Path        string  // JSON rules file
	Table       string  // SQL rules table
	Threshold   float64 // similarity ratio acceptance in [0,1]
	MaxDistance int     // Levenshtein acceptance
}

// LLMConfig configures the upstream model provider.
type LLMConfig struct {
	Provider         string // openai|deepseek|anthropic
	APIKey           string
	BaseURL          string
	Model            string
	Timeout          time.Duration
	MaxTokens        int
	SystemPrompt     string
	SystemPromptPath string
	StreamChunkSize  int
}

// CacheConfig configures the optional Redis reply cache. An empty Addr
// disables caching.
type CacheConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // must outlive LLM_TIMEOUT
	IdleTimeout       time.Duration // e.g. 60s
	ShutdownTimeout   time.Duration
	MaxHeaderBytes    int    // bytes
	GinMode           string // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes
	FrontendURL    string // GET / redirect target

	DB    DBConfig
	Rules RulesConfig
	LLM   LLMConfig
	Cache CacheConfig

	// Pipeline
	MaxPromptRunes       int
	FallbackMessage      string
	PendingSweepSchedule string        // cron spec; empty disables the sweeper
	PendingMaxAge        time.Duration // pending conversations older than this are failed

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 45*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout:   getdur("SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),
		FrontendURL:    strings.TrimSpace(getenv("FRONTEND_URL", "")),

		DB: DBConfig{
			Driver: strings.ToLower(getenv("DB_DRIVER", "sqlite")),
			Path:   getenv("DB_PATH", "app.db"),
			DSN:    getenv("DB_DSN", ""),
		},
		Rules: RulesConfig{
			Source:      strings.ToLower(getenv("RULE_SOURCE", "json")),
			Path:        getenv("RULES_PATH", "config/rules.json"),
			Table:       getenv("RULES_TABLE", "business_rules"),
			Threshold:   getfloat("RULE_THRESHOLD", 0.7),
			MaxDistance: getint("RULE_MAX_DISTANCE", 2),
		},
		LLM: LLMConfig{
			Provider:         strings.ToLower(getenv("LLM_PROVIDER", "deepseek")),
			APIKey:           strings.TrimSpace(getenv("LLM_API_KEY", "")),
			BaseURL:          getenv("LLM_BASE_URL", ""),
			Model:            getenv("LLM_MODEL", ""),
			Timeout:          getdur("LLM_TIMEOUT", 30*time.Second),
			MaxTokens:        getint("LLM_MAX_TOKENS", 1024),
			SystemPrompt:     getenv("LLM_SYSTEM_PROMPT", "You are a helpful assistant"),
			SystemPromptPath: getenv("LLM_SYSTEM_PROMPT_PATH", ""),
			StreamChunkSize:  getint("STREAM_CHUNK_SIZE", 30),
		},
		Cache: CacheConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password: getenv("REDIS_PASSWORD", ""),
			DB:       getint("REDIS_DB", 0),
			TTL:      getdur("REPLY_CACHE_TTL", time.Hour),
		},

		// Pipeline
		MaxPromptRunes:       getint("MAX_PROMPT_RUNES", 255),
		FallbackMessage:      getenv("FALLBACK_MESSAGE", "Unable to process the request right now."),
		PendingSweepSchedule: strings.TrimSpace(getenvAllowEmpty("PENDING_SWEEP_SCHEDULE", "@every 5m")),
		PendingMaxAge:        getdur("PENDING_MAX_AGE", 10*time.Minute),

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Idempotency
		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-chat-relay"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	if cfg.Rules.Source == "mysql" {
		cfg.Rules.Source = "sql"
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (cfg Config) validate() error {
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return errors.New("MAX_HEADER_BYTES must be > 0")
	}

	switch cfg.DB.Driver {
	case "sqlite":
		if strings.TrimSpace(cfg.DB.Path) == "" {
			return errors.New("DB_PATH must not be empty")
		}
	case "mysql", "postgres":
		if strings.TrimSpace(cfg.DB.DSN) == "" {
			return errors.New("DB_DSN is required for DB_DRIVER " + cfg.DB.Driver)
		}
	default:
		return errors.New("DB_DRIVER must be one of: sqlite, mysql, postgres")
	}

	switch cfg.Rules.Source {
	case "json":
		if strings.TrimSpace(cfg.Rules.Path) == "" {
			return errors.New("RULES_PATH must not be empty")
		}
	case "sql":
		if strings.TrimSpace(cfg.Rules.Table) == "" {
			return errors.New("RULES_TABLE must not be empty")
		}
	default:
		return errors.New("RULE_SOURCE must be one of: json, sql")
	}
	if cfg.Rules.Threshold < 0 || cfg.Rules.Threshold > 1 {
		return errors.New("RULE_THRESHOLD must be between 0 and 1")
	}
	if cfg.Rules.MaxDistance < 0 {
		return errors.New("RULE_MAX_DISTANCE must be >= 0")
	}

	switch cfg.LLM.Provider {
	case "openai", "deepseek", "anthropic":
	default:
		return errors.New("LLM_PROVIDER must be one of: openai, deepseek, anthropic")
	}
	if cfg.LLM.APIKey == "" {
		return errors.New("LLM_API_KEY must not be empty")
	}
	if cfg.LLM.Timeout <= 0 {
		return errors.New("LLM_TIMEOUT must be > 0")
	}
	if cfg.LLM.MaxTokens <= 0 {
		return errors.New("LLM_MAX_TOKENS must be > 0")
	}
	if cfg.LLM.StreamChunkSize <= 0 {
		return errors.New("STREAM_CHUNK_SIZE must be > 0")
	}

	if cfg.Cache.Addr != "" && cfg.Cache.TTL <= 0 {
		return errors.New("REPLY_CACHE_TTL must be > 0 when REDIS_ADDR is set")
	}
	if cfg.MaxPromptRunes <= 0 {
		return errors.New("MAX_PROMPT_RUNES must be > 0")
	}
	if strings.TrimSpace(cfg.FallbackMessage) == "" {
		return errors.New("FALLBACK_MESSAGE must not be empty")
	}
	if cfg.PendingMaxAge <= 0 {
		return errors.New("PENDING_MAX_AGE must be > 0")
	}
	if cfg.RateRPS < 0 {
		return errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}
	return nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

// getenvAllowEmpty is getenv for keys where an explicitly empty value
// means "disabled" rather than "use the default".
func getenvAllowEmpty(k, def string) string {
	if v, ok := os.LookupEnv(k); ok {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
