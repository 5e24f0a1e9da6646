package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Row store backends selected with STORE_BACKEND.
const (
	BackendSupabase = "supabase"
	BackendPostgres = "postgres"
	BackendNone     = "none"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Cache (knowledge base TTL)
	CacheTTL time.Duration

	// Observability
	OTLPEndpoint string

	// Completion gateway
	LLMBaseURL         string
	LLMAPIKey          string
	LLMModelInvestment string
	LLMModelDefault    string
	LLMTimeout         time.Duration

	// Price oracle
	PriceAPIURL  string
	PriceTimeout time.Duration

	// Row store
	StoreBackend           string
	SupabaseURL            string
	SupabaseAnonKey        string
	SupabaseServiceRoleKey string
	DatabaseURL            string
	RunMigrations          bool

	// Auth: verifies access tokens issued by the managed backend.
	JWTSecret string

	KnowledgeBasePath  string
	CORSAllowedOrigins []string

	// Lambda only: SSM parameter prefix for secrets.
	ParamPrefix string
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	cfg := &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 50),

		CacheTTL: getEnvDuration("CACHE_TTL", 5*time.Minute),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),

		LLMBaseURL:         getEnv("LLM_BASE_URL", "https://api.hicap.ai/v2/openai"),
		LLMAPIKey:          getEnv("LLM_API_KEY", getEnv("HICAP_API_KEY", "")),
		LLMModelInvestment: getEnv("LLM_MODEL_INVESTMENT", "gemini-2.5-pro"),
		LLMModelDefault:    getEnv("LLM_MODEL_DEFAULT", "gemini-2.5-flash"),
		LLMTimeout:         getEnvDuration("LLM_TIMEOUT", 60*time.Second),

		PriceAPIURL:  getEnv("PRICE_API_URL", "https://api.coingecko.com/api/v3"),
		PriceTimeout: getEnvDuration("PRICE_TIMEOUT", 5*time.Second),

		SupabaseURL:            getEnv("SUPABASE_URL", ""),
		SupabaseAnonKey:        getEnv("SUPABASE_ANON_KEY", ""),
		SupabaseServiceRoleKey: getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),
		DatabaseURL:            getEnv("DATABASE_URL", ""),
		RunMigrations:          getEnvBool("RUN_MIGRATIONS", true),

		JWTSecret: getEnv("SUPABASE_JWT_SECRET", ""),

		KnowledgeBasePath:  getEnv("KNOWLEDGE_BASE_PATH", ""),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),

		ParamPrefix: getEnv("PARAM_PREFIX", ""),
	}
	cfg.StoreBackend = strings.ToLower(getEnv("STORE_BACKEND", cfg.defaultBackend()))
	return cfg
}

// defaultBackend picks the row store from whatever credentials are present.
func (c *Config) defaultBackend() string {
	switch {
	case c.SupabaseURL != "":
		return BackendSupabase
	case c.DatabaseURL != "":
		return BackendPostgres
	default:
		return BackendNone
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
