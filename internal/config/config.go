package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Backend names accepted by STORE_BACKEND.
const (
	BackendMemory   = "memory"
	BackendSupabase = "supabase"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// Persistence
	StoreBackend string

	// Supabase
	SupabaseURL        string
	SupabaseAnonKey    string
	SupabaseServiceKey string

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Cache
	CacheTTL time.Duration

	// Observability
	OTLPEndpoint string

	// JWT / Auth
	JWTSecret string
	JWTIssuer string
	DevAuth   bool // DEV_AUTH=true trusts X-Account-ID instead of a bearer token

	// CORS
	CORSAllowedOrigins []string
}

// LoadDotEnv loads a .env file into the process environment.
// Existing variables win over the file.
func LoadDotEnv(paths ...string) error {
	return godotenv.Load(paths...)
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", 8080)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORE_BACKEND", BackendMemory)
	v.SetDefault("SUPABASE_URL", "")
	v.SetDefault("SUPABASE_ANON_KEY", "")
	v.SetDefault("SUPABASE_SERVICE_ROLE_KEY", "")
	v.SetDefault("HTTP_TIMEOUT", 10*time.Second)
	v.SetDefault("MAX_RETRIES", 3)
	v.SetDefault("INITIAL_BACKOFF", 100*time.Millisecond)
	v.SetDefault("MAX_CONCURRENCY", 50)
	v.SetDefault("CACHE_TTL", 5*time.Minute)
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("JWT_SECRET", "jengatrack-dev-secret-change-me")
	v.SetDefault("JWT_ISSUER", "")
	v.SetDefault("DEV_AUTH", false)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173")

	return &Config{
		Port:     v.GetInt("PORT"),
		LogLevel: strings.ToLower(v.GetString("LOG_LEVEL")),

		StoreBackend: strings.ToLower(v.GetString("STORE_BACKEND")),

		SupabaseURL:        strings.TrimRight(v.GetString("SUPABASE_URL"), "/"),
		SupabaseAnonKey:    v.GetString("SUPABASE_ANON_KEY"),
		SupabaseServiceKey: v.GetString("SUPABASE_SERVICE_ROLE_KEY"),

		HTTPTimeout: v.GetDuration("HTTP_TIMEOUT"),

		MaxRetries:     v.GetInt("MAX_RETRIES"),
		InitialBackoff: v.GetDuration("INITIAL_BACKOFF"),
		MaxConcurrency: v.GetInt("MAX_CONCURRENCY"),

		CacheTTL: v.GetDuration("CACHE_TTL"),

		OTLPEndpoint: v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),

		JWTSecret: v.GetString("JWT_SECRET"),
		JWTIssuer: v.GetString("JWT_ISSUER"),
		DevAuth:   v.GetBool("DEV_AUTH"),

		CORSAllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
