package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Settings is read once at process start and passed to the components that need it.
type Settings struct {
	Port   string
	GoEnv  string
	LogLvl string

	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string

	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	DBConnMaxIdleTime time.Duration
	SkipMigrations    bool

	RedisAddress      string
	ReportCache       bool
	ReportCacheTTL    time.Duration
	ReportSlowMs      int64
	CorsAllowedOrigin []string

	PubSubProjectID       string
	PubSubCredentialsJSON string
	ShopifyEventsTopic    string

	ShopifyShopDomain    string
	ShopifyAdminToken    string
	ShopifyAPIVersion    string
	ShopifyGLMetafield   string
	ShopifyRatePerMinute int64

	ReportExportBucket string

	RateLimitEnabled bool
	RateLimitMax     int64
	RateLimitWindow  time.Duration
}

// LoadSettings loads .env (if present) and reads the environment.
func LoadSettings() *Settings {
	// Load env from .env
	godotenv.Load()

	port := os.Getenv("API_PORT")
	if port == "" {
		// Cloud Run standard env var.
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = "8080"
	}

	return &Settings{
		Port:   port,
		GoEnv:  strings.TrimSpace(os.Getenv("GO_ENV")),
		LogLvl: strings.TrimSpace(os.Getenv("LOG_LEVEL")),

		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     os.Getenv("DB_PORT"),
		DBName:     os.Getenv("DB_NAME"),

		DBMaxOpenConns:    intFromEnv("DB_MAX_OPEN_CONNS", 10),
		DBMaxIdleConns:    intFromEnv("DB_MAX_IDLE_CONNS", 5),
		DBConnMaxLifetime: time.Duration(intFromEnv("DB_CONN_MAX_LIFETIME_SECONDS", 300)) * time.Second,
		DBConnMaxIdleTime: time.Duration(intFromEnv("DB_CONN_MAX_IDLE_TIME_SECONDS", 60)) * time.Second,
		SkipMigrations:    boolFromEnv("SKIP_MIGRATIONS", false),

		RedisAddress:      strings.TrimSpace(os.Getenv("REDIS_ADDRESS")),
		ReportCache:       boolFromEnv("ENABLE_REPORT_CACHE", false),
		ReportCacheTTL:    time.Duration(intFromEnv("REPORT_CACHE_TTL_SECONDS", 120)) * time.Second,
		ReportSlowMs:      int64(intFromEnv("REPORT_SLOW_MS", 500)),
		CorsAllowedOrigin: SplitAndTrim(os.Getenv("CORS_ALLOWED_ORIGINS")),

		PubSubProjectID:       pubSubProjectID(),
		PubSubCredentialsJSON: os.Getenv("PUBSUB_CREDENTIALS_JSON"),
		ShopifyEventsTopic:    strings.TrimSpace(os.Getenv("SHOPIFY_EVENTS_TOPIC")),

		ShopifyShopDomain:    strings.TrimSpace(os.Getenv("SHOPIFY_SHOP_DOMAIN")),
		ShopifyAdminToken:    strings.TrimSpace(os.Getenv("SHOPIFY_ADMIN_TOKEN")),
		ShopifyAPIVersion:    stringFromEnv("SHOPIFY_API_VERSION", "2024-07"),
		ShopifyGLMetafield:   stringFromEnv("SHOPIFY_GL_METAFIELD", "custom.gl_code"),
		ShopifyRatePerMinute: int64(intFromEnv("SHOPIFY_RATE_LIMIT_PER_MIN", 120)),

		ReportExportBucket: strings.TrimSpace(os.Getenv("REPORT_EXPORT_BUCKET")),

		RateLimitEnabled: boolFromEnv("RATE_LIMIT_ENABLED", false),
		RateLimitMax:     int64(intFromEnv("RATE_LIMIT_MAX_REQUESTS", 600)),
		RateLimitWindow:  time.Duration(intFromEnv("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second,
	}
}

func (s *Settings) IsProduction() bool {
	return strings.EqualFold(s.GoEnv, "production")
}

func pubSubProjectID() string {
	// Prefer explicit override.
	if v := os.Getenv("PUBSUB_PROJECT_ID"); v != "" {
		return v
	}
	// Cloud Run/Cloud Functions often set this.
	if v := os.Getenv("GOOGLE_CLOUD_PROJECT"); v != "" {
		return v
	}
	return os.Getenv("GCP_PROJECT")
}

func intFromEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func boolFromEnv(key string, def bool) bool {
	val := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch val {
	case "true", "1", "yes", "y", "on":
		return true
	case "false", "0", "no", "n", "off":
		return false
	default:
		return def
	}
}

func stringFromEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func SplitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
