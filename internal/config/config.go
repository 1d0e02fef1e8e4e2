package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config centralizes runtime settings for the API and the dispatcher.
type Config struct {
	Port     string
	AppEnv   string
	LogLevel string
	AppURL   string

	AuthToken  string
	CronSecret string

	DatabaseURL string

	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	RedisEventsStream string
	RedisEventsMaxLen int
	RedisLockKey      string

	GenerationProvider  string
	GenerationTimeoutMS int

	AnthropicAPIKey  string
	AnthropicBaseURL string

	OpenRouterAPIKey  string
	OpenRouterBaseURL string
	OpenRouterSiteURL string
	OpenRouterAppName string

	ModelArticlePrimary   string
	ModelArticleFallback  string
	ModelRewritePrimary   string
	ModelRewriteFallback  string
	ModelKeywordsPrimary  string
	ModelKeywordsFallback string

	PromptsDir string

	CacheTTLSeconds int
	CacheMaxEntries int

	DispatchBatchSize       int
	DispatchIntervalSeconds int
	DispatchLeaseSeconds    int
	StaleAfterSeconds       int

	DailyJobQuota int
	QuotaTimezone string

	RateLimitRPS   float64
	RateLimitBurst int

	CORSAllowedOrigins []string
}

func Load() Config {
	return Config{
		Port:     getEnv("PORT", "8080"),
		AppEnv:   getEnv("APP_ENV", "production"),
		LogLevel: getEnv("LOG_LEVEL", ""),
		AppURL:   getEnv("APP_URL", "http://localhost:3000"),

		AuthToken:  getEnv("API_AUTH_TOKEN", ""),
		CronSecret: getEnv("CRON_SECRET", ""),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisDB:           getEnvInt("REDIS_DB", 0),
		RedisEventsStream: getEnv("REDIS_EVENTS_STREAM", "blog_dispatch_events"),
		RedisEventsMaxLen: getEnvInt("REDIS_EVENTS_MAXLEN", 10000),
		RedisLockKey:      getEnv("REDIS_LOCK_KEY", "blog:dispatch:lease"),

		GenerationProvider:  strings.ToLower(getEnv("GENERATION_PROVIDER", "anthropic")),
		GenerationTimeoutMS: getEnvInt("GENERATION_TIMEOUT_MS", 90000),

		AnthropicAPIKey:  getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicBaseURL: getEnv("ANTHROPIC_BASE_URL", "https://api.anthropic.com/v1"),

		OpenRouterAPIKey:  getEnv("OPENROUTER_API_KEY", ""),
		OpenRouterBaseURL: getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		OpenRouterSiteURL: getEnv("OPENROUTER_SITE_URL", ""),
		OpenRouterAppName: getEnv("OPENROUTER_APP_NAME", "Blog Generator"),

		ModelArticlePrimary:   getEnv("MODEL_ARTICLE_PRIMARY", ""),
		ModelArticleFallback:  getEnv("MODEL_ARTICLE_FALLBACK", ""),
		ModelRewritePrimary:   getEnv("MODEL_REWRITE_PRIMARY", ""),
		ModelRewriteFallback:  getEnv("MODEL_REWRITE_FALLBACK", ""),
		ModelKeywordsPrimary:  getEnv("MODEL_KEYWORDS_PRIMARY", ""),
		ModelKeywordsFallback: getEnv("MODEL_KEYWORDS_FALLBACK", ""),

		PromptsDir: getEnv("PROMPTS_DIR", ""),

		CacheTTLSeconds: getEnvInt("CACHE_TTL_SECONDS", 900),
		CacheMaxEntries: getEnvInt("CACHE_MAX_ENTRIES", 2000),

		DispatchBatchSize:       getEnvInt("DISPATCH_BATCH_SIZE", 3),
		DispatchIntervalSeconds: getEnvInt("DISPATCH_INTERVAL_SECONDS", 0),
		DispatchLeaseSeconds:    getEnvInt("DISPATCH_LEASE_SECONDS", 300),
		StaleAfterSeconds:       getEnvInt("STALE_AFTER_SECONDS", 600),

		DailyJobQuota: getEnvInt("DAILY_JOB_QUOTA", 5),
		QuotaTimezone: getEnv("QUOTA_TIMEZONE", ""),

		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 20),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 40),

		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
	}
}

// QuotaLocation resolves QUOTA_TIMEZONE, falling back to the server zone.
func (c Config) QuotaLocation() *time.Location {
	if c.QuotaTimezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.QuotaTimezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func (c Config) Development() bool {
	return c.AppEnv == "development"
}

func seconds(value int) time.Duration {
	return time.Duration(value) * time.Second
}

func (c Config) DispatchInterval() time.Duration { return seconds(c.DispatchIntervalSeconds) }
func (c Config) DispatchLease() time.Duration    { return seconds(c.DispatchLeaseSeconds) }
func (c Config) StaleAfter() time.Duration       { return seconds(c.StaleAfterSeconds) }
func (c Config) CacheTTL() time.Duration         { return seconds(c.CacheTTLSeconds) }

func (c Config) GenerationTimeout() time.Duration {
	return time.Duration(c.GenerationTimeoutMS) * time.Millisecond
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return fallback
	}
	return result
}
