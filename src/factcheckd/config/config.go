package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ava-verify/ava/src/data"
)

// Config is the full runtime configuration. DSNs and API keys come
// from the environment; tunables come from the settings table with
// env fallback so operators can adjust them without a redeploy.
type Config struct {
	Token    string
	RedisURL string

	// Admission
	CooldownSeconds float64
	BucketCapacity  float64
	RefillRate      float64
	DailyGuildLimit int
	QueueMaxSize    int
	WorkerPoolSize  int

	// Pipeline
	StageTimeout     time.Duration
	StageRetries     int
	SynthesisRetries int
	MaxEvidence      int

	// Providers
	AIProvider   string
	AIModel      string
	OpenAIKey    string
	AnthropicKey string
	GeminiKey    string

	// Search
	SearchBackends []string
	TavilyKey      string
	BraveKey       string
	SearchTimeout  time.Duration

	// Surfaces
	ContextWindow int
	CacheTTL      time.Duration
	HTTPAddr      string
	JWTSecret     string
}

// Load reads settings from the database (with env fallbacks) and the
// environment. Call after data.ConnectMySQL + data.Migrate.
func Load(db *gorm.DB) Config {
	if err := data.LoadSettings(db); err != nil {
		// A fresh database has no rows yet; env fallbacks still apply.
		zap.S().Warnw("settings load", "err", err)
	}

	return Config{
		Token:    setting("discord_token", "DISCORD_TOKEN", ""),
		RedisURL: getenv("REDIS_URL", "redis://127.0.0.1:6379/0"),

		CooldownSeconds: settingFloat("cooldown_seconds", "COOLDOWN_SECONDS", 10),
		BucketCapacity:  settingFloat("bucket_capacity", "BUCKET_CAPACITY", 3),
		RefillRate:      settingFloat("bucket_refill_rate", "BUCKET_REFILL_RATE", 0.2),
		DailyGuildLimit: settingInt("daily_guild_limit", "DAILY_GUILD_LIMIT", 100),
		QueueMaxSize:    settingInt("queue_max_size", "QUEUE_MAX_SIZE", 25),
		WorkerPoolSize:  settingInt("worker_pool_size", "WORKER_POOL_SIZE", 2),

		StageTimeout:     settingDuration("stage_timeout", "STAGE_TIMEOUT", 45*time.Second),
		StageRetries:     settingInt("stage_retries", "STAGE_RETRIES", 1),
		SynthesisRetries: settingInt("synthesis_retries", "SYNTHESIS_RETRIES", 1),
		MaxEvidence:      settingInt("max_evidence", "MAX_EVIDENCE", 5),

		AIProvider:   setting("ai_provider", "AI_PROVIDER", "openai"),
		AIModel:      setting("ai_model", "AI_MODEL", ""),
		OpenAIKey:    os.Getenv("OPENAI_API_KEY"),
		AnthropicKey: os.Getenv("ANTHROPIC_API_KEY"),
		GeminiKey:    os.Getenv("GEMINI_API_KEY"),

		SearchBackends: splitList(setting("search_backends", "SEARCH_BACKENDS", "tavily")),
		TavilyKey:      os.Getenv("TAVILY_API_KEY"),
		BraveKey:       os.Getenv("BRAVE_API_KEY"),
		SearchTimeout:  settingDuration("search_timeout", "SEARCH_TIMEOUT", 15*time.Second),

		ContextWindow: settingInt("context_window", "CONTEXT_WINDOW", 10),
		CacheTTL:      settingDuration("cache_ttl", "CACHE_TTL", time.Hour),
		HTTPAddr:      getenv("HTTP_ADDR", ":8090"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
	}
}

func setting(name, envKey, def string) string {
	val := data.GetSetting(name)
	if val == "" {
		val = os.Getenv(envKey)
	}
	if val == "" {
		val = def
	}
	return val
}

func settingInt(name, envKey string, def int) int {
	if v, err := strconv.Atoi(setting(name, envKey, "")); err == nil {
		return v
	}
	return def
}

func settingFloat(name, envKey string, def float64) float64 {
	if v, err := strconv.ParseFloat(setting(name, envKey, ""), 64); err == nil {
		return v
	}
	return def
}

func settingDuration(name, envKey string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(setting(name, envKey, "")); err == nil {
		return v
	}
	return def
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

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
