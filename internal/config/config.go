package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr string

	DBDriver string
	DBDSN    string

	AuthSecret string

	// AI grading backend (OpenAI-compatible chat completions).
	AIBaseURL string
	AIAPIKey  string
	AIModel   string
	AITimeout time.Duration

	GradeQueueSize int
	GradeWorkers   int

	AttemptSweepEvery time.Duration
	SessionSweepEvery time.Duration

	CORSOrigins []string
}

func FromEnv() Config {
	return Config{
		HTTPAddr: envOr("HTTP_ADDR", ":8080"),

		DBDriver: envOr("DB_DRIVER", "sqlite"),
		DBDSN:    envOr("DB_DSN", ""),

		AuthSecret: envOr("AUTH_HMAC_SECRET", "supersecret-dev-key"),

		AIBaseURL: envOr("AI_BASE_URL", "https://api.openai.com/v1"),
		AIAPIKey:  os.Getenv("AI_API_KEY"),
		AIModel:   envOr("AI_MODEL", "gpt-4o-mini"),
		AITimeout: envDuration("AI_TIMEOUT", 30*time.Second),

		GradeQueueSize: envInt("GRADE_QUEUE_SIZE", 128),
		GradeWorkers:   envInt("GRADE_WORKERS", 2),

		AttemptSweepEvery: envDuration("ATTEMPT_SWEEP_EVERY", 5*time.Minute),
		SessionSweepEvery: envDuration("SESSION_SWEEP_EVERY", time.Minute),

		CORSOrigins: csvOr("CORS_ORIGINS", "http://localhost:3000"),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func envDuration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
