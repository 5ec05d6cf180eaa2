package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// SweepDisabled as SWEEP_SCHEDULE turns off the in-process sweeper, leaving
// it to cmd/worker.
const SweepDisabled = "off"

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	StoragePath        string
	PublicImagePath    string
	DurableStoragePath string
	DurableBaseURL     string
	GeminiAPIKey       string
	GeminiModel        string
	GeminiBaseURL      string
	RefinerAPIKey      string
	RefinerModel       string
	RefinerBaseURL     string
	RedisURL           string
	JobTTL             time.Duration
	MaxScenes          int
	SweepSchedule      string
	StaleAfter         time.Duration
	CORSAllowedOrigins []string
	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
	RateLimitPerMin    int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		Port:               getEnv("PORT", "3000"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		StoragePath:        getEnv("STORAGE_PATH", "./generated-images"),
		PublicImagePath:    getEnv("PUBLIC_IMAGE_PATH", "/generated-images"),
		DurableStoragePath: os.Getenv("DURABLE_STORAGE_PATH"),
		DurableBaseURL:     os.Getenv("DURABLE_BASE_URL"),
		GeminiAPIKey:       os.Getenv("GEMINI_API_KEY"),
		GeminiModel:        getEnv("GEMINI_MODEL", "gemini-2.0-flash-exp-image-generation"),
		GeminiBaseURL:      getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		RefinerAPIKey:      os.Getenv("REFINER_API_KEY"),
		RefinerModel:       getEnv("REFINER_MODEL", "google/gemini-2.0-flash-001"),
		RefinerBaseURL:     getEnv("REFINER_BASE_URL", "https://openrouter.ai/api/v1"),
		RedisURL:           os.Getenv("REDIS_URL"),
		JobTTL:             time.Minute * time.Duration(getEnvInt("JOB_TTL_MINUTES", 60)),
		MaxScenes:          getEnvInt("MAX_SCENES", 20),
		SweepSchedule:      getEnv("SWEEP_SCHEDULE", "@every 5m"),
		StaleAfter:         time.Minute * time.Duration(getEnvInt("STALE_AFTER_MINUTES", 30)),
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173")),
		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 300)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:    getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.MaxScenes <= 0 {
		return nil, fmt.Errorf("MAX_SCENES must be positive")
	}

	if (cfg.DurableStoragePath == "") != (cfg.DurableBaseURL == "") {
		return nil, fmt.Errorf("DURABLE_STORAGE_PATH and DURABLE_BASE_URL must be set together")
	}

	cfg.PublicImagePath = "/" + strings.Trim(cfg.PublicImagePath, "/")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
