package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"
)

type Config struct {
	ExtractionProvider string
	ExtractionModel    string
	ExtractionRate     float64
	RemoteTimeout      time.Duration

	ListingsBackend string
	DatabaseURL     string
	SQLitePath      string

	AssetBackend           string
	SupabaseURL            string
	SupabaseServiceRoleKey string
	StorageBucket          string
	UploadsDir             string
	PublicBaseURL          string

	DefaultGroupSize int
	DefaultPlatform  string

	SessionTTL time.Duration
}

// Load reads the configuration from the environment
func Load() *Config {
	return &Config{
		ExtractionProvider: getEnv("EXTRACTION_PROVIDER", "gemini"),
		ExtractionModel:    getEnv("EXTRACTION_MODEL", ""),
		ExtractionRate:     getFloat("EXTRACTION_RATE_PER_SEC", 2),
		RemoteTimeout:      getDuration("REMOTE_TIMEOUT", 30*time.Second),

		ListingsBackend: getEnv("LISTINGS_BACKEND", "memory"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		SQLitePath:      getEnv("SQLITE_PATH", "./publisher.db"),

		AssetBackend:           getEnv("ASSET_BACKEND", "local"),
		SupabaseURL:            getEnv("SUPABASE_URL", ""),
		SupabaseServiceRoleKey: getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),
		StorageBucket:          getEnv("STORAGE_BUCKET", "group-covers"),
		UploadsDir:             getEnv("UPLOADS_DIR", "uploads"),
		PublicBaseURL:          getEnv("PUBLIC_BASE_URL", "http://localhost:8888/static/uploads"),

		DefaultGroupSize: getInt("DEFAULT_GROUP_SIZE", 3),
		DefaultPlatform:  getEnv("DEFAULT_PLATFORM", "pinduoduo"),

		SessionTTL: getDuration("SESSION_TTL", time.Hour),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		slog.Warn("Invalid integer in environment, using default", "key", key, "value", raw, "default", fallback)
		return fallback
	}
	return v
}

func getFloat(key string, fallback float64) float64 {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		slog.Warn("Invalid number in environment, using default", "key", key, "value", raw, "default", fallback)
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		slog.Warn("Invalid duration in environment, using default", "key", key, "value", raw, "default", fallback)
		return fallback
	}
	return v
}
