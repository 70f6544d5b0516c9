package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type Config struct {
	Port               string
	Env                string
	DatabaseURL        string
	AuthJWTSecret      string
	AuthIssuerURL      string
	GeminiAPIKey       string
	AIEnabled          bool
	AIProvider         string
	AIModel            string
	StorageURL         string
	StoragePublicURL   string
	StorageServiceKey  string
	ReceiptsBucket     string
	AllowedOrigins     []string
	MaxBodySize        int64
	MaxUploadSize      int64
	LedgerHistoryLimit int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	env := getEnv("ENV", "development")
	origins := os.Getenv("ALLOWED_ORIGINS")
	var allowedOrigins []string
	if origins != "" {
		allowedOrigins = splitOrigins(origins)
	} else {
		if env == "production" {
			zap.L().Warn("ALLOWED_ORIGINS not set in production, defaulting to '*'")
		}
		allowedOrigins = []string{"*"}
	}

	return &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                env,
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		AuthJWTSecret:      getEnv("AUTH_JWT_SECRET", ""),
		AuthIssuerURL:      getEnv("AUTH_ISSUER_URL", ""),
		GeminiAPIKey:       getEnv("GEMINI_API_KEY", ""),
		AIEnabled:          getEnvBool("AI_ENABLED", false),
		AIProvider:         getEnv("AI_PROVIDER", "mock"),
		AIModel:            getEnv("AI_MODEL", "gemini-2.0-flash"),
		StorageURL:         getEnv("STORAGE_URL", ""),
		StoragePublicURL:   getEnv("STORAGE_PUBLIC_URL", ""),
		StorageServiceKey:  getEnv("STORAGE_SERVICE_KEY", ""),
		ReceiptsBucket:     getEnv("RECEIPTS_BUCKET", "receipts"),
		AllowedOrigins:     allowedOrigins,
		MaxBodySize:        getEnvInt64("MAX_BODY_SIZE", 1*1024*1024),
		MaxUploadSize:      getEnvInt64("MAX_UPLOAD_SIZE", 10*1024*1024),
		LedgerHistoryLimit: int(getEnvInt64("LEDGER_HISTORY_LIMIT", 5000)),
	}, nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if s := os.Getenv(key); s != "" {
		if v, err := strconv.ParseInt(s, 10, 64); err == nil && v > 0 {
			return v
		}
		zap.L().Warn("Ignoring invalid integer setting", zap.String("key", key), zap.String("value", s))
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if s := os.Getenv(key); s != "" {
		if v, err := strconv.ParseBool(s); err == nil {
			return v
		}
	}
	return defaultValue
}

func splitOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
