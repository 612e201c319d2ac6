package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port          string
	MongoURI      string
	DBName        string
	JWTSecret     string
	TokenTTL      time.Duration
	S3Bucket      string
	S3Region      string
	S3AccessKeyID string
	S3SecretKey   string
	MaxUploadMB   int64
	CORSOrigins   []string
	LogLevel      string
	LogFormat     string // "json" or "console"
	AuthRateLimit int    // requests per minute per IP on login/register
}

func Load() (*Config, error) {
	_ = os.Setenv("AWS_REGION", getEnv("AWS_REGION", "us-east-1"))

	maxMB := int64(50)
	if v := getEnv("MAX_UPLOAD_MB", "50"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			maxMB = n
		}
	}
	ttl := 2 * time.Hour
	if v := getEnv("TOKEN_TTL", ""); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			ttl = d
		}
	}
	authRate := 10
	if v := getEnv("AUTH_RATE_LIMIT", ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			authRate = n
		}
	}

	return &Config{
		Port:          getEnv("PORT", "8080"),
		MongoURI:      getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		DBName:        getEnv("MONGODB_DB", "readnest"),
		JWTSecret:     getEnv("JWT_SECRET", "change-me-in-production"),
		TokenTTL:      ttl,
		S3Bucket:      getEnv("AWS_S3_BUCKET", ""),
		S3Region:      getEnv("AWS_REGION", "us-east-1"),
		S3AccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		S3SecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		MaxUploadMB:   maxMB,
		CORSOrigins:   splitList(getEnv("CORS_ORIGINS", "*")),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "json"),
		AuthRateLimit: authRate,
	}, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
