package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultJWTSecret is the development fallback; production must override it.
const DefaultJWTSecret = "your-super-secret-key-change-in-production"

type Config struct {
	// Server
	ServerPort     string
	ServerHost     string
	AllowedOrigins []string

	// Database
	DatabaseURL      string
	DatabaseType     string // "postgres" or "sqlite"
	DatabaseLogLevel string // "silent", "error", "warn", "info"
	SeedDemoData     bool

	// Logging
	LogLevel  string
	LogFormat string // "console" or "json"

	// JWT
	JWTSecret     string
	JWTExpiration int // hours

	// OAuth
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	// Storage
	StorageDriver string // "local" or "s3"
	UploadDir     string
	S3Bucket      string
	S3Region      string
	S3PublicURL   string // base URL objects are served from
	MaxImageSize  int64

	// Email
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	FromEmail    string

	// App
	AppURL  string
	AppName string
}

// Load reads the process environment, after merging in a .env file when one exists.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		// Server
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),

		// Database
		DatabaseURL:      getEnv("DATABASE_URL", "projectstack.db"),
		DatabaseType:     getEnv("DATABASE_TYPE", "sqlite"),
		DatabaseLogLevel: getEnv("DATABASE_LOG_LEVEL", "warn"),
		SeedDemoData:     getEnvBool("SEED_DEMO_DATA", false),

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),

		// JWT
		JWTSecret:     getEnv("JWT_SECRET", DefaultJWTSecret),
		JWTExpiration: getEnvInt("JWT_EXPIRATION", 72),

		// OAuth
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", "http://localhost:8080/api/auth/google/callback"),

		// Storage
		StorageDriver: getEnv("STORAGE_DRIVER", "local"),
		UploadDir:     getEnv("UPLOAD_DIR", "./uploads"),
		S3Bucket:      getEnv("S3_BUCKET", ""),
		S3Region:      getEnv("S3_REGION", "us-east-1"),
		S3PublicURL:   getEnv("S3_PUBLIC_URL", ""),
		MaxImageSize:  getEnvInt64("MAX_IMAGE_SIZE", 5*1024*1024),

		// Email
		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		FromEmail:    getEnv("FROM_EMAIL", "noreply@projectstack.dev"),

		// App
		AppURL:  getEnv("APP_URL", "http://localhost:8080"),
		AppName: getEnv("APP_NAME", "ProjectStack"),
	}
}

// ValidateRelease rejects settings that are only acceptable during development.
func (c *Config) ValidateRelease() error {
	if c.JWTSecret == "" || c.JWTSecret == DefaultJWTSecret {
		return errors.New("JWT_SECRET must be set to a private value in release mode")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated variable, dropping empty entries.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
