package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	ServerPort     int
	DatabasePath   string
	UploadDir      string // Base path for uploaded avatar/portfolio images
	JWTSecret      string
	TokenTTL       time.Duration
	AllowedOrigins []string
	Environment    string // APP_ENV: production, development, etc.
}

// Load loads configuration from environment variables or sets defaults.
func Load() (*Config, error) {
	portStr := getEnv("PORT", "8080")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, err
	}

	ttl, err := time.ParseDuration(getEnv("TOKEN_TTL", "168h")) // 7 days
	if err != nil {
		return nil, err
	}

	return &Config{
		ServerPort:     port,
		DatabasePath:   getEnv("DATABASE_PATH", "./tasklane.db"),
		UploadDir:      getEnv("UPLOAD_DIR", "./uploads"),
		JWTSecret:      getEnv("JWT_SECRET", "change-me-in-production"),
		TokenTTL:       ttl,
		AllowedOrigins: parseOrigins(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		Environment:    getEnv("APP_ENV", "development"),
	}, nil
}

// IsDevelopment reports whether the app runs in development mode.
// Error responses carry internal detail only in this mode.
func (c *Config) IsDevelopment() bool {
	return strings.ToLower(strings.TrimSpace(c.Environment)) != "production"
}

func parseOrigins(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
