package config

import (
	"os"
	"time"
)

// Server captures process-level configuration so main stays lean.
type Server struct {
	Addr          string
	DatabaseURL   string
	Redis         RedisConfig
	JWTSigningKey string
	TokenTTL      time.Duration

	// Bootstrap admin created on first start if no admin account exists.
	AdminEmail    string
	AdminPassword string

	// ForecastCacheTTL bounds how long a demand-forecast snapshot is reused
	// before the model is asked again.
	ForecastCacheTTL time.Duration
}

// RedisConfig holds connection settings for the optional Redis cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	addr := os.Getenv("BLOODLINK_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	adminEmail := os.Getenv("BLOODLINK_ADMIN_EMAIL")
	if adminEmail == "" {
		adminEmail = "admin@bloodlink.local"
	}
	adminPassword := os.Getenv("BLOODLINK_ADMIN_PASSWORD")
	if adminPassword == "" {
		adminPassword = "admin123"
	}

	return Server{
		Addr:          addr,
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		JWTSigningKey: jwtSigningKey,
		TokenTTL:      12 * time.Hour,
		AdminEmail:    adminEmail,
		AdminPassword: adminPassword,
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		ForecastCacheTTL: 15 * time.Minute,
	}
}
