package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime settings, loaded from the environment with an
// optional .env file.
type Config struct {
	Port                      string
	DBPath                    string
	JWTSecret                 string
	AccessTokenExpireMinutes  int
	RefreshTokenExpireMinutes int
	DefaultAliasExpireMinutes int
	SweepInterval             time.Duration
}

func Load() *Config {
	_ = godotenv.Load() // Ignore error if .env not found (e.g. prod)

	return &Config{
		Port:                      getEnv("PORT", "8080"),
		DBPath:                    getEnv("URLALIAS_DB_PATH", "urlalias.db"),
		JWTSecret:                 getEnv("JWT_SECRET", "urlalias-dev-secret-change-in-production"),
		AccessTokenExpireMinutes:  getEnvInt("ACCESS_TOKEN_EXPIRE_MINUTES", 5),
		RefreshTokenExpireMinutes: getEnvInt("REFRESH_TOKEN_EXPIRE_MINUTES", 30),
		DefaultAliasExpireMinutes: getEnvInt("DEFAULT_ALIAS_EXPIRE_MINUTES", 1440),
		SweepInterval:             getEnvDuration("SWEEP_INTERVAL", 24*time.Hour),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}
