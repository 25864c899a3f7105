// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"bondmarket/pkg/db"
)

// Store drivers understood by the application.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// AppConfig holds all application-wide configurations.
type AppConfig struct {
	ServerPort  string
	APIPrefix   string
	LogLevel    string
	StoreDriver string
	DB          db.Config
	Redis       RedisConfig
	LockTTL     time.Duration
	CORSOrigins []string
	DemandMin   float64
	DemandMax   float64
}

// RedisConfig stores Redis connection parameters. An empty Addr disables
// Redis and the application falls back to in-process locks.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Enabled reports whether a Redis address was configured.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// LoadConfig loads configuration from environment variables, after merging
// a .env file from the working directory when one exists.
func LoadConfig() (*AppConfig, error) {
	_ = godotenv.Load()

	dbPort, err := getInt("DB_PORT", 5432)
	if err != nil {
		return nil, err
	}
	redisDB, err := getInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}
	lockTTL, err := getDuration("LOCK_TTL", 10*time.Second)
	if err != nil {
		return nil, err
	}
	demandMin, err := getFloat("DEMAND_MIN", 0.8)
	if err != nil {
		return nil, err
	}
	demandMax, err := getFloat("DEMAND_MAX", 1.3)
	if err != nil {
		return nil, err
	}
	if demandMax < demandMin {
		return nil, fmt.Errorf("invalid demand range: DEMAND_MAX %.2f < DEMAND_MIN %.2f", demandMax, demandMin)
	}

	driver := strings.ToLower(getString("STORE_DRIVER", StoreDriverPostgres))
	if driver != StoreDriverPostgres && driver != StoreDriverMemory {
		return nil, fmt.Errorf("invalid STORE_DRIVER %q", driver)
	}

	prefix := "/" + strings.Trim(getString("API_PREFIX", "/api"), "/")

	return &AppConfig{
		ServerPort:  getString("SERVER_PORT", "8080"),
		APIPrefix:   prefix,
		LogLevel:    getString("LOG_LEVEL", "info"),
		StoreDriver: driver,
		DB: db.Config{
			URL:        os.Getenv("DATABASE_URL"),
			Host:       getString("DB_HOST", "localhost"),
			Port:       dbPort,
			User:       getString("DB_USER", "user"),
			Password:   getString("DB_PASSWORD", "password"),
			DBName:     getString("DB_NAME", "bondmarket"),
			SSLMode:    getString("DB_SSLMODE", "disable"),
			SearchPath: os.Getenv("DB_SEARCH_PATH"),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		LockTTL:     lockTTL,
		CORSOrigins: splitList(getString("CORS_ALLOWED_ORIGINS", "*")),
		DemandMin:   demandMin,
		DemandMax:   demandMax,
	}, nil
}

func getString(key, fallback string) string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	return value
}

func getInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
