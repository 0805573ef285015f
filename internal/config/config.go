package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	DatabaseURL string

	GeminiAPIKey      string
	GeminiModelID     string
	ExtractionTimeout time.Duration

	// DoctorAutoProvision switches the ingestion pipeline from a strict
	// doctor lookup to find-or-create when a call mentions an unknown doctor.
	DoctorAutoProvision bool

	// MaxDailyAppointments caps appointments per (doctor, date).
	MaxDailyAppointments int

	RedisAddr     string
	RedisPassword string
	LockTTL       time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:     getEnv("GEMINI_MODEL_ID", "gemini-2.0-flash"),
		ExtractionTimeout: getEnvAsDuration("EXTRACTION_TIMEOUT", 30*time.Second),

		DoctorAutoProvision:  getEnvAsBool("DOCTOR_AUTO_PROVISION", false),
		MaxDailyAppointments: getEnvAsInt("MAX_DAILY_APPOINTMENTS", 5),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		LockTTL:       getEnvAsDuration("SCHEDULING_LOCK_TTL", 10*time.Second),
	}
}

// Validate reports missing required settings. Absence of any of these is a
// fatal startup error, never a per-request one.
func (c *Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.DatabaseURL) == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if strings.TrimSpace(c.GeminiAPIKey) == "" {
		missing = append(missing, "GEMINI_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: missing required environment variables: %s", strings.Join(missing, ", "))
	}
	if c.MaxDailyAppointments <= 0 {
		return errors.New("config: MAX_DAILY_APPOINTMENTS must be positive")
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
