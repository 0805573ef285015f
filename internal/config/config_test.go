package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "gemini-2.0-flash", cfg.GeminiModelID)
	assert.Equal(t, 30*time.Second, cfg.ExtractionTimeout)
	assert.Equal(t, 5, cfg.MaxDailyAppointments)
	assert.False(t, cfg.DoctorAutoProvision)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("MAX_DAILY_APPOINTMENTS", "3")
	t.Setenv("DOCTOR_AUTO_PROVISION", "true")
	t.Setenv("EXTRACTION_TIMEOUT", "5s")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 3, cfg.MaxDailyAppointments)
	assert.True(t, cfg.DoctorAutoProvision)
	assert.Equal(t, 5*time.Second, cfg.ExtractionTimeout)
}

func TestValidateMissingRequired(t *testing.T) {
	cfg := &Config{MaxDailyAppointments: 5}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")
}

func TestValidateOK(t *testing.T) {
	cfg := &Config{
		DatabaseURL:          "postgres://localhost/callpilot",
		GeminiAPIKey:         "key",
		MaxDailyAppointments: 5,
	}
	require.NoError(t, cfg.Validate())
}
