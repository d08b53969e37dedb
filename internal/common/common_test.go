package common

import (
	"net/http"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Env(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("BASE_DIR", dir)
	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("FILE_TIMEOUT", "45")
	t.Setenv("WATCH_DEBOUNCE", "250ms")
	t.Setenv("DB_STATEMENT_TIMEOUT", "2s")
	t.Setenv("USE_LLM_EXTRACTION", "false")
	t.Setenv("LLM_CONFIDENCE_THRESHOLD", "0.8")
	t.Setenv("CORS_ORIGINS", " http://a.test , ,http://b.test")

	cfg := LoadConfig()
	assert.Equal(t, dir, cfg.Sources.BaseDir)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 45*time.Second, cfg.Extraction.FileTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.Sources.WatchDebounce)
	assert.Equal(t, 2*time.Second, cfg.Database.StatementTimeout)
	assert.False(t, cfg.LLM.Enabled)
	assert.Equal(t, 0.8, cfg.LLM.ConfidenceThreshold)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
}

func TestConfig_Validate(t *testing.T) {
	valid := func(t *testing.T) *Config {
		return &Config{
			Sources:    SourcesConfig{BaseDir: t.TempDir()},
			Database:   DatabaseConfig{Driver: "sqlite", DSN: "file::memory:"},
			LLM:        LLMConfig{Enabled: true, APIKey: "sk-test", ConfidenceThreshold: 0.7},
			Extraction: ExtractionConfig{FileTimeout: time.Second},
		}
	}
	require.NoError(t, valid(t).Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing api key", func(c *Config) { c.LLM.APIKey = "" }},
		{"placeholder api key", func(c *Config) { c.LLM.APIKey = "sk-your-key-here" }},
		{"threshold above one", func(c *Config) { c.LLM.ConfidenceThreshold = 1.2 }},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"empty dsn", func(c *Config) { c.Database.DSN = "" }},
		{"zero timeout", func(c *Config) { c.Extraction.FileTimeout = 0 }},
		{"missing base dir", func(c *Config) { c.Sources.BaseDir = "/does/not/exist" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid(t)
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)

			var appErr *AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, "CONFIG_ERROR", appErr.Code)
			assert.True(t, errors.Is(err, ErrInvalidInput))
		})
	}

	t.Run("llm disabled needs no key", func(t *testing.T) {
		cfg := valid(t)
		cfg.LLM.Enabled = false
		cfg.LLM.APIKey = ""
		assert.NoError(t, cfg.Validate())
	})
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusOK, HTTPStatus(nil))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(errors.Wrap(NotFoundf("record %s", "x"), "get")))
	assert.Equal(t, http.StatusConflict, HTTPStatus(Conflictf("record %s exists", "x")))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(InvalidInputf("bad")))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(errors.Mark(errors.New("v"), ErrValidation)))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("boom")))
}

func TestValidator(t *testing.T) {
	email := "not-an-email"
	v := NewValidator().
		Field("client_name", "", Required).
		Field("email", &email, Email).
		Field("date", "2024-02-30", ISODate).
		Field("amount", -1.0, NonNegative).
		Field("confidence", 0.5, UnitInterval).
		Field("priority", "HIGH", OneOf("low", "medium", "high"))

	require.True(t, v.HasErrors())
	fields := make([]string, 0, len(v.Errors()))
	for _, e := range v.Errors() {
		fields = append(fields, e.Field)
	}
	assert.Equal(t, []string{"client_name", "email", "date", "amount"}, fields)

	err := v.Error()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Contains(t, err.Error(), "must be a valid email address")

	assert.NoError(t, NewValidator().Field("name", "ok", Required, MaxLength(2)).Error())
	assert.Error(t, NewValidator().Field("name", "αβγ", MaxLength(2)).Error())
}
