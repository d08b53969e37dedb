package common

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Sources    SourcesConfig
	Database   DatabaseConfig
	Server     ServerConfig
	LLM        LLMConfig
	Extraction ExtractionConfig
	Sheets     SheetsConfig
	Log        LogConfig
}

// SourcesConfig locates the three typed source collections.
type SourcesConfig struct {
	BaseDir       string
	Watch         bool
	WatchDebounce time.Duration
	WatchWorkers  int
}

// FormsDir is the forms collection below BaseDir.
func (s SourcesConfig) FormsDir() string { return filepath.Join(s.BaseDir, "forms") }

// EmailsDir is the emails collection below BaseDir.
func (s SourcesConfig) EmailsDir() string { return filepath.Join(s.BaseDir, "emails") }

// InvoicesDir is the invoices collection below BaseDir.
func (s SourcesConfig) InvoicesDir() string { return filepath.Join(s.BaseDir, "invoices") }

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver           string // sqlite | postgres
	DSN              string
	MaxConns         int
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration // postgres only; zero leaves the server default
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr       string
	GRPCHealthAddr string
	CORSOrigins    []string
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	Enabled             bool
	APIKey              string
	BaseURL             string
	Model               string
	Temperature         float32
	Timeout             time.Duration
	RequestsPerMinute   float64
	ConfidenceThreshold float64
	FallbackToRules     bool
}

// ExtractionConfig holds orchestrator settings.
type ExtractionConfig struct {
	FileTimeout time.Duration
	MaxErrors   int
}

// SheetsConfig locates the spreadsheet sink.
type SheetsConfig struct {
	Path string
}

// LogConfig selects logger level and encoding.
type LogConfig struct {
	Level  string
	Format string // json | console
}

// LoadConfig loads configuration from environment variables.
// A .env file in the working directory is read first; real environment variables win.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		Sources: SourcesConfig{
			BaseDir:       getEnv("BASE_DIR", "dummy_data"),
			Watch:         getEnvAsBool("WATCH", false),
			WatchDebounce: getEnvAsDuration("WATCH_DEBOUNCE", 500*time.Millisecond),
			WatchWorkers:  getEnvAsInt("WATCH_WORKERS", 1),
		},
		Database: DatabaseConfig{
			Driver:           strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
			DSN:              getEnv("DB_URL", "file:intake.db?_pragma=busy_timeout(5000)"),
			MaxConns:         getEnvAsInt("DB_MAX_CONNS", 10),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			HTTPAddr:       getEnv("HTTP_ADDR", ":8000"),
			GRPCHealthAddr: getEnv("GRPC_HEALTH_ADDR", ":8081"),
			CORSOrigins:    splitList(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173")),
		},
		LLM: LLMConfig{
			Enabled:             getEnvAsBool("USE_LLM_EXTRACTION", true),
			APIKey:              getEnv("OPENAI_API_KEY", ""),
			BaseURL:             getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Model:               getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			Temperature:         getEnvAsFloat32("OPENAI_TEMPERATURE", 0.1),
			Timeout:             getEnvAsDuration("OPENAI_TIMEOUT", 30*time.Second),
			RequestsPerMinute:   getEnvAsFloat64("OPENAI_RPM", 50),
			ConfidenceThreshold: getEnvAsFloat64("LLM_CONFIDENCE_THRESHOLD", 0.7),
			FallbackToRules:     getEnvAsBool("LLM_FALLBACK_TO_RULES", true),
		},
		Extraction: ExtractionConfig{
			FileTimeout: getEnvAsDuration("FILE_TIMEOUT", 30*time.Second),
			MaxErrors:   getEnvAsInt("SCAN_MAX_ERRORS", 100),
		},
		Sheets: SheetsConfig{
			Path: getEnv("SHEETS_PATH", filepath.Join("exports", "records.xlsx")),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		// bare integers are seconds
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.LLM.Enabled && (c.LLM.APIKey == "" || strings.HasPrefix(c.LLM.APIKey, "sk-your-")) {
		return NewAppError("CONFIG_ERROR", "OPENAI_API_KEY is required when USE_LLM_EXTRACTION is enabled", ErrInvalidInput)
	}
	if c.LLM.ConfidenceThreshold < 0 || c.LLM.ConfidenceThreshold > 1 {
		return NewAppError("CONFIG_ERROR", "LLM_CONFIDENCE_THRESHOLD must be within [0, 1]", ErrInvalidInput)
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return NewAppError("CONFIG_ERROR", "DB_DRIVER must be sqlite or postgres, got "+c.Database.Driver, ErrInvalidInput)
	}
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.Extraction.FileTimeout <= 0 {
		return NewAppError("CONFIG_ERROR", "FILE_TIMEOUT must be positive", ErrInvalidInput)
	}
	if st, err := os.Stat(c.Sources.BaseDir); err != nil || !st.IsDir() {
		return NewAppError("CONFIG_ERROR", "BASE_DIR does not exist: "+c.Sources.BaseDir, ErrInvalidInput)
	}
	return nil
}
