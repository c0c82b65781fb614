package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: every environment variable is read here and nowhere else
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Storage backend: postgres (default) or memory (demo / local runs)
	Storage string

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Forecast pipeline
	Forecast ForecastConfig

	// Interpretation service (LLM)
	Interpreter InterpreterConfig

	// Housekeeping jobs
	Scheduler SchedulerConfig

	// Auth
	JWTSecret string

	// Logging
	LogLevel  string
	LogFormat string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// ForecastConfig holds the external model execution settings
type ForecastConfig struct {
	PythonBin        string
	ScriptsDir       string
	ClassicScript    string
	ProScript        string
	RegressionScript string
	RegenScript      string // optional; empty means in-process regeneration

	WorkDir       string // parent of per-request workspaces
	CacheDir      string // best-effort side cache of classic payloads
	KeepArtifacts bool

	RegenTimeout time.Duration
	ModelTimeout time.Duration
	CacheTTL     time.Duration

	PipelineFile string // optional YAML overrides
}

// InterpreterConfig holds the LLM backend settings
type InterpreterConfig struct {
	Provider      string // openai, gemini
	OpenAIKey     string
	OpenAIBaseURL string
	OpenAIModel   string
	GeminiKey     string
	GeminiModel   string
	Temperature   float64
	Timeout       time.Duration
	RatePerMinute int
}

// SchedulerConfig holds the housekeeping job settings (6-field cron specs)
type SchedulerConfig struct {
	SweepSchedule    string
	WorkspaceMaxAge  time.Duration
	SnapshotSchedule string
	SnapshotPath     string // optional file copy of the dataset snapshot
	JobTimeout       time.Duration
	MaxRetries       int
}

// Load reads configuration from environment variables
// ⭐ SSOT: the only function calling os.Getenv()
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port:    getEnv("PORT", "4000"),
		Env:     getEnv("ENV", "development"),
		Storage: strings.ToLower(getEnv("STORAGE", "postgres")),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Forecast: ForecastConfig{
			PythonBin:        getEnv("PYTHON_BIN", "python3"),
			ScriptsDir:       getEnv("FORECAST_SCRIPTS_DIR", "scripts"),
			ClassicScript:    getEnv("FORECAST_CLASSIC_SCRIPT", "pronostico.py"),
			ProScript:        getEnv("FORECAST_PRO_SCRIPT", "procesarCsvConModelos.py"),
			RegressionScript: getEnv("FORECAST_REGRESSION_SCRIPT", "pronostico_pro.py"),
			RegenScript:      getEnv("FORECAST_REGEN_SCRIPT", ""),
			WorkDir:          getEnv("FORECAST_WORK_DIR", filepath.Join(os.TempDir(), "crm-forecast")),
			CacheDir:         getEnv("FORECAST_CACHE_DIR", "cache"),
			KeepArtifacts:    getEnvAsBool("FORECAST_KEEP_ARTIFACTS", false),
			RegenTimeout:     getEnvAsDuration("FORECAST_REGEN_TIMEOUT", "60s"),
			ModelTimeout:     getEnvAsDuration("FORECAST_MODEL_TIMEOUT", "3m"),
			CacheTTL:         getEnvAsDuration("FORECAST_CACHE_TTL", "1h"),
			PipelineFile:     getEnv("FORECAST_PIPELINE_FILE", ""),
		},

		Interpreter: InterpreterConfig{
			Provider:      strings.ToLower(getEnv("INTERPRETER_PROVIDER", "openai")),
			OpenAIKey:     getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-3.5-turbo"),
			GeminiKey:     getEnv("GEMINI_API_KEY", ""),
			GeminiModel:   getEnv("GEMINI_MODEL", "gemini-1.5-pro"),
			Temperature:   getEnvAsFloat("INTERPRETER_TEMPERATURE", 0.4),
			Timeout:       getEnvAsDuration("INTERPRETER_TIMEOUT", "45s"),
			RatePerMinute: getEnvAsInt("INTERPRETER_RATE_PER_MIN", 30),
		},

		Scheduler: SchedulerConfig{
			SweepSchedule:    getEnv("SCHEDULER_SWEEP_CRON", "0 */30 * * * *"),
			WorkspaceMaxAge:  getEnvAsDuration("SCHEDULER_WORKSPACE_MAX_AGE", "6h"),
			SnapshotSchedule: getEnv("SCHEDULER_SNAPSHOT_CRON", "0 0 2 * * *"),
			SnapshotPath:     getEnv("SCHEDULER_SNAPSHOT_PATH", ""),
			JobTimeout:       getEnvAsDuration("SCHEDULER_JOB_TIMEOUT", "5m"),
			MaxRetries:       getEnvAsInt("SCHEDULER_MAX_RETRIES", 2),
		},

		JWTSecret: getEnv("JWT_SECRET", ""),

		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	switch c.Storage {
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORAGE=postgres")
		}
	case "memory":
	default:
		return fmt.Errorf("STORAGE must be one of: postgres, memory")
	}

	if c.Interpreter.Provider != "openai" && c.Interpreter.Provider != "gemini" {
		return fmt.Errorf("INTERPRETER_PROVIDER must be one of: openai, gemini")
	}

	if c.Forecast.ModelTimeout <= 0 || c.Forecast.RegenTimeout <= 0 || c.Interpreter.Timeout <= 0 {
		return fmt.Errorf("forecast and interpreter timeouts must be positive")
	}

	return nil
}

// ScriptPath resolves a forecast script name against the scripts directory
func (f ForecastConfig) ScriptPath(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(f.ScriptsDir, name)
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
		"variables.env",
		"backend/.env",
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
