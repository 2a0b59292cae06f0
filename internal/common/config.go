package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database   DatabaseConfig
	Server     ServerConfig
	Extraction ExtractionConfig
	OCR        OCRConfig
	Review     ReviewConfig
	Ingest     IngestConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN              string
	SQLitePath       string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr string
}

// ExtractionConfig holds orchestration knobs for the OCR strategies.
type ExtractionConfig struct {
	MaxRetries    int
	BaseDelay     time.Duration
	CallTimeout   time.Duration
	MaxQuestions  int
	LocalPDFLimit int64
	CacheTTL      time.Duration
}

// OCRConfig holds the analysis backend endpoint and the local fallback tool.
type OCRConfig struct {
	Endpoint      string
	APIKey        string
	PdftotextPath string
}

// ReviewConfig holds confidence thresholds for review routing.
type ReviewConfig struct {
	DefaultThreshold float64
	TypeThresholds   map[string]float64
}

// IngestConfig holds file intake configuration.
type IngestConfig struct {
	WatchDir     string
	MaxFileSize  int64
	PollInterval time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:              getEnv("DB_URL", ""),
			SQLitePath:       getEnv("SQLITE_PATH", "./docintel.db"),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			GRPCAddr: getEnv("GRPC_ADDR", ":8080"),
		},
		Extraction: ExtractionConfig{
			MaxRetries:    getEnvAsInt("OCR_MAX_RETRIES", 3),
			BaseDelay:     getEnvAsDuration("OCR_BASE_DELAY", 500*time.Millisecond),
			CallTimeout:   getEnvAsDuration("OCR_CALL_TIMEOUT", 60*time.Second),
			MaxQuestions:  getEnvAsInt("OCR_MAX_QUESTIONS", 15),
			LocalPDFLimit: getEnvAsInt64("LOCAL_PDF_LIMIT", 2*1024*1024),
			CacheTTL:      getEnvAsDuration("PATTERN_CACHE_TTL", time.Hour),
		},
		OCR: OCRConfig{
			Endpoint:      getEnv("OCR_ENDPOINT", ""),
			APIKey:        getEnv("OCR_API_KEY", ""),
			PdftotextPath: getEnv("PDFTOTEXT_PATH", ""),
		},
		Review: ReviewConfig{
			DefaultThreshold: getEnvAsFloat64("CONFIDENCE_THRESHOLD", 0.70),
			TypeThresholds: map[string]float64{
				"dni":               getEnvAsFloat64("THRESHOLD_DNI", 0.80),
				"pasaporte":         getEnvAsFloat64("THRESHOLD_PASAPORTE", 0.80),
				"contrato":          getEnvAsFloat64("THRESHOLD_CONTRATO", 0.75),
				"extracto_bancario": getEnvAsFloat64("THRESHOLD_EXTRACTO", 0.70),
				"nomina":            getEnvAsFloat64("THRESHOLD_NOMINA", 0.75),
				"factura":           getEnvAsFloat64("THRESHOLD_FACTURA", 0.70),
			},
		},
		Ingest: IngestConfig{
			WatchDir:     getEnv("WATCH_DIR", ""),
			MaxFileSize:  getEnvAsInt64("MAX_FILE_SIZE", 20*1024*1024),
			PollInterval: getEnvAsDuration("WATCH_POLL_INTERVAL", 5*time.Second),
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

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// ValidateConfig validates the loaded configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" && c.Database.SQLitePath == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL or SQLITE_PATH is required", ErrInvalidInput)
	}
	if c.Server.GRPCAddr == "" {
		return NewAppError("CONFIG_ERROR", "GRPC_ADDR is required", ErrInvalidInput)
	}
	if c.Extraction.MaxRetries < 1 {
		return NewAppError("CONFIG_ERROR", "OCR_MAX_RETRIES must be >= 1", ErrInvalidInput)
	}
	if c.Review.DefaultThreshold <= 0 || c.Review.DefaultThreshold > 1 {
		return NewAppError("CONFIG_ERROR", "CONFIDENCE_THRESHOLD must be in (0,1]", ErrInvalidInput)
	}
	return nil
}
