package common

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/income-verifier/constants"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	OCR      OCRConfig
	LLM      LLMConfig
	Analysis AnalysisConfig
	Archive  ArchiveConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr     string
	GRPCAddr     string
	MaxUploadMB  int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// StoreConfig selects and configures the result store.
// Backend is one of "file", "sqlite", "postgres", "redis", "memory".
// DSN is the SQLite file DSN or the Postgres URL.
type StoreConfig struct {
	Backend         string
	Path            string
	DSN             string
	RedisAddr       string
	RedisKey        string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// OCRConfig holds PDF text extraction configuration
type OCRConfig struct {
	Pdftotext     string
	Pdftoppm      string
	Tesseract     string
	TesseractLang string
	TessdataDir   string
	MinTextChars  int
	MaxPages      int
}

// LLMConfig holds LLM-related configuration.
// Provider is one of "ollama", "openai", "gemini".
type LLMConfig struct {
	Provider    string
	Model       string
	BaseURL     string
	APIKey      string
	Temperature float32
	Timeout     time.Duration
}

// AnalysisConfig holds the orchestration preconditions and limits.
type AnalysisConfig struct {
	MinPaySlips        int
	MaxDocuments       int
	DefaultLoanYears   int
	ExtractConcurrency int
}

// ArchiveConfig configures optional archiving of uploaded documents.
type ArchiveConfig struct {
	GCSBucket string
	GCSPrefix string
}

// LoadDotEnv loads variables from the given .env files (default ".env") without
// overriding the ones already set. Missing files are not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return WrapError(err, "load "+f)
		}
	}
	return nil
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPAddr:     getEnv("HTTP_ADDR", ":8080"),
			GRPCAddr:     getEnv("GRPC_ADDR", ":9090"),
			MaxUploadMB:  getEnvAsInt("MAX_UPLOAD_MB", 25),
			ReadTimeout:  getEnvAsDuration("HTTP_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getEnvAsDuration("HTTP_WRITE_TIMEOUT", 5*time.Minute),
		},
		Store: StoreConfig{
			Backend:         strings.ToLower(getEnv("STORE_BACKEND", "file")),
			Path:            getEnv("STORE_PATH", "data/json/db.json"),
			DSN:             getEnv("DB_URL", ""),
			RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
			RedisKey:        getEnv("REDIS_KEY", "income-verifier:records"),
			MaxConns:        getEnvAsInt32("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt32("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
		},
		OCR: OCRConfig{
			Pdftotext:     getEnv("PDFTOTEXT_BIN", "pdftotext"),
			Pdftoppm:      getEnv("PDFTOPPM_BIN", "pdftoppm"),
			Tesseract:     getEnv("TESSERACT_BIN", "tesseract"),
			TesseractLang: getEnv("TESSERACT_LANG", "fra+eng"),
			TessdataDir:   getEnv("TESSDATA_PREFIX", ""),
			MinTextChars:  getEnvAsInt("OCR_MIN_TEXT_CHARS", 40),
			MaxPages:      getEnvAsInt("OCR_MAX_PAGES", 10),
		},
		LLM: LLMConfig{
			Provider:    strings.ToLower(getEnv("LLM_PROVIDER", "ollama")),
			Model:       getEnv("LLM_MODEL", ""),
			BaseURL:     getEnv("LLM_BASE_URL", ""),
			APIKey:      firstEnv("LLM_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY"),
			Temperature: getEnvAsFloat32("LLM_TEMPERATURE", 0.0),
			Timeout:     getEnvAsDuration("LLM_TIMEOUT", 120*time.Second),
		},
		Analysis: AnalysisConfig{
			MinPaySlips:        getEnvAsInt("MIN_PAY_SLIPS", constants.DefaultMinPaySlips),
			MaxDocuments:       getEnvAsInt("MAX_DOCUMENTS", constants.DefaultMaxDocuments),
			DefaultLoanYears:   getEnvAsInt("DEFAULT_LOAN_YEARS", constants.DefaultLoanYears),
			ExtractConcurrency: getEnvAsInt("EXTRACT_CONCURRENCY", 1),
		},
		Archive: ArchiveConfig{
			GCSBucket: getEnv("ARCHIVE_GCS_BUCKET", ""),
			GCSPrefix: getEnv("ARCHIVE_GCS_PREFIX", "documents/"),
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

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
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

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
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

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "file":
		if c.Store.Path == "" {
			return NewAppError("CONFIG_ERROR", "STORE_PATH is required for the file store", ErrInvalidInput)
		}
	case "sqlite", "memory":
	case "postgres":
		if c.Store.DSN == "" {
			return NewAppError("CONFIG_ERROR", "DB_URL is required for the postgres store", ErrInvalidInput)
		}
	case "redis":
		if c.Store.RedisAddr == "" {
			return NewAppError("CONFIG_ERROR", "REDIS_ADDR is required for the redis store", ErrInvalidInput)
		}
	default:
		return NewAppError("CONFIG_ERROR", "unknown STORE_BACKEND "+c.Store.Backend, ErrInvalidInput)
	}

	switch c.LLM.Provider {
	case "ollama":
	case "openai", "gemini":
		if c.LLM.APIKey == "" {
			return NewAppError("CONFIG_ERROR", "LLM_API_KEY is required for provider "+c.LLM.Provider, ErrInvalidInput)
		}
	default:
		return NewAppError("CONFIG_ERROR", "unknown LLM_PROVIDER "+c.LLM.Provider, ErrInvalidInput)
	}

	v := NewValidator().
		Field("MIN_PAY_SLIPS", c.Analysis.MinPaySlips, IntRange(0, 100)).
		Field("MAX_DOCUMENTS", c.Analysis.MaxDocuments, IntRange(1, 100)).
		Field("DEFAULT_LOAN_YEARS", c.Analysis.DefaultLoanYears, LoanYears).
		Field("EXTRACT_CONCURRENCY", c.Analysis.ExtractConcurrency, IntRange(1, 32))
	if v.HasErrors() {
		return NewAppError("CONFIG_ERROR", v.ErrorMessage(), ErrInvalidInput)
	}
	if c.Analysis.MaxDocuments < c.Analysis.MinPaySlips {
		return NewAppError("CONFIG_ERROR", "MAX_DOCUMENTS must be >= MIN_PAY_SLIPS", ErrInvalidInput)
	}
	return nil
}
