package common

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/invoice-tracker/constants"
)

// Config holds all application configuration
type Config struct {
	Database   DatabaseConfig
	Server     ServerConfig
	DocumentAI DocumentAIConfig
	LLM        LLMConfig
	Processing ProcessingConfig
	LogLevel   string
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver           string // postgres | sqlite
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr       string
	GRPCAddr       string
	RequestTimeout time.Duration
}

// DocumentAIConfig locates the Document AI processor used for OCR.
type DocumentAIConfig struct {
	ProjectID       string
	Location        string
	ProcessorID     string
	CredentialsFile string
	Endpoint        string
	Timeout         time.Duration
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	Model   string
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// ProcessingConfig bounds what the upload path accepts and how batches run.
type ProcessingConfig struct {
	MaxUploadBytes    int64
	MaxPDFPages       int
	EnhanceImages     bool
	CategoryRulesFile string
	Workers           int
	QueueSize         int
}

// LoadConfig loads configuration from environment variables.
// A .env file in the working directory is applied first when present.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: could not load .env: %v\n", err)
	}

	return &Config{
		Database: DatabaseConfig{
			Driver:           getEnv("DB_DRIVER", "postgres"),
			DSN:              getEnv("DB_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 2),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			HTTPAddr:       getEnv("HTTP_ADDR", ":3000"),
			GRPCAddr:       getEnv("GRPC_ADDR", ":8080"),
			RequestTimeout: getEnvAsDuration("REQUEST_TIMEOUT", 2*time.Minute),
		},
		DocumentAI: DocumentAIConfig{
			ProjectID:       getEnv("GOOGLE_CLOUD_PROJECT_ID", ""),
			Location:        getEnv("GOOGLE_CLOUD_LOCATION", "us"),
			ProcessorID:     getEnv("GOOGLE_CLOUD_PROCESSOR_ID", ""),
			CredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
			Endpoint:        getEnv("DOCUMENTAI_ENDPOINT", ""),
			Timeout:         getEnvAsDuration("DOCUMENTAI_TIMEOUT", 60*time.Second),
		},
		LLM: LLMConfig{
			Model:   getEnv("OPENAI_MODEL", "gpt-4o"),
			APIKey:  getEnv("OPENAI_API_KEY", ""),
			BaseURL: getEnv("OPENAI_BASE_URL", ""),
			Timeout: getEnvAsDuration("OPENAI_TIMEOUT", 45*time.Second),
		},
		Processing: ProcessingConfig{
			MaxUploadBytes:    getEnvAsInt64("MAX_UPLOAD_BYTES", constants.MaxUploadBytesDefault),
			MaxPDFPages:       getEnvAsInt("MAX_PDF_PAGES", constants.MaxPDFPagesDefault),
			EnhanceImages:     getEnvAsBool("ENHANCE_IMAGES", false),
			CategoryRulesFile: getEnv("CATEGORY_RULES_FILE", ""),
			Workers:           getEnvAsInt("WORKERS", 4),
			QueueSize:         getEnvAsInt("QUEUE_SIZE", 256),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// EnrichmentEnabled reports whether the AI enrichment stage is configured.
func (c *Config) EnrichmentEnabled() bool {
	return strings.TrimSpace(c.LLM.APIKey) != ""
}

// ProcessorName renders the fully-qualified Document AI processor resource name.
func (d DocumentAIConfig) ProcessorName() string {
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s", d.ProjectID, d.Location, d.ProcessorID)
}

// GRPCEndpoint is the regional gRPC endpoint unless DOCUMENTAI_ENDPOINT overrides it.
func (d DocumentAIConfig) GRPCEndpoint() string {
	if d.Endpoint != "" {
		return d.Endpoint
	}
	return fmt.Sprintf("%s-documentai.googleapis.com:443", d.Location)
}

// RESTURL is the :process URL for the configured processor, used for diagnostics.
func (d DocumentAIConfig) RESTURL() string {
	return fmt.Sprintf("https://%s-documentai.googleapis.com/v1/%s:process", d.Location, d.ProcessorName())
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
	}
	return defaultValue
}

// Validate checks the settings every binary needs. OCR and database settings
// are checked by the binaries that use them.
func (c *Config) Validate() error {
	if OneOf(supportedDrivers)("DB_DRIVER", c.Database.Driver) != nil {
		return NewAppError("CONFIG_ERROR", "DB_DRIVER must be postgres or sqlite", ErrInvalidInput)
	}
	if c.Processing.MaxUploadBytes <= 0 {
		return NewAppError("CONFIG_ERROR", "MAX_UPLOAD_BYTES must be positive", ErrInvalidInput)
	}
	if c.Processing.Workers <= 0 {
		return NewAppError("CONFIG_ERROR", "WORKERS must be positive", ErrInvalidInput)
	}
	return nil
}

var supportedDrivers = map[string]struct{}{"postgres": {}, "sqlite": {}}

// ValidateDocumentAI checks that the OCR processor is fully addressed.
func (c *Config) ValidateDocumentAI() error {
	err := NewValidator().
		Field("GOOGLE_CLOUD_PROJECT_ID", c.DocumentAI.ProjectID, Required).
		Field("GOOGLE_CLOUD_PROCESSOR_ID", c.DocumentAI.ProcessorID, Required).
		Field("GOOGLE_CLOUD_LOCATION", c.DocumentAI.Location, Required).
		Error()
	if err != nil {
		return NewAppError("CONFIG_ERROR", err.Error(), ErrInvalidInput)
	}
	return nil
}
