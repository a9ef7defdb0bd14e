// Package config loads askdb settings from a JSON file, the environment and CLI flags.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/askdb/internal/schemas"
	docs "github.com/jonathan/askdb/schemas"
)

// Config holds every askdb setting. All fields are optional in the file;
// missing values come from the environment, then from Defaults.
type Config struct {
	// Generation service
	LLMProvider     string  `json:"llm_provider,omitempty" validate:"omitempty,oneof=gemini anthropic groq"`
	GeminiAPIKey    string  `json:"gemini_api_key,omitempty"`
	AnthropicAPIKey string  `json:"anthropic_api_key,omitempty"`
	GroqAPIKey      string  `json:"groq_api_key,omitempty"`
	GroqBaseURL     string  `json:"groq_base_url,omitempty" validate:"omitempty,url"`
	LLMModel        string  `json:"llm_model,omitempty"`
	Temperature     float64 `json:"temperature,omitempty" validate:"gte=0,lte=2"`

	// Relational engine
	DBDriver    string `json:"db_driver,omitempty" validate:"omitempty,oneof=postgres pgx sqlite clickhouse"`
	DatabaseURL string `json:"database_url,omitempty"`
	DBServer    string `json:"db_server,omitempty"`
	DBName      string `json:"db_name,omitempty"`
	SQLDialect  string `json:"sql_dialect,omitempty" validate:"omitempty,oneof=tsql postgres sqlite clickhouse"`

	// Reference corpora and similarity index
	ExamplesCSV        string `json:"examples_csv,omitempty"`
	SchemaCSV          string `json:"schema_csv,omitempty"`
	IndexBackend       string `json:"index_backend,omitempty" validate:"omitempty,oneof=sqlite qdrant"`
	IndexPath          string `json:"index_path,omitempty"`
	QdrantHost         string `json:"qdrant_host,omitempty"`
	QdrantPort         int    `json:"qdrant_port,omitempty" validate:"gte=0,lte=65535"`
	EmbeddingProvider  string `json:"embedding_provider,omitempty" validate:"omitempty,oneof=gemini ollama"`
	EmbeddingModel     string `json:"embedding_model,omitempty"`
	OllamaURL          string `json:"ollama_url,omitempty" validate:"omitempty,url"`
	EmbeddingCacheSize int    `json:"embedding_cache_size,omitempty" validate:"gte=0"`

	// HTTP server
	ServerPort         int    `json:"server_port,omitempty" validate:"gte=0,lte=65535"`
	JWTSecret          string `json:"jwt_secret,omitempty"`
	JWTExpirationHours int    `json:"jwt_expiration_hours,omitempty" validate:"gte=0"`

	// Behavior
	SummaryHint string `json:"summary_hint,omitempty"`
	Verbose     bool   `json:"verbose,omitempty"`
}

// Default values
const (
	DefaultLLMProvider        = "gemini"
	DefaultDBDriver           = "postgres"
	DefaultExamplesCSV        = "data/examples.csv"
	DefaultSchemaCSV          = "data/schema.csv"
	DefaultIndexBackend       = "sqlite"
	DefaultIndexPath          = "askdb_index.db"
	DefaultQdrantHost         = "localhost"
	DefaultQdrantPort         = 6334
	DefaultEmbeddingProvider  = "gemini"
	DefaultEmbeddingCacheSize = 1024
	DefaultServerPort         = 8080
	DefaultJWTExpirationHours = 24
)

// Defaults returns the built-in configuration
func Defaults() Config {
	return Config{
		LLMProvider:        DefaultLLMProvider,
		DBDriver:           DefaultDBDriver,
		ExamplesCSV:        DefaultExamplesCSV,
		SchemaCSV:          DefaultSchemaCSV,
		IndexBackend:       DefaultIndexBackend,
		IndexPath:          DefaultIndexPath,
		QdrantHost:         DefaultQdrantHost,
		QdrantPort:         DefaultQdrantPort,
		EmbeddingProvider:  DefaultEmbeddingProvider,
		EmbeddingCacheSize: DefaultEmbeddingCacheSize,
		ServerPort:         DefaultServerPort,
		JWTExpirationHours: DefaultJWTExpirationHours,
	}
}

// ValidationError reports an invalid setting
type ValidationError struct {
	Field   string
	Message string
	Cause   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "config error: " + e.Message
	}
	return fmt.Sprintf("config error: '%s' %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// LoadConfig loads configuration from a JSON file. The file is checked against
// the config JSON Schema before it is decoded.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if !json.Valid(data) {
		return nil, fmt.Errorf("failed to parse config JSON: %s is not valid JSON", path)
	}
	if err := schemas.Validate(docs.Config, data); err != nil {
		return nil, &ValidationError{Message: "config file does not match schema", Cause: err}
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// FromEnv reads the configuration from environment variables through getenv.
// Unparseable numbers and booleans are left at their zero value.
func FromEnv(getenv func(string) string) Config {
	atoi := func(key string) int {
		n, _ := strconv.Atoi(strings.TrimSpace(getenv(key)))
		return n
	}
	temperature, _ := strconv.ParseFloat(strings.TrimSpace(getenv("LLM_TEMPERATURE")), 64)
	verbose, _ := strconv.ParseBool(strings.TrimSpace(getenv("VERBOSE")))

	return Config{
		LLMProvider:        getenv("LLM_PROVIDER"),
		GeminiAPIKey:       getenv("GEMINI_API_KEY"),
		AnthropicAPIKey:    getenv("ANTHROPIC_API_KEY"),
		GroqAPIKey:         getenv("GROQ_API_KEY"),
		GroqBaseURL:        getenv("GROQ_BASE_URL"),
		LLMModel:           getenv("LLM_MODEL"),
		Temperature:        temperature,
		DBDriver:           getenv("DB_DRIVER"),
		DatabaseURL:        getenv("DATABASE_URL"),
		DBServer:           getenv("DB_SERVER"),
		DBName:             getenv("DB_NAME"),
		SQLDialect:         getenv("SQL_DIALECT"),
		ExamplesCSV:        getenv("EXAMPLES_CSV"),
		SchemaCSV:          getenv("SCHEMA_CSV"),
		IndexBackend:       getenv("INDEX_BACKEND"),
		IndexPath:          getenv("INDEX_PATH"),
		QdrantHost:         getenv("QDRANT_HOST"),
		QdrantPort:         atoi("QDRANT_PORT"),
		EmbeddingProvider:  getenv("EMBEDDING_PROVIDER"),
		EmbeddingModel:     getenv("EMBEDDING_MODEL"),
		OllamaURL:          getenv("OLLAMA_URL"),
		EmbeddingCacheSize: atoi("EMBEDDING_CACHE_SIZE"),
		ServerPort:         atoi("SERVER_PORT"),
		JWTSecret:          getenv("JWT_SECRET"),
		JWTExpirationHours: atoi("JWT_EXPIRATION_HOURS"),
		SummaryHint:        getenv("SUMMARY_HINT"),
		Verbose:            verbose,
	}
}

// Resolve layers the sources: flags win over env, env over file, file over Defaults.
// file may be nil.
func Resolve(flags, env Config, file *Config) Config {
	merged := flags.MergeWithDefaults(env)
	if file != nil {
		merged = merged.MergeWithDefaults(*file)
	}
	return merged.MergeWithDefaults(Defaults())
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// Verbose is set when either side sets it.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	str := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	num := func(dst *int, def int) {
		if *dst == 0 {
			*dst = def
		}
	}

	str(&result.LLMProvider, defaults.LLMProvider)
	str(&result.GeminiAPIKey, defaults.GeminiAPIKey)
	str(&result.AnthropicAPIKey, defaults.AnthropicAPIKey)
	str(&result.GroqAPIKey, defaults.GroqAPIKey)
	str(&result.GroqBaseURL, defaults.GroqBaseURL)
	str(&result.LLMModel, defaults.LLMModel)
	str(&result.DBDriver, defaults.DBDriver)
	str(&result.DatabaseURL, defaults.DatabaseURL)
	str(&result.DBServer, defaults.DBServer)
	str(&result.DBName, defaults.DBName)
	str(&result.SQLDialect, defaults.SQLDialect)
	str(&result.ExamplesCSV, defaults.ExamplesCSV)
	str(&result.SchemaCSV, defaults.SchemaCSV)
	str(&result.IndexBackend, defaults.IndexBackend)
	str(&result.IndexPath, defaults.IndexPath)
	str(&result.QdrantHost, defaults.QdrantHost)
	str(&result.EmbeddingProvider, defaults.EmbeddingProvider)
	str(&result.EmbeddingModel, defaults.EmbeddingModel)
	str(&result.OllamaURL, defaults.OllamaURL)
	str(&result.JWTSecret, defaults.JWTSecret)
	str(&result.SummaryHint, defaults.SummaryHint)

	num(&result.QdrantPort, defaults.QdrantPort)
	num(&result.EmbeddingCacheSize, defaults.EmbeddingCacheSize)
	num(&result.ServerPort, defaults.ServerPort)
	num(&result.JWTExpirationHours, defaults.JWTExpirationHours)

	if result.Temperature == 0 {
		result.Temperature = defaults.Temperature
	}
	result.Verbose = result.Verbose || defaults.Verbose

	return result
}

// Validate checks field values and the settings the selected providers need
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return &ValidationError{
				Field:   fe.Field(),
				Message: fmt.Sprintf("failed the '%s' check (value %v)", fe.Tag(), fe.Value()),
				Cause:   err,
			}
		}
		return &ValidationError{Message: err.Error(), Cause: err}
	}

	if c.LLMAPIKey() == "" {
		return &ValidationError{Field: "api key", Message: fmt.Sprintf("is required for LLM provider %q", c.LLMProvider)}
	}
	if c.EmbeddingProvider == "gemini" && c.GeminiAPIKey == "" {
		return &ValidationError{Field: "gemini_api_key", Message: "is required for gemini embeddings"}
	}
	if c.IndexBackend == "qdrant" && c.QdrantHost == "" {
		return &ValidationError{Field: "qdrant_host", Message: "is required for the qdrant index backend"}
	}
	return nil
}

// ValidateDatabase reports whether a database connection can be formed
func (c *Config) ValidateDatabase() error {
	if c.DSN() == "" {
		return &ValidationError{Field: "database_url", Message: "is required (or db_server and db_name)"}
	}
	return nil
}

// LLMAPIKey returns the API key of the selected generation provider
func (c *Config) LLMAPIKey() string {
	switch c.LLMProvider {
	case "anthropic":
		return c.AnthropicAPIKey
	case "groq":
		return c.GroqAPIKey
	default:
		return c.GeminiAPIKey
	}
}

// DSN returns DatabaseURL, or a DSN built from DBServer and DBName
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	if c.DBName == "" {
		return ""
	}
	switch c.DBDriver {
	case "sqlite":
		return c.DBName
	case "clickhouse":
		if c.DBServer == "" {
			return ""
		}
		return fmt.Sprintf("clickhouse://%s/%s", c.DBServer, c.DBName)
	default:
		if c.DBServer == "" {
			return ""
		}
		return fmt.Sprintf("postgres://%s/%s", c.DBServer, c.DBName)
	}
}
