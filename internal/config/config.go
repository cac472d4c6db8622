package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/Skufu/dhanvantari/internal/llm"
)

// SourcePostgres as PATIENT_SOURCE reads patients from the database table.
const SourcePostgres = "postgres"

type Config struct {
	Port          string `envconfig:"PORT" default:"8080"`
	GinMode       string `envconfig:"GIN_MODE" default:"release"`
	PatientSource string `envconfig:"PATIENT_SOURCE" default:"hospital_patient_data.csv"`

	GroqAPIKey      string        `envconfig:"GROQ_API_KEY"`
	GroqModel       string        `envconfig:"GROQ_MODEL" default:"llama-3.3-70b-versatile"`
	GroqBaseURL     string        `envconfig:"GROQ_BASE_URL" default:"https://api.groq.com/openai/v1"`
	GroqTemperature float64       `envconfig:"GROQ_TEMPERATURE" default:"0.2"`
	GroqTimeout     time.Duration `envconfig:"GROQ_TIMEOUT" default:"60s"`

	AdviceCacheSize int           `envconfig:"ADVICE_CACHE_SIZE" default:"128"`
	AdviceCacheTTL  time.Duration `envconfig:"ADVICE_CACHE_TTL" default:"30m"`

	EnableDB     bool   `envconfig:"ENABLE_DB" default:"false"`
	DatabaseURL  string `envconfig:"DATABASE_URL"`
	PatientTable string `envconfig:"PATIENT_TABLE" default:"patients"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
}

// Load reads an optional .env file and then the process environment.
// A missing GROQ_API_KEY is not an error here; it is reported per analysis.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.EnableDB && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required when ENABLE_DB=true")
	}
	if c.PatientSource == "" {
		return fmt.Errorf("PATIENT_SOURCE must not be empty")
	}
	if c.PatientSource == SourcePostgres && !c.EnableDB {
		return fmt.Errorf("PATIENT_SOURCE=%s requires ENABLE_DB=true", SourcePostgres)
	}
	if c.AdviceCacheSize < 0 {
		return fmt.Errorf("ADVICE_CACHE_SIZE must not be negative")
	}
	if c.GroqTimeout <= 0 {
		return fmt.Errorf("GROQ_TIMEOUT must be positive")
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.LogFormat)
	}
	return nil
}

// FromDatabase reports whether patients are loaded from Postgres.
func (c *Config) FromDatabase() bool {
	return c.EnableDB && c.PatientSource == SourcePostgres
}

func (c *Config) LLM() llm.Config {
	return llm.Config{
		APIKey:      strings.TrimSpace(c.GroqAPIKey),
		Model:       c.GroqModel,
		BaseURL:     c.GroqBaseURL,
		Temperature: c.GroqTemperature,
		Timeout:     c.GroqTimeout,
	}
}
