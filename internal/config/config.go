// Package config loads application configuration from file, environment and
// defaults via viper.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App        App        `mapstructure:"app"`
	Server     Server     `mapstructure:"server"`
	Database   Database   `mapstructure:"database"`
	AI         AI         `mapstructure:"ai"`
	Enrichment Enrichment `mapstructure:"enrichment"`
	Digest     Digest     `mapstructure:"digest"`
	Email      Email      `mapstructure:"email"`
	Logging    Logging    `mapstructure:"logging"`
}

// App holds general application configuration
type App struct {
	Debug   bool   `mapstructure:"debug"`
	DataDir string `mapstructure:"data_dir"`
}

// Server holds HTTP server configuration
type Server struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	JWTSecret    string        `mapstructure:"jwt_secret"`
	CORS         CORS          `mapstructure:"cors"`
}

// CORS holds CORS middleware configuration
type CORS struct {
	Enabled        bool     `mapstructure:"enabled"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Database holds Postgres and local-cache configuration. When URL is empty
// the service runs against the SQLite cache in DataDir only.
type Database struct {
	URL             string        `mapstructure:"url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// AI holds LLM provider configuration
type AI struct {
	Provider   string           `mapstructure:"provider"` // "gemini" or "perplexity"
	Gemini     GeminiConfig     `mapstructure:"gemini"`
	Perplexity PerplexityConfig `mapstructure:"perplexity"`
}

// GeminiConfig holds Google Gemini configuration
type GeminiConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxTokens   int32         `mapstructure:"max_tokens"`
	Temperature float32       `mapstructure:"temperature"`
}

// PerplexityConfig holds Perplexity (OpenAI-compatible) configuration
type PerplexityConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Enrichment holds paper-metadata service configuration
type Enrichment struct {
	BaseURL   string        `mapstructure:"base_url"`
	APIKey    string        `mapstructure:"api_key"`
	Timeout   time.Duration `mapstructure:"timeout"`
	MaxPapers int           `mapstructure:"max_papers"`
	UserAgent string        `mapstructure:"user_agent"`
}

// Digest holds digest pipeline configuration
type Digest struct {
	CandidateWindowDays int `mapstructure:"candidate_window_days"`
	CandidateRowCap     int `mapstructure:"candidate_row_cap"`
	RecentQueryCount    int `mapstructure:"recent_query_count"`
}

// Email holds digest email configuration (Resend)
type Email struct {
	ResendAPIKey string `mapstructure:"resend_api_key"`
	BaseURL      string `mapstructure:"base_url"`
	FromAddress  string `mapstructure:"from_address"`
	FromName     string `mapstructure:"from_name"`
	Subject      string `mapstructure:"subject"`
}

// Logging holds logging configuration
type Logging struct {
	Level string `mapstructure:"level"`
}

var globalConfig *Config

// Load loads the configuration from various sources
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Printf("Warning: Error loading .env file: %v\n", err)
		}
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".paperfeed")
		viper.SetConfigType("yaml")
	}

	setDefaults()
	bindEnvironmentVariables()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	globalConfig = config
	return config, nil
}

// Get returns the global configuration, loading it if necessary
func Get() *Config {
	if globalConfig == nil {
		config, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("Failed to load configuration: %v", err))
		}
		return config
	}
	return globalConfig
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("app.debug", false)
	viper.SetDefault("app.data_dir", ".paperfeed-cache")

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "120s")
	viper.SetDefault("server.cors.enabled", false)
	viper.SetDefault("server.cors.allowed_origins", []string{"*"})

	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", "5m")

	viper.SetDefault("ai.provider", "gemini")
	viper.SetDefault("ai.gemini.model", "gemini-2.5-flash")
	viper.SetDefault("ai.gemini.timeout", "45s")
	viper.SetDefault("ai.gemini.max_tokens", 8192)
	viper.SetDefault("ai.gemini.temperature", 0.4)
	viper.SetDefault("ai.perplexity.model", "sonar")
	viper.SetDefault("ai.perplexity.base_url", "https://api.perplexity.ai")
	viper.SetDefault("ai.perplexity.timeout", "45s")

	viper.SetDefault("enrichment.base_url", "https://api.semanticscholar.org")
	viper.SetDefault("enrichment.timeout", "20s")
	viper.SetDefault("enrichment.max_papers", 12)
	viper.SetDefault("enrichment.user_agent", "paperfeed/1.0")

	viper.SetDefault("digest.candidate_window_days", 7)
	viper.SetDefault("digest.candidate_row_cap", 60)
	viper.SetDefault("digest.recent_query_count", 10)

	viper.SetDefault("email.base_url", "https://api.resend.com")
	viper.SetDefault("email.from_name", "Paperfeed")
	viper.SetDefault("email.subject", "Your weekly research digest")

	viper.SetDefault("logging.level", "info")
}

// bindEnvironmentVariables sets up flexible environment variable binding
func bindEnvironmentVariables() {
	bindEnvKeys("ai.gemini.api_key", []string{
		"GEMINI_API_KEY",
		"GOOGLE_GEMINI_API_KEY",
		"GOOGLE_AI_API_KEY",
	})

	bindEnvKeys("ai.perplexity.api_key", []string{
		"PERPLEXITY_API_KEY",
		"PPLX_API_KEY",
	})

	bindEnvKeys("enrichment.api_key", []string{
		"SEMANTIC_SCHOLAR_API_KEY",
		"S2_API_KEY",
	})

	bindEnvKeys("email.resend_api_key", []string{
		"RESEND_API_KEY",
	})

	bindEnvKeys("database.url", []string{
		"DATABASE_URL",
		"SUPABASE_DB_URL",
		"POSTGRES_URL",
	})

	bindEnvKeys("server.jwt_secret", []string{
		"JWT_SECRET",
		"SUPABASE_JWT_SECRET",
	})

	bindEnvKeys("app.debug", []string{
		"DEBUG",
		"PAPERFEED_DEBUG",
	})
}

// bindEnvKeys binds the first found environment variable to a viper key
func bindEnvKeys(viperKey string, envKeys []string) {
	for _, envKey := range envKeys {
		if value := os.Getenv(envKey); value != "" {
			viper.Set(viperKey, value)
			return
		}
	}
}

// validateConfig ensures required configuration is present
func validateConfig(config *Config) error {
	var errors []string

	switch config.AI.Provider {
	case "gemini":
		if config.AI.Gemini.APIKey == "" {
			errors = append(errors, "Gemini API key is required. Set GEMINI_API_KEY or ai.gemini.api_key in the config file")
		}
	case "perplexity":
		if config.AI.Perplexity.APIKey == "" {
			errors = append(errors, "Perplexity API key is required. Set PERPLEXITY_API_KEY or ai.perplexity.api_key in the config file")
		}
	default:
		errors = append(errors, fmt.Sprintf("Unknown AI provider: %s. Supported: gemini, perplexity", config.AI.Provider))
	}

	if config.Enrichment.MaxPapers < 1 {
		errors = append(errors, "enrichment.max_papers must be at least 1")
	}
	if config.Digest.CandidateWindowDays < 1 {
		errors = append(errors, "digest.candidate_window_days must be at least 1")
	}

	// Email is optional, but a partial setup is almost certainly a mistake.
	if config.Email.ResendAPIKey != "" && config.Email.FromAddress == "" {
		errors = append(errors, "email.from_address is required when a Resend API key is configured")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// Convenience getters for commonly used configuration values
func GetServer() Server         { return Get().Server }
func GetDatabase() Database     { return Get().Database }
func GetAI() AI                 { return Get().AI }
func GetEnrichment() Enrichment { return Get().Enrichment }
func GetDigest() Digest         { return Get().Digest }
func GetEmail() Email           { return Get().Email }
func IsDebugMode() bool         { return Get().App.Debug }

// Reset clears the global configuration (useful for testing)
func Reset() {
	globalConfig = nil
	viper.Reset()
}
