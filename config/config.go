package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	TradeMe    TradeMeConfig
	OpenAI     OpenAIConfig
	Fetcher    FetcherConfig
	Confirm    ConfirmConfig
	Normalizer NormalizerConfig
	Pipeline   PipelineConfig
	Cache      CacheConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// TradeMeConfig holds listings API configuration
type TradeMeConfig struct {
	Environment    string `mapstructure:"environment"` // "sandbox" or "production"
	ConsumerKey    string `mapstructure:"consumer_key"`
	ConsumerSecret string `mapstructure:"consumer_secret"`
	MetadataCache  string `mapstructure:"metadata_cache"`
}

// BaseURL returns the API base URL for the configured environment
func (c TradeMeConfig) BaseURL() string {
	if c.Environment == "production" {
		return "https://api.trademe.co.nz/v1"
	}
	return "https://api.tmsandbox.co.nz/v1"
}

// OpenAIConfig holds text-generation configuration
type OpenAIConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Temperature float32 `mapstructure:"temperature"`
}

// FetcherConfig holds pagination and detail-fetch configuration
type FetcherConfig struct {
	MaxPages          int  `mapstructure:"max_pages"`
	MaxRecords        int  `mapstructure:"max_records"`
	FetchDetails      bool `mapstructure:"fetch_details"`
	DetailConcurrency int  `mapstructure:"detail_concurrency"`
}

// ConfirmConfig holds the location-confirmation loop configuration
type ConfirmConfig struct {
	MaxAttempts int `mapstructure:"max_attempts"`
}

// NormalizerConfig holds schema-normalization configuration
type NormalizerConfig struct {
	SchemaPath string `mapstructure:"schema_path"`
	RetryLimit int    `mapstructure:"retry_limit"`
	// OnRecordFailure controls what happens to the batch when one record
	// exhausts its attempt budget: "abort" or "skip"
	OnRecordFailure string `mapstructure:"on_record_failure"`
}

// PipelineConfig holds run-output configuration
type PipelineConfig struct {
	OutputDir string `mapstructure:"output_dir"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/propertyrecommender/")

	// Environment variable settings
	v.SetEnvPrefix("PROPREC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using environment variables and defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:*"})

	// Listings API defaults
	v.SetDefault("trademe.environment", "sandbox")
	v.SetDefault("trademe.metadata_cache", "trademe_metadata.json")

	// Generation defaults
	v.SetDefault("openai.model", "gpt-4o")
	v.SetDefault("openai.temperature", 0.7)

	// Fetcher defaults
	v.SetDefault("fetcher.max_pages", 0)
	v.SetDefault("fetcher.max_records", 0)
	v.SetDefault("fetcher.fetch_details", true)
	v.SetDefault("fetcher.detail_concurrency", 1)

	// Confirmation defaults
	v.SetDefault("confirm.max_attempts", 2)

	// Normalizer defaults
	v.SetDefault("normalizer.schema_path", "schemas/property_record.json")
	v.SetDefault("normalizer.retry_limit", 2)
	v.SetDefault("normalizer.on_record_failure", "abort")

	// Pipeline defaults
	v.SetDefault("pipeline.output_dir", "output")

	// Cache defaults
	v.SetDefault("cache.ttl", "1h")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.TradeMe.ConsumerKey == "" || config.TradeMe.ConsumerSecret == "" {
		return fmt.Errorf("listings API credentials are required (set PROPREC_TRADEME_CONSUMER_KEY / PROPREC_TRADEME_CONSUMER_SECRET)")
	}

	if config.TradeMe.Environment != "sandbox" && config.TradeMe.Environment != "production" {
		return fmt.Errorf("trademe environment must be 'sandbox' or 'production', got: %s", config.TradeMe.Environment)
	}

	if config.OpenAI.APIKey == "" {
		return fmt.Errorf("OpenAI API key is required (set PROPREC_OPENAI_API_KEY)")
	}

	if config.Normalizer.OnRecordFailure != "abort" && config.Normalizer.OnRecordFailure != "skip" {
		return fmt.Errorf("normalizer on_record_failure must be 'abort' or 'skip', got: %s", config.Normalizer.OnRecordFailure)
	}

	if config.Normalizer.RetryLimit < 1 {
		return fmt.Errorf("normalizer retry_limit must be at least 1, got: %d", config.Normalizer.RetryLimit)
	}

	if config.Confirm.MaxAttempts < 1 {
		return fmt.Errorf("confirm max_attempts must be at least 1, got: %d", config.Confirm.MaxAttempts)
	}

	return nil
}
