package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       App       `mapstructure:"app"`
	AI        AI        `mapstructure:"ai"`
	Database  Database  `mapstructure:"database"`
	Queue     Queue     `mapstructure:"queue"`
	Server    Server    `mapstructure:"server"`
	Extract   Extract   `mapstructure:"extract"`
	Quota     Quota     `mapstructure:"quota"`
	Pipeline  Pipeline  `mapstructure:"pipeline"`
	Templates Templates `mapstructure:"templates"`
}

// App holds general application configuration
type App struct {
	Debug      bool   `mapstructure:"debug"`
	LogLevel   string `mapstructure:"log_level"`
	ConfigFile string `mapstructure:"config_file"`
}

// AI holds AI/LLM configuration
type AI struct {
	Gemini GeminiConfig `mapstructure:"gemini"`
	Retry  RetryConfig  `mapstructure:"retry"`
}

// GeminiConfig holds Google Gemini configuration
type GeminiConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxTokens   int32         `mapstructure:"max_tokens"`
	Temperature float32       `mapstructure:"temperature"`
	TopP        float32       `mapstructure:"top_p"`
	TopK        float32       `mapstructure:"top_k"`
}

// RetryConfig controls retries of transient provider errors
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	Jitter      float64       `mapstructure:"jitter"`
}

// Database holds Job Store configuration
type Database struct {
	Driver           string `mapstructure:"driver"` // postgres or sqlite3
	ConnectionString string `mapstructure:"connection_string"`
	MaxOpenConns     int    `mapstructure:"max_open_conns"`
}

// Queue holds job queue configuration
type Queue struct {
	Driver   string         `mapstructure:"driver"` // memory or rabbitmq
	Workers  int            `mapstructure:"workers"`
	Buffer   int            `mapstructure:"buffer"`
	RabbitMQ RabbitMQConfig `mapstructure:"rabbitmq"`
}

// RabbitMQConfig holds RabbitMQ connection settings
type RabbitMQConfig struct {
	URL        string `mapstructure:"url"`
	Exchange   string `mapstructure:"exchange"`
	QueueName  string `mapstructure:"queue_name"`
	RoutingKey string `mapstructure:"routing_key"`
	Prefetch   int    `mapstructure:"prefetch"`
}

// Server holds HTTP server configuration
type Server struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORS            CORSConfig    `mapstructure:"cors"`
}

// CORSConfig holds CORS settings
type CORSConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Extract holds Text Extractor configuration
type Extract struct {
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxBytes       int64         `mapstructure:"max_bytes"`
	StagingDir     string        `mapstructure:"staging_dir"`
	MaxPromptChars int           `mapstructure:"max_prompt_chars"`
	// AllowPrivateNetworks lets the fetcher reach loopback and private hosts.
	AllowPrivateNetworks bool `mapstructure:"allow_private_networks"`
}

// Quota holds per-account usage limits
type Quota struct {
	FreeGenerationLimit int `mapstructure:"free_generation_limit"`
}

// Pipeline holds background task configuration
type Pipeline struct {
	RunTimeout        time.Duration `mapstructure:"run_timeout"`
	ErrorHistoryLimit int           `mapstructure:"error_history_limit"`
	StaleAfter        time.Duration `mapstructure:"stale_after"`
}

// Templates holds newspaper template catalog configuration
type Templates struct {
	File string `mapstructure:"file"`
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
			fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
		}
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".papertimes")
		viper.SetConfigType("yaml")
	}

	setDefaults()
	bindEnvironmentVariables()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	config.App.ConfigFile = viper.ConfigFileUsed()

	postProcessConfig(config)

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
	viper.SetDefault("app.log_level", "info")

	viper.SetDefault("ai.gemini.model", "gemini-flash-lite-latest")
	viper.SetDefault("ai.gemini.timeout", "60s")
	viper.SetDefault("ai.gemini.max_tokens", 8192)
	viper.SetDefault("ai.gemini.temperature", 0.7)
	viper.SetDefault("ai.gemini.top_p", 0.95)
	viper.SetDefault("ai.gemini.top_k", 40)
	viper.SetDefault("ai.retry.max_attempts", 3)
	viper.SetDefault("ai.retry.base_delay", "1s")
	viper.SetDefault("ai.retry.jitter", 0)

	viper.SetDefault("database.driver", "postgres")
	viper.SetDefault("database.max_open_conns", 25)

	viper.SetDefault("queue.driver", "memory")
	viper.SetDefault("queue.workers", 4)
	viper.SetDefault("queue.buffer", 256)
	viper.SetDefault("queue.rabbitmq.exchange", "papertimes")
	viper.SetDefault("queue.rabbitmq.queue_name", "papertimes.jobs")
	viper.SetDefault("queue.rabbitmq.routing_key", "jobs")
	viper.SetDefault("queue.rabbitmq.prefetch", 1)

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "90s")
	viper.SetDefault("server.shutdown_timeout", "30s")
	viper.SetDefault("server.cors.enabled", false)

	viper.SetDefault("extract.timeout", "30s")
	viper.SetDefault("extract.max_bytes", 50<<20)
	viper.SetDefault("extract.staging_dir", "")
	viper.SetDefault("extract.max_prompt_chars", 30000)
	viper.SetDefault("extract.allow_private_networks", false)

	viper.SetDefault("quota.free_generation_limit", 3)

	viper.SetDefault("pipeline.run_timeout", "5m")
	viper.SetDefault("pipeline.error_history_limit", 20)
	viper.SetDefault("pipeline.stale_after", "30m")
}

// bindEnvironmentVariables maps conventional environment variable names onto config keys
func bindEnvironmentVariables() {
	bindEnvKeys("ai.gemini.api_key", []string{"GEMINI_API_KEY", "GOOGLE_GEMINI_API_KEY", "GOOGLE_AI_API_KEY"})
	bindEnvKeys("database.connection_string", []string{"DATABASE_URL"})
	bindEnvKeys("queue.rabbitmq.url", []string{"RABBITMQ_URL", "AMQP_URL"})
	bindEnvKeys("app.log_level", []string{"LOG_LEVEL"})
}

func bindEnvKeys(viperKey string, envKeys []string) {
	args := append([]string{viperKey}, envKeys...)
	_ = viper.BindEnv(args...)
}

// postProcessConfig normalizes values that viper leaves raw
func postProcessConfig(config *Config) {
	config.Extract.StagingDir = expandPath(config.Extract.StagingDir)
	config.Templates.File = expandPath(config.Templates.File)
	config.Database.Driver = strings.ToLower(strings.TrimSpace(config.Database.Driver))
	config.Queue.Driver = strings.ToLower(strings.TrimSpace(config.Queue.Driver))
}

// expandPath expands ~ and environment variables in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return os.ExpandEnv(path)
}

// validateConfig ensures settings are coherent. Credentials are checked by the commands that need them.
func validateConfig(config *Config) error {
	var errors []string

	switch config.Database.Driver {
	case "postgres", "sqlite3":
	default:
		errors = append(errors, fmt.Sprintf("Unknown database driver: %s. Supported: postgres, sqlite3", config.Database.Driver))
	}

	switch config.Queue.Driver {
	case "memory":
	case "rabbitmq":
		if config.Queue.RabbitMQ.URL == "" {
			errors = append(errors, "RabbitMQ queue requires a URL. Set RABBITMQ_URL or queue.rabbitmq.url")
		}
	default:
		errors = append(errors, fmt.Sprintf("Unknown queue driver: %s. Supported: memory, rabbitmq", config.Queue.Driver))
	}

	if config.Queue.Workers < 1 {
		errors = append(errors, "queue.workers must be at least 1")
	}
	if config.AI.Retry.MaxAttempts < 1 {
		errors = append(errors, "ai.retry.max_attempts must be at least 1")
	}
	if config.AI.Retry.BaseDelay <= 0 {
		errors = append(errors, "ai.retry.base_delay must be positive")
	}
	if config.AI.Retry.Jitter < 0 || config.AI.Retry.Jitter >= 1 {
		errors = append(errors, "ai.retry.jitter must be in [0, 1)")
	}
	if config.Quota.FreeGenerationLimit < 0 {
		errors = append(errors, "quota.free_generation_limit cannot be negative")
	}
	if config.Pipeline.ErrorHistoryLimit < 1 {
		errors = append(errors, "pipeline.error_history_limit must be at least 1")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// GeminiConfigured reports whether an API key is present and not a placeholder
func (c *Config) GeminiConfigured() bool {
	return isValidAPIKey(c.AI.Gemini.APIKey)
}

// isValidAPIKey checks if an API key is valid (not empty and not a placeholder)
func isValidAPIKey(apiKey string) bool {
	if apiKey == "" {
		return false
	}

	placeholders := []string{
		"your-api-key", "your-gemini-key", "YOUR_API_KEY", "PLACEHOLDER", "TODO", "CHANGE_ME",
	}
	for _, placeholder := range placeholders {
		if apiKey == placeholder {
			return false
		}
	}

	return true
}

// Reset clears the global configuration (useful for testing)
func Reset() {
	globalConfig = nil
	viper.Reset()
}
