package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Clean     CleanConfig     `yaml:"clean" mapstructure:"clean"`
	Run       RunConfig       `yaml:"run" mapstructure:"run"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Review    ReviewConfig    `yaml:"review" mapstructure:"review"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the mapping cache backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int    `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int    `yaml:"min_conns" mapstructure:"min_conns"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key            string  `yaml:"key" mapstructure:"key"`
	Model          string  `yaml:"model" mapstructure:"model"`
	MaxTokens      int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	NameChunkSize  int     `yaml:"name_chunk_size" mapstructure:"name_chunk_size"`
	CityChunkSize  int     `yaml:"city_chunk_size" mapstructure:"city_chunk_size"`
	BatchThreshold int     `yaml:"batch_threshold" mapstructure:"batch_threshold"`
	Concurrency    int     `yaml:"concurrency" mapstructure:"concurrency"`
	RequestsPerSec float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
}

// CleanConfig configures the pre-oracle name cleanup.
type CleanConfig struct {
	Enabled   bool   `yaml:"enabled" mapstructure:"enabled"`
	RulesFile string `yaml:"rules_file" mapstructure:"rules_file"`
}

// RunConfig configures the manifest run defaults.
type RunConfig struct {
	PartyColumns   []string `yaml:"party_columns" mapstructure:"party_columns"`
	AddressColumns []string `yaml:"address_columns" mapstructure:"address_columns"`
}

// ServerConfig configures the standardization HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// ReviewConfig holds Notion review-export settings.
type ReviewConfig struct {
	Token      string `yaml:"token" mapstructure:"token"`
	DatabaseID string `yaml:"database_id" mapstructure:"database_id"`
	SampleSize int    `yaml:"sample_size" mapstructure:"sample_size"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("MANIFEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "manifest.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	// Keys with no meaningful default still need one registered, or
	// AutomaticEnv never surfaces their MANIFEST_* values via Unmarshal.
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 2048)
	v.SetDefault("anthropic.name_chunk_size", 10)
	v.SetDefault("anthropic.city_chunk_size", 20)
	v.SetDefault("anthropic.batch_threshold", 12)
	v.SetDefault("anthropic.concurrency", 6)
	v.SetDefault("anthropic.requests_per_sec", 2.0)
	v.SetDefault("clean.enabled", false)
	v.SetDefault("clean.rules_file", "")
	v.SetDefault("run.party_columns", []string{"Shipper", "Consignee", "Notify Party 1", "Notify Party 2"})
	v.SetDefault("run.address_columns", []string{})
	v.SetDefault("server.port", 8080)
	v.SetDefault("review.token", "")
	v.SetDefault("review.database_id", "")
	v.SetDefault("review.sample_size", 100)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the fields a command mode depends on. Modes: "run"
// and "serve" need oracle and store settings, "review" needs Notion
// credentials, "offline" needs nothing beyond sane chunk sizes.
func (c *Config) Validate(mode string) error {
	var problems []string

	checkOracle := func() {
		if c.Anthropic.Key == "" {
			problems = append(problems, "anthropic.key is required")
		}
		if c.Anthropic.NameChunkSize < 1 || c.Anthropic.CityChunkSize < 1 {
			problems = append(problems, "anthropic chunk sizes must be >= 1")
		}
		if c.Anthropic.Concurrency < 1 || c.Anthropic.Concurrency > 32 {
			problems = append(problems, "anthropic.concurrency must be between 1 and 32")
		}
	}

	switch mode {
	case "offline":
	case "run", "serve":
		checkOracle()
		if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required for the postgres driver")
		}
		if mode == "serve" && c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	case "review":
		if c.Review.Token == "" {
			problems = append(problems, "review.token is required")
		}
		if c.Review.DatabaseID == "" {
			problems = append(problems, "review.database_id is required")
		}
		if c.Review.SampleSize < 1 {
			problems = append(problems, "review.sample_size must be >= 1")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
