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
	OpenAI    OpenAIConfig    `yaml:"openai" mapstructure:"openai"`
	Discovery DiscoveryConfig `yaml:"discovery" mapstructure:"discovery"`
	Fetch     FetchConfig     `yaml:"fetch" mapstructure:"fetch"`
	Enrich    EnrichConfig    `yaml:"enrich" mapstructure:"enrich"`
	Publish   PublishConfig   `yaml:"publish" mapstructure:"publish"`
	Sources   SourcesConfig   `yaml:"sources" mapstructure:"sources"`
	Telegram  TelegramConfig  `yaml:"telegram" mapstructure:"telegram"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// OpenAIConfig holds OpenAI API settings. FilterModel is the cheap
// admission-control model; EnrichModel does the full enrichment pass.
type OpenAIConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	FilterModel   string `yaml:"filter_model" mapstructure:"filter_model"`
	EnrichModel   string `yaml:"enrich_model" mapstructure:"enrich_model"`
	PromptVersion string `yaml:"prompt_version" mapstructure:"prompt_version"`
}

// DiscoveryConfig configures the RSS discovery stage.
type DiscoveryConfig struct {
	FeedTimeoutSecs int    `yaml:"feed_timeout_secs" mapstructure:"feed_timeout_secs"`
	UserAgent       string `yaml:"user_agent" mapstructure:"user_agent"`
}

// FetchConfig configures the content fetch stage.
type FetchConfig struct {
	TimeoutSecs   int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Retries       int `yaml:"retries" mapstructure:"retries"`
	BackoffSecs   int `yaml:"backoff_secs" mapstructure:"backoff_secs"`
	ItemDelayMS   int `yaml:"item_delay_ms" mapstructure:"item_delay_ms"`
	MaxAttempts   int `yaml:"max_attempts" mapstructure:"max_attempts"`
	ClaimStaleMin int `yaml:"claim_stale_min" mapstructure:"claim_stale_min"`
}

// EnrichConfig configures the enrichment stage.
type EnrichConfig struct {
	ItemDelayMS int    `yaml:"item_delay_ms" mapstructure:"item_delay_ms"`
	ThumbsDir   string `yaml:"thumbs_dir" mapstructure:"thumbs_dir"`
}

// PublishConfig configures the publish stage.
type PublishConfig struct {
	ItemDelayMS int `yaml:"item_delay_ms" mapstructure:"item_delay_ms"`
}

// SourcesConfig points at the YAML seed file for the source registry and
// taxonomy code tables.
type SourcesConfig struct {
	SeedFile string `yaml:"seed_file" mapstructure:"seed_file"`
}

// TelegramConfig holds optional run-summary notification settings. Both
// fields empty disables notifications.
type TelegramConfig struct {
	BotToken string `yaml:"bot_token" mapstructure:"bot_token"`
	ChatID   int64  `yaml:"chat_id" mapstructure:"chat_id"`
}

// ServerConfig configures the review API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
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
	v.SetEnvPrefix("CURATOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("openai.filter_model", "gpt-4o-mini")
	v.SetDefault("openai.enrich_model", "gpt-5.1")
	v.SetDefault("openai.prompt_version", "v3.0-bfsi-filter")
	v.SetDefault("discovery.feed_timeout_secs", 30)
	v.SetDefault("discovery.user_agent",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36")
	v.SetDefault("fetch.timeout_secs", 60)
	v.SetDefault("fetch.retries", 3)
	v.SetDefault("fetch.backoff_secs", 5)
	v.SetDefault("fetch.item_delay_ms", 2000)
	v.SetDefault("fetch.max_attempts", 5)
	v.SetDefault("fetch.claim_stale_min", 10)
	v.SetDefault("enrich.item_delay_ms", 800)
	v.SetDefault("enrich.thumbs_dir", "public/thumbs")
	v.SetDefault("publish.item_delay_ms", 120)
	v.SetDefault("sources.seed_file", "sources.yaml")

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
