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
	LLM       LLMConfig       `yaml:"llm" mapstructure:"llm"`
	Story     StoryConfig     `yaml:"story" mapstructure:"story"`
	Signals   SignalsConfig   `yaml:"signals" mapstructure:"signals"`
	Sentiment SentimentConfig `yaml:"sentiment" mapstructure:"sentiment"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the SQLite price cache.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// LLMConfig configures the provider waterfall for story generation.
type LLMConfig struct {
	OpenRouter  OpenRouterConfig `yaml:"openrouter" mapstructure:"openrouter"`
	Anthropic   AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Ollama      OllamaConfig     `yaml:"ollama" mapstructure:"ollama"`
	TimeoutSecs int              `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec  float64          `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// OpenRouterConfig holds OpenRouter API settings.
type OpenRouterConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// OllamaConfig holds local Ollama settings.
type OllamaConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// StoryConfig tunes the generation-validation-refinement loop.
type StoryConfig struct {
	WindowDays   int     `yaml:"window_days" mapstructure:"window_days"`
	MaxRounds    int     `yaml:"max_rounds" mapstructure:"max_rounds"`
	AcceptScore  float64 `yaml:"accept_score" mapstructure:"accept_score"`
	Temperature  float64 `yaml:"temperature" mapstructure:"temperature"`
	MaxTokens    int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	RetryPauseMS int     `yaml:"retry_pause_ms" mapstructure:"retry_pause_ms"`
	RulesPath    string  `yaml:"rules_path" mapstructure:"rules_path"`
}

// SignalsConfig tunes signal detection.
type SignalsConfig struct {
	Benchmark     string  `yaml:"benchmark" mapstructure:"benchmark"`
	VolSpikeRatio float64 `yaml:"vol_spike_ratio" mapstructure:"vol_spike_ratio"`
	DivergencePct float64 `yaml:"divergence_pct" mapstructure:"divergence_pct"`
	Concurrency   int     `yaml:"concurrency" mapstructure:"concurrency"`
}

// SentimentConfig configures the StockTwits scraper.
type SentimentConfig struct {
	Enabled     bool   `yaml:"enabled" mapstructure:"enabled"`
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	TTLSecs     int    `yaml:"ttl_secs" mapstructure:"ttl_secs"`
	MaxMessages int    `yaml:"max_messages" mapstructure:"max_messages"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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
	v.SetEnvPrefix("PULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.path", "pulse.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	// Keys and paths default to empty so AutomaticEnv can resolve them;
	// viper only consults the environment for keys it already knows.
	v.SetDefault("llm.openrouter.key", "")
	v.SetDefault("llm.openrouter.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("llm.openrouter.model", "meta-llama/llama-3.3-70b-instruct:free")
	v.SetDefault("llm.anthropic.key", "")
	v.SetDefault("llm.anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("llm.ollama.base_url", "http://localhost:11434")
	v.SetDefault("llm.ollama.model", "llama3")
	v.SetDefault("llm.timeout_secs", 60)
	v.SetDefault("llm.rate_per_sec", 1.0)
	v.SetDefault("story.window_days", 5)
	v.SetDefault("story.max_rounds", 3)
	v.SetDefault("story.accept_score", 8.0)
	v.SetDefault("story.temperature", 0.2)
	v.SetDefault("story.max_tokens", 2048)
	v.SetDefault("story.retry_pause_ms", 300)
	v.SetDefault("story.rules_path", "")
	v.SetDefault("signals.benchmark", "SPY")
	v.SetDefault("signals.vol_spike_ratio", 2.0)
	v.SetDefault("signals.divergence_pct", 1.0)
	v.SetDefault("signals.concurrency", 4)
	v.SetDefault("sentiment.enabled", true)
	v.SetDefault("sentiment.base_url", "https://api.stocktwits.com")
	v.SetDefault("sentiment.ttl_secs", 300)
	v.SetDefault("sentiment.max_messages", 50)

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
