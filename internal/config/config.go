package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/sevigo/bug-warden/internal/logger"
)

const (
	defaultModel       = "eeve-korean-instruct-10.8b-v1.0"
	defaultGeminiModel = "gemini-2.5-flash"
)

var validate = validator.New()

// Config holds every tunable of a run. It is built once at start-up and passed
// by value or pointer into constructors; nothing reads viper after LoadConfig.
type Config struct {
	// Offline skips every model call: signals, judgments and suggestions are
	// derived from keyword overlap alone.
	Offline   bool            `mapstructure:"offline"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Chunker   ChunkerConfig   `mapstructure:"chunker"`
	Filter    FilterConfig    `mapstructure:"filter"`
	Matcher   MatcherConfig   `mapstructure:"matcher"`
	Suggester SuggesterConfig `mapstructure:"suggester"`
	Server    ServerConfig    `mapstructure:"server"`
	Logging   logger.Config   `mapstructure:"logging"`
}

// LLMConfig describes how to reach the model.
type LLMConfig struct {
	Provider       string        `mapstructure:"provider" validate:"oneof=openai ollama gemini"`
	BaseURL        string        `mapstructure:"base_url" validate:"omitempty,url"`
	Model          string        `mapstructure:"model" validate:"required"`
	APIKey         string        `mapstructure:"api_key" validate:"required_if=Provider gemini"`
	Temperature    float64       `mapstructure:"temperature" validate:"gte=0,lte=2"`
	MaxTokens      int           `mapstructure:"max_tokens" validate:"gt=0"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
	MaxAttempts    int           `mapstructure:"max_attempts" validate:"gte=1,lte=10"`
	RetryBackoff   time.Duration `mapstructure:"retry_backoff" validate:"gte=0"`

	// Matcher and Suggester point a stage at a different model; empty fields
	// inherit the values above.
	Matcher    LLMEndpoint      `mapstructure:"matcher"`
	Suggester  LLMEndpoint      `mapstructure:"suggester"`
	Translator TranslatorConfig `mapstructure:"translator"`
}

// LLMEndpoint overrides where one stage's model is served.
type LLMEndpoint struct {
	Provider string `mapstructure:"provider" validate:"omitempty,oneof=openai ollama gemini"`
	BaseURL  string `mapstructure:"base_url" validate:"omitempty,url"`
	Model    string `mapstructure:"model"`
	APIKey   string `mapstructure:"api_key"`
}

// IsSet reports whether any field overrides the base configuration.
func (e LLMEndpoint) IsSet() bool {
	return e != LLMEndpoint{}
}

// TranslatorConfig enables translating Korean reports into English before
// analysis and the findings back into Korean afterwards.
type TranslatorConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	LLMEndpoint `mapstructure:",squash"`
}

// With returns a copy of c pointed at e. Stage overrides are cleared in the
// copy so it describes exactly one endpoint.
func (c LLMConfig) With(e LLMEndpoint) LLMConfig {
	out := c
	if e.Provider != "" {
		out.Provider = e.Provider
		if e.Provider != c.Provider {
			out.BaseURL = ""
			out.APIKey = ""
		}
	}
	if e.BaseURL != "" {
		out.BaseURL = e.BaseURL
	}
	if e.Model != "" {
		out.Model = e.Model
	}
	if e.APIKey != "" {
		out.APIKey = e.APIKey
	}
	out.Matcher = LLMEndpoint{}
	out.Suggester = LLMEndpoint{}
	out.Translator = TranslatorConfig{}
	return out
}

// ChunkerConfig controls how the source tree is cut into chunks.
type ChunkerConfig struct {
	ChunkSize   int      `mapstructure:"chunk_size" validate:"gt=0"`
	Extensions  []string `mapstructure:"extensions" validate:"min=1,dive,required"`
	ExcludeDirs []string `mapstructure:"exclude_dirs"`
	Encodings   []string `mapstructure:"encodings" validate:"min=1,dive,required"`
}

// FilterConfig controls the keyword pre-filter.
type FilterConfig struct {
	MinScore       float64 `mapstructure:"min_score" validate:"gte=0"`
	ShortlistSize  int     `mapstructure:"shortlist_size" validate:"gt=0"`
	KnowledgeBonus float64 `mapstructure:"knowledge_bonus" validate:"gte=0"`
	CategoryBonus  float64 `mapstructure:"category_bonus" validate:"gte=0"`
	FallbackFiles  int     `mapstructure:"fallback_files" validate:"gt=0"`
}

// MatcherConfig controls the per-chunk model judgments.
type MatcherConfig struct {
	Workers          int `mapstructure:"workers" validate:"gte=1,lte=32"`
	BatchSize        int `mapstructure:"batch_size" validate:"gte=1,lte=20"`
	MaxChunkChars    int `mapstructure:"max_chunk_chars" validate:"gt=0"`
	MaxScriptEntries int `mapstructure:"max_script_entries" validate:"gte=0"`
}

// SuggesterConfig controls fix suggestion synthesis.
type SuggesterConfig struct {
	TopN int `mapstructure:"top_n" validate:"gt=0"`
}

// ServerConfig is only read by the serve command.
type ServerConfig struct {
	Port       string `mapstructure:"port" validate:"required,numeric"`
	MaxWorkers int    `mapstructure:"max_workers" validate:"gte=1"`
	QueueSize  int    `mapstructure:"queue_size" validate:"gte=1"`
	MaxResults int    `mapstructure:"max_results" validate:"gte=1"`
}

// SetDefaults registers the default for every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.base_url", "http://localhost:1234")
	v.SetDefault("llm.model", defaultModel)
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.temperature", 0.3)
	v.SetDefault("llm.max_tokens", 2000)
	v.SetDefault("llm.request_timeout", 60*time.Second)
	v.SetDefault("llm.max_attempts", 3)
	v.SetDefault("llm.retry_backoff", 500*time.Millisecond)
	v.SetDefault("llm.translator.enabled", false)

	v.SetDefault("offline", false)

	v.SetDefault("chunker.chunk_size", 100)
	v.SetDefault("chunker.extensions", []string{".cpp", ".h", ".c", ".hpp", ".cc"})
	v.SetDefault("chunker.exclude_dirs", []string{"node_modules", "vendor", "build", "Debug", "Release"})
	v.SetDefault("chunker.encodings", []string{"utf-8", "cp949", "shift_jis", "windows-1252"})

	v.SetDefault("filter.min_score", 0)
	v.SetDefault("filter.shortlist_size", 50)
	v.SetDefault("filter.knowledge_bonus", 2)
	v.SetDefault("filter.category_bonus", 1)
	v.SetDefault("filter.fallback_files", 3)

	v.SetDefault("matcher.workers", 1)
	v.SetDefault("matcher.batch_size", 1)
	v.SetDefault("matcher.max_chunk_chars", 6000)
	v.SetDefault("matcher.max_script_entries", 5)

	v.SetDefault("suggester.top_n", 5)

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.max_workers", 2)
	v.SetDefault("server.queue_size", 100)
	v.SetDefault("server.max_results", 100)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stderr")
}

// LoadConfig reads configuration from the global viper instance: defaults,
// an optional config file, BW_-prefixed environment variables and any flags
// the CLI bound beforehand.
func LoadConfig(configFile string) (*Config, error) {
	return LoadConfigFrom(viper.GetViper(), configFile)
}

// LoadConfigFrom is LoadConfig against an explicit viper instance.
func LoadConfigFrom(v *viper.Viper, configFile string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix("BW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("bug-warden")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.LLM.Provider == "gemini" && cfg.LLM.Model == defaultModel {
		cfg.LLM.Model = defaultGeminiModel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := checkEndpoint("llm", c.LLM); err != nil {
		return err
	}
	for _, stage := range []struct {
		name string
		e    LLMEndpoint
	}{
		{"llm.matcher", c.LLM.Matcher},
		{"llm.suggester", c.LLM.Suggester},
		{"llm.translator", c.LLM.Translator.LLMEndpoint},
	} {
		if !stage.e.IsSet() {
			continue
		}
		if err := checkEndpoint(stage.name, c.LLM.With(stage.e)); err != nil {
			return err
		}
	}
	if _, err := ParseLogLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	for _, ext := range c.Chunker.Extensions {
		if strings.ContainsAny(ext, `/\`) {
			return fmt.Errorf("invalid configuration: extension %q contains a path separator", ext)
		}
	}
	return nil
}

func checkEndpoint(name string, cfg LLMConfig) error {
	if cfg.Provider != "gemini" && cfg.BaseURL == "" {
		return fmt.Errorf("invalid configuration: %s.base_url is required for provider %q", name, cfg.Provider)
	}
	if cfg.Provider == "gemini" && cfg.APIKey == "" {
		return fmt.Errorf("invalid configuration: %s.api_key is required for provider gemini", name)
	}
	return nil
}

// ParseLogLevel converts a level name into a slog.Level.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unrecognized log level %q", s)
	}
}

// Summary lists the effective values reported at start-up.
func (c *Config) Summary() []any {
	return []any{
		"provider", c.LLM.Provider,
		"base_url", c.LLM.BaseURL,
		"model", c.LLM.Model,
		"timeout", c.LLM.RequestTimeout,
		"max_attempts", c.LLM.MaxAttempts,
		"chunk_size", c.Chunker.ChunkSize,
		"extensions", strings.Join(c.Chunker.Extensions, ","),
		"encodings", strings.Join(c.Chunker.Encodings, ","),
		"shortlist_size", c.Filter.ShortlistSize,
		"min_score", c.Filter.MinScore,
		"workers", c.Matcher.Workers,
		"batch_size", c.Matcher.BatchSize,
		"top_n", c.Suggester.TopN,
		"matcher_model", c.LLM.With(c.LLM.Matcher).Model,
		"suggester_model", c.LLM.With(c.LLM.Suggester).Model,
		"translator", c.LLM.Translator.Enabled,
		"offline", c.Offline,
	}
}
