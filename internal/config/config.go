package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	ScopeStack ScopeStackConfig `yaml:"scopestack" mapstructure:"scopestack"`
	Gemini     GeminiConfig     `yaml:"gemini" mapstructure:"gemini"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Summary    SummaryConfig    `yaml:"summary" mapstructure:"summary"`
	Workflow   WorkflowConfig   `yaml:"workflow" mapstructure:"workflow"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// ScopeStackConfig holds ScopeStack API credentials and account defaults.
type ScopeStackConfig struct {
	BaseURL            string  `yaml:"base_url" mapstructure:"base_url"`
	TokenURL           string  `yaml:"token_url" mapstructure:"token_url"`
	AccountSlug        string  `yaml:"account_slug" mapstructure:"account_slug"`
	AccessToken        string  `yaml:"access_token" mapstructure:"access_token"`
	RefreshToken       string  `yaml:"refresh_token" mapstructure:"refresh_token"`
	ClientID           string  `yaml:"client_id" mapstructure:"client_id"`
	ClientSecret       string  `yaml:"client_secret" mapstructure:"client_secret"`
	RateLimit          float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	DocumentTemplateID string  `yaml:"document_template_id" mapstructure:"document_template_id"`
	PaymentTermID      string  `yaml:"payment_term_id" mapstructure:"payment_term_id"`
	RateTableID        string  `yaml:"rate_table_id" mapstructure:"rate_table_id"`
	QuestionnaireTag   string  `yaml:"questionnaire_tag" mapstructure:"questionnaire_tag"`
}

// GeminiConfig holds Gemini API settings.
type GeminiConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	Model       string  `yaml:"model" mapstructure:"model"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	Temperature float32 `yaml:"temperature" mapstructure:"temperature"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// SummaryConfig selects the AI provider for executive summaries.
type SummaryConfig struct {
	Provider         string `yaml:"provider" mapstructure:"provider"`
	MaxAttempts      int    `yaml:"max_attempts" mapstructure:"max_attempts"`
	FailureThreshold int    `yaml:"failure_threshold" mapstructure:"failure_threshold"`
}

// WorkflowConfig bounds the asynchronous polling stages.
type WorkflowConfig struct {
	SurveyPollInterval   time.Duration `yaml:"survey_poll_interval" mapstructure:"survey_poll_interval"`
	SurveyMaxAttempts    int           `yaml:"survey_max_attempts" mapstructure:"survey_max_attempts"`
	SurveyTimeout        time.Duration `yaml:"survey_timeout" mapstructure:"survey_timeout"`
	DocumentPollInterval time.Duration `yaml:"document_poll_interval" mapstructure:"document_poll_interval"`
	DocumentMaxAttempts  int           `yaml:"document_max_attempts" mapstructure:"document_max_attempts"`
	DocumentTimeout      time.Duration `yaml:"document_timeout" mapstructure:"document_timeout"`
	SearchMinChars       int           `yaml:"search_min_chars" mapstructure:"search_min_chars"`
	SearchCacheSize      int           `yaml:"search_cache_size" mapstructure:"search_cache_size"`
	SearchCacheTTL       time.Duration `yaml:"search_cache_ttl" mapstructure:"search_cache_ttl"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port              int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins    []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	RequestsPerMinute int      `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, config.yaml and the environment.
// Environment variables use the ESTIMATE_ prefix, e.g. ESTIMATE_GEMINI_KEY.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ESTIMATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

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

func setDefaults(v *viper.Viper) {
	v.SetDefault("scopestack.base_url", "https://api.scopestack.io")
	v.SetDefault("scopestack.token_url", "https://app.scopestack.io/oauth/token")
	v.SetDefault("scopestack.rate_limit", 5.0)
	v.SetDefault("gemini.model", "gemini-2.0-flash")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("summary.provider", "gemini")
	v.SetDefault("summary.max_attempts", 3)
	v.SetDefault("summary.failure_threshold", 5)
	v.SetDefault("workflow.survey_poll_interval", 2*time.Second)
	v.SetDefault("workflow.survey_max_attempts", 150)
	v.SetDefault("workflow.survey_timeout", 5*time.Minute)
	v.SetDefault("workflow.document_poll_interval", time.Second)
	v.SetDefault("workflow.document_max_attempts", 10)
	v.SetDefault("workflow.document_timeout", 5*time.Minute)
	v.SetDefault("workflow.search_min_chars", 2)
	v.SetDefault("workflow.search_cache_size", 256)
	v.SetDefault("workflow.search_cache_ttl", time.Minute)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "estimate.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.requests_per_minute", 120)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks that the settings required by mode are present. Modes are
// "estimate", "summary" and "serve".
func (c *Config) Validate(mode string) error {
	var missing []string
	require := func(ok bool, key string) {
		if !ok {
			missing = append(missing, key)
		}
	}

	switch mode {
	case "estimate", "serve":
		require(c.ScopeStack.AccessToken != "" || c.ScopeStack.RefreshToken != "", "scopestack.access_token or scopestack.refresh_token")
		c.validateSummary(require)
		if c.Workflow.SurveyMaxAttempts <= 0 && c.Workflow.SurveyTimeout <= 0 {
			missing = append(missing, "workflow.survey_max_attempts or workflow.survey_timeout")
		}
		if c.Workflow.DocumentMaxAttempts <= 0 {
			missing = append(missing, "workflow.document_max_attempts")
		}
		if mode == "serve" && (c.Server.Port <= 0 || c.Server.Port > 65535) {
			return eris.Errorf("config: invalid server.port %d", c.Server.Port)
		}
	case "summary":
		require(c.ScopeStack.AccessToken != "" || c.ScopeStack.RefreshToken != "", "scopestack.access_token or scopestack.refresh_token")
		c.validateSummary(require)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(missing) > 0 {
		return eris.Errorf("config: missing required settings for %s: %s", mode, strings.Join(missing, ", "))
	}
	return nil
}

func (c *Config) validateSummary(require func(bool, string)) {
	switch c.Summary.Provider {
	case "anthropic":
		require(c.Anthropic.Key != "", "anthropic.key")
	default:
		require(c.Gemini.Key != "", "gemini.key")
	}
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
