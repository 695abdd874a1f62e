package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Search     SearchConfig     `yaml:"search" mapstructure:"search"`
	Outscraper OutscraperConfig `yaml:"outscraper" mapstructure:"outscraper"`
	Google     GoogleConfig     `yaml:"google" mapstructure:"google"`
	Jina       JinaConfig       `yaml:"jina" mapstructure:"jina"`
	Verify     VerifyConfig     `yaml:"verify" mapstructure:"verify"`
	Classify   ClassifyConfig   `yaml:"classify" mapstructure:"classify"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// SearchConfig configures place-search submission.
type SearchConfig struct {
	Provider          string `yaml:"provider" mapstructure:"provider"`
	MinDelayMs        int    `yaml:"min_delay_ms" mapstructure:"min_delay_ms"`
	ResultLimit       int    `yaml:"result_limit" mapstructure:"result_limit"`
	Language          string `yaml:"language" mapstructure:"language"`
	Region            string `yaml:"region" mapstructure:"region"`
	MaxQueries        int    `yaml:"max_queries" mapstructure:"max_queries"`
	SubmitRetries     int    `yaml:"submit_retries" mapstructure:"submit_retries"`
	BreakerThreshold  int    `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerResetSecs  int    `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
	IncludeAreaSearch bool   `yaml:"include_area_search" mapstructure:"include_area_search"`
}

// MinDelay returns the enforced minimum delay between provider calls.
func (s SearchConfig) MinDelay() time.Duration {
	return time.Duration(s.MinDelayMs) * time.Millisecond
}

// OutscraperConfig holds Outscraper Maps Search settings.
type OutscraperConfig struct {
	Key             string `yaml:"key" mapstructure:"key"`
	BaseURL         string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs     int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	PollInitialSecs int    `yaml:"poll_initial_secs" mapstructure:"poll_initial_secs"`
	PollStepSecs    int    `yaml:"poll_step_secs" mapstructure:"poll_step_secs"`
	PollCapSecs     int    `yaml:"poll_cap_secs" mapstructure:"poll_cap_secs"`
	PollMaxAttempts int    `yaml:"poll_max_attempts" mapstructure:"poll_max_attempts"`
	Async           bool   `yaml:"async" mapstructure:"async"`
}

// GoogleConfig holds Google Places API settings.
type GoogleConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// JinaConfig holds Jina AI Reader settings (website fetch fallback).
type JinaConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// KeywordConfig is one weighted keyword phrase.
type KeywordConfig struct {
	Term   string  `yaml:"term" mapstructure:"term"`
	Weight float64 `yaml:"weight" mapstructure:"weight"`
}

// SocialConfig configures social-profile evidence.
type SocialConfig struct {
	Enabled      bool     `yaml:"enabled" mapstructure:"enabled"`
	URLTemplates []string `yaml:"url_templates" mapstructure:"url_templates"`
	MaxGuesses   int      `yaml:"max_guesses" mapstructure:"max_guesses"`
}

// VerifyConfig configures the verification engine and evidence fetchers.
type VerifyConfig struct {
	MinScore           float64         `yaml:"min_score" mapstructure:"min_score"`
	MaxHitsPerTerm     int             `yaml:"max_hits_per_term" mapstructure:"max_hits_per_term"`
	CollectAllSources  bool            `yaml:"collect_all_sources" mapstructure:"collect_all_sources"`
	ExtendedKeywords   bool            `yaml:"extended_keywords" mapstructure:"extended_keywords"`
	Keywords           []KeywordConfig `yaml:"keywords" mapstructure:"keywords"`
	NegativeKeywords   []string        `yaml:"negative_keywords" mapstructure:"negative_keywords"`
	FetchTimeoutSecs   int             `yaml:"fetch_timeout_secs" mapstructure:"fetch_timeout_secs"`
	UserAgent          string          `yaml:"user_agent" mapstructure:"user_agent"`
	SnippetChars       int             `yaml:"snippet_chars" mapstructure:"snippet_chars"`
	DirectoryBlocklist []string        `yaml:"directory_blocklist" mapstructure:"directory_blocklist"`
	Social             SocialConfig    `yaml:"social" mapstructure:"social"`
}

// FetchTimeout returns the per-fetch timeout.
func (v VerifyConfig) FetchTimeout() time.Duration {
	return time.Duration(v.FetchTimeoutSecs) * time.Second
}

// ClassifyConfig overrides the establishment classifier term lists. Empty
// lists keep the built-in defaults.
type ClassifyConfig struct {
	IncludeTerms     []string `yaml:"include_terms" mapstructure:"include_terms"`
	SecondaryTerms   []string `yaml:"secondary_terms" mapstructure:"secondary_terms"`
	ExcludeTerms     []string `yaml:"exclude_terms" mapstructure:"exclude_terms"`
	SoftExcludeTerms []string `yaml:"soft_exclude_terms" mapstructure:"soft_exclude_terms"`
}

// PipelineConfig configures the coordinator.
type PipelineConfig struct {
	MaxConcurrentVerifications int    `yaml:"max_concurrent_verifications" mapstructure:"max_concurrent_verifications"`
	MaxConcurrentCities        int    `yaml:"max_concurrent_cities" mapstructure:"max_concurrent_cities"`
	MaxInflightFetches         int    `yaml:"max_inflight_fetches" mapstructure:"max_inflight_fetches"`
	ProgressEvery              int    `yaml:"progress_every" mapstructure:"progress_every"`
	AreasFile                  string `yaml:"areas_file" mapstructure:"areas_file"`
	Resume                     bool   `yaml:"resume" mapstructure:"resume"`
}

// ServerConfig configures the progress API server.
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
	v.SetEnvPrefix("SOURDOUGH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "sourdough.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("search.provider", "outscraper")
	v.SetDefault("search.min_delay_ms", 1000)
	v.SetDefault("search.result_limit", 20)
	v.SetDefault("search.language", "en")
	v.SetDefault("search.region", "US")
	v.SetDefault("search.max_queries", 0)
	v.SetDefault("search.submit_retries", 2)
	v.SetDefault("search.breaker_threshold", 5)
	v.SetDefault("search.breaker_reset_secs", 60)
	v.SetDefault("search.include_area_search", true)
	v.SetDefault("outscraper.key", "")
	v.SetDefault("google.key", "")
	v.SetDefault("jina.key", "")
	v.SetDefault("outscraper.base_url", "https://api.app.outscraper.com")
	v.SetDefault("outscraper.timeout_secs", 30)
	v.SetDefault("outscraper.poll_initial_secs", 8)
	v.SetDefault("outscraper.poll_step_secs", 1)
	v.SetDefault("outscraper.poll_cap_secs", 15)
	v.SetDefault("outscraper.poll_max_attempts", 10)
	v.SetDefault("outscraper.async", false)
	v.SetDefault("google.base_url", "https://places.googleapis.com/v1")
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("verify.min_score", 1.0)
	v.SetDefault("verify.max_hits_per_term", 3)
	v.SetDefault("verify.collect_all_sources", true)
	v.SetDefault("verify.extended_keywords", true)
	v.SetDefault("verify.fetch_timeout_secs", 10)
	v.SetDefault("verify.user_agent", DefaultUserAgent)
	v.SetDefault("verify.snippet_chars", 400)
	v.SetDefault("verify.directory_blocklist", []string{
		"yelp.com", "doordash.com", "ubereats.com", "grubhub.com", "postmates.com",
		"tripadvisor.com", "facebook.com", "instagram.com", "linktr.ee",
		"seamless.com", "slicelife.com", "order.online",
	})
	v.SetDefault("verify.social.enabled", true)
	v.SetDefault("verify.social.url_templates", []string{"https://www.instagram.com/%s/"})
	v.SetDefault("verify.social.max_guesses", 3)
	v.SetDefault("pipeline.max_concurrent_verifications", 5)
	v.SetDefault("pipeline.max_concurrent_cities", 2)
	v.SetDefault("pipeline.max_inflight_fetches", 10)
	v.SetDefault("pipeline.progress_every", 10)
	v.SetDefault("pipeline.areas_file", "")
	v.SetDefault("pipeline.resume", false)

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

// DefaultUserAgent is a current desktop browser user-agent. Restaurant sites
// behind CDNs often refuse obvious bot agents.
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"

// Validate checks the configuration required by a command. Configuration
// errors are the only fatal errors of a run.
func (c *Config) Validate(command string) error {
	var errs []string

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q is not supported", c.Store.Driver))
	}
	if c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}

	switch command {
	case "discover":
		switch c.Search.Provider {
		case "outscraper":
			if c.Outscraper.Key == "" {
				errs = append(errs, "outscraper.key is required")
			}
			if c.Outscraper.BaseURL == "" {
				errs = append(errs, "outscraper.base_url is required")
			}
		case "google":
			if c.Google.Key == "" {
				errs = append(errs, "google.key is required")
			}
		default:
			errs = append(errs, fmt.Sprintf("search.provider %q is not supported", c.Search.Provider))
		}
		if c.Search.MinDelayMs < 0 {
			errs = append(errs, "search.min_delay_ms must be >= 0")
		}
		errs = append(errs, c.validateVerify()...)
	case "verify":
		errs = append(errs, c.validateVerify()...)
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server.port %d is out of range", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateVerify() []string {
	var errs []string
	if c.Verify.MinScore < 0 {
		errs = append(errs, "verify.min_score must be >= 0")
	}
	if c.Verify.Social.Enabled && len(c.Verify.Social.URLTemplates) == 0 {
		errs = append(errs, "verify.social.url_templates is required when social evidence is enabled")
	}
	for _, kw := range c.Verify.Keywords {
		if strings.TrimSpace(kw.Term) == "" || kw.Weight <= 0 {
			errs = append(errs, fmt.Sprintf("verify.keywords entry %q needs a term and a positive weight", kw.Term))
		}
	}
	return errs
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
