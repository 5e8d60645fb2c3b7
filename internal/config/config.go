package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	ZenSERP  ZenSERPConfig  `yaml:"zenserp" mapstructure:"zenserp"`
	Search   SearchConfig   `yaml:"search" mapstructure:"search"`
	Hunt     HuntConfig     `yaml:"hunt" mapstructure:"hunt"`
	Crawl    CrawlConfig    `yaml:"crawl" mapstructure:"crawl"`
	Contact  ContactConfig  `yaml:"contact" mapstructure:"contact"`
	VAT      VATConfig      `yaml:"vat" mapstructure:"vat"`
	LinkedIn LinkedInConfig `yaml:"linkedin" mapstructure:"linkedin"`
	Retry    RetryConfig    `yaml:"retry" mapstructure:"retry"`
	Circuit  CircuitConfig  `yaml:"circuit" mapstructure:"circuit"`
	Batch    BatchConfig    `yaml:"batch" mapstructure:"batch"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Monitor  MonitorConfig  `yaml:"monitoring" mapstructure:"monitoring"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ZenSERPConfig holds search API credentials.
type ZenSERPConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// SearchConfig configures query construction and search pacing.
type SearchConfig struct {
	// QueryVersion selects the query dialect: 1 = quoted keywords, 2 = inurl: operators.
	QueryVersion int `yaml:"query_version" mapstructure:"query_version"`
	MinDelayMs   int `yaml:"min_delay_ms" mapstructure:"min_delay_ms"`
}

// MinDelay returns the minimum spacing between search API calls.
func (c SearchConfig) MinDelay() time.Duration {
	return time.Duration(c.MinDelayMs) * time.Millisecond
}

// HuntConfig holds the string sets substituted into website hunting.
type HuntConfig struct {
	SearchKeywords      []string `yaml:"search_keywords" mapstructure:"search_keywords"`
	SERPExcludedDomains []string `yaml:"serp_excluded_domains" mapstructure:"serp_excluded_domains"`
	BlacklistDomains    []string `yaml:"blacklist_domains" mapstructure:"blacklist_domains"`
}

// CrawlConfig configures the precision crawler.
type CrawlConfig struct {
	MaxTargetPages     int      `yaml:"max_target_pages" mapstructure:"max_target_pages"`
	MaxAdditionalPages int      `yaml:"max_additional_pages" mapstructure:"max_additional_pages"`
	TimeoutSecs        int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	TimeoutMultiplier  int      `yaml:"timeout_multiplier" mapstructure:"timeout_multiplier"`
	MaxConcurrentSites int      `yaml:"max_concurrent_sites" mapstructure:"max_concurrent_sites"`
	DelayMs            int      `yaml:"delay_ms" mapstructure:"delay_ms"`
	UserAgent          string   `yaml:"user_agent" mapstructure:"user_agent"`
	TargetKeywords     []string `yaml:"target_keywords" mapstructure:"target_keywords"`
	SkipDomains        []string `yaml:"skip_domains" mapstructure:"skip_domains"`
	TargetWeight       float64  `yaml:"target_weight" mapstructure:"target_weight"`
	NonTargetWeight    float64  `yaml:"non_target_weight" mapstructure:"non_target_weight"`
}

// ContactConfig configures the contact extractor.
type ContactConfig struct {
	MaxPagesPerSite      int      `yaml:"max_pages_per_site" mapstructure:"max_pages_per_site"`
	TimeoutSecs          int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	DelayMs              int      `yaml:"delay_ms" mapstructure:"delay_ms"`
	MaxPhoneNumbers      int      `yaml:"max_phone_numbers" mapstructure:"max_phone_numbers"`
	MaxEmails            int      `yaml:"max_emails" mapstructure:"max_emails"`
	MaxSocialPerPlatform int      `yaml:"max_social_per_platform" mapstructure:"max_social_per_platform"`
	TestNumbers          []string `yaml:"test_numbers" mapstructure:"test_numbers"`
}

// VATConfig configures the VAT lookup scraper.
type VATConfig struct {
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	ProxyURL    string `yaml:"proxy_url" mapstructure:"proxy_url"`
	MaxRetries  int    `yaml:"max_retries" mapstructure:"max_retries"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	DelayMs     int    `yaml:"delay_ms" mapstructure:"delay_ms"`
}

// LinkedInConfig holds LinkedIn relevance weights.
type LinkedInConfig struct {
	NameWeight   int `yaml:"name_weight" mapstructure:"name_weight"`
	DomainWeight int `yaml:"domain_weight" mapstructure:"domain_weight"`
}

// RetryConfig configures backoff for rate-limited API calls.
type RetryConfig struct {
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Multiplier       float64 `yaml:"multiplier" mapstructure:"multiplier"`
	JitterFraction   float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
}

// CircuitConfig configures the search API circuit breaker.
type CircuitConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	MaxConcurrentCompanies int      `yaml:"max_concurrent_companies" mapstructure:"max_concurrent_companies"`
	Stages                 []string `yaml:"stages" mapstructure:"stages"`
	// AutoApprove records a perfect-score (2.0) domain as approved when no
	// human approval exists, so later stages can run unattended.
	AutoApprove bool `yaml:"auto_approve" mapstructure:"auto_approve"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// MonitorConfig configures run and quota alerting.
type MonitorConfig struct {
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	QuotaLowThreshold    int     `yaml:"quota_low_threshold" mapstructure:"quota_low_threshold"`
	LookbackWindowHours  int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	CheckIntervalSecs    int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultTargetKeywords are the URL path keywords that mark a page as a
// high-value information page.
var DefaultTargetKeywords = []string{
	"about", "contact", "privacy", "terms", "legal",
	"disclaimer", "cookie", "policy", "company", "information",
}

// DefaultTestNumbers are well-known fictional or placeholder UK numbers that
// must never be reported as real contact details.
var DefaultTestNumbers = []string{
	"01234567890",
	"02079460000",
	"01632960000",
	"07700900000",
	"08001111111",
	"09999999999",
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ENRICH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Legacy variable names used by existing deployments.
	_ = v.BindEnv("zenserp.key", "ENRICH_ZENSERP_KEY", "ZENSERP_API_KEY")
	_ = v.BindEnv("vat.proxy_url", "ENRICH_VAT_PROXY_URL", "WEBSHARE_PROXY_URL")
	_ = v.BindEnv("store.database_url")

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
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("batch.max_concurrent_companies", 3)
	v.SetDefault("batch.stages", []string{"vat", "hunt"})
	v.SetDefault("batch.auto_approve", false)

	v.SetDefault("zenserp.base_url", "https://app.zenserp.com/api/v2")
	v.SetDefault("zenserp.timeout_secs", 30)
	v.SetDefault("search.query_version", 1)
	v.SetDefault("search.min_delay_ms", 1000)

	v.SetDefault("hunt.search_keywords", []string{"privacy policy", "terms", "about us", "contact"})
	v.SetDefault("hunt.serp_excluded_domains", []string{
		"find-and-update.company-information.service.gov.uk",
		"opencorporates.com",
		"endole.co.uk",
		"companycheck.co.uk",
	})
	v.SetDefault("hunt.blacklist_domains", []string{})

	v.SetDefault("crawl.max_target_pages", 6)
	v.SetDefault("crawl.max_additional_pages", 10)
	v.SetDefault("crawl.timeout_secs", 30)
	v.SetDefault("crawl.timeout_multiplier", 3)
	v.SetDefault("crawl.max_concurrent_sites", 5)
	v.SetDefault("crawl.delay_ms", 1000)
	v.SetDefault("crawl.target_keywords", DefaultTargetKeywords)
	v.SetDefault("crawl.skip_domains", []string{})
	v.SetDefault("crawl.target_weight", 1.0)
	v.SetDefault("crawl.non_target_weight", 0.75)

	v.SetDefault("contact.max_pages_per_site", 15)
	v.SetDefault("contact.timeout_secs", 30)
	v.SetDefault("contact.delay_ms", 1000)
	v.SetDefault("contact.max_phone_numbers", 10)
	v.SetDefault("contact.max_emails", 10)
	v.SetDefault("contact.max_social_per_platform", 5)
	v.SetDefault("contact.test_numbers", DefaultTestNumbers)

	v.SetDefault("vat.base_url", "https://vat-lookup.co.uk")
	v.SetDefault("vat.max_retries", 3)
	v.SetDefault("vat.timeout_secs", 30)
	v.SetDefault("vat.delay_ms", 1000)

	v.SetDefault("linkedin.name_weight", 1)
	v.SetDefault("linkedin.domain_weight", 2)

	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 2000)
	v.SetDefault("retry.max_backoff_ms", 30000)
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("retry.jitter_fraction", 0.25)

	v.SetDefault("circuit.failure_threshold", 5)
	v.SetDefault("circuit.reset_timeout_secs", 60)

	v.SetDefault("monitoring.failure_rate_threshold", 0.25)
	v.SetDefault("monitoring.quota_low_threshold", 100)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("monitoring.check_interval_secs", 300)
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

// Validate checks that the settings required by the given mode are present.
// Modes: "search", "vat", "serve", "store".
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "search":
		if c.ZenSERP.Key == "" {
			problems = append(problems, "zenserp.key is required")
		}
		if c.Search.QueryVersion != 1 && c.Search.QueryVersion != 2 {
			problems = append(problems, "search.query_version must be 1 or 2")
		}
	case "vat":
		if c.VAT.BaseURL == "" {
			problems = append(problems, "vat.base_url is required")
		}
		if c.VAT.MaxRetries <= 0 {
			problems = append(problems, "vat.max_retries must be positive")
		}
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			problems = append(problems, "server.port must be between 1 and 65535")
		}
	case "store":
		switch c.Store.Driver {
		case "sqlite":
		case "postgres":
			if c.Store.DatabaseURL == "" {
				problems = append(problems, "store.database_url is required")
			}
		default:
			problems = append(problems, "store.driver must be sqlite or postgres")
		}
	default:
		return eris.Errorf("config: unknown validation mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}
