// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Homepage fetch modes.
const (
	HomepageModeHeadless = "headless"
	HomepageModeStatic   = "static"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Crawler  CrawlerConfig  `mapstructure:"crawler"`
	Headless HeadlessConfig `mapstructure:"headless"`
	Storage  StorageConfig  `mapstructure:"storage"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                  int `mapstructure:"port"`
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds"`
}

// CrawlerConfig governs batch sizes and extraction context.
type CrawlerConfig struct {
	BatchMenu    int    `mapstructure:"batch_menu"`
	BatchArticle int    `mapstructure:"batch_article"`
	UserAgent    string `mapstructure:"user_agent"`
	HomepageMode string `mapstructure:"homepage_mode"`
	Timezone     string `mapstructure:"timezone"`
}

// HeadlessConfig configures the browser and its retry budget.
type HeadlessConfig struct {
	ExecPath          string `mapstructure:"exec_path"`
	NavTimeoutSeconds int    `mapstructure:"nav_timeout_seconds"`
	MaxAttempts       int    `mapstructure:"max_attempts"`
	RetryDelayMs      int    `mapstructure:"retry_delay_ms"`
}

// StorageConfig sets where the raw log and snapshots live.
type StorageConfig struct {
	OutputDir string `mapstructure:"output_dir"`
	MirrorDir string `mapstructure:"mirror_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	GCSPrefix string `mapstructure:"gcs_prefix"`
}

// PubSubConfig holds metadata for publish-subscribe notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("NEWSRANK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	if err := bindLegacyEnv(v); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout_seconds", 0)
	v.SetDefault("crawler.batch_menu", 1)
	v.SetDefault("crawler.batch_article", 8)
	v.SetDefault("crawler.user_agent", defaultUserAgent)
	v.SetDefault("crawler.homepage_mode", HomepageModeHeadless)
	v.SetDefault("crawler.timezone", "Local")
	v.SetDefault("headless.exec_path", "")
	v.SetDefault("headless.nav_timeout_seconds", 15)
	v.SetDefault("headless.max_attempts", 3)
	v.SetDefault("headless.retry_delay_ms", 2000)
	v.SetDefault("storage.output_dir", "out")
	v.SetDefault("storage.mirror_dir", "")
	v.SetDefault("storage.gcs_bucket", "")
	v.SetDefault("storage.gcs_prefix", "snapshots")
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
}

// bindLegacyEnv keeps the unprefixed variable names deployments already use.
// The prefixed name is listed first and wins when both are set.
func bindLegacyEnv(v *viper.Viper) error {
	legacy := map[string]string{
		"crawler.batch_menu":    "BATCH_MENU",
		"crawler.batch_article": "BATCH_ARTICLE",
		"headless.exec_path":    "PUPPETEER_EXECUTABLE_PATH",
	}
	for key, env := range legacy {
		prefixed := "NEWSRANK_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, env); err != nil {
			return fmt.Errorf("bind env %s: %w", env, err)
		}
	}
	return nil
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Server.RequestTimeoutSeconds < 0 {
		return fmt.Errorf("server.request_timeout_seconds must be >= 0")
	}
	if c.Crawler.BatchMenu <= 0 {
		return fmt.Errorf("crawler.batch_menu must be > 0")
	}
	if c.Crawler.BatchArticle <= 0 {
		return fmt.Errorf("crawler.batch_article must be > 0")
	}
	switch c.Crawler.HomepageMode {
	case HomepageModeHeadless, HomepageModeStatic:
	default:
		return fmt.Errorf("crawler.homepage_mode must be %q or %q, got %q",
			HomepageModeHeadless, HomepageModeStatic, c.Crawler.HomepageMode)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Headless.NavTimeoutSeconds <= 0 {
		return fmt.Errorf("headless.nav_timeout_seconds must be > 0")
	}
	if c.Headless.MaxAttempts <= 0 {
		return fmt.Errorf("headless.max_attempts must be > 0")
	}
	if c.Headless.RetryDelayMs < 0 {
		return fmt.Errorf("headless.retry_delay_ms must be >= 0")
	}
	if c.Storage.OutputDir == "" {
		return fmt.Errorf("storage.output_dir must be set")
	}
	if c.PubSub.TopicName != "" && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id must be set when pubsub.topic_name is set")
	}
	return nil
}

// Location resolves crawler.timezone.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Crawler.Timezone)
	if err != nil {
		return nil, fmt.Errorf("crawler.timezone %q: %w", c.Crawler.Timezone, err)
	}
	return loc, nil
}

// NavTimeout is the per-attempt navigation budget.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.Headless.NavTimeoutSeconds) * time.Second
}

// RetryDelay is the fixed pause between navigation attempts.
func (c Config) RetryDelay() time.Duration {
	return time.Duration(c.Headless.RetryDelayMs) * time.Millisecond
}

// RequestTimeout bounds API requests; zero disables the limit.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}
