package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/elonfeng/aiscout/pkg/ranking"
)

// Config is the root configuration.
type Config struct {
	Storage  StorageConfig  `yaml:"storage"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Sources  SourcesConfig  `yaml:"sources"`
	Scoring  ScoringConfig  `yaml:"scoring"`
	Ranking  RankingConfig  `yaml:"ranking"`
	Dedup    DedupConfig    `yaml:"dedup"`
	Filter   FilterConfig   `yaml:"filter"`
	Classify ClassifyConfig `yaml:"classify"`
	Alerts   AlertsConfig   `yaml:"alerts"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
}

// StorageConfig selects where the canonical collection lives.
type StorageConfig struct {
	Backend    string `yaml:"backend"` // "json" or "sqlite"
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// ScheduleConfig configures collection and reconcile intervals.
type ScheduleConfig struct {
	CollectInterval   string `yaml:"collect_interval"`
	ReconcileInterval string `yaml:"reconcile_interval"`
}

// ParseCollectInterval returns the collect interval as time.Duration.
func (s ScheduleConfig) ParseCollectInterval() time.Duration {
	d, err := time.ParseDuration(s.CollectInterval)
	if err != nil {
		return 6 * time.Hour
	}
	return d
}

// ParseReconcileInterval returns the reconcile interval as time.Duration.
func (s ScheduleConfig) ParseReconcileInterval() time.Duration {
	d, err := time.ParseDuration(s.ReconcileInterval)
	if err != nil {
		return 24 * time.Hour
	}
	return d
}

// SourcesConfig holds configuration for all ingestion sources.
type SourcesConfig struct {
	RSS        RSSConfig        `yaml:"rss"`
	HackerNews HackerNewsConfig `yaml:"hackernews"`
	GitHub     GitHubConfig     `yaml:"github"`
	Seeds      SeedsConfig      `yaml:"seeds"`
	Websites   WebsitesConfig   `yaml:"websites"`
}

// HackerNewsConfig for Show HN launches and top stories.
type HackerNewsConfig struct {
	Enabled bool `yaml:"enabled"`
	Limit   int  `yaml:"limit"`
}

// GitHubConfig for newly created AI repositories with a homepage.
type GitHubConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
	Limit   int    `yaml:"limit"`
}

// RSSConfig for news/blog feeds.
type RSSConfig struct {
	Enabled bool       `yaml:"enabled"`
	Feeds   []FeedItem `yaml:"feeds"`
}

// FeedItem is a single RSS feed entry.
type FeedItem struct {
	Name        string `yaml:"name"`
	URL         string `yaml:"url"`
	Market      string `yaml:"market"`
	ContentType string `yaml:"content_type"`
}

// SeedsConfig for hand-curated seed lists.
type SeedsConfig struct {
	Enabled bool     `yaml:"enabled"`
	Paths   []string `yaml:"paths"`
}

// WebsitesConfig controls resolving missing websites from source pages.
type WebsitesConfig struct {
	Enabled bool `yaml:"enabled"`
	Limit   int  `yaml:"limit"`
}

// ScoringConfig tunes the dark horse rules.
type ScoringConfig struct {
	FreshDays         float64  `yaml:"fresh_days"`
	TreasureThreshold float64  `yaml:"treasure_threshold"`
	PremiumSources    []string `yaml:"premium_sources"`
}

// RankingConfig tunes sorts and the weekly views.
type RankingConfig struct {
	Composite ranking.Weights `yaml:"composite"`
	Weekly    WeeklyConfig    `yaml:"weekly"`
}

// WeeklyConfig holds the weekly dark horse windows.
type WeeklyConfig struct {
	FreshDays  float64 `yaml:"fresh_days"`
	StickyDays float64 `yaml:"sticky_days"`
	MinIndex   int     `yaml:"min_index"`
	Limit      int     `yaml:"limit"`
}

// FilterConfig configures AI relevance filtering of feed and HN items.
type FilterConfig struct {
	ExtraKeywords   []string `yaml:"extra_keywords"`
	ExcludeKeywords []string `yaml:"exclude_keywords"`
}

// DedupConfig configures blocklists. Nil lists select built-in defaults.
type DedupConfig struct {
	BlockedSources []string `yaml:"blocked_sources"`
	BlockedDomains []string `yaml:"blocked_domains"`
}

// ClassifyConfig configures the optional LLM category classifier.
type ClassifyConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Provider string `yaml:"provider"` // "openai" or "anthropic"
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
	Batch    int    `yaml:"batch"`
}

// AlertsConfig configures alert destinations.
type AlertsConfig struct {
	Slack   SlackConfig   `yaml:"slack"`
	Discord DiscordConfig `yaml:"discord"`
	Webhook WebhookConfig `yaml:"webhook"`
}

// SlackConfig for Slack webhook alerts.
type SlackConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// DiscordConfig for Discord webhook alerts.
type DiscordConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// WebhookConfig for generic webhook alerts.
type WebhookConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Secret  string `yaml:"secret"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port      int             `yaml:"port"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig is a per-client token bucket.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
	Burst             int `yaml:"burst"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend:    "json",
			DataDir:    "./data",
			SQLitePath: "./data/aiscout.db",
		},
		Schedule: ScheduleConfig{
			CollectInterval:   "6h",
			ReconcileInterval: "24h",
		},
		Sources: SourcesConfig{
			RSS: RSSConfig{
				Enabled: true,
				Feeds: []FeedItem{
					{Name: "openai", URL: "https://openai.com/news/rss.xml", Market: "us", ContentType: "blog"},
					{Name: "techcrunch", URL: "https://techcrunch.com/category/artificial-intelligence/feed/", Market: "us"},
					{Name: "venturebeat", URL: "https://venturebeat.com/category/ai/feed/", Market: "us"},
					{Name: "36kr", URL: "https://36kr.com/feed", Market: "cn"},
				},
			},
			HackerNews: HackerNewsConfig{Enabled: true, Limit: 150},
			GitHub:     GitHubConfig{Limit: 50},
			Seeds:      SeedsConfig{Enabled: true, Paths: []string{"./data/seeds.yaml"}},
			Websites:   WebsitesConfig{Enabled: true, Limit: 50},
		},
		Scoring: ScoringConfig{
			FreshDays:         30,
			TreasureThreshold: 60,
		},
		Ranking: RankingConfig{
			Composite: ranking.DefaultWeights(),
			Weekly: WeeklyConfig{
				FreshDays:  ranking.DefaultFreshDays,
				StickyDays: ranking.DefaultStickyDays,
				MinIndex:   3,
				Limit:      10,
			},
		},
		Classify: ClassifyConfig{
			Provider: "openai",
			Model:    "gpt-4o-mini",
			Batch:    20,
		},
		Server: ServerConfig{
			Port:      8080,
			RateLimit: RateLimitConfig{RequestsPerMinute: 120, Burst: 20},
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads configuration from a YAML file, a .env file in the working
// directory if one exists, and applies env var overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	_ = godotenv.Load()
	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides overrides config values with environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("AISCOUT_DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("AISCOUT_DB_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
		cfg.Storage.Backend = "sqlite"
	}
	if v := os.Getenv("AISCOUT_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("GITHUB_TOKEN"); v != "" {
		cfg.Sources.GitHub.Token = v
	}
	if v := os.Getenv("SLACK_WEBHOOK_URL"); v != "" {
		cfg.Alerts.Slack.WebhookURL = v
		cfg.Alerts.Slack.Enabled = true
	}
	if v := os.Getenv("DISCORD_WEBHOOK_URL"); v != "" {
		cfg.Alerts.Discord.WebhookURL = v
		cfg.Alerts.Discord.Enabled = true
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Classify.APIKey = v
		cfg.Classify.Enabled = true
		cfg.Classify.Provider = "openai"
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.Classify.APIKey = v
		cfg.Classify.Enabled = true
		cfg.Classify.Provider = "anthropic"
	}
}
