// Package config provides the yaml configuration shared by the API server
// and the watchers, with environment variable overrides for the values
// that deploys set per-environment (database path, webhook URLs).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrNoWebhook is returned when a watcher is started without a configured
// webhook destination.
var ErrNoWebhook = errors.New("no webhook configured: set DISCORD_WEBHOOK_URL or NEWS_WEBHOOK")

// Config is the root configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	Cards    CardsConfig    `yaml:"cards"`
	News     NewsConfig     `yaml:"news"`
	Webhook  WebhookConfig  `yaml:"webhook"`
	Schedule ScheduleConfig `yaml:"schedule"`
}

// DatabaseConfig configures SQLite storage.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// CardsConfig configures the snapshot-diff card watcher.
type CardsConfig struct {
	APIURL          string `yaml:"api_url"`
	StateFile       string `yaml:"state_file"`
	ErrataStateFile string `yaml:"errata_state_file"`
	WebhookURL      string `yaml:"webhook_url"`
}

// NewsConfig configures the ordered-feed news watcher.
type NewsConfig struct {
	FeedURL    string `yaml:"feed_url"`
	StateFile  string `yaml:"state_file"`
	WebhookURL string `yaml:"webhook_url"`
}

// WebhookConfig configures an optional generic JSON webhook that receives
// every notification alongside Discord.
type WebhookConfig struct {
	URL    string `yaml:"url"`
	Secret string `yaml:"secret"`
}

// ScheduleConfig configures the daemon's watch interval.
type ScheduleConfig struct {
	WatchInterval string `yaml:"watch_interval"`
}

// ParseWatchInterval returns the watch interval as a time.Duration.
func (s ScheduleConfig) ParseWatchInterval() time.Duration {
	d, err := time.ParseDuration(s.WatchInterval)
	if err != nil {
		return 30 * time.Minute
	}
	return d
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "./ultraman_cards.db"},
		Server:   ServerConfig{Port: 8000},
		Cards: CardsConfig{
			APIURL:          "https://nebula-collection-api.vercel.app/cards",
			StateFile:       "last_cards.json",
			ErrataStateFile: "last_errata.json",
		},
		News: NewsConfig{
			FeedURL:   "https://www.ultramanconnection.com/feed/",
			StateFile: "last_rss_uc_item.json",
		},
		Schedule: ScheduleConfig{WatchInterval: "30m"},
	}
}

// Load reads configuration from a YAML file and applies env overrides.
// An empty path loads defaults plus env.
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

	applyEnvOverrides(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("NEBULA_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}
	if v := os.Getenv("NEBULA_CARD_API_URL"); v != "" {
		cfg.Cards.APIURL = v
	}
	if v := os.Getenv("NEBULA_NEWS_FEED_URL"); v != "" {
		cfg.News.FeedURL = v
	}
	if v := os.Getenv("DISCORD_WEBHOOK_URL"); v != "" {
		cfg.Cards.WebhookURL = v
	}
	if v := os.Getenv("NEWS_WEBHOOK"); v != "" {
		cfg.News.WebhookURL = v
	}
	if v := os.Getenv("NEBULA_WEBHOOK_URL"); v != "" {
		cfg.Webhook.URL = v
	}
	if v := os.Getenv("NEBULA_WEBHOOK_SECRET"); v != "" {
		cfg.Webhook.Secret = v
	}
}
