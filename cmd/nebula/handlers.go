package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nebula-collection/nebula/internal/config"
	"github.com/nebula-collection/nebula/internal/scheduler"
	"github.com/nebula-collection/nebula/internal/server"
	"github.com/nebula-collection/nebula/internal/store"
	"github.com/nebula-collection/nebula/pkg/alert"
	"github.com/nebula-collection/nebula/pkg/watch"
)

func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

// alertManager builds the destinations for one watcher channel. The
// generic webhook, when configured, receives every channel.
func alertManager(cfg *config.Config, discordURL string) *alert.Manager {
	var notifiers []alert.Notifier
	if discordURL != "" {
		notifiers = append(notifiers, alert.NewDiscord(discordURL))
	}
	if cfg.Webhook.URL != "" {
		notifiers = append(notifiers, alert.NewWebhook(cfg.Webhook.URL, cfg.Webhook.Secret))
	}
	return alert.NewManager(notifiers)
}

func buildCardWatcher(cfg *config.Config) (*watch.CardWatcher, error) {
	alerts := alertManager(cfg, cfg.Cards.WebhookURL)
	if !alerts.HasNotifiers() {
		return nil, config.ErrNoWebhook
	}
	return watch.NewCardWatcher(
		cfg.Cards.APIURL,
		alerts,
		alerts,
		&watch.FileSetStore{Path: cfg.Cards.StateFile},
		&watch.FileSetStore{Path: cfg.Cards.ErrataStateFile},
	), nil
}

func buildNewsWatcher(cfg *config.Config) (*watch.NewsWatcher, error) {
	alerts := alertManager(cfg, cfg.News.WebhookURL)
	if !alerts.HasNotifiers() {
		return nil, config.ErrNoWebhook
	}
	return watch.NewNewsWatcher(
		cfg.News.FeedURL,
		alerts,
		&watch.FileCursorStore{Path: cfg.News.StateFile},
	), nil
}

func runServe(port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if port == 0 {
		port = cfg.Server.Port
	}

	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	return server.New(db, port).ListenAndServe()
}

func runImport(path string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	n, err := db.ImportCSV(context.Background(), f)
	if err != nil {
		return fmt.Errorf("import csv: %w", err)
	}

	fmt.Fprintf(os.Stderr, "imported %d cards into %s\n", n, cfg.Database.Path)
	return nil
}

func runWatchCards() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	watcher, err := buildCardWatcher(cfg)
	if err != nil {
		return err
	}

	res, err := watcher.Run(context.Background())
	if err != nil {
		return fmt.Errorf("watch cards: %w", err)
	}

	if res.NewCards == 0 && res.NewErrata == 0 {
		fmt.Fprintln(os.Stderr, "no new cards detected")
		return nil
	}
	fmt.Fprintf(os.Stderr, "notified %d new cards, %d errata (of %d fetched)\n",
		res.NewCards, res.NewErrata, res.Fetched)
	return nil
}

func runWatchNews() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	watcher, err := buildNewsWatcher(cfg)
	if err != nil {
		return err
	}

	n, err := watcher.Run(context.Background())
	if err != nil {
		return fmt.Errorf("watch news: %w", err)
	}

	if n == 0 {
		fmt.Fprintln(os.Stderr, "no new entries")
		return nil
	}
	fmt.Fprintf(os.Stderr, "notified %d new entries\n", n)
	return nil
}

func runDaemon(port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if port == 0 {
		port = cfg.Server.Port
	}

	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	// Watchers are optional in daemon mode; the API still serves without
	// webhooks configured.
	cards, err := buildCardWatcher(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "card watcher disabled: %v\n", err)
	}
	news, err := buildNewsWatcher(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "news watcher disabled: %v\n", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cards != nil || news != nil {
		sched := scheduler.New(cards, news, cfg.Schedule.ParseWatchInterval())
		go func() {
			if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
				fmt.Fprintf(os.Stderr, "scheduler error: %v\n", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		fmt.Fprintln(os.Stderr, "\nshutting down...")
	}()

	return server.New(db, port).ListenAndServe()
}
