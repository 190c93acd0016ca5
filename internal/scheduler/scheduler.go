package scheduler

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/nebula-collection/nebula/pkg/watch"
)

// Scheduler runs the watchers periodically. Both watchers run serially on
// a single ticker, which is what makes runs non-overlapping: a watcher
// must never race another instance on its own state file.
type Scheduler struct {
	cards    *watch.CardWatcher
	news     *watch.NewsWatcher
	interval time.Duration
}

// New creates a scheduler. Either watcher may be nil if its webhook is
// not configured; it is skipped.
func New(cards *watch.CardWatcher, news *watch.NewsWatcher, interval time.Duration) *Scheduler {
	if interval == 0 {
		interval = 30 * time.Minute
	}
	return &Scheduler{cards: cards, news: news, interval: interval}
}

// Run starts the scheduler loop. Blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	fmt.Fprintf(os.Stderr, "scheduler: running (watch every %s)\n", s.interval)
	s.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(os.Stderr, "scheduler: stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if s.cards != nil {
		res, err := s.cards.Run(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  card watch error: %v\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "  cards: %d fetched, %d new, %d errata\n",
				res.Fetched, res.NewCards, res.NewErrata)
		}
	}

	if s.news != nil {
		n, err := s.news.Run(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  news watch error: %v\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "  news: %d new entries\n", n)
		}
	}
}
