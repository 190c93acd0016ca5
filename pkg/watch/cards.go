package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/nebula-collection/nebula/pkg/alert"
	"github.com/nebula-collection/nebula/pkg/card"
)

// CardWatcher polls the card collection API and notifies once per newly
// observed card and once per newly published errata. Cards are identified
// by their printed number. New-card and errata snapshots are independent
// state files; each is rewritten wholesale, and only on runs that found
// something new.
//
// Two instances must not run concurrently against the same state: both
// would load the same "previous" set and duplicate-notify. The caller's
// scheduler enforces non-overlap.
type CardWatcher struct {
	client      *http.Client
	apiURL      string
	alerts      *alert.Manager
	cards       SetStore
	errata      SetStore
	errataAlert *alert.Manager
}

// NewCardWatcher creates a watcher polling apiURL. errataAlerts may equal
// alerts when both kinds of notification share a destination.
func NewCardWatcher(apiURL string, alerts, errataAlerts *alert.Manager, cards, errata SetStore) *CardWatcher {
	return &CardWatcher{
		client:      &http.Client{Timeout: 30 * time.Second},
		apiURL:      apiURL,
		alerts:      alerts,
		cards:       cards,
		errata:      errata,
		errataAlert: errataAlerts,
	}
}

// Result reports what one watcher run did.
type Result struct {
	Fetched   int
	NewCards  int
	NewErrata int
}

// Run performs one poll cycle. A fetch or delivery failure errors the run
// before any state is written, so the next run re-diffs and re-sends
// (at-least-once delivery).
func (w *CardWatcher) Run(ctx context.Context) (*Result, error) {
	cards, err := w.fetch(ctx)
	if err != nil {
		return nil, err
	}

	current := make(map[string]bool, len(cards))
	currentErrata := make(map[string]bool)
	for _, c := range cards {
		if !c.Number.Valid {
			continue
		}
		current[c.Number.String] = true
		if c.ErrataEnable {
			currentErrata[c.Number.String] = true
		}
	}

	res := &Result{Fetched: len(cards)}

	previous, err := w.cards.Load()
	if err != nil {
		return nil, fmt.Errorf("load card state: %w", err)
	}
	newCards := diff(current, previous)

	previousErrata, err := w.errata.Load()
	if err != nil {
		return nil, fmt.Errorf("load errata state: %w", err)
	}
	newErrata := diff(currentErrata, previousErrata)

	// Notify in the collection's iteration order.
	for _, c := range cards {
		if !c.Number.Valid {
			continue
		}
		if newCards[c.Number.String] {
			if err := w.alerts.Broadcast(ctx, newCardMessage(c)); err != nil {
				return res, fmt.Errorf("notify card %s: %w", c.Number.String, err)
			}
			res.NewCards++
		}
		if newErrata[c.Number.String] {
			if err := w.errataAlert.Broadcast(ctx, errataMessage(c)); err != nil {
				return res, fmt.Errorf("notify errata %s: %w", c.Number.String, err)
			}
			res.NewErrata++
		}
	}

	if len(newCards) > 0 {
		if err := w.cards.Save(current); err != nil {
			return res, fmt.Errorf("save card state: %w", err)
		}
	}
	if len(newErrata) > 0 {
		if err := w.errata.Save(currentErrata); err != nil {
			return res, fmt.Errorf("save errata state: %w", err)
		}
	}

	return res, nil
}

func (w *CardWatcher) fetch(ctx context.Context) ([]card.Card, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create card request: %w", err)
	}
	req.Header.Set("User-Agent", "nebula/1.0")

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch cards: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("card api status %d", resp.StatusCode)
	}

	var cards []card.Card
	if err := json.NewDecoder(resp.Body).Decode(&cards); err != nil {
		return nil, fmt.Errorf("decode cards: %w", err)
	}
	return cards, nil
}

func newCardMessage(c card.Card) *alert.Message {
	m := &alert.Message{
		Title: fmt.Sprintf("🆕 New Card Added: %s", c.Name),
		Color: alert.ColorNewCard,
		Fields: []alert.Field{
			{Name: "Number", Value: c.Number.String},
			{Name: "Rarity", Value: c.Rarity.String},
			{Name: "Feature", Value: c.Feature.String},
		},
	}
	if c.ImageURL.Valid {
		m.ImageURL = c.ImageURL.String
	}
	return m
}

func errataMessage(c card.Card) *alert.Message {
	m := &alert.Message{
		Title:       fmt.Sprintf("📝 Errata Published: %s", c.Name),
		Description: c.Effect.String,
		Color:       alert.ColorErrata,
		Fields: []alert.Field{
			{Name: "Number", Value: c.Number.String},
		},
	}
	if c.ErrataURL.Valid {
		m.URL = c.ErrataURL.String
	}
	if c.ThumbnailImageURL.Valid {
		m.ImageURL = c.ThumbnailImageURL.String
	}
	return m
}

// diff returns current minus previous.
func diff(current, previous map[string]bool) map[string]bool {
	out := make(map[string]bool)
	for id := range current {
		if !previous[id] {
			out[id] = true
		}
	}
	return out
}
