package watch

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/nebula-collection/nebula/pkg/alert"
)

// NewsWatcher polls an ordered (newest-first) RSS/Atom feed and notifies
// once per entry published since the persisted cursor. New entries are
// delivered oldest-to-newest so readers see them chronologically.
type NewsWatcher struct {
	client  *http.Client
	parser  *gofeed.Parser
	feedURL string
	alerts  *alert.Manager
	cursor  CursorStore
}

// NewNewsWatcher creates a watcher over feedURL.
func NewNewsWatcher(feedURL string, alerts *alert.Manager, cursor CursorStore) *NewsWatcher {
	return &NewsWatcher{
		client:  &http.Client{Timeout: 30 * time.Second},
		parser:  gofeed.NewParser(),
		feedURL: feedURL,
		alerts:  alerts,
		cursor:  cursor,
	}
}

// Run performs one poll cycle and returns the number of entries notified.
// A malformed feed errors the run with the cursor untouched. On the first
// ever run every entry counts as new.
func (w *NewsWatcher) Run(ctx context.Context) (int, error) {
	feed, err := w.fetch(ctx)
	if err != nil {
		return 0, err
	}

	last, err := w.cursor.Load()
	if err != nil {
		return 0, fmt.Errorf("load cursor: %w", err)
	}

	// Entries arrive newest first; collect until the last-seen one.
	var fresh []*gofeed.Item
	for _, entry := range feed.Items {
		if entryID(entry) == last && last != "" {
			break
		}
		fresh = append(fresh, entry)
	}

	// Deliver oldest to newest.
	for i := len(fresh) - 1; i >= 0; i-- {
		entry := fresh[i]
		if err := w.alerts.Broadcast(ctx, newsMessage(entry)); err != nil {
			return len(fresh) - 1 - i, fmt.Errorf("notify %q: %w", entry.Title, err)
		}
	}

	if len(fresh) > 0 {
		if err := w.cursor.Save(entryID(fresh[0])); err != nil {
			return len(fresh), fmt.Errorf("save cursor: %w", err)
		}
	}

	return len(fresh), nil
}

func (w *NewsWatcher) fetch(ctx context.Context) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create feed request: %w", err)
	}
	req.Header.Set("User-Agent", "nebula/1.0")

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed status %d", resp.StatusCode)
	}

	feed, err := w.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return feed, nil
}

// entryID returns the entry's GUID, falling back to its link when the
// feed omits GUIDs.
func entryID(entry *gofeed.Item) string {
	if entry.GUID != "" {
		return entry.GUID
	}
	return entry.Link
}

func newsMessage(entry *gofeed.Item) *alert.Message {
	return &alert.Message{
		Title:       entry.Title,
		URL:         entry.Link,
		Description: entry.Description,
		ImageURL:    extractImage(entry),
		Color:       alert.ColorNews,
	}
}

// extractImage finds the first image attached to an entry: the entry
// image, an image-typed enclosure, or a media:content extension URL.
func extractImage(entry *gofeed.Item) string {
	if entry.Image != nil && entry.Image.URL != "" {
		return entry.Image.URL
	}
	for _, enc := range entry.Enclosures {
		if strings.HasPrefix(enc.Type, "image/") && enc.URL != "" {
			return enc.URL
		}
	}
	if media, ok := entry.Extensions["media"]; ok {
		for _, ext := range media["content"] {
			if url := ext.Attrs["url"]; url != "" {
				return url
			}
		}
	}
	return ""
}
