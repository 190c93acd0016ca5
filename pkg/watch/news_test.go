package watch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nebula-collection/nebula/pkg/alert"
)

// rssFeed renders a newest-first RSS document from (guid, title) pairs.
func rssFeed(entries ...[2]string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` +
		`<rss version="2.0"><channel><title>News</title>`)
	for _, e := range entries {
		fmt.Fprintf(&b, `<item><guid>%s</guid><title>%s</title>`+
			`<link>https://example.com/%s</link>`+
			`<description>Summary of %s</description>`+
			`<enclosure url="https://example.com/%s.jpg" type="image/jpeg" length="1"/>`+
			`</item>`, e[0], e[1], e[0], e[1], e[0])
	}
	b.WriteString(`</channel></rss>`)
	return b.String()
}

func feedServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewsWatcherFirstRun(t *testing.T) {
	srv := feedServer(t, rssFeed([2]string{"g3", "Third"}, [2]string{"g2", "Second"}, [2]string{"g1", "First"}))

	notifier := &fakeNotifier{}
	cursor := &MemCursorStore{}
	w := NewNewsWatcher(srv.URL, alert.NewManager([]alert.Notifier{notifier}), cursor)

	n, err := w.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if n != 3 {
		t.Errorf("Run() = %d new entries, want 3", n)
	}

	// Delivered oldest to newest.
	var titles []string
	for _, m := range notifier.sent {
		titles = append(titles, m.Title)
	}
	if strings.Join(titles, ",") != "First,Second,Third" {
		t.Errorf("delivery order = %v, want [First Second Third]", titles)
	}

	// Cursor is the entry that was newest at fetch time.
	if cursor.Cursor != "g3" {
		t.Errorf("cursor = %q, want g3", cursor.Cursor)
	}
}

func TestNewsWatcherCursorBoundsBatch(t *testing.T) {
	srv := feedServer(t, rssFeed([2]string{"g3", "Third"}, [2]string{"g2", "Second"}, [2]string{"g1", "First"}))

	notifier := &fakeNotifier{}
	cursor := &MemCursorStore{Cursor: "g2"}
	w := NewNewsWatcher(srv.URL, alert.NewManager([]alert.Notifier{notifier}), cursor)

	n, err := w.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if n != 1 {
		t.Fatalf("Run() = %d new entries, want 1", n)
	}
	if notifier.sent[0].Title != "Third" {
		t.Errorf("notified %q, want Third", notifier.sent[0].Title)
	}
	if notifier.sent[0].URL != "https://example.com/g3" {
		t.Errorf("link = %q", notifier.sent[0].URL)
	}
	if notifier.sent[0].ImageURL != "https://example.com/g3.jpg" {
		t.Errorf("image = %q, want enclosure url", notifier.sent[0].ImageURL)
	}
	if cursor.Cursor != "g3" {
		t.Errorf("cursor = %q, want g3", cursor.Cursor)
	}
}

func TestNewsWatcherNoNewEntries(t *testing.T) {
	srv := feedServer(t, rssFeed([2]string{"g2", "Second"}, [2]string{"g1", "First"}))

	notifier := &fakeNotifier{}
	cursor := &MemCursorStore{Cursor: "g2"}
	w := NewNewsWatcher(srv.URL, alert.NewManager([]alert.Notifier{notifier}), cursor)

	n, err := w.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if n != 0 {
		t.Errorf("Run() = %d new entries, want 0", n)
	}
	if len(notifier.sent) != 0 {
		t.Errorf("sent %d notifications, want 0", len(notifier.sent))
	}
	if cursor.Saves != 0 {
		t.Errorf("cursor saved %d times, want 0", cursor.Saves)
	}
}

func TestNewsWatcherMalformedFeed(t *testing.T) {
	srv := feedServer(t, "this is not a feed")

	cursor := &MemCursorStore{Cursor: "g1"}
	w := NewNewsWatcher(srv.URL, alert.NewManager(nil), cursor)

	if _, err := w.Run(context.Background()); err == nil {
		t.Fatal("Run() expected error for malformed feed")
	}
	if cursor.Saves != 0 || cursor.Cursor != "g1" {
		t.Errorf("cursor modified after malformed feed: %+v", cursor)
	}
}

func TestEntryIDFallsBackToLink(t *testing.T) {
	body := `<?xml version="1.0"?><rss version="2.0"><channel><title>News</title>` +
		`<item><title>NoGUID</title><link>https://example.com/no-guid</link></item>` +
		`</channel></rss>`
	srv := feedServer(t, body)

	notifier := &fakeNotifier{}
	cursor := &MemCursorStore{}
	w := NewNewsWatcher(srv.URL, alert.NewManager([]alert.Notifier{notifier}), cursor)

	if _, err := w.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if cursor.Cursor != "https://example.com/no-guid" {
		t.Errorf("cursor = %q, want the entry link", cursor.Cursor)
	}
}
