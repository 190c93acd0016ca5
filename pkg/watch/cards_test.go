package watch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sort"
	"testing"

	"github.com/nebula-collection/nebula/pkg/alert"
)

// fakeNotifier records every message it is asked to send.
type fakeNotifier struct {
	sent []*alert.Message
	fail bool
}

func (f *fakeNotifier) Name() string { return "fake" }

func (f *fakeNotifier) Send(ctx context.Context, m *alert.Message) error {
	if f.fail {
		return errors.New("delivery refused")
	}
	f.sent = append(f.sent, m)
	return nil
}

func cardJSON(number, name, rarity string, errata bool) string {
	errataURL := "null"
	if errata {
		errataURL = fmt.Sprintf("%q", "https://example.com/errata/"+number)
	}
	return fmt.Sprintf(`{
		"id": 1, "name": %q, "number": %q, "rarity": %q, "feature": "Ultra Hero",
		"image_url": "https://example.com/%s.png", "thumbnail_image_url": null,
		"effect": "Some effect", "errata_enable": %v, "errata_url": %s
	}`, name, number, rarity, number, errata, errataURL)
}

func cardAPI(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func setKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func TestCardWatcherDiff(t *testing.T) {
	body := "[" + cardJSON("A", "Alpha", "C", false) + "," +
		cardJSON("B", "Beta", "R", false) + "," +
		cardJSON("C", "Gamma", "UR", false) + "]"
	srv := cardAPI(t, body)

	notifier := &fakeNotifier{}
	state := &MemSetStore{IDs: map[string]bool{"A": true, "B": true}}
	errata := &MemSetStore{}
	alerts := alert.NewManager([]alert.Notifier{notifier})

	w := NewCardWatcher(srv.URL, alerts, alerts, state, errata)
	res, err := w.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if res.NewCards != 1 {
		t.Errorf("NewCards = %d, want 1", res.NewCards)
	}
	if len(notifier.sent) != 1 {
		t.Fatalf("sent %d notifications, want 1", len(notifier.sent))
	}
	if got := notifier.sent[0].Title; got != "🆕 New Card Added: Gamma" {
		t.Errorf("title = %q", got)
	}
	if got := notifier.sent[0].ImageURL; got != "https://example.com/C.png" {
		t.Errorf("image url = %q", got)
	}
	if got := setKeys(state.IDs); !reflect.DeepEqual(got, []string{"A", "B", "C"}) {
		t.Errorf("persisted set = %v, want [A B C]", got)
	}
}

func TestCardWatcherFirstRunAllNew(t *testing.T) {
	body := "[" + cardJSON("A", "Alpha", "C", false) + "," +
		cardJSON("B", "Beta", "R", false) + "]"
	srv := cardAPI(t, body)

	notifier := &fakeNotifier{}
	alerts := alert.NewManager([]alert.Notifier{notifier})

	w := NewCardWatcher(srv.URL, alerts, alerts, &MemSetStore{}, &MemSetStore{})
	res, err := w.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.NewCards != 2 {
		t.Errorf("NewCards = %d, want 2", res.NewCards)
	}

	// Collection iteration order, not set order.
	if notifier.sent[0].Title != "🆕 New Card Added: Alpha" ||
		notifier.sent[1].Title != "🆕 New Card Added: Beta" {
		t.Errorf("notification order = [%q %q]", notifier.sent[0].Title, notifier.sent[1].Title)
	}
}

func TestCardWatcherIdempotent(t *testing.T) {
	body := "[" + cardJSON("A", "Alpha", "C", false) + "]"
	srv := cardAPI(t, body)

	notifier := &fakeNotifier{}
	state := &MemSetStore{}
	errata := &MemSetStore{}
	alerts := alert.NewManager([]alert.Notifier{notifier})
	w := NewCardWatcher(srv.URL, alerts, alerts, state, errata)

	for run := 1; run <= 2; run++ {
		if _, err := w.Run(context.Background()); err != nil {
			t.Fatalf("run %d error = %v", run, err)
		}
	}

	if len(notifier.sent) != 1 {
		t.Errorf("sent %d notifications across two runs, want 1", len(notifier.sent))
	}
	if state.Saves != 1 {
		t.Errorf("state saved %d times, want 1 (no rewrite on no-op run)", state.Saves)
	}
}

func TestCardWatcherErrataIndependent(t *testing.T) {
	body := "[" + cardJSON("A", "Alpha", "C", true) + "]"
	srv := cardAPI(t, body)

	cardNotifier := &fakeNotifier{}
	errataNotifier := &fakeNotifier{}
	// Card A was already seen; only its errata is new.
	state := &MemSetStore{IDs: map[string]bool{"A": true}}
	errata := &MemSetStore{}

	w := NewCardWatcher(srv.URL,
		alert.NewManager([]alert.Notifier{cardNotifier}),
		alert.NewManager([]alert.Notifier{errataNotifier}),
		state, errata)

	res, err := w.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.NewCards != 0 {
		t.Errorf("NewCards = %d, want 0", res.NewCards)
	}
	if res.NewErrata != 1 {
		t.Errorf("NewErrata = %d, want 1", res.NewErrata)
	}
	if len(cardNotifier.sent) != 0 {
		t.Errorf("card channel got %d messages, want 0", len(cardNotifier.sent))
	}
	if len(errataNotifier.sent) != 1 {
		t.Fatalf("errata channel got %d messages, want 1", len(errataNotifier.sent))
	}
	if got := errataNotifier.sent[0].URL; got != "https://example.com/errata/A" {
		t.Errorf("errata url = %q", got)
	}
	if !errata.IDs["A"] {
		t.Errorf("errata set = %v, want A present", setKeys(errata.IDs))
	}
}

func TestCardWatcherFetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	state := &MemSetStore{IDs: map[string]bool{"A": true}}
	alerts := alert.NewManager(nil)
	w := NewCardWatcher(srv.URL, alerts, alerts, state, &MemSetStore{})

	if _, err := w.Run(context.Background()); err == nil {
		t.Fatal("Run() expected error on fetch failure")
	}
	if state.Saves != 0 {
		t.Errorf("state saved %d times after failed fetch, want 0", state.Saves)
	}
}

func TestCardWatcherDeliveryFailureKeepsState(t *testing.T) {
	body := "[" + cardJSON("A", "Alpha", "C", false) + "]"
	srv := cardAPI(t, body)

	notifier := &fakeNotifier{fail: true}
	state := &MemSetStore{}
	alerts := alert.NewManager([]alert.Notifier{notifier})
	w := NewCardWatcher(srv.URL, alerts, alerts, state, &MemSetStore{})

	if _, err := w.Run(context.Background()); err == nil {
		t.Fatal("Run() expected error on delivery failure")
	}
	// State untouched: the next run re-diffs and re-sends.
	if state.Saves != 0 {
		t.Errorf("state saved %d times after failed delivery, want 0", state.Saves)
	}
}

func TestDiff(t *testing.T) {
	tests := []struct {
		name              string
		current, previous []string
		want              []string
	}{
		{"all new", []string{"A", "B"}, nil, []string{"A", "B"}},
		{"one new", []string{"A", "B", "C"}, []string{"A", "B"}, []string{"C"}},
		{"no change", []string{"A", "B"}, []string{"A", "B"}, []string{}},
		{"removal is not new", []string{"A"}, []string{"A", "B"}, []string{}},
	}

	toSet := func(ids []string) map[string]bool {
		m := map[string]bool{}
		for _, id := range ids {
			m[id] = true
		}
		return m
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := diff(toSet(tt.current), toSet(tt.previous))
			if !reflect.DeepEqual(setKeys(got), append([]string{}, tt.want...)) {
				t.Errorf("diff() = %v, want %v", setKeys(got), tt.want)
			}
			for id := range got {
				if toSet(tt.previous)[id] {
					t.Errorf("diff() contains previously seen %q", id)
				}
			}
		})
	}
}
