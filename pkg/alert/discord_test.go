package alert

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDiscordSend(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d := NewDiscord(srv.URL)
	msg := &Message{
		Title:    "🆕 New Card Added: Zetton",
		Color:    ColorNewCard,
		ImageURL: "https://example.com/zetton.png",
		Fields: []Field{
			{Name: "Number", Value: "BP04-031"},
			{Name: "Rarity", Value: "UR"},
		},
	}
	if err := d.Send(context.Background(), msg); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	embeds, ok := got["embeds"].([]any)
	if !ok || len(embeds) != 1 {
		t.Fatalf("payload embeds = %v, want one embed", got["embeds"])
	}
	embed := embeds[0].(map[string]any)
	if embed["title"] != msg.Title {
		t.Errorf("embed title = %v", embed["title"])
	}
	if embed["color"] != float64(ColorNewCard) {
		t.Errorf("embed color = %v, want %d", embed["color"], ColorNewCard)
	}
	desc, _ := embed["description"].(string)
	if !strings.Contains(desc, "**Number:** BP04-031") || !strings.Contains(desc, "**Rarity:** UR") {
		t.Errorf("embed description = %q", desc)
	}
	image, _ := embed["image"].(map[string]any)
	if image["url"] != msg.ImageURL {
		t.Errorf("embed image = %v", embed["image"])
	}
}

func TestDiscordSendNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	d := NewDiscord(srv.URL)
	if err := d.Send(context.Background(), &Message{Title: "x"}); err == nil {
		t.Fatal("Send() expected error on 429")
	}
}

type stubNotifier struct {
	name string
	err  error
	sent int
}

func (s *stubNotifier) Name() string { return s.name }

func (s *stubNotifier) Send(ctx context.Context, m *Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent++
	return nil
}

func TestManagerBroadcast(t *testing.T) {
	ok := &stubNotifier{name: "ok"}
	bad := &stubNotifier{name: "bad", err: errors.New("boom")}
	m := NewManager([]Notifier{bad, ok})

	err := m.Broadcast(context.Background(), &Message{Title: "x"})
	if err == nil {
		t.Fatal("Broadcast() expected joined error")
	}
	if !strings.Contains(err.Error(), "bad: boom") {
		t.Errorf("Broadcast() error = %v", err)
	}
	// A failing notifier must not stop the others.
	if ok.sent != 1 {
		t.Errorf("ok notifier sent %d, want 1", ok.sent)
	}
}

func TestManagerHasNotifiers(t *testing.T) {
	if NewManager(nil).HasNotifiers() {
		t.Error("empty manager reports notifiers")
	}
	if !NewManager([]Notifier{&stubNotifier{name: "x"}}).HasNotifiers() {
		t.Error("non-empty manager reports no notifiers")
	}
}
