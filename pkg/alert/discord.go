package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Discord sends messages via a Discord webhook, one embed per message.
type Discord struct {
	client     *http.Client
	webhookURL string
}

// NewDiscord creates a Discord webhook notifier.
func NewDiscord(webhookURL string) *Discord {
	return &Discord{
		client:     &http.Client{Timeout: 10 * time.Second},
		webhookURL: webhookURL,
	}
}

func (d *Discord) Name() string { return "discord" }

func (d *Discord) Send(ctx context.Context, m *Message) error {
	description := m.Description
	if len(m.Fields) > 0 {
		var lines []string
		for _, f := range m.Fields {
			lines = append(lines, fmt.Sprintf("**%s:** %s", f.Name, f.Value))
		}
		if description != "" {
			lines = append(lines, "", description)
		}
		description = strings.Join(lines, "\n")
	}

	embed := map[string]any{
		"title":       m.Title,
		"description": description,
		"color":       m.Color,
	}
	if m.URL != "" {
		embed["url"] = m.URL
	}
	if m.ImageURL != "" {
		embed["image"] = map[string]any{"url": m.ImageURL}
	}

	payload := map[string]any{
		"embeds": []map[string]any{embed},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal discord payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("send discord webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("discord webhook status %d", resp.StatusCode)
	}

	return nil
}
