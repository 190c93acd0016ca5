package alert

import (
	"context"
	"errors"
	"fmt"
)

// Embed colors used by the watchers.
const (
	ColorNewCard = 0x3498DB // blue
	ColorNews    = 0x2ECC71 // green
	ColorErrata  = 0xE67E22 // orange
)

// Field is one labeled value attached to a message.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Message is one notification about a new card, errata, or news entry.
type Message struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	URL         string  `json:"url,omitempty"`
	ImageURL    string  `json:"image_url,omitempty"`
	Color       int     `json:"color"`
	Fields      []Field `json:"fields,omitempty"`
}

// Notifier delivers messages to a single destination.
type Notifier interface {
	Name() string
	Send(ctx context.Context, m *Message) error
}

// Manager broadcasts messages to all registered notifiers.
type Manager struct {
	notifiers []Notifier
}

// NewManager creates a Manager over the given notifiers.
func NewManager(notifiers []Notifier) *Manager {
	return &Manager{notifiers: notifiers}
}

// HasNotifiers reports whether at least one destination is configured.
func (m *Manager) HasNotifiers() bool {
	return len(m.notifiers) > 0
}

// Broadcast sends a message to every notifier. Failures do not stop the
// remaining notifiers; all errors are joined.
func (m *Manager) Broadcast(ctx context.Context, msg *Message) error {
	var errs []error
	for _, n := range m.notifiers {
		if err := n.Send(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
	}
	return errors.Join(errs...)
}
