package watch

import (
	"encoding/json"
	"fmt"
	"os"
)

// SetStore persists the set of identifiers seen as of the last successful
// run of a snapshot-diff watcher.
type SetStore interface {
	Load() (map[string]bool, error)
	Save(ids map[string]bool) error
}

// CursorStore persists the identifier of the most recent feed entry
// processed by an ordered-feed watcher.
type CursorStore interface {
	Load() (string, error)
	Save(id string) error
}

// FileSetStore keeps the identifier set as a JSON array in a flat file.
// A missing or unreadable-as-JSON file is "no prior state", so a watcher
// heals itself after corruption instead of failing every run.
type FileSetStore struct {
	Path string
}

func (f *FileSetStore) Load() (map[string]bool, error) {
	data, err := os.ReadFile(f.Path)
	if os.IsNotExist(err) {
		return map[string]bool{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state %s: %w", f.Path, err)
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return map[string]bool{}, nil
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

func (f *FileSetStore) Save(ids map[string]bool) error {
	list := make([]string, 0, len(ids))
	for id := range ids {
		list = append(list, id)
	}
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if err := os.WriteFile(f.Path, data, 0o644); err != nil {
		return fmt.Errorf("write state %s: %w", f.Path, err)
	}
	return nil
}

// FileCursorStore keeps the cursor as {"last_item": <id-or-null>}.
type FileCursorStore struct {
	Path string
}

type cursorFile struct {
	LastItem *string `json:"last_item"`
}

func (f *FileCursorStore) Load() (string, error) {
	data, err := os.ReadFile(f.Path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read cursor %s: %w", f.Path, err)
	}

	var c cursorFile
	if err := json.Unmarshal(data, &c); err != nil || c.LastItem == nil {
		return "", nil
	}
	return *c.LastItem, nil
}

func (f *FileCursorStore) Save(id string) error {
	data, err := json.MarshalIndent(cursorFile{LastItem: &id}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cursor: %w", err)
	}
	if err := os.WriteFile(f.Path, data, 0o644); err != nil {
		return fmt.Errorf("write cursor %s: %w", f.Path, err)
	}
	return nil
}

// MemSetStore is an in-memory SetStore for tests.
type MemSetStore struct {
	IDs   map[string]bool
	Saves int
}

func (m *MemSetStore) Load() (map[string]bool, error) {
	out := make(map[string]bool, len(m.IDs))
	for id := range m.IDs {
		out[id] = true
	}
	return out, nil
}

func (m *MemSetStore) Save(ids map[string]bool) error {
	m.IDs = ids
	m.Saves++
	return nil
}

// MemCursorStore is an in-memory CursorStore for tests.
type MemCursorStore struct {
	Cursor string
	Saves  int
}

func (m *MemCursorStore) Load() (string, error) {
	return m.Cursor, nil
}

func (m *MemCursorStore) Save(id string) error {
	m.Cursor = id
	m.Saves++
	return nil
}
