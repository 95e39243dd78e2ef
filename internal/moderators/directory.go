package moderators

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
)

// Directory maps moderator Telegram ids to display names. It is read-only after Load.
type Directory struct {
	names map[string]string
}

// Load reads the directory file, creating an empty one when it does not exist
func Load(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
			return nil, fmt.Errorf("failed to create moderators file: %w", err)
		}
		return New(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read moderators file: %w", err)
	}

	names := make(map[string]string)
	if err := json.Unmarshal(data, &names); err != nil {
		return nil, fmt.Errorf("failed to parse moderators file: %w", err)
	}
	return New(names), nil
}

// New builds a directory from an id -> name map
func New(names map[string]string) *Directory {
	d := &Directory{names: make(map[string]string, len(names))}
	for id, name := range names {
		d.names[id] = name
	}
	return d
}

// Name returns the configured name for the moderator or fallback when unlisted
func (d *Directory) Name(id int64, fallback string) string {
	if d == nil {
		return fallback
	}
	if name, ok := d.names[strconv.FormatInt(id, 10)]; ok && name != "" {
		return name
	}
	return fallback
}

// Len returns the number of listed moderators
func (d *Directory) Len() int {
	if d == nil {
		return 0
	}
	return len(d.names)
}
