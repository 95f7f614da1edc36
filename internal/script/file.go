package script

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/apresai/podcraft/internal/dialogue"
)

// Save writes d as indented JSON so it can be edited and synthesized later.
func Save(d *dialogue.Dialogue, path string) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal dialogue: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write dialogue to %s: %w", path, err)
	}
	return nil
}

// Load reads a dialogue written by Save and validates it. Every speaker is
// accepted, so a saved long dialogue loads whatever length is requested.
func Load(path string) (*dialogue.Dialogue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dialogue from %s: %w", path, err)
	}
	var d dialogue.Dialogue
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse dialogue from %s: %w", path, err)
	}
	if err := d.Validate(dialogue.Long); err != nil {
		return nil, fmt.Errorf("dialogue %s: %w", path, err)
	}
	if d.NameOfGuest == "" {
		d.NameOfGuest = dialogue.DefaultGuestName
	}
	return &d, nil
}
