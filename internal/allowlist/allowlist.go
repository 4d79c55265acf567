// Package allowlist loads the merchant allow list from a JSON array file.
package allowlist

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/subscout-dev/subscout/internal/detect"
)

// DefaultFile is the allow list file name written by init.
const DefaultFile = "whitelist.json"

// Parse reads a JSON array of strings.
func Parse(r io.Reader) (detect.AllowList, error) {
	var entries []string
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return detect.AllowList{}, fmt.Errorf("decoding allow list: %w", err)
	}
	return detect.NewAllowList(entries...), nil
}

// Load reads the allow list at path.
func Load(path string) (detect.AllowList, error) {
	f, err := os.Open(path)
	if err != nil {
		return detect.AllowList{}, fmt.Errorf("opening allow list: %w", err)
	}
	defer f.Close()

	list, err := Parse(f)
	if err != nil {
		return detect.AllowList{}, fmt.Errorf("%s: %w", path, err)
	}
	return list, nil
}

// Save writes entries as an indented JSON array.
func Save(path string, entries []string) error {
	if entries == nil {
		entries = []string{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling allow list: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing allow list: %w", err)
	}
	return nil
}
