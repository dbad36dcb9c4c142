// SPDX-License-Identifier: AGPL-3.0-or-later
package grbl

import (
	"fmt"
	"os"
	"strings"
)

// LoadInitLines reads a newline-separated list of startup commands from
// path, creating an empty file if none exists yet, and returns the
// non-blank, trimmed lines in order. The result is meant to be assigned
// to Controller.InitLines before calling Connect.
func LoadInitLines(path string) ([]string, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, []byte(""), 0644); err != nil {
			return nil, fmt.Errorf("grbl: create init file: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("grbl: stat init file: %w", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("grbl: read init file: %w", err)
	}

	var lines []string
	for _, line := range strings.Split(string(content), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

// SaveInitLines persists lines to path, one per line, overwriting any
// existing content.
func SaveInitLines(path string, lines []string) error {
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0644); err != nil {
		return fmt.Errorf("grbl: write init file: %w", err)
	}
	return nil
}
