// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets reads API keys from a directory of plain-text files,
// one secret per file: the filename is the key name, the trimmed file
// contents are the value. The pipeline looks for anthropic-api-key and
// tavily-api-key; other files are loaded but unused.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Load reads every regular file in dir into a name-to-value map. A
// missing directory is not an error: the pipeline can run with keys from
// config or the environment instead, so Load returns an empty map.
// Dotfiles and subdirectories are skipped. An unreadable file warns on
// stderr and is skipped rather than aborting the whole load.
func Load(dir string) (map[string]string, error) {
	out := make(map[string]string)

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return out, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: skipping secret %s: %v\n", name, err)
			continue
		}
		if value := strings.TrimSpace(string(data)); value != "" {
			out[name] = value
		}
	}
	return out, nil
}
