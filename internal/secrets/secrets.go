// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads provider credentials from a directory of plain-text
// files. Each file holds one secret: the filename is the key name and the
// trimmed file contents are the value.
//
// Provider API keys use the name "<provider>-api-key", for example
// "openai-api-key" for a provider named "openai".
package secrets

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/bilingual-research/pkg/types"
)

// DefaultDir is the secrets directory the CLI reads at startup.
const DefaultDir = ".secrets/"

// Load reads all files in dir and returns a map of filename to trimmed
// contents. A missing directory is not an error; Load returns an empty map.
// Unreadable files are logged and skipped.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			slog.Warn("could not read secret", "name", name, "err", err)
			continue
		}

		if value := strings.TrimSpace(string(data)); value != "" {
			secrets[name] = value
		}
	}
	return secrets, nil
}

// KeyName returns the secret name holding the API key for provider.
func KeyName(provider string) string {
	return strings.ToLower(provider) + "-api-key"
}

// ApplyProviderKeys returns a copy of providers with empty APIKey fields
// filled from secrets. Keys set in configuration are never overridden.
func ApplyProviderKeys(providers []types.ProviderDescriptor, secrets map[string]string) []types.ProviderDescriptor {
	out := make([]types.ProviderDescriptor, len(providers))
	for i, p := range providers {
		if p.APIKey == "" {
			if v, ok := secrets[KeyName(p.Name)]; ok {
				p.APIKey = v
			}
		}
		out[i] = p
	}
	return out
}
