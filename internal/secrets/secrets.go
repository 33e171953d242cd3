// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys from a directory of plain-text files and
// from the environment. Each file in the directory is one secret: the
// filename is the key name and the trimmed contents are the value.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// Key names understood by the CLI.
const (
	OpenAIAPIKey    = "openai-api-key"
	AnthropicAPIKey = "anthropic-api-key"
)

// Set is a loaded collection of secrets.
type Set map[string]string

// Load reads all files in dir and returns them keyed by filename. A missing
// directory is not an error. Unreadable files produce a warning on stderr
// but do not abort.
func Load(dir string) (Set, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Set{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(Set)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not read secret %s: %v\n", name, err)
			continue
		}

		if value := strings.TrimSpace(string(data)); value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// LoadDotenv exports the variables of the given .env files into the process
// environment without overriding variables that are already set. Missing
// files are skipped.
func LoadDotenv(files ...string) ([]string, error) {
	var loaded []string
	for _, f := range files {
		if _, err := os.Stat(f); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return loaded, fmt.Errorf("loading %s: %w", f, err)
		}
		loaded = append(loaded, f)
	}
	return loaded, nil
}

// EnvName maps a key name to its environment variable, e.g.
// "openai-api-key" to "OPENAI_API_KEY".
func EnvName(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
}

// Resolve returns the first non-empty value among explicit, the secret file
// named key and the environment variable derived from key.
func (s Set) Resolve(key, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if v, ok := s[key]; ok {
		return v
	}
	return os.Getenv(EnvName(key))
}
