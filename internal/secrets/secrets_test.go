// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) string
		want  Set
	}{
		{
			name: "reads key files and trims whitespace",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, OpenAIAPIKey, "  sk-abc123  \n")
				writeFile(t, dir, AnthropicAPIKey, "ak-xyz789")
				return dir
			},
			want: Set{
				OpenAIAPIKey:    "sk-abc123",
				AnthropicAPIKey: "ak-xyz789",
			},
		},
		{
			name: "returns empty set for nonexistent directory",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "does-not-exist")
			},
			want: Set{},
		},
		{
			name: "skips empty files, dotfiles and directories",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, AnthropicAPIKey, "valid-key")
				writeFile(t, dir, "empty-key", "")
				writeFile(t, dir, "whitespace-only", "   \n\t  ")
				writeFile(t, dir, ".gitkeep", "x")
				require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))
				return dir
			},
			want: Set{AnthropicAPIKey: "valid-key"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.setup(t))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoad_NotADirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "file", "x")

	_, err := Load(filepath.Join(dir, "file"))
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "from-env")
	s := Set{AnthropicAPIKey: "from-file"}

	assert.Equal(t, "explicit", s.Resolve(AnthropicAPIKey, "explicit"))
	assert.Equal(t, "from-file", s.Resolve(AnthropicAPIKey, ""))
	assert.Equal(t, "from-env", s.Resolve(OpenAIAPIKey, ""))
	assert.Equal(t, "", Set{}.Resolve("unknown-key", ""))
}

func TestLoadDotenv(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".env", "TRAVEL_RECOMMENDER_TEST_VAR=hello\n")
	t.Setenv("TRAVEL_RECOMMENDER_TEST_VAR", "")
	os.Unsetenv("TRAVEL_RECOMMENDER_TEST_VAR")

	loaded, err := LoadDotenv(filepath.Join(dir, ".env"), filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, ".env")}, loaded)
	assert.Equal(t, "hello", os.Getenv("TRAVEL_RECOMMENDER_TEST_VAR"))
}

func TestEnvName(t *testing.T) {
	assert.Equal(t, "OPENAI_API_KEY", EnvName(OpenAIAPIKey))
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
