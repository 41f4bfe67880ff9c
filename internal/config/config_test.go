package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "multichat.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFromConfigFile(t *testing.T) {
	path := writeConfig(t, `{
		// endpoints
		"inferenceURL": "https://inference.example.com/v1/chat",
		"deploymentsURL": "https://inference.example.com/v1/deployments",
		"notesURL": "https://notes.example.com",
		"apiKey": "k-123"
	}`)
	t.Setenv("MULTICHAT_CONFIG", path)
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://inference.example.com/v1/chat", cfg.InferenceURL)
	assert.Equal(t, "k-123", cfg.APIKey)
	assert.Equal(t, NotesBackendRemote, cfg.NotesBackend, "remote is the default when a notes endpoint exists")
	assert.Equal(t, DefaultConnectTimeout, cfg.ConnectTimeout)
	assert.Equal(t, DefaultStallTimeout, cfg.StallTimeout)
}

func TestEnvOverridesBeatFile(t *testing.T) {
	path := writeConfig(t, `{"inferenceURL": "https://file.example.com", "apiKey": "from-file"}`)
	t.Setenv("MULTICHAT_CONFIG", path)
	t.Setenv("MULTICHAT_API_KEY", "from-env")
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.APIKey)
	assert.Equal(t, "https://file.example.com", cfg.InferenceURL)
}

func TestEnvInterpolation(t *testing.T) {
	t.Setenv("SECRET_KEY", "s3cret")
	path := writeConfig(t, `{"apiKey": "{env:SECRET_KEY}"}`)
	t.Setenv("MULTICHAT_CONFIG", path)
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.APIKey)
}

func TestLocalNotesBackendByDefault(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("MULTICHAT_CONFIG", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, NotesBackendLocal, cfg.NotesBackend)
	assert.NotEmpty(t, cfg.DataDir)
}

func TestRemoteBackendRequiresNotesURL(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("MULTICHAT_NOTES_BACKEND", NotesBackendRemote)

	_, err := Load()
	assert.Error(t, err)
}

func TestUnknownNotesBackendRejected(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("MULTICHAT_NOTES_BACKEND", "hybrid")

	_, err := Load()
	assert.Error(t, err)
}
