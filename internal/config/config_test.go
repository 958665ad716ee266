package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "GOOGLE_API_KEY", "EXTRACT_CONCURRENCY", "EXTRACT_TIMEOUT", "OUTPUT_BUCKET", "PROJECT_ID"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "", cfg.Extract.APIKey)
	assert.Equal(t, 4, cfg.Pipeline.Concurrency)
	assert.Equal(t, 60*time.Second, cfg.Pipeline.ExtractTimeout)
	assert.Equal(t, int64(52428800), cfg.MaxUploadBytes)
	assert.Equal(t, 10, cfg.UploadConcurrency)
	assert.Equal(t, 15*time.Minute, cfg.InboxStaleAfter)
	assert.Error(t, cfg.ValidateInbox())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("GOOGLE_API_KEY", "secret")
	t.Setenv("EXTRACT_CONCURRENCY", "8")
	t.Setenv("EXTRACT_TIMEOUT", "15s")
	t.Setenv("EXTRACT_RATE_PER_MINUTE", "30")
	t.Setenv("PROJECT_ID", "demo")
	t.Setenv("OUTPUT_BUCKET", "aso-out")
	t.Setenv("INBOX_STALE_AFTER", "5m")

	cfg := Load()
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "secret", cfg.Extract.APIKey)
	assert.Equal(t, "demo", cfg.Extract.ProjectID)
	assert.Equal(t, 30, cfg.Extract.RatePerMinute)
	assert.Equal(t, 8, cfg.Pipeline.Concurrency)
	assert.Equal(t, 15*time.Second, cfg.Pipeline.ExtractTimeout)
	assert.Equal(t, 5*time.Minute, cfg.InboxStaleAfter)
	assert.NoError(t, cfg.ValidateInbox())
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("EXTRACT_CONCURRENCY", "-2")
	t.Setenv("EXTRACT_TIMEOUT", "soon")

	cfg := Load()
	assert.Equal(t, 4, cfg.Pipeline.Concurrency)
	assert.Equal(t, 60*time.Second, cfg.Pipeline.ExtractTimeout)
}

func TestLoadDotEnv(t *testing.T) {
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("ASO_DOTENV_TEST=from-file\n"), 0o600))
	t.Setenv("ASO_DOTENV_TEST", "")
	os.Unsetenv("ASO_DOTENV_TEST")

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-file", os.Getenv("ASO_DOTENV_TEST"))
}
