package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg := New(dir)

	assert.Equal(t, dir, cfg.ConfigDir)
	assert.Equal(t, filepath.Join(dir, "reflectbot.db"), cfg.DBPath)
	assert.Equal(t, filepath.Join(dir, "prompts"), cfg.PromptsDir)
	assert.Equal(t, 0.9, cfg.DedupThreshold)
	assert.Equal(t, 3, cfg.RecentMessageWindow)
	assert.Equal(t, 8, cfg.JournalWindow)
	assert.Equal(t, 3*time.Hour, cfg.CheckInInterval)
	assert.Equal(t, 7, cfg.ActiveUserDays)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "sk-test")
	t.Setenv("REFLECTBOT_MODEL", "some/other-model")
	t.Setenv("REFLECTBOT_CHECKIN_HOURS", "6")

	cfg := New(t.TempDir())
	assert.Equal(t, "sk-test", cfg.OpenRouterAPIKey)
	assert.Equal(t, "some/other-model", cfg.Model)
	assert.Equal(t, 6*time.Hour, cfg.CheckInInterval)
}

func TestConfigFileRoundTrip(t *testing.T) {
	dir := t.TempDir()

	cfg := New(dir)
	cfg.Model = "saved/model"
	cfg.RecentMessageWindow = 5
	require.NoError(t, cfg.Save())

	loaded := New(dir)
	assert.Equal(t, "saved/model", loaded.Model)
	assert.Equal(t, 5, loaded.RecentMessageWindow)
}

func TestConfigDirFromEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("REFLECTBOT_CONFIG_DIR", dir)

	cfg := New("")
	assert.Equal(t, dir, cfg.ConfigDir)
}

func TestMalformedConfigFileIgnored(t *testing.T) {
	t.Setenv("REFLECTBOT_MODEL", "")
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte("not json"), 0o600))

	cfg := New(dir)
	assert.Equal(t, "deepseek/deepseek-v3.2", cfg.Model)
}
