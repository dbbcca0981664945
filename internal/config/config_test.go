package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "json", cfg.Storage.Backend)
	assert.Equal(t, 0.5, cfg.Ranking.Composite.Hot)
	assert.Equal(t, 7.0, cfg.Ranking.Weekly.FreshDays)
	assert.Equal(t, 21.0, cfg.Ranking.Weekly.StickyDays)
	assert.Equal(t, 30.0, cfg.Scoring.FreshDays)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadOverlaysFile(t *testing.T) {
	t.Chdir(t.TempDir())
	path := filepath.Join(t.TempDir(), "aiscout.yaml")
	body := `
storage:
  backend: sqlite
  sqlite_path: /tmp/x.db
ranking:
  weekly:
    fresh_days: 10
scoring:
  premium_sources: [curated, techcrunch]
server:
  port: 9090
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, "/tmp/x.db", cfg.Storage.SQLitePath)
	assert.Equal(t, 10.0, cfg.Ranking.Weekly.FreshDays)
	assert.Equal(t, 21.0, cfg.Ranking.Weekly.StickyDays, "unset keys keep defaults")
	assert.Equal(t, []string{"curated", "techcrunch"}, cfg.Scoring.PremiumSources)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("AISCOUT_DATA_DIR", "/srv/aiscout")
	t.Setenv("AISCOUT_LOG_LEVEL", "debug")
	t.Setenv("SLACK_WEBHOOK_URL", "https://hooks.slack.test/x")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	t.Setenv("GITHUB_TOKEN", "ghp_x")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "/srv/aiscout", cfg.Storage.DataDir)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Alerts.Slack.Enabled)
	assert.True(t, cfg.Classify.Enabled)
	assert.Equal(t, "anthropic", cfg.Classify.Provider)
	assert.Equal(t, "ghp_x", cfg.Sources.GitHub.Token)
	assert.False(t, cfg.Sources.GitHub.Enabled)
}

func TestScheduleIntervals(t *testing.T) {
	s := ScheduleConfig{CollectInterval: "90m", ReconcileInterval: "bogus"}
	assert.Equal(t, 90*time.Minute, s.ParseCollectInterval())
	assert.Equal(t, 24*time.Hour, s.ParseReconcileInterval())
}
