package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattiasfr/kintree/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 6565, cfg.Server.Port)
	assert.Equal(t, "./data/family.ged", cfg.Storage.GedcomPath)
	assert.Equal(t, "./data/snapshot.json", cfg.Storage.SnapshotPath)
	assert.Equal(t, "sqlite", cfg.Journal.Engine)
	assert.Equal(t, "development", cfg.Security.Mode)
	assert.False(t, cfg.Backup.Enabled)
	assert.Equal(t, "24h", cfg.Backup.Interval)
	assert.Equal(t, 24, cfg.Backup.RetentionHourly)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("KINTREE_HOST", "0.0.0.0")
	t.Setenv("KINTREE_PORT", "9000")
	t.Setenv("KINTREE_SNAPSHOT_PATH", "/tmp/tree.json")
	t.Setenv("KINTREE_JOURNAL_ENGINE", "postgres")
	t.Setenv("KINTREE_JOURNAL_DSN", "postgres://localhost/kintree")
	t.Setenv("KINTREE_SECURITY_MODE", "production")
	t.Setenv("KINTREE_API_TOKEN", "secret")
	t.Setenv("KINTREE_BACKUP_ENABLED", "true")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "/tmp/tree.json", cfg.Storage.SnapshotPath)
	assert.Equal(t, "postgres", cfg.Journal.Engine)
	assert.Equal(t, "postgres://localhost/kintree", cfg.JournalDSN())
	assert.Equal(t, "production", cfg.Security.Mode)
	assert.Equal(t, "secret", cfg.Security.APIToken)
	assert.True(t, cfg.Backup.Enabled)
}

func TestInvalidIntFallsBackToDefault(t *testing.T) {
	t.Setenv("KINTREE_PORT", "not-a-port")
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 6565, cfg.Server.Port)
}

func TestYAMLFileSeedsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kintree.yaml")
	content := `
server:
  host: 10.0.0.1
  port: 7000
storage:
  snapshot_path: /var/lib/kintree/snapshot.json
journal:
  engine: postgres
  dsn: postgres://db/kintree
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := config.LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.1", cfg.Server.Host)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "/var/lib/kintree/snapshot.json", cfg.Storage.SnapshotPath)
	assert.Equal(t, "postgres", cfg.Journal.Engine)
	// Unset fields keep their defaults.
	assert.Equal(t, "./data/family.ged", cfg.Storage.GedcomPath)
}

func TestEnvWinsOverYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kintree.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 7000\n"), 0o644))

	t.Setenv("KINTREE_PORT", "8000")

	cfg, err := config.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 8000, cfg.Server.Port)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := config.LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestJournalDSNDerivesSQLitePath(t *testing.T) {
	t.Setenv("KINTREE_DATA_PATH", "/srv/kintree")
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "/srv/kintree/journal.db", cfg.JournalDSN())
}

func TestJournalDSNEmptyForPostgresWithoutDSN(t *testing.T) {
	t.Setenv("KINTREE_JOURNAL_ENGINE", "postgres")
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.JournalDSN())
}
