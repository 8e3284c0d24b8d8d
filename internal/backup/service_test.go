package backup_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattiasfr/kintree/internal/backup"
	"github.com/mattiasfr/kintree/internal/snapshot"
	"github.com/mattiasfr/kintree/pkg/types"
)

func writeSnapshot(t *testing.T, path string) *types.Collection {
	t.Helper()
	c := &types.Collection{
		Persons:  []types.Person{{ID: "I1"}},
		Families: []types.Family{{ID: "F1", Children: []string{}}},
	}
	require.NoError(t, snapshot.Write(path, c))
	return c
}

func newService(t *testing.T, snapshotPath, backupDir string) *backup.Service {
	t.Helper()
	svc, err := backup.NewService(backup.Config{
		SnapshotPath:  snapshotPath,
		BackupDir:     backupDir,
		Interval:      time.Hour,
		VerifyBackups: true,
	})
	require.NoError(t, err)
	return svc
}

func TestNewServiceValidation(t *testing.T) {
	_, err := backup.NewService(backup.Config{BackupDir: t.TempDir()})
	assert.Error(t, err)

	_, err = backup.NewService(backup.Config{SnapshotPath: "x.json"})
	assert.Error(t, err)
}

func TestBackupNow(t *testing.T) {
	dir := t.TempDir()
	snapPath := filepath.Join(dir, "snapshot.json")
	backupDir := filepath.Join(dir, "backups")
	want := writeSnapshot(t, snapPath)

	svc := newService(t, snapPath, backupDir)

	result, err := svc.BackupNow(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Verified)
	assert.Positive(t, result.Size)

	// The backup is a byte-for-byte readable snapshot.
	got, err := snapshot.Load(result.Path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestBackupNowMissingSnapshot(t *testing.T) {
	dir := t.TempDir()
	svc := newService(t, filepath.Join(dir, "absent.json"), filepath.Join(dir, "backups"))

	_, err := svc.BackupNow(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "snapshot not found")
}

func TestListBackupsNewestFirst(t *testing.T) {
	dir := t.TempDir()
	snapPath := filepath.Join(dir, "snapshot.json")
	backupDir := filepath.Join(dir, "backups")
	writeSnapshot(t, snapPath)

	svc := newService(t, snapPath, backupDir)

	first, err := svc.BackupNow(context.Background())
	require.NoError(t, err)
	second, err := svc.BackupNow(context.Background())
	require.NoError(t, err)

	backups, err := svc.ListBackups()
	require.NoError(t, err)
	require.Len(t, backups, 2)
	assert.Equal(t, second.Path, backups[0].Path)
	assert.Equal(t, first.Path, backups[1].Path)
}

func TestListBackupsIgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	snapPath := filepath.Join(dir, "snapshot.json")
	backupDir := filepath.Join(dir, "backups")
	writeSnapshot(t, snapPath)

	svc := newService(t, snapPath, backupDir)
	_, err := svc.BackupNow(context.Background())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(backupDir, "notes.txt"), []byte("x"), 0o644))

	backups, err := svc.ListBackups()
	require.NoError(t, err)
	assert.Len(t, backups, 1)
}

func TestRestoreBackup(t *testing.T) {
	dir := t.TempDir()
	snapPath := filepath.Join(dir, "snapshot.json")
	backupDir := filepath.Join(dir, "backups")
	writeSnapshot(t, snapPath)

	svc := newService(t, snapPath, backupDir)
	result, err := svc.BackupNow(context.Background())
	require.NoError(t, err)

	// Grow the live snapshot, then restore the old state.
	bigger := &types.Collection{
		Persons:  []types.Person{{ID: "I1"}, {ID: "I2"}},
		Families: []types.Family{},
	}
	require.NoError(t, snapshot.Write(snapPath, bigger))

	require.NoError(t, svc.RestoreBackup(context.Background(), result.Path))

	got, err := snapshot.Load(snapPath)
	require.NoError(t, err)
	assert.Len(t, got.Persons, 1)
}

func TestRestoreRefusesCorruptBackup(t *testing.T) {
	dir := t.TempDir()
	snapPath := filepath.Join(dir, "snapshot.json")
	writeSnapshot(t, snapPath)

	svc := newService(t, snapPath, filepath.Join(dir, "backups"))

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o644))

	err := svc.RestoreBackup(context.Background(), bad)
	require.Error(t, err)

	// The live snapshot is untouched.
	got, lerr := snapshot.Load(snapPath)
	require.NoError(t, lerr)
	assert.Len(t, got.Persons, 1)
}

func TestHealthCheckNoBackupsYet(t *testing.T) {
	dir := t.TempDir()
	snapPath := filepath.Join(dir, "snapshot.json")
	writeSnapshot(t, snapPath)

	svc := newService(t, snapPath, filepath.Join(dir, "backups"))

	health, err := svc.HealthCheck()
	require.NoError(t, err)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "No backups yet", health.Message)
	assert.Zero(t, health.TotalBackups)
}
