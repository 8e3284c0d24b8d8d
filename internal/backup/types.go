// Package backup provides automated snapshot backup and restore with tiered
// retention policies and integrity verification.
package backup

import (
	"time"
)

// Config holds backup service configuration.
type Config struct {
	// SnapshotPath is the snapshot file to back up.
	SnapshotPath string

	// BackupDir is the directory where backups will be stored.
	BackupDir string

	// Interval is the duration between automated backups (default: 24h).
	Interval time.Duration

	// Retention defines how many backups to keep at each age tier.
	Retention RetentionPolicy

	// VerifyBackups enables decoding each backup after it is written.
	VerifyBackups bool
}

// RetentionPolicy defines how many backups to keep at each tier.
// Backups are categorized by age:
// - Hourly: backups less than 24 hours old
// - Daily: backups between 1-7 days old
// - Weekly: backups between 7-30 days old
// - Monthly: backups between 30-365 days old
type RetentionPolicy struct {
	Hourly  int // default: 24
	Daily   int // default: 7
	Weekly  int // default: 4
	Monthly int // default: 12
}

// Info contains metadata about a backup file.
type Info struct {
	// Path is the full path to the backup file.
	Path string

	// Timestamp is when the backup was created.
	Timestamp time.Time

	// Size is the backup file size in bytes.
	Size int64
}

// Result contains the outcome of a single backup operation.
type Result struct {
	// Path is the path to the created backup file.
	Path string

	// Duration is how long the backup took.
	Duration time.Duration

	// Size is the backup file size in bytes.
	Size int64

	// Verified indicates the backup decoded cleanly after writing.
	Verified bool

	// Error is any error that occurred during backup.
	Error error
}

// HealthStatus represents the health of the backup service.
type HealthStatus struct {
	// Status is "healthy", "warning", or "error".
	Status string

	// Message provides additional context about the status.
	Message string

	// LastBackup is when the last successful backup completed.
	LastBackup time.Time

	// NextBackup is when the next backup is scheduled.
	NextBackup time.Time

	// TotalBackups is the number of backups currently stored.
	TotalBackups int

	// BackupDir is the backup storage directory.
	BackupDir string

	// DiskSpaceUsed is total bytes used by all backups.
	DiskSpaceUsed int64
}
