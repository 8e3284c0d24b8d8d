package backup

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mattiasfr/kintree/internal/snapshot"
)

// Service handles automated snapshot backups with verification and
// retention.
type Service struct {
	snapshotPath  string
	backupDir     string
	interval      time.Duration
	retention     RetentionPolicy
	verifyBackups bool

	mu             sync.Mutex
	running        bool
	stopCh         chan struct{}
	lastBackupTime time.Time
	nextBackupTime time.Time
}

// NewService creates a backup service for the given configuration.
func NewService(config Config) (*Service, error) {
	if config.SnapshotPath == "" {
		return nil, fmt.Errorf("snapshot path is required")
	}
	if config.BackupDir == "" {
		return nil, fmt.Errorf("backup directory is required")
	}
	if config.Interval <= 0 {
		config.Interval = 24 * time.Hour
	}

	if config.Retention.Hourly == 0 {
		config.Retention.Hourly = 24
	}
	if config.Retention.Daily == 0 {
		config.Retention.Daily = 7
	}
	if config.Retention.Weekly == 0 {
		config.Retention.Weekly = 4
	}
	if config.Retention.Monthly == 0 {
		config.Retention.Monthly = 12
	}

	if err := os.MkdirAll(config.BackupDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	return &Service{
		snapshotPath:  config.SnapshotPath,
		backupDir:     config.BackupDir,
		interval:      config.Interval,
		retention:     config.Retention,
		verifyBackups: config.VerifyBackups,
		stopCh:        make(chan struct{}),
	}, nil
}

// Start runs the automated backup loop until the context is cancelled or
// Stop is called.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("backup service is already running")
	}
	s.running = true
	s.nextBackupTime = time.Now().Add(s.interval)
	s.mu.Unlock()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Printf("Backup service started: interval=%v, backup_dir=%s", s.interval, s.backupDir)

	for {
		select {
		case <-ctx.Done():
			log.Println("Backup service stopping (context cancelled)")
			return ctx.Err()

		case <-s.stopCh:
			log.Println("Backup service stopping (stop requested)")
			return nil

		case <-ticker.C:
			log.Println("Starting scheduled backup...")
			result, err := s.BackupNow(ctx)
			if err != nil {
				log.Printf("Scheduled backup failed: %v", err)
			} else {
				log.Printf("Scheduled backup completed: path=%s, size=%d bytes, duration=%v, verified=%v",
					result.Path, result.Size, result.Duration, result.Verified)
			}

			s.mu.Lock()
			s.nextBackupTime = time.Now().Add(s.interval)
			s.mu.Unlock()
		}
	}
}

// Stop stops the backup loop gracefully.
func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return fmt.Errorf("backup service is not running")
	}

	close(s.stopCh)
	s.running = false
	return nil
}

// BackupNow copies the current snapshot into a timestamped backup file,
// optionally verifies it, and applies the retention policy.
func (s *Service) BackupNow(ctx context.Context) (*Result, error) {
	startTime := time.Now()

	if _, err := os.Stat(s.snapshotPath); err != nil {
		return nil, fmt.Errorf("snapshot not found: %w", err)
	}

	// Microseconds in the timestamp keep rapid manual backups distinct.
	timestamp := time.Now().Format("20060102-150405.000000")
	backupName := fmt.Sprintf("kintree-snapshot-%s.json", timestamp)
	backupPath := filepath.Join(s.backupDir, backupName)

	if err := copyFile(s.snapshotPath, backupPath); err != nil {
		return &Result{
			Path:     backupPath,
			Duration: time.Since(startTime),
			Error:    err,
		}, err
	}

	info, err := os.Stat(backupPath)
	if err != nil {
		return &Result{
			Path:     backupPath,
			Duration: time.Since(startTime),
			Error:    fmt.Errorf("failed to stat backup: %w", err),
		}, err
	}

	result := &Result{
		Path:     backupPath,
		Duration: time.Since(startTime),
		Size:     info.Size(),
	}

	if s.verifyBackups {
		if _, err := snapshot.Load(backupPath); err != nil {
			result.Error = fmt.Errorf("backup verification failed: %w", err)
			return result, result.Error
		}
		result.Verified = true
	}

	s.mu.Lock()
	s.lastBackupTime = time.Now()
	s.mu.Unlock()

	if err := applyRetention(s.backupDir, s.retention); err != nil {
		log.Printf("Warning: failed to apply retention policy: %v", err)
	}

	return result, nil
}

// ListBackups lists all available backups, newest first.
func (s *Service) ListBackups() ([]Info, error) {
	return listBackups(s.backupDir)
}

// RestoreBackup replaces the live snapshot with a backup file. The service
// must be stopped first. The previous snapshot is kept aside and restored
// if the copy fails.
func (s *Service) RestoreBackup(ctx context.Context, backupPath string) error {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	if running {
		return fmt.Errorf("cannot restore while backup service is running")
	}

	if _, err := os.Stat(backupPath); err != nil {
		return fmt.Errorf("backup not found: %w", err)
	}

	if _, err := snapshot.Load(backupPath); err != nil {
		return fmt.Errorf("refusing to restore unreadable backup: %w", err)
	}

	preRestore := s.snapshotPath + ".pre-restore"
	if _, err := os.Stat(s.snapshotPath); err == nil {
		if err := copyFile(s.snapshotPath, preRestore); err != nil {
			return fmt.Errorf("failed to create pre-restore copy: %w", err)
		}
		defer os.Remove(preRestore)
	}

	if err := copyFile(backupPath, s.snapshotPath); err != nil {
		if _, statErr := os.Stat(preRestore); statErr == nil {
			if rollbackErr := copyFile(preRestore, s.snapshotPath); rollbackErr != nil {
				return fmt.Errorf("restore failed and rollback failed: %v (restore error: %w)", rollbackErr, err)
			}
			return fmt.Errorf("restore failed, rolled back to previous state: %w", err)
		}
		return err
	}

	log.Printf("Snapshot restored from backup: %s", backupPath)
	return nil
}

// HealthCheck returns the current health status of the backup service.
func (s *Service) HealthCheck() (*HealthStatus, error) {
	s.mu.Lock()
	lastBackup := s.lastBackupTime
	nextBackup := s.nextBackupTime
	s.mu.Unlock()

	backups, err := s.ListBackups()
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}

	var diskUsage int64
	for _, b := range backups {
		diskUsage += b.Size
	}

	status := &HealthStatus{
		LastBackup:    lastBackup,
		NextBackup:    nextBackup,
		TotalBackups:  len(backups),
		BackupDir:     s.backupDir,
		DiskSpaceUsed: diskUsage,
		Status:        "healthy",
	}

	if !lastBackup.IsZero() && time.Since(lastBackup) > s.interval*2 {
		status.Status = "warning"
		status.Message = fmt.Sprintf("Backup overdue by %v", time.Since(lastBackup)-s.interval)
	} else if lastBackup.IsZero() {
		status.Message = "No backups yet"
	} else {
		status.Message = fmt.Sprintf("Last backup: %v ago", time.Since(lastBackup).Round(time.Minute))
	}

	return status, nil
}

// copyFile copies src to dst and forces the copy to stable storage before
// returning.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create destination: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("failed to copy: %w", err)
	}

	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("failed to sync: %w", err)
	}

	return out.Close()
}
