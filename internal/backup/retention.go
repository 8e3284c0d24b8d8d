package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// listBackups lists all backup snapshot files in the backup directory,
// newest first.
func listBackups(backupDir string) ([]Info, error) {
	entries, err := os.ReadDir(backupDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var backups []Info
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		if !strings.HasPrefix(entry.Name(), "kintree-snapshot-") || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue // Skip files we can't stat
		}

		backups = append(backups, Info{
			Path:      filepath.Join(backupDir, entry.Name()),
			Timestamp: info.ModTime(),
			Size:      info.Size(),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})

	return backups, nil
}

// applyRetention removes old backups according to the retention policy.
// Backups are bucketed by age and each tier keeps only its configured count.
func applyRetention(backupDir string, policy RetentionPolicy) error {
	backups, err := listBackups(backupDir)
	if err != nil {
		return err
	}

	if len(backups) == 0 {
		return nil
	}

	now := time.Now()
	toDelete := []string{}

	hourly := []Info{}
	daily := []Info{}
	weekly := []Info{}
	monthly := []Info{}

	for _, b := range backups {
		age := now.Sub(b.Timestamp)
		switch {
		case age < 24*time.Hour:
			hourly = append(hourly, b)
		case age < 7*24*time.Hour:
			daily = append(daily, b)
		case age < 30*24*time.Hour:
			weekly = append(weekly, b)
		case age < 365*24*time.Hour:
			monthly = append(monthly, b)
		default:
			// Backups older than 1 year are always deleted.
			toDelete = append(toDelete, b.Path)
		}
	}

	if len(hourly) > policy.Hourly {
		for _, b := range hourly[policy.Hourly:] {
			toDelete = append(toDelete, b.Path)
		}
	}
	if len(daily) > policy.Daily {
		for _, b := range daily[policy.Daily:] {
			toDelete = append(toDelete, b.Path)
		}
	}
	if len(weekly) > policy.Weekly {
		for _, b := range weekly[policy.Weekly:] {
			toDelete = append(toDelete, b.Path)
		}
	}
	if len(monthly) > policy.Monthly {
		for _, b := range monthly[policy.Monthly:] {
			toDelete = append(toDelete, b.Path)
		}
	}

	var lastErr error
	for _, path := range toDelete {
		if err := os.Remove(path); err != nil {
			lastErr = err
		}
	}

	if lastErr != nil {
		return fmt.Errorf("failed to delete some backups: %w", lastErr)
	}

	return nil
}
