// cmd/kintree-web is the entry point for the Kintree web API server. It
// loads the same family tree as kintree-mcp and serves it over HTTP, with a
// WebSocket feed of insert events and optional scheduled snapshot backups.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattiasfr/kintree/internal/backup"
	"github.com/mattiasfr/kintree/internal/config"
	"github.com/mattiasfr/kintree/internal/gedcom"
	"github.com/mattiasfr/kintree/internal/journal"
	"github.com/mattiasfr/kintree/internal/server"
	"github.com/mattiasfr/kintree/internal/snapshot"
	"github.com/mattiasfr/kintree/internal/storage/memory"
	"github.com/mattiasfr/kintree/pkg/types"
)

// loadCollection mirrors the kintree-mcp startup: snapshot first, GEDCOM
// source as fallback, empty tree as last resort.
func loadCollection(cfg *config.Config) (*types.Collection, error) {
	if cfg.Storage.SnapshotPath != "" {
		c, err := snapshot.Load(cfg.Storage.SnapshotPath)
		if err == nil {
			log.Printf("loaded snapshot from %s (%d persons, %d families)",
				cfg.Storage.SnapshotPath, len(c.Persons), len(c.Families))
			return c, nil
		}
		if errors.Is(err, snapshot.ErrCorrupt) {
			log.Printf("warning: snapshot at %s is unreadable, falling back to source document: %v",
				cfg.Storage.SnapshotPath, err)
		} else if !os.IsNotExist(err) {
			log.Printf("warning: failed to read snapshot at %s: %v", cfg.Storage.SnapshotPath, err)
		}
	}

	if _, err := os.Stat(cfg.Storage.GedcomPath); err != nil {
		log.Printf("no source document at %s, starting empty", cfg.Storage.GedcomPath)
		return &types.Collection{Persons: []types.Person{}, Families: []types.Family{}}, nil
	}

	c, err := gedcom.ParseFile(cfg.Storage.GedcomPath)
	if err != nil {
		return nil, err
	}
	log.Printf("parsed %s (%d persons, %d families)",
		cfg.Storage.GedcomPath, len(c.Persons), len(c.Families))
	return c, nil
}

func main() {
	log.SetOutput(os.Stderr)
	log.SetPrefix("kintree-web: ")
	log.SetFlags(log.LstdFlags)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := os.MkdirAll(cfg.Storage.DataPath, 0o700); err != nil {
		log.Fatalf("failed to create data directory %q: %v", cfg.Storage.DataPath, err)
	}

	collection, err := loadCollection(cfg)
	if err != nil {
		log.Fatalf("failed to load family tree: %v", err)
	}
	store := memory.NewStore(collection)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("received shutdown signal")
		cancel()
	}()

	var j *journal.Journal
	if dsn := cfg.JournalDSN(); dsn != "" {
		j, err = journal.Open(cfg.Journal.Engine, dsn)
		if err != nil {
			log.Printf("warning: mutation journal unavailable: %v", err)
			j = nil
		} else {
			defer j.Close()
		}
	}

	// Scheduled backups of the snapshot file.
	if cfg.Backup.Enabled && cfg.Storage.SnapshotPath != "" {
		interval, err := time.ParseDuration(cfg.Backup.Interval)
		if err != nil {
			log.Printf("warning: invalid backup interval %q, using 24h", cfg.Backup.Interval)
			interval = 24 * time.Hour
		}
		svc, err := backup.NewService(backup.Config{
			SnapshotPath:  cfg.Storage.SnapshotPath,
			BackupDir:     cfg.Backup.Path,
			Interval:      interval,
			VerifyBackups: cfg.Backup.Verify,
			Retention: backup.RetentionPolicy{
				Hourly:  cfg.Backup.RetentionHourly,
				Daily:   cfg.Backup.RetentionDaily,
				Weekly:  cfg.Backup.RetentionWeekly,
				Monthly: cfg.Backup.RetentionMonthly,
			},
		})
		if err != nil {
			log.Printf("warning: backup service unavailable: %v", err)
		} else {
			go func() {
				if err := svc.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.Printf("backup service stopped: %v", err)
				}
			}()
		}
	}

	addr, _ := server.Start(ctx, cfg, store, j)
	log.Printf("listening on http://%s", addr)

	<-ctx.Done()
	// Give the server's shutdown goroutine a moment to drain connections.
	time.Sleep(100 * time.Millisecond)
	log.Println("shutdown complete")
}
