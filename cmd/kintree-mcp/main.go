// cmd/kintree-mcp is the entry point for the Kintree MCP (Model Context
// Protocol) server. It loads the family tree into memory and serves
// JSON-RPC 2.0 tool calls over stdio.
//
// Startup sequence:
//  1. Load configuration from the optional YAML file and environment.
//  2. Load the JSON snapshot; if it is missing or unreadable, parse the
//     GEDCOM source document instead.
//  3. Open the mutation journal (failures are non-fatal).
//  4. Create the MCP server over the in-memory store.
//  5. Serve JSON-RPC 2.0 requests from stdin, writing responses to stdout.
//
// CRITICAL: ALL logging MUST go to stderr.  Any bytes written to stdout that
// are not valid JSON-RPC 2.0 response frames will corrupt the protocol.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattiasfr/kintree/internal/api/mcp"
	"github.com/mattiasfr/kintree/internal/config"
	"github.com/mattiasfr/kintree/internal/gedcom"
	"github.com/mattiasfr/kintree/internal/journal"
	"github.com/mattiasfr/kintree/internal/snapshot"
	"github.com/mattiasfr/kintree/internal/storage/memory"
	"github.com/mattiasfr/kintree/pkg/types"
)

// loadCollection resolves the startup contents of the store. A readable
// snapshot wins; otherwise the GEDCOM source is parsed. A corrupt snapshot
// is logged and falls through to the source document rather than aborting.
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
		// No snapshot and no source document: start with an empty tree.
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
	// Redirect the default logger to stderr so that any incidental log calls
	// (e.g. from imported packages) never pollute the stdout JSON-RPC stream.
	log.SetOutput(os.Stderr)
	log.SetPrefix("kintree-mcp: ")
	log.SetFlags(log.LstdFlags)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Ensure the data directory exists.
	if err := os.MkdirAll(cfg.Storage.DataPath, 0o700); err != nil {
		log.Fatalf("failed to create data directory %q: %v", cfg.Storage.DataPath, err)
	}

	collection, err := loadCollection(cfg)
	if err != nil {
		log.Fatalf("failed to load family tree: %v", err)
	}
	store := memory.NewStore(collection)

	// Set up a root context that is cancelled on SIGINT / SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("received shutdown signal")
		cancel()
	}()

	// The journal is advisory; a failure to open it degrades to an
	// unjournaled server rather than aborting.
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

	srvOpts := []mcp.ServerOption{
		mcp.WithConfig(cfg),
		mcp.WithSnapshotPath(cfg.Storage.SnapshotPath),
	}
	if j != nil {
		srvOpts = append(srvOpts, mcp.WithJournal(j))
	}
	srv := mcp.NewServer(store, srvOpts...)

	// Wrap the server in a StdioTransport that reads line-delimited JSON-RPC
	// from stdin and writes responses to stdout.  All logging inside the
	// transport is directed to stderr.
	transport := mcp.NewStdioTransport(srv, os.Stdin, os.Stdout)

	log.Println("ready, serving JSON-RPC 2.0 on stdin/stdout")

	if err := transport.Serve(ctx); err != nil {
		// A non-nil error here is normal (context cancellation) or indicates a
		// fatal stdin/stdout problem.  Either way it is informational only.
		log.Printf("transport stopped: %v", err)
	}
}
