// Package snapshot implements the durable representation of the store: a
// JSON-encoded types.Collection written with a temp-file/fsync/rename
// protocol so that a crash mid-write never leaves a partially written
// snapshot at the target path.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mattiasfr/kintree/pkg/types"
)

// ErrCorrupt indicates a snapshot that could not be decoded. Startup code
// treats this as a fallback trigger (re-parse the GEDCOM source) rather
// than a hard failure.
var ErrCorrupt = errors.New("malformed snapshot")

// Encode writes the collection as indented JSON. Optional fields appear as
// explicit nulls; for any collection produced by a store export,
// Decode(Encode(c)) == c.
func Encode(w io.Writer, c *types.Collection) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}

// Decode reads a snapshot produced by Encode. Decode failures wrap
// ErrCorrupt.
func Decode(r io.Reader) (*types.Collection, error) {
	var c types.Collection
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return &c, nil
}

// Write persists the collection to path atomically: encode into a
// temporary file in the same directory, force it to stable storage, then
// rename it over the target. A reader of path therefore always sees either
// the previous complete snapshot or the new one, never a mixture.
func Write(path string, c *types.Collection) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temporary snapshot: %w", err)
	}
	tmpName := tmp.Name()

	if err := Encode(tmp, c); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("encode snapshot: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync snapshot: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temporary snapshot: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename snapshot into place: %w", err)
	}

	return nil
}

// Load reads the snapshot at path. I/O failures are returned as-is;
// decode failures wrap ErrCorrupt.
func Load(path string) (*types.Collection, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}
