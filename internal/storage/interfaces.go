// Package storage defines the storage contract for the Kintree family
// tree: point lookup, enumeration, uniqueness-enforcing inserts, and
// snapshot export. Keeping the contract as a small interface decouples the
// MCP dispatcher and web handlers from the concrete in-memory store.
package storage

import (
	"github.com/mattiasfr/kintree/pkg/types"
)

// TreeStore is the aggregate of persons and family units.
//
// Implementations must enforce per-kind identifier uniqueness on insert and
// must never hold internal locks across an I/O boundary; every method
// completes with in-memory work only.
type TreeStore interface {
	// GetPerson returns the person with the given ID, or ErrNotFound.
	GetPerson(id string) (types.Person, error)

	// GetFamily returns the family with the given ID, or ErrNotFound.
	GetFamily(id string) (types.Family, error)

	// ListPersons returns every person currently indexed. Order is
	// unspecified; callers must not depend on it.
	ListPersons() []types.Person

	// ListFamilies returns every family currently indexed. Order is
	// unspecified; callers must not depend on it.
	ListFamilies() []types.Family

	// InsertPerson adds a new person. It fails with a *DuplicateError when
	// the ID is already indexed, leaving the store unchanged.
	InsertPerson(p types.Person) error

	// InsertFamily adds a new family. It fails with a *DuplicateError when
	// the ID is already indexed, leaving the store unchanged.
	InsertFamily(f types.Family) error

	// Export materializes the current contents as a Collection in a
	// deterministic (ID-sorted) order, for snapshotting.
	Export() *types.Collection

	// Counts returns the number of persons and families currently indexed.
	Counts() (persons, families int)
}
