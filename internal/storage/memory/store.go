// Package memory implements storage.TreeStore as a pair of in-memory
// uniqueness indices guarded by a single mutex.
//
// The store is constructed once at process start from a parsed document or
// a decoded snapshot, mutated only by inserts, and destroyed at process
// exit; durability comes solely from the persisted snapshot. The mutex is
// released before any persistence work begins, so readers may observe a
// newly inserted entity before it is durable.
package memory

import (
	"sort"
	"sync"

	"github.com/mattiasfr/kintree/internal/storage"
	"github.com/mattiasfr/kintree/pkg/types"
)

// Store indexes persons and families by cross-reference identifier.
type Store struct {
	mu       sync.Mutex
	persons  map[string]types.Person
	families map[string]types.Family
}

// NewStore indexes a parsed or snapshot-decoded collection. The source is
// trusted: uniqueness is not re-checked here, only on insert. A later
// duplicate in the collection silently wins, matching map semantics.
func NewStore(c *types.Collection) *Store {
	s := &Store{
		persons:  make(map[string]types.Person),
		families: make(map[string]types.Family),
	}
	if c != nil {
		for _, p := range c.Persons {
			s.persons[p.ID] = p.Clone()
		}
		for _, f := range c.Families {
			s.families[f.ID] = f.Clone()
		}
	}
	return s
}

// GetPerson returns the person with the given ID, or storage.ErrNotFound.
func (s *Store) GetPerson(id string) (types.Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.persons[id]
	if !ok {
		return types.Person{}, storage.ErrNotFound
	}
	return p.Clone(), nil
}

// GetFamily returns the family with the given ID, or storage.ErrNotFound.
func (s *Store) GetFamily(id string) (types.Family, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.families[id]
	if !ok {
		return types.Family{}, storage.ErrNotFound
	}
	return f.Clone(), nil
}

// ListPersons returns every indexed person in unspecified order.
func (s *Store) ListPersons() []types.Person {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]types.Person, 0, len(s.persons))
	for _, p := range s.persons {
		out = append(out, p.Clone())
	}
	return out
}

// ListFamilies returns every indexed family in unspecified order.
func (s *Store) ListFamilies() []types.Family {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]types.Family, 0, len(s.families))
	for _, f := range s.families {
		out = append(out, f.Clone())
	}
	return out
}

// InsertPerson adds a new person, failing with a *storage.DuplicateError
// when the ID is already indexed. The store is unchanged on failure.
func (s *Store) InsertPerson(p types.Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.persons[p.ID]; exists {
		return &storage.DuplicateError{Kind: storage.KindPerson, ID: p.ID}
	}
	s.persons[p.ID] = p.Clone()
	return nil
}

// InsertFamily adds a new family, failing with a *storage.DuplicateError
// when the ID is already indexed. The store is unchanged on failure.
func (s *Store) InsertFamily(f types.Family) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.families[f.ID]; exists {
		return &storage.DuplicateError{Kind: storage.KindFamily, ID: f.ID}
	}
	s.families[f.ID] = f.Clone()
	return nil
}

// Export materializes the current contents as a Collection, persons then
// families, each sorted by ID. The order is deterministic but deliberately
// decoupled from the original encounter order.
func (s *Store) Export() *types.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := &types.Collection{
		Persons:  make([]types.Person, 0, len(s.persons)),
		Families: make([]types.Family, 0, len(s.families)),
	}

	personIDs := make([]string, 0, len(s.persons))
	for id := range s.persons {
		personIDs = append(personIDs, id)
	}
	sort.Strings(personIDs)
	for _, id := range personIDs {
		out.Persons = append(out.Persons, s.persons[id].Clone())
	}

	familyIDs := make([]string, 0, len(s.families))
	for id := range s.families {
		familyIDs = append(familyIDs, id)
	}
	sort.Strings(familyIDs)
	for _, id := range familyIDs {
		out.Families = append(out.Families, s.families[id].Clone())
	}

	return out
}

// Counts returns the number of persons and families currently indexed.
func (s *Store) Counts() (persons, families int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.persons), len(s.families)
}
