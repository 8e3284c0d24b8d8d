package storage

import (
	"errors"
	"fmt"
)

// EntityKind identifies which uniqueness index an operation targets.
type EntityKind string

const (
	KindPerson EntityKind = "person"
	KindFamily EntityKind = "family"
)

var (
	// ErrNotFound indicates that no record with the requested ID exists.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateID indicates an insert collided with an existing record.
	// The concrete error is always a *DuplicateError.
	ErrDuplicateID = errors.New("duplicate identifier")
)

// DuplicateError reports an insert rejected because a record of the same
// kind already carries the identifier. The store is unchanged when this is
// returned.
type DuplicateError struct {
	Kind EntityKind
	ID   string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s with id %s already exists", e.Kind, e.ID)
}

func (e *DuplicateError) Unwrap() error { return ErrDuplicateID }
