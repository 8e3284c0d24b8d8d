package gedcom

import (
	"errors"
	"fmt"
)

// Sentinel causes for parse failures. Match with errors.Is against the
// *ParseError returned by Parse.
var (
	// ErrInvalidLevel reports a leading level token that does not parse as
	// a non-negative integer. The wrapped error includes the conversion
	// failure from strconv.
	ErrInvalidLevel = errors.New("invalid line level")

	// ErrMissingTag reports a line with a level but no tag token.
	ErrMissingTag = errors.New("missing tag")

	// ErrMissingPersonID reports a person-opening line without an @…@
	// cross-reference identifier.
	ErrMissingPersonID = errors.New("person record is missing an ID")

	// ErrMissingFamilyID reports a family-opening line without an @…@
	// cross-reference identifier.
	ErrMissingFamilyID = errors.New("family record is missing an ID")

	// ErrOrphanTag reports a tag whose context precondition is not met,
	// e.g. a NAME line with no open person record.
	ErrOrphanTag = errors.New("orphaned tag")
)

// ParseError is the first error encountered while parsing a document.
// Parsing aborts immediately; there is no error accumulation and no
// partial result.
type ParseError struct {
	// Line is the 1-based line number of the offending line.
	Line int

	// Tag is the offending tag for orphan-tag errors, empty otherwise.
	Tag string

	// Err is the sentinel cause, possibly wrapping an underlying
	// conversion failure.
	Err error
}

func (e *ParseError) Error() string {
	if e.Tag != "" {
		return fmt.Sprintf("line %d: %v %s", e.Line, e.Err, e.Tag)
	}
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func orphan(ln line) error {
	return &ParseError{Line: ln.number, Tag: ln.tag, Err: ErrOrphanTag}
}
