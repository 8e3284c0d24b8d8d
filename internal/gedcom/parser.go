// Package gedcom parses the hierarchical, line-oriented GEDCOM record
// format into the flat Collection consumed by the store.
//
// Parsing is single-pass, stateful, and order-dependent: the meaning of a
// tag depends on the most recently seen entity-opening line and, for
// level-2 tags, on the most recently seen section-opening line. The state
// is an explicit tagged variant updated by a transition step from
// (state, level, tag, value); entities are built arena-style by appending
// to the growing collection with the state holding only indices.
package gedcom

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattiasfr/kintree/pkg/types"
)

type sectionKind int

const (
	sectionNone sectionKind = iota
	sectionBirth
	sectionDeath
)

type contextKind int

const (
	ctxNone contextKind = iota
	ctxPerson
	ctxFamily
)

// parseContext tracks which entity, by index into the growing collection,
// and which sub-section subsequent deeper-level lines belong to. section is
// meaningful only when kind is ctxPerson.
type parseContext struct {
	kind    contextKind
	index   int
	section sectionKind
}

// Parse reads a full document and returns the persons and families in
// encounter order. Blank lines are skipped. Parsing stops at the first
// error and returns a *ParseError; no partial collection is produced.
func Parse(input string) (*types.Collection, error) {
	doc := &types.Collection{}
	ctx := parseContext{}

	for i, raw := range strings.Split(input, "\n") {
		text := strings.TrimSpace(raw)
		if text == "" {
			continue
		}

		ln, err := classifyLine(text, i+1)
		if err != nil {
			return nil, err
		}

		ctx, err = step(ctx, ln, doc)
		if err != nil {
			return nil, err
		}
	}

	return doc, nil
}

// ParseFile reads and parses the document at path.
func ParseFile(path string) (*types.Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read gedcom source: %w", err)
	}
	return Parse(string(data))
}

// step applies one classified line to the parser state, mutating doc as a
// side effect. Unmatched (level, tag) combinations are ignored for forward
// compatibility; recognized tags whose context precondition fails produce
// an orphan-tag error.
func step(ctx parseContext, ln line, doc *types.Collection) (parseContext, error) {
	switch {
	case ln.level == 0 && ln.tag == tagPerson:
		if ln.xref == "" {
			return ctx, &ParseError{Line: ln.number, Err: ErrMissingPersonID}
		}
		doc.Persons = append(doc.Persons, types.Person{ID: ln.xref})
		return parseContext{kind: ctxPerson, index: len(doc.Persons) - 1}, nil

	case ln.level == 0 && ln.tag == tagFamily:
		if ln.xref == "" {
			return ctx, &ParseError{Line: ln.number, Err: ErrMissingFamilyID}
		}
		doc.Families = append(doc.Families, types.Family{ID: ln.xref, Children: []string{}})
		return parseContext{kind: ctxFamily, index: len(doc.Families) - 1}, nil

	case ln.level == 1 && ln.tag == tagName:
		if ctx.kind != ctxPerson {
			return ctx, orphan(ln)
		}
		name := ln.value
		doc.Persons[ctx.index].Name = &name
		// A name line closes any open birth/death sub-section.
		return parseContext{kind: ctxPerson, index: ctx.index}, nil

	case ln.level == 1 && (ln.tag == tagBirth || ln.tag == tagDeath):
		if ctx.kind != ctxPerson {
			return ctx, orphan(ln)
		}
		section := sectionBirth
		if ln.tag == tagDeath {
			section = sectionDeath
		}
		// The event record itself is created lazily on the first DATE or
		// PLAC line; a bare BIRT/DEAT opens the section only.
		return parseContext{kind: ctxPerson, index: ctx.index, section: section}, nil

	case ln.level == 1 && ln.tag == tagHusband:
		if ctx.kind != ctxFamily {
			return ctx, orphan(ln)
		}
		ref := strings.Trim(ln.value, xrefDelim)
		doc.Families[ctx.index].Husband = &ref
		return ctx, nil

	case ln.level == 1 && ln.tag == tagWife:
		if ctx.kind != ctxFamily {
			return ctx, orphan(ln)
		}
		ref := strings.Trim(ln.value, xrefDelim)
		doc.Families[ctx.index].Wife = &ref
		return ctx, nil

	case ln.level == 1 && ln.tag == tagChild:
		if ctx.kind != ctxFamily {
			return ctx, orphan(ln)
		}
		ref := strings.Trim(ln.value, xrefDelim)
		doc.Families[ctx.index].Children = append(doc.Families[ctx.index].Children, ref)
		return ctx, nil

	case ln.level == 2 && (ln.tag == tagDate || ln.tag == tagPlace):
		if ctx.kind != ctxPerson || ctx.section == sectionNone {
			return ctx, orphan(ln)
		}
		person := &doc.Persons[ctx.index]
		event := &person.Birth
		if ctx.section == sectionDeath {
			event = &person.Death
		}
		if *event == nil {
			*event = &types.Event{}
		}
		value := ln.value
		if ln.tag == tagDate {
			(*event).Date = &value
		} else {
			(*event).Place = &value
		}
		return ctx, nil
	}

	return ctx, nil
}
