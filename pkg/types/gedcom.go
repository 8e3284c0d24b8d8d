// Package types defines the shared domain model for Kintree: persons,
// family units, life events, and the Collection exchanged between the
// GEDCOM parser, the store, and the snapshot codec.
package types

// Event records when and where a life event (birth or death) took place.
// Both fields are optional free text; dates are never semantically parsed.
// Optional fields carry no omitempty so they serialize as explicit JSON
// nulls and snapshots round-trip exactly.
type Event struct {
	// Date is the event date as written in the source, e.g. "1 JAN 1900".
	Date *string `json:"date"`

	// Place is the event location as written in the source.
	Place *string `json:"place"`
}

// Clone returns a deep copy of the event.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	out := &Event{}
	if e.Date != nil {
		d := *e.Date
		out.Date = &d
	}
	if e.Place != nil {
		p := *e.Place
		out.Place = &p
	}
	return out
}

// Person is an individual record (GEDCOM INDI).
type Person struct {
	// ID is the cross-reference identifier, unique per store.
	ID string `json:"id"`

	// Name is the display name, e.g. "John /Doe/".
	Name *string `json:"name"`

	// Birth and Death are optional life events.
	Birth *Event `json:"birth"`
	Death *Event `json:"death"`
}

// Clone returns a deep copy of the person.
func (p Person) Clone() Person {
	out := Person{ID: p.ID}
	if p.Name != nil {
		n := *p.Name
		out.Name = &n
	}
	out.Birth = p.Birth.Clone()
	out.Death = p.Death.Clone()
	return out
}

// Family is a family-unit record (GEDCOM FAM). Husband, Wife and Children
// hold bare cross-reference IDs with the @…@ delimiters stripped. The
// references are not validated against the person collection; dangling
// references are legal.
type Family struct {
	// ID is the cross-reference identifier, unique per store.
	ID string `json:"id"`

	// Husband and Wife are optional person references.
	Husband *string `json:"husband"`
	Wife    *string `json:"wife"`

	// Children is the ordered list of child person references.
	Children []string `json:"children"`
}

// Clone returns a deep copy of the family.
func (f Family) Clone() Family {
	out := Family{ID: f.ID}
	if f.Husband != nil {
		h := *f.Husband
		out.Husband = &h
	}
	if f.Wife != nil {
		w := *f.Wife
		out.Wife = &w
	}
	if f.Children != nil {
		out.Children = append(make([]string, 0, len(f.Children)), f.Children...)
	}
	return out
}

// Collection is the ordered result of parsing a GEDCOM document or decoding
// a snapshot: persons and families in first-seen order. It is the unit
// exchanged between the parser, the store, and the snapshot codec.
type Collection struct {
	Persons  []Person `json:"persons"`
	Families []Family `json:"families"`
}

// Clone returns a deep copy of the collection.
func (c *Collection) Clone() *Collection {
	if c == nil {
		return nil
	}
	out := &Collection{}
	if c.Persons != nil {
		out.Persons = make([]Person, 0, len(c.Persons))
		for _, p := range c.Persons {
			out.Persons = append(out.Persons, p.Clone())
		}
	}
	if c.Families != nil {
		out.Families = make([]Family, 0, len(c.Families))
		for _, f := range c.Families {
			out.Families = append(out.Families, f.Clone())
		}
	}
	return out
}
