package gedcom

import (
	"fmt"
	"strconv"
	"strings"
)

// Recognized tags. Anything else is accepted and ignored so documents using
// newer or vendor-specific tags still parse.
const (
	tagPerson  = "INDI"
	tagFamily  = "FAM"
	tagName    = "NAME"
	tagBirth   = "BIRT"
	tagDeath   = "DEAT"
	tagHusband = "HUSB"
	tagWife    = "WIFE"
	tagChild   = "CHIL"
	tagDate    = "DATE"
	tagPlace   = "PLAC"
)

const xrefDelim = "@"

// line is one classified source line: nesting level, optional
// cross-reference identifier (the @…@ token between level and tag), tag
// keyword, and the trimmed remainder as the value.
type line struct {
	number int // 1-based position in the document
	level  int
	xref   string
	tag    string
	value  string
}

// classifyLine splits a trimmed, non-blank source line into its components.
// Syntax: LEVEL [ "@" XREF "@" ] TAG [ VALUE ], separated by single spaces,
// VALUE being the remainder of the line.
func classifyLine(raw string, number int) (line, error) {
	parts := strings.SplitN(raw, " ", 3)

	level, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return line{}, &ParseError{
			Line: number,
			Err:  fmt.Errorf("%w: %v", ErrInvalidLevel, err),
		}
	}

	if len(parts) < 2 {
		return line{}, &ParseError{Line: number, Err: ErrMissingTag}
	}

	ln := line{number: number, level: int(level)}
	second := parts[1]
	var tail string
	if len(parts) == 3 {
		tail = parts[2]
	}

	if len(second) >= 2 && strings.HasPrefix(second, xrefDelim) && strings.HasSuffix(second, xrefDelim) {
		ln.xref = strings.Trim(second, xrefDelim)
		if tail == "" {
			return line{}, &ParseError{Line: number, Err: ErrMissingTag}
		}
		tagValue := strings.SplitN(tail, " ", 2)
		ln.tag = tagValue[0]
		if len(tagValue) == 2 {
			ln.value = strings.TrimSpace(tagValue[1])
		}
	} else {
		ln.tag = second
		ln.value = strings.TrimSpace(tail)
	}

	return ln, nil
}
