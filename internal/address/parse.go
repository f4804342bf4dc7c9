// Package address turns user input into validated gate addresses.
//
// Nothing reaches the engine without passing through here: input is either
// accepted as a well-formed address or rejected with a coded error.
package address

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/dhd/internal/gate"
)

var upper = cases.Upper(language.Und)

// Normalize folds compatibility forms (full-width letters, ligatures) and
// upper-cases text, then drops separators: whitespace, '-', ',', '.' and '·'.
func Normalize(text string) string {
	folded := upper.String(norm.NFKC.String(text))
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || strings.ContainsRune("-,.·", r) {
			return -1
		}
		return r
	}, folded)
}

// Parse normalizes text and checks every glyph against the alphabet.
func Parse(text string) (gate.Address, error) {
	a := gate.ParseGlyphs(Normalize(text))
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// WithOrigin returns a copy of a with the origin glyph appended. Dialing
// always ends on the point of origin.
func WithOrigin(a gate.Address) gate.Address {
	out := make(gate.Address, 0, len(a)+1)
	out = append(out, a...)
	return append(out, gate.Origin)
}

// DefaultPattern accepts anything; the alphabet check still applies.
const DefaultPattern = ".*"

// Validator checks raw input against a pattern and glyph-count bounds.
type Validator struct {
	pattern *regexp.Regexp
	source  string

	// MinLength and MaxLength bound the glyph count. Zero MaxLength is
	// unbounded.
	MinLength int
	MaxLength int
}

// NewValidator compiles pattern. The pattern must match the whole input.
func NewValidator(pattern string, minLength, maxLength int) (*Validator, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	re, err := regexp.Compile("^(?:" + pattern + ")$")
	if err != nil {
		return nil, &gate.Error{
			Code:    gate.ErrCodePatternMismatch,
			Message: "address pattern does not compile",
			Details: map[string]string{"pattern": pattern, "cause": err.Error()},
		}
	}
	if minLength < 1 {
		minLength = 1
	}
	return &Validator{pattern: re, source: pattern, MinLength: minLength, MaxLength: maxLength}, nil
}

// MustValidator is NewValidator that panics on a bad pattern.
func MustValidator(pattern string, minLength, maxLength int) *Validator {
	v, err := NewValidator(pattern, minLength, maxLength)
	if err != nil {
		panic(err)
	}
	return v
}

// Pattern returns the source pattern.
func (v *Validator) Pattern() string { return v.source }

// Match reports whether text satisfies the pattern alone.
func (v *Validator) Match(text string) bool {
	return v.pattern.MatchString(text)
}

// Validate returns the parsed address, or a PATTERN_MISMATCH, EMPTY_ADDRESS
// or INVALID_GLYPH error.
func (v *Validator) Validate(text string) (gate.Address, error) {
	if !v.Match(text) {
		return nil, &gate.Error{
			Code:    gate.ErrCodePatternMismatch,
			Message: "input does not match the address pattern",
			Details: map[string]string{"pattern": v.source},
		}
	}

	a, err := Parse(text)
	if err != nil {
		return nil, err
	}

	if len(a) < v.MinLength || (v.MaxLength > 0 && len(a) > v.MaxLength) {
		return nil, &gate.Error{
			Code:    gate.ErrCodePatternMismatch,
			Message: "address has the wrong number of glyphs",
			Details: map[string]string{
				"length": itoa(len(a)),
				"min":    itoa(v.MinLength),
				"max":    itoa(v.MaxLength),
			},
		}
	}
	return a, nil
}
