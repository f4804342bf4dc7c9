package gate

import "strings"

// Glyph is one symbol of the dialing alphabet.
type Glyph string

// Origin is the point-of-origin glyph. Dialing always ends on it.
const Origin Glyph = "A"

// Alphabet is the closed set of 36 glyphs.
var Alphabet = func() []Glyph {
	const symbols = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	out := make([]Glyph, 0, len(symbols))
	for _, r := range symbols {
		out = append(out, Glyph(r))
	}
	return out
}()

var alphabetSet = func() map[Glyph]bool {
	m := make(map[Glyph]bool, len(Alphabet))
	for _, g := range Alphabet {
		m[g] = true
	}
	return m
}()

// Valid reports whether g belongs to the alphabet.
func (g Glyph) Valid() bool {
	return alphabetSet[g]
}

// Address is an ordered sequence of glyphs.
type Address []Glyph

// ParseGlyphs converts a compact glyph string ("GDCAFE") into an Address
// without validating membership.
func ParseGlyphs(s string) Address {
	out := make(Address, 0, len(s))
	for _, r := range s {
		out = append(out, Glyph(r))
	}
	return out
}

func (a Address) String() string {
	var b strings.Builder
	for _, g := range a {
		b.WriteString(string(g))
	}
	return b.String()
}

// Equal reports element-wise equality.
func (a Address) Equal(other Address) bool {
	if len(a) != len(other) {
		return false
	}
	for i := range a {
		if a[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy that does not share the backing array.
func (a Address) Clone() Address {
	if a == nil {
		return nil
	}
	out := make(Address, len(a))
	copy(out, a)
	return out
}

// Validate checks that the address is non-empty and every glyph belongs to
// the alphabet.
func (a Address) Validate() error {
	if len(a) == 0 {
		return NewError(ErrCodeEmptyAddress, "address must contain at least one glyph")
	}
	for i, g := range a {
		if !g.Valid() {
			return &Error{
				Code:    ErrCodeInvalidGlyph,
				Message: "glyph is not part of the dialing alphabet",
				Details: map[string]string{"glyph": string(g), "index": itoa(i)},
			}
		}
	}
	return nil
}

// Coordinates returns the address with a trailing Origin glyph removed.
func (a Address) Coordinates() Address {
	if n := len(a); n > 0 && a[n-1] == Origin {
		return a[:n-1]
	}
	return a
}
