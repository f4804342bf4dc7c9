package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dhd/internal/gate"
)

func TestDefault(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	all := c.All()
	require.Equal(t, 9, c.Len())
	assert.Equal(t, "abydos", all[0].ID, "declaration order is kept")
	assert.Equal(t, "Abydos", all[0].Name)
	assert.Equal(t, "GDCAFE", all[0].Address.String())

	d, ok := c.Lookup("othala")
	require.True(t, ok)
	assert.Len(t, d.Address, gate.MaxDestinationGlyphs)
}

func TestResolve(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	tests := []struct {
		name    string
		address string
		want    string
	}{
		{"with origin", "GDCAFEA", "abydos"},
		{"coordinates only", "GDCAFE", "abydos"},
		{"seven symbols", "MPQ4X2KA", "vorash"},
		{"unknown", "GDCAFEBA", ""},
		{"partial", "GDCA", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ok := c.Resolve(gate.ParseGlyphs(tt.address))
			assert.Equal(t, tt.want != "", ok)
			assert.Equal(t, tt.want, d.ID)
		})
	}
}

func TestNearest(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	got := c.Nearest(gate.ParseGlyphs("GDCAFB"), 2)
	require.Len(t, got, 2)
	assert.Equal(t, "abydos", got[0].Destination.ID)
	assert.Equal(t, 1, got[0].Distance)
	assert.GreaterOrEqual(t, got[1].Distance, got[0].Distance)

	assert.Len(t, c.Nearest(gate.ParseGlyphs("GDCAFB"), 0), c.Len())
}

func TestParse_SchemaViolation(t *testing.T) {
	_, err := Parse("bad.cue", []byte(`
destination: short: {
	name:    "Short"
	address: "GDC"
}
`))
	require.Error(t, err)
}

func TestParse_RejectsGlyphsOutsideAlphabet(t *testing.T) {
	for _, addr := range []string{"gdcafe", "GDC-FE", "GDCAFE123"} {
		_, err := Parse("bad.cue", []byte(`
destination: odd: {
	name:    "Odd"
	address: "`+addr+`"
}
`))
		assert.Error(t, err, addr)
	}
}

func TestParse_MissingDestinations(t *testing.T) {
	_, err := Parse("empty.cue", []byte(`other: 1`))
	require.Error(t, err)

	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, "destination", le.Field)
}

func TestNew_RejectsDuplicates(t *testing.T) {
	_, err := New([]gate.Destination{
		{ID: "a", Name: "A", Address: gate.ParseGlyphs("GDCAFE")},
		{ID: "b", Name: "B", Address: gate.ParseGlyphs("GDCAFE")},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already used by a")

	_, err = New([]gate.Destination{
		{ID: "a", Name: "A", Address: gate.ParseGlyphs("GDCAFE")},
		{ID: "a", Name: "A2", Address: gate.ParseGlyphs("BRT5QX")},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate destination id")
}

func TestNew_RejectsBadLength(t *testing.T) {
	_, err := New([]gate.Destination{{ID: "x", Address: gate.ParseGlyphs("ABC")}})
	require.Error(t, err)
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	src := `package gates

destination: {
	p3x888: {
		name:    "P3X-888"
		address: "P3X888"
	}
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gates.cue"), []byte(src), 0o644))

	c, err := LoadDir(dir)
	require.NoError(t, err)
	require.Equal(t, 1, c.Len())

	d, ok := c.Resolve(gate.ParseGlyphs("P3X888A"))
	require.True(t, ok)
	assert.Equal(t, "P3X-888", d.Name)
}

func TestLoadDir_Errors(t *testing.T) {
	_, err := LoadDir(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)

	_, err = LoadDir(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no CUE files")
}

func TestLoadDir_SyntaxErrorIsLoadError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.cue"), []byte("package gates\n\ndestination: {\n"), 0o644))

	_, err := LoadDir(dir)
	require.Error(t, err)

	var le *LoadError
	require.True(t, errors.As(err, &le), "got %T: %v", err, err)
	assert.Equal(t, "cue", le.Field)
}
