// Package catalog holds the static list of known destinations and decides
// whether a dialed address reaches one of them.
//
// Destinations are declared in CUE. The package ships a default catalog and
// can load a directory of .cue files instead; both are checked against the
// same schema.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"
	"github.com/agnivade/levenshtein"

	"github.com/roach88/dhd/internal/gate"
)

//go:embed schema.cue
var schemaSource string

//go:embed default.cue
var defaultSource string

// LoadError is a catalog definition error with its source position.
type LoadError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Catalog is an immutable, ordered set of destinations.
type Catalog struct {
	destinations []gate.Destination
	byID         map[string]int
	byAddress    map[string]int
}

// New builds a catalog from dests, rejecting duplicate ids or addresses and
// addresses outside the length bounds.
func New(dests []gate.Destination) (*Catalog, error) {
	c := &Catalog{
		destinations: make([]gate.Destination, 0, len(dests)),
		byID:         make(map[string]int, len(dests)),
		byAddress:    make(map[string]int, len(dests)),
	}
	for _, d := range dests {
		if err := d.Address.Validate(); err != nil {
			return nil, fmt.Errorf("destination %s: %w", d.ID, err)
		}
		if n := len(d.Address); n < gate.MinDestinationGlyphs || n > gate.MaxDestinationGlyphs {
			return nil, &LoadError{
				Field:   "destination." + d.ID + ".address",
				Message: fmt.Sprintf("address must have %d to %d glyphs, got %d", gate.MinDestinationGlyphs, gate.MaxDestinationGlyphs, n),
			}
		}
		if _, dup := c.byID[d.ID]; dup {
			return nil, &LoadError{Field: "destination." + d.ID, Message: "duplicate destination id"}
		}
		key := d.Address.String()
		if other, dup := c.byAddress[key]; dup {
			return nil, &LoadError{
				Field:   "destination." + d.ID + ".address",
				Message: fmt.Sprintf("address %s already used by %s", key, c.destinations[other].ID),
			}
		}

		d.Address = d.Address.Clone()
		c.byID[d.ID] = len(c.destinations)
		c.byAddress[key] = len(c.destinations)
		c.destinations = append(c.destinations, d)
	}
	return c, nil
}

// Default returns the built-in catalog.
func Default() (*Catalog, error) {
	return Parse("default.cue", []byte(defaultSource))
}

// Parse compiles a single CUE source.
func Parse(filename string, src []byte) (*Catalog, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return compile(ctx, v)
}

// LoadDir loads every .cue file of the package in dir.
func LoadDir(dir string) (*Catalog, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("catalog directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("catalog directory: %s is not a directory", dir)
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.cue"))
	if err != nil {
		return nil, fmt.Errorf("scanning catalog directory: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no CUE files found in %s", dir)
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances loaded from %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, formatCUEError(inst.Err)
	}

	v := ctx.BuildInstance(inst)
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return compile(ctx, v)
}

// compile checks v against the schema and extracts destinations in
// declaration order.
func compile(ctx *cue.Context, v cue.Value) (*Catalog, error) {
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	v = v.Unify(schema)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	destVal := v.LookupPath(cue.ParsePath("destination"))
	if !destVal.Exists() {
		return nil, &LoadError{Field: "destination", Message: "no destinations declared", Pos: v.Pos()}
	}

	iter, err := destVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var dests []gate.Destination
	for iter.Next() {
		d, err := compileDestination(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		dests = append(dests, d)
	}
	if len(dests) == 0 {
		return nil, &LoadError{Field: "destination", Message: "no destinations declared", Pos: v.Pos()}
	}
	return New(dests)
}

func compileDestination(id string, v cue.Value) (gate.Destination, error) {
	name, err := v.LookupPath(cue.ParsePath("name")).String()
	if err != nil {
		return gate.Destination{}, formatCUEError(err)
	}
	addr, err := v.LookupPath(cue.ParsePath("address")).String()
	if err != nil {
		return gate.Destination{}, formatCUEError(err)
	}
	return gate.Destination{ID: id, Name: name, Address: gate.ParseGlyphs(addr)}, nil
}

// formatCUEError keeps the first error and its position, when it has one.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &LoadError{Field: "cue", Message: err.Error()}
	}
	first := errs[0]
	le := &LoadError{Field: "cue", Message: first.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		le.Pos = positions[0]
	}
	return le
}

// All returns every destination in catalog order.
func (c *Catalog) All() []gate.Destination {
	out := make([]gate.Destination, len(c.destinations))
	copy(out, c.destinations)
	return out
}

// Len returns the number of destinations.
func (c *Catalog) Len() int { return len(c.destinations) }

// Lookup finds a destination by id.
func (c *Catalog) Lookup(id string) (gate.Destination, bool) {
	i, ok := c.byID[id]
	if !ok {
		return gate.Destination{}, false
	}
	return c.destinations[i], true
}

// Resolve reports the destination reached by a dialed address. The address
// must match a destination's coordinates exactly; a trailing origin glyph is
// ignored.
func (c *Catalog) Resolve(address gate.Address) (gate.Destination, bool) {
	i, ok := c.byAddress[address.Coordinates().String()]
	if !ok {
		return gate.Destination{}, false
	}
	return c.destinations[i], true
}

// Suggestion is a destination close to a dialed address.
type Suggestion struct {
	Destination gate.Destination
	Distance    int
}

// Nearest returns up to limit destinations ordered by edit distance to
// address, closest first. Ties keep catalog order.
func (c *Catalog) Nearest(address gate.Address, limit int) []Suggestion {
	coords := address.Coordinates().String()

	out := make([]Suggestion, 0, len(c.destinations))
	for _, d := range c.destinations {
		out = append(out, Suggestion{
			Destination: d,
			Distance:    levenshtein.ComputeDistance(coords, d.Address.String()),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
