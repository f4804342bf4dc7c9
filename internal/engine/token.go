package engine

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// TokenGenerator produces the correlation token of each dialing attempt.
type TokenGenerator interface {
	Generate() string
}

// UUIDv7Generator issues time-sortable UUIDv7 tokens, so attempts listed
// from the journal sort by start time. Stateless.
type UUIDv7Generator struct{}

// Generate returns a hyphenated UUIDv7.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator hands out predetermined tokens, for golden traces.
// Once the list is exhausted it continues with "<last>-<n>".
type FixedGenerator struct {
	mu     sync.Mutex
	tokens []string
	idx    int
}

// NewFixedGenerator creates a generator returning tokens in order.
func NewFixedGenerator(tokens ...string) *FixedGenerator {
	if len(tokens) == 0 {
		tokens = []string{"attempt"}
	}
	return &FixedGenerator{tokens: tokens}
}

// Generate returns the next token.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	defer func() { g.idx++ }()
	if g.idx < len(g.tokens) {
		return g.tokens[g.idx]
	}
	return fmt.Sprintf("%s-%d", g.tokens[len(g.tokens)-1], g.idx-len(g.tokens)+2)
}
