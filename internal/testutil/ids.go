// Package testutil provides deterministic stand-ins for the
// nondeterministic parts of a run: generated ids and goroutine hand-offs.
package testutil

import (
	"fmt"
	"sync"
)

// SequenceGenerator generates prefix1, prefix2, ... forever.
//
// Unlike engine.FixedGenerator it never runs out, so scenarios need not
// know in advance how many ids they consume.
//
// Thread-safety: safe for concurrent use.
type SequenceGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceGenerator creates a generator for prefix.
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	return &SequenceGenerator{prefix: prefix}
}

// Generate implements engine.TokenGenerator.
func (g *SequenceGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s%d", g.prefix, g.n)
}

// Reset restarts the sequence at 1.
func (g *SequenceGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
