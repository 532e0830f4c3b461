package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDs generates readable observation ids: "<prefix>-0001",
// "<prefix>-0002", and so on.
//
// Unlike engine.FixedGenerator, SequentialIDs never runs out, so it suits
// scenarios whose observation count is not known up front. The same
// scenario run twice produces the same ids.
//
// Thread-safety: SequentialIDs is safe for concurrent use via internal mutex.
type SequentialIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialIDs creates a generator for the given prefix.
// If prefix is empty, ids start with "obs".
func NewSequentialIDs(prefix string) *SequentialIDs {
	if prefix == "" {
		prefix = "obs"
	}
	return &SequentialIDs{prefix: prefix}
}

// Generate returns the next id.
//
// Implements engine.IDGenerator.
func (g *SequentialIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}

// Reset restarts numbering at 1.
func (g *SequentialIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
