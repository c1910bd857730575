// Package id generates chunk identifiers.
//
// Chunk ids are ULIDs: lexicographically sortable, so ids issued during a
// single ingest preserve chunk order. Document ids are not generated here;
// they come from the source itself (an arXiv id) or from a hash of the
// source URL or title.
package id

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generator issues ULID strings. It is safe for concurrent use; ids
// generated within the same millisecond are strictly increasing.
type Generator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewGenerator creates a Generator backed by crypto/rand entropy.
func NewGenerator() *Generator {
	return &Generator{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// NewULIDs returns n ULID strings in ascending order. The batch shares one
// timestamp, so the ids sort in generation order even across a millisecond
// boundary.
func (g *Generator) NewULIDs(n int) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	ids := make([]string, n)
	now := ulid.Timestamp(time.Now())
	for i := range ids {
		ids[i] = ulid.MustNew(now, g.entropy).String()
	}
	return ids
}
