package protocol

import (
	"math/rand/v2"
	"strconv"
	"sync"
)

// idSeedRange bounds the random starting point of a generator.
const idSeedRange = 10000

// IDGenerator hands out correlation ids for outgoing requests.
//
// Ids are decimal strings of a counter that starts at a random value in
// [0, 10000) and increases by one per call. The counter never resets, so ids
// are unique and strictly increasing for the lifetime of the generator.
//
// Thread Safety:
//   - Next is safe for concurrent use.
type IDGenerator struct {
	mu   sync.Mutex
	next uint64
}

// NewIDGenerator creates a generator seeded from a random base.
func NewIDGenerator() *IDGenerator {
	return NewIDGeneratorFrom(rand.Uint64N(idSeedRange))
}

// NewIDGeneratorFrom creates a generator whose first id is seed.
func NewIDGeneratorFrom(seed uint64) *IDGenerator {
	return &IDGenerator{next: seed}
}

// Next returns the next correlation id.
func (g *IDGenerator) Next() string {
	g.mu.Lock()
	id := g.next
	g.next++
	g.mu.Unlock()
	return strconv.FormatUint(id, 10)
}
