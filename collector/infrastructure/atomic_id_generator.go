package infrastructure

import "sync/atomic"

// AtomicIDGenerator hands out the sequence numbers of published readings.
// The first call returns 1.
type AtomicIDGenerator struct {
	id atomic.Int64
}

// Generate returns the next sequence number.
func (g *AtomicIDGenerator) Generate() int64 {
	return g.id.Add(1)
}
