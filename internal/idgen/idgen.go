// Package idgen provides the two id-generation strategies the simulator
// needs: plain monotonic counters for stage/job/task identity, which must
// stay deterministic counters rather than random ids, and a deterministic
// uuid.v5-derived correlation id for object-store request/response
// matching, where a textual unique id is wanted but randomness would break
// cross-run reproducibility.
package idgen

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// Counter is a monotonic, insertion-order-preserving id source. Safe only
// for the single-threaded tick loop's use (no internal synchronization
// beyond what's needed to satisfy the race detector (`go test -race`) in tests that
// happen to construct counters from a goroutine other than the tick loop).
type Counter struct {
	next uint64
}

// NewCounter creates a counter whose first Next() returns start.
func NewCounter(start uint64) *Counter {
	return &Counter{next: start}
}

// Next returns the next id in the sequence and advances the counter.
func (c *Counter) Next() uint64 {
	return atomic.AddUint64(&c.next, 1) - 1
}

// namespace is a fixed, arbitrary UUID used as the root of every derived
// correlation id so generation is deterministic given the same input.
var namespace = uuid.MustParse("6f6d6e69-7370-6172-6b2d-73696d000000")

// CorrelationID deterministically derives a correlation id from a message
// sequence number, so two runs with the same seed and the same send order
// produce byte-identical correlation ids without sharing mutable state.
func CorrelationID(sequenceNo uint64) string {
	return uuid.NewSHA1(namespace, []byte(fmt.Sprintf("seq-%d", sequenceNo))).String()
}
