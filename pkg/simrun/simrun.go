// Package simrun provides the tick-driven harness for driving a
// simulation to completion: RunUntil advances the bus one tick at a time
// until a predicate is satisfied or a tick budget is exhausted.
package simrun

import (
	"github.com/vzdtic/minispark/pkg/bus"
	"github.com/vzdtic/minispark/pkg/simerrors"
)

// SimulationRunner drives a MessageBus deterministically, tick by tick.
type SimulationRunner struct {
	bus *bus.MessageBus
}

// New returns a runner driving messageBus.
func New(messageBus *bus.MessageBus) *SimulationRunner {
	return &SimulationRunner{bus: messageBus}
}

// RunUntil calls Tick repeatedly until predicate reports true or
// tickBudget ticks have elapsed, whichever comes first. It returns the
// number of ticks actually executed, and ErrTimeout if the budget was
// exhausted without predicate becoming true.
//
// predicate is checked after every tick, including before the first one
// runs — a predicate already true on entry costs zero ticks.
func (r *SimulationRunner) RunUntil(predicate func() bool, tickBudget uint64) (uint64, error) {
	var elapsed uint64
	if predicate() {
		return elapsed, nil
	}
	for elapsed < tickBudget {
		r.bus.Tick()
		elapsed++
		if predicate() {
			return elapsed, nil
		}
	}
	return elapsed, simerrors.ErrTimeout
}

// RunTicks advances exactly n ticks regardless of any predicate, useful
// for draining known in-flight traffic in tests.
func (r *SimulationRunner) RunTicks(n uint64) {
	for i := uint64(0); i < n; i++ {
		r.bus.Tick()
	}
}
