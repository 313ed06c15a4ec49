// Package network implements SimulatedNetwork: the seeded latency,
// reordering, drop, and partition model backing a MessageBus. It owns
// the single seeded generator the whole simulator draws from.
package network

import (
	"container/heap"
	"math/rand"

	"github.com/vzdtic/minispark/pkg/bus"
	"github.com/vzdtic/minispark/pkg/logging"
)

// Config is the network's enumerated configuration surface.
type Config struct {
	Seed             int64
	MinLatencyTicks  uint64
	MaxLatencyTicks  uint64
	DropProbability  float64
	Reorder          bool
	PartitionedPairs []EndpointPair
}

// EndpointPair identifies an unordered pair of endpoints whose traffic is
// dropped regardless of DropProbability.
type EndpointPair struct {
	A, B bus.Endpoint
}

// SimulatedNetwork owns the seeded generator and the delivery queue.
type SimulatedNetwork struct {
	cfg Config
	log logging.Logger
	rng *rand.Rand

	partitioned map[EndpointPair]bool
	lastDeliver map[pairKey]uint64 // last assigned deliver_tick per (source,destination), for FIFO clamping
	queue       envelopeHeap

	droppedLog []bus.Envelope // envelopes dropped at send time, kept for introspection/tests
}

type pairKey struct {
	Source, Destination bus.Endpoint
}

func normalize(a, b bus.Endpoint) EndpointPair {
	if a.Less(b) {
		return EndpointPair{A: a, B: b}
	}
	return EndpointPair{A: b, B: a}
}

// New creates a SimulatedNetwork. Config.MinLatencyTicks/MaxLatencyTicks
// are inclusive bounds; DropProbability is a probability in [0,1].
func New(cfg Config, log logging.Logger) *SimulatedNetwork {
	n := &SimulatedNetwork{
		cfg:         cfg,
		log:         log.With(logging.Fields{"component": "network"}),
		rng:         rand.New(rand.NewSource(cfg.Seed)),
		partitioned: make(map[EndpointPair]bool),
		lastDeliver: make(map[pairKey]uint64),
	}
	for _, p := range cfg.PartitionedPairs {
		n.partitioned[normalize(p.A, p.B)] = true
	}
	heap.Init(&n.queue)
	return n
}

// Partition marks two endpoints as partitioned: all further traffic
// between them is dropped regardless of DropProbability.
func (n *SimulatedNetwork) Partition(a, b bus.Endpoint) {
	n.partitioned[normalize(a, b)] = true
}

// Heal removes a partition between two endpoints.
func (n *SimulatedNetwork) Heal(a, b bus.Endpoint) {
	delete(n.partitioned, normalize(a, b))
}

// IsPartitioned reports whether traffic between a and b is dropped.
func (n *SimulatedNetwork) IsPartitioned(a, b bus.Endpoint) bool {
	return n.partitioned[normalize(a, b)]
}

// sampleLatency draws the first of the two per-send random values.
func (n *SimulatedNetwork) sampleLatency() uint64 {
	if n.cfg.MaxLatencyTicks <= n.cfg.MinLatencyTicks {
		n.rng.Int63() // a fixed latency still consumes its draw
		return n.cfg.MinLatencyTicks
	}
	spread := n.cfg.MaxLatencyTicks - n.cfg.MinLatencyTicks + 1
	return n.cfg.MinLatencyTicks + uint64(n.rng.Int63n(int64(spread)))
}

// sampleDrop draws the second of the two per-send random values.
func (n *SimulatedNetwork) sampleDrop() bool {
	return n.rng.Float64() < n.cfg.DropProbability
}

// Enqueue assigns deliver_tick and drop status to env and inserts it into
// the delivery queue (or the dropped log, if it was dropped at send time).
// Always draws exactly two random values, regardless of partition state,
// so the generator's call sequence stays fixed run over run.
func (n *SimulatedNetwork) Enqueue(env bus.Envelope, currentTick uint64) {
	delay := n.sampleLatency()
	dropRoll := n.sampleDrop()

	partitioned := n.IsPartitioned(env.Source, env.Destination)
	deliverTick := currentTick + delay

	if !n.cfg.Reorder {
		key := pairKey{Source: env.Source, Destination: env.Destination}
		if last, ok := n.lastDeliver[key]; ok && deliverTick < last {
			deliverTick = last
		}
		n.lastDeliver[key] = deliverTick
	}

	env.DeliverTick = deliverTick

	if partitioned || dropRoll {
		env.Status = bus.Dropped
		n.droppedLog = append(n.droppedLog, env)
		n.log.With(logging.Fields{
			"kind":        env.Message.Kind,
			"source":      env.Source,
			"destination": env.Destination,
			"partitioned": partitioned,
			"roll":        dropRoll,
		}).Debugf("dropped envelope")
		return
	}

	env.Status = bus.Pending
	heap.Push(&n.queue, &env)
}

// DrainDue removes and returns every envelope due at or before
// currentTick, in canonical order: (deliver_tick, source, destination,
// sequence_no).
func (n *SimulatedNetwork) DrainDue(currentTick uint64) []bus.Envelope {
	var due []bus.Envelope
	for n.queue.Len() > 0 && n.queue[0].DeliverTick <= currentTick {
		env := heap.Pop(&n.queue).(*bus.Envelope)
		due = append(due, *env)
	}
	return due
}

// DroppedMessages returns every envelope dropped at send time, for tests
// asserting on round-trip/drop properties.
func (n *SimulatedNetwork) DroppedMessages() []bus.Envelope {
	out := make([]bus.Envelope, len(n.droppedLog))
	copy(out, n.droppedLog)
	return out
}

// envelopeHeap implements container/heap.Interface, ordered by the
// canonical (deliver_tick, source, destination, sequence_no) tiebreak.
// Grounded on the EventHeap used by the raft-kv-store teacher's
// deterministic test simulator (pkg/testing/simulator.go).
type envelopeHeap []*bus.Envelope

func (h envelopeHeap) Len() int { return len(h) }

func (h envelopeHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	if a.DeliverTick != b.DeliverTick {
		return a.DeliverTick < b.DeliverTick
	}
	if a.Source != b.Source {
		return a.Source.Less(b.Source)
	}
	if a.Destination != b.Destination {
		return a.Destination.Less(b.Destination)
	}
	return a.SequenceNo < b.SequenceNo
}

func (h envelopeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *envelopeHeap) Push(x interface{}) {
	*h = append(*h, x.(*bus.Envelope))
}

func (h *envelopeHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}
