package bus

import (
	"github.com/vzdtic/minispark/internal/idgen"
	"github.com/vzdtic/minispark/pkg/logging"
)

// Handler processes an envelope delivered to its destination endpoint.
type Handler func(Envelope)

// Transport is the MessageBus's only dependency on a network model —
// satisfied structurally by *network.SimulatedNetwork without this
// package importing pkg/network, which would otherwise cycle back
// through here (pkg/network needs Endpoint/Envelope from this package).
type Transport interface {
	Enqueue(env Envelope, currentTick uint64)
	DrainDue(currentTick uint64) []Envelope
}

// MessageBus composes a Transport with a handler registry and drives all
// progress through Tick.
type MessageBus struct {
	net Transport
	log logging.Logger

	handlers map[Endpoint]Handler
	order    []Endpoint // insertion order

	currentTick uint64
	seq         *idgen.Counter

	pendingCallbacks []func() // scheduled during this tick, run at the start of the next
}

// NewMessageBus creates a bus driven by the given transport (normally a
// *network.SimulatedNetwork).
func NewMessageBus(net Transport, log logging.Logger) *MessageBus {
	return &MessageBus{
		net:      net,
		log:      log.With(logging.Fields{"component": "bus"}),
		handlers: make(map[Endpoint]Handler),
		seq:      idgen.NewCounter(0),
	}
}

// Register installs h as the handler for endpoint. Re-registration
// replaces the handler without changing its position in iteration order;
// a fresh endpoint is appended to the end.
func (b *MessageBus) Register(endpoint Endpoint, h Handler) {
	if _, exists := b.handlers[endpoint]; !exists {
		b.order = append(b.order, endpoint)
	}
	b.handlers[endpoint] = h
}

// Unregister removes the handler for endpoint, if any.
func (b *MessageBus) Unregister(endpoint Endpoint) {
	if _, exists := b.handlers[endpoint]; !exists {
		return
	}
	delete(b.handlers, endpoint)
	for i, ep := range b.order {
		if ep == endpoint {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

// Endpoints returns every registered endpoint in registration order.
func (b *MessageBus) Endpoints() []Endpoint {
	out := make([]Endpoint, len(b.order))
	copy(out, b.order)
	return out
}

// CurrentTick returns the tick the bus is about to execute.
func (b *MessageBus) CurrentTick() uint64 {
	return b.currentTick
}

// Send stamps sequence_no/send_tick and hands the envelope to the
// network. It never invokes the destination handler synchronously.
func (b *MessageBus) Send(message Message, source, destination Endpoint) uint64 {
	seq := b.seq.Next()
	message.SequenceNo = seq

	env := Envelope{
		Message:     message,
		Source:      source,
		Destination: destination,
		SequenceNo:  seq,
		SendTick:    b.currentTick,
		Status:      Pending,
	}
	b.net.Enqueue(env, b.currentTick)
	return seq
}

// ScheduleCallback queues fn to run during the pre-tick phase of the next
// Tick call.
func (b *MessageBus) ScheduleCallback(fn func()) {
	b.pendingCallbacks = append(b.pendingCallbacks, fn)
}

// Tick executes exactly one round of progress: pre-tick callbacks, the
// delivery phase (dispatching every due envelope in canonical order), and
// advances current_tick. It returns the number of envelopes dispatched.
//
// Promise continuations fire synchronously the instant their governing
// promise resolves (see pkg/promise), since this port has no microtask
// queue to defer them through; a continuation still only ever runs
// inside the tick that resolved its promise, so no externally observable
// ordering guarantee changes.
func (b *MessageBus) Tick() int {
	tickLog := b.log.With(logging.Fields{"tick": b.currentTick})

	callbacks := b.pendingCallbacks
	b.pendingCallbacks = nil
	for _, cb := range callbacks {
		cb()
	}

	due := b.net.DrainDue(b.currentTick)
	dispatched := 0
	for _, env := range due {
		env.Status = Delivered
		handler, ok := b.handlers[env.Destination]
		if !ok {
			tickLog.With(logging.Fields{"endpoint": env.Destination, "kind": env.Message.Kind, "source": env.Source}).
				Warnf("no handler registered, dropping envelope")
			continue
		}
		handler(env)
		dispatched++
	}

	b.currentTick++
	return dispatched
}
