// Package promise implements a single-assignment completion cell: a
// tagged {Pending(continuations) | Fulfilled(v) | Rejected(e)} cell with
// no blocking Get/Join — callers drive ticks via pkg/simrun and poll
// IsResolved instead.
package promise

import "github.com/vzdtic/minispark/pkg/simerrors"

type state int

const (
	pending state = iota
	fulfilled
	rejected
)

// Promise is a single-assignment completion cell. The zero value is not
// usable; construct with New.
type Promise struct {
	st            state
	value         interface{}
	err           error
	continuations []func(interface{}, error)
}

// New returns a fresh, unresolved promise.
func New() *Promise {
	return &Promise{st: pending}
}

// Resolved returns an already-fulfilled promise, useful for task bodies
// whose result is known synchronously.
func Resolved(value interface{}) *Promise {
	p := New()
	p.Resolve(value)
	return p
}

// Rejected returns an already-rejected promise.
func Rejected(err error) *Promise {
	p := New()
	p.Reject(err)
	return p
}

// Resolve fulfills the promise with value. A second call is a no-op —
// resolution is idempotent and a promise never reverts.
func (p *Promise) Resolve(value interface{}) {
	if p.st != pending {
		return
	}
	p.st = fulfilled
	p.value = value
	p.fire()
}

// Reject fails the promise with err. A second call is a no-op.
func (p *Promise) Reject(err error) {
	if p.st != pending {
		return
	}
	p.st = rejected
	p.err = err
	p.fire()
}

// Cancel transitions an unresolved promise to Rejected(Cancelled) and
// propagates to dependents via the normal rejection path. A no-op once
// already resolved.
func (p *Promise) Cancel() {
	p.Reject(simerrors.ErrCancelled)
}

func (p *Promise) fire() {
	continuations := p.continuations
	p.continuations = nil
	for _, c := range continuations {
		c(p.value, p.err)
	}
}

// Then registers a continuation that runs once this promise resolves —
// immediately, if it already has, or during the tick in which it
// resolves otherwise. Continuations run in registration order.
func (p *Promise) Then(fn func(value interface{}, err error)) {
	if p.st == pending {
		p.continuations = append(p.continuations, fn)
		return
	}
	fn(p.value, p.err)
}

// IsResolved reports whether the promise has fulfilled or rejected.
func (p *Promise) IsResolved() bool {
	return p.st != pending
}

// IsRejected reports whether the promise rejected.
func (p *Promise) IsRejected() bool {
	return p.st == rejected
}

// Value returns the fulfilled value. Only meaningful once IsResolved()
// and !IsRejected().
func (p *Promise) Value() interface{} {
	return p.value
}

// Err returns the rejection cause, if any.
func (p *Promise) Err() error {
	return p.err
}

// All resolves once every input promise resolves; the first rejection (by
// input order, not arrival order) rejects the aggregate.
func All(promises []*Promise) *Promise {
	agg := New()
	if len(promises) == 0 {
		agg.Resolve([]interface{}{})
		return agg
	}

	results := make([]interface{}, len(promises))
	errs := make([]error, len(promises))
	remaining := len(promises)

	for i, p := range promises {
		i := i
		p.Then(func(value interface{}, err error) {
			if err != nil {
				errs[i] = err
			} else {
				results[i] = value
			}
			remaining--
			if remaining == 0 {
				for _, e := range errs {
					if e != nil {
						agg.Reject(e)
						return
					}
				}
				agg.Resolve(results)
			}
		})
	}

	return agg
}
