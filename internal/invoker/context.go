package invoker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Invocation is the execution context handed to a handler alongside the
// event. It carries the synthetic invocation identity and a first-completion
// latch: whichever of {explicit signal, handler return, deadline} fires first
// settles the outcome, and anything reported afterwards is dropped.
type Invocation struct {
	// ID is the synthetic unique invocation id
	ID string
	// FunctionName is the handler reference being executed
	FunctionName string
	// Version is the function version marker
	Version string

	deadline time.Time
	once     sync.Once
	result   chan error
}

func newInvocation(id, functionName, version string, deadline time.Time) *Invocation {
	return &Invocation{
		ID:           id,
		FunctionName: functionName,
		Version:      version,
		deadline:     deadline,
		result:       make(chan error, 1),
	}
}

// RemainingTimeMS returns the milliseconds left until the invocation
// deadline. It decreases monotonically and never goes below zero.
func (inv *Invocation) RemainingTimeMS() int64 {
	ms := time.Until(inv.deadline).Milliseconds()
	if ms < 0 {
		return 0
	}
	return ms
}

// Deadline returns the absolute invocation deadline.
func (inv *Invocation) Deadline() time.Time {
	return inv.deadline
}

// Succeed signals explicit successful completion.
func (inv *Invocation) Succeed() {
	inv.settle(nil)
}

// Fail signals explicit failed completion.
func (inv *Invocation) Fail(err error) {
	if err == nil {
		err = errors.New("handler reported failure")
	}
	inv.settle(err)
}

// settle records the first completion; later completions are silently
// dropped.
func (inv *Invocation) settle(err error) {
	inv.once.Do(func() {
		inv.result <- err
	})
}

type invocationKey struct{}

// NewContext returns a context carrying the invocation.
func NewContext(ctx context.Context, inv *Invocation) context.Context {
	return context.WithValue(ctx, invocationKey{}, inv)
}

// FromContext extracts the invocation from a handler context.
func FromContext(ctx context.Context) (*Invocation, bool) {
	inv, ok := ctx.Value(invocationKey{}).(*Invocation)
	return inv, ok
}
