// Package irrecoverable provides the signaling mechanism components
// use to escalate errors they cannot recover from.
package irrecoverable

import (
	"context"
	"fmt"
	"runtime"
	"sync"
)

// Signaler sends the error out.
type Signaler struct {
	errors    chan error
	closeOnce sync.Once
}

func NewSignaler() (*Signaler, <-chan error) {
	errors := make(chan error, 1)
	return &Signaler{errors: errors}, errors
}

// Throw is a narrow drop-in replacement for panic, log.Fatal, log.Panic, etc
// anywhere there's something connected to the error channel. It never returns.
func (s *Signaler) Throw(err error) {
	s.closeOnce.Do(func() {
		s.errors <- err
		close(s.errors)
	})
	runtime.Goexit()
}

// SignalerContext is a constrained drop-in replacement for
// context.Context which also carries a Signaler.
type SignalerContext interface {
	context.Context
	Throw(err error) // delegates to the signaler
	sealed()         // private, to constrain builder to using WithSignaler
}

type signalerCtx struct {
	context.Context
	*Signaler
}

func (sc signalerCtx) sealed() {}

// WithSignaler is the One True Way of getting a SignalerContext.
func WithSignaler(parent context.Context) (SignalerContext, <-chan error) {
	sig, errChan := NewSignaler()
	return signalerCtx{parent, sig}, errChan
}

// Throw enables throwing an irrecoverable error from any place where a
// context.Context likely to support irrecoverables is available.
func Throw(ctx context.Context, err error) {
	signalerAbleContext, ok := ctx.(SignalerContext)
	if ok {
		signalerAbleContext.Throw(err)
	}
	// Be spectacular on how this does not -but should- handle irrecoverables:
	panic(fmt.Sprintf("irrecoverable error signaler not found for context, please implement! Unhandled irrecoverable error: %v", err))
}
