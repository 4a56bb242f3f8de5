// Package eventloop runs the shared background event-processing loop:
// one worker draining the serialized work queue, and one worker firing
// protocol timers.
//
// The loop is started and stopped repeatedly over its lifetime: it is
// only active while at least one controller is registered, plus
// transiently during factory startup. Each activation builds a fresh
// ComponentManager run.
package eventloop

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/meshweave/fabric-go/module/component"
	"github.com/meshweave/fabric-go/module/irrecoverable"
)

// ErrNotRunning is returned when work is submitted while the loop is
// inactive.
var ErrNotRunning = errors.New("event loop is not running")

type task struct {
	fn func() error

	// done receives the task result for synchronous submissions; nil
	// for fire-and-forget work scheduled by timers.
	done chan error
}

// Loop is the shared event-processing loop. Start and Stop must be
// called from a single control goroutine; Sync and Schedule may be
// called from any goroutine.
type Loop struct {
	log zerolog.Logger

	mu       sync.Mutex
	running  bool
	tasks    chan *task
	schedule chan *timer
	cm       *component.ComponentManager
	cancel   context.CancelFunc
}

func New(log zerolog.Logger) *Loop {
	return &Loop{
		log: log.With().Str("component", "event_loop").Logger(),
	}
}

// Start activates the loop. It is a no-op if the loop is already
// running. Start returns once both workers are ready to accept work.
func (l *Loop) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return nil
	}

	l.tasks = make(chan *task)
	l.schedule = make(chan *timer)

	ctx, cancel := context.WithCancel(context.Background())
	signalerCtx, errChan := irrecoverable.WithSignaler(ctx)

	cm := component.NewComponentManagerBuilder().
		AddWorker(l.processTasks).
		AddWorker(l.processTimers).
		Build()
	cm.Start(signalerCtx)

	go func() {
		err := <-errChan
		if err != nil {
			l.log.Err(err).Msg("event loop worker failed")
		}
	}()

	<-cm.Ready()

	l.cm = cm
	l.cancel = cancel
	l.running = true
	l.log.Debug().Msg("event loop activated")
	return nil
}

// Stop deactivates the loop and waits for both workers to exit. It is
// a no-op if the loop is not running. In-flight synchronous work is
// allowed to finish; pending timers are dropped.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running {
		return
	}
	l.cancel()
	<-l.cm.Done()
	l.running = false
	l.cm = nil
	l.cancel = nil
	l.log.Debug().Msg("event loop deactivated")
}

// IsRunning reports whether the loop is currently active.
func (l *Loop) IsRunning() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// Sync submits a unit of work to the serialized work queue and blocks
// until it has completed, returning its result. Work submitted by
// concurrent callers is strictly ordered, never interleaved.
//
// Expected errors: ErrNotRunning if the loop is inactive, or becomes
// inactive before the work is picked up.
func (l *Loop) Sync(fn func() error) error {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return ErrNotRunning
	}
	tasks := l.tasks
	shutdown := l.cm.ShutdownSignal()
	l.mu.Unlock()

	t := &task{fn: fn, done: make(chan error, 1)}
	select {
	case tasks <- t:
		return <-t.done
	case <-shutdown:
		return ErrNotRunning
	}
}

// Schedule arranges for fn to run on the serialized work queue after
// the given delay. The timer is dropped if the loop deactivates before
// it fires.
func (l *Loop) Schedule(delay time.Duration, fn func() error) error {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return ErrNotRunning
	}
	schedule := l.schedule
	shutdown := l.cm.ShutdownSignal()
	l.mu.Unlock()

	t := &timer{deadline: time.Now().Add(delay), fn: fn}
	select {
	case schedule <- t:
		return nil
	case <-shutdown:
		return ErrNotRunning
	}
}

// processTasks is the worker draining the serialized work queue.
func (l *Loop) processTasks(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
	ready()
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-l.tasks:
			err := t.fn()
			if t.done != nil {
				t.done <- err
			} else if err != nil {
				l.log.Err(err).Msg("scheduled work failed")
			}
		}
	}
}
