package eventloop

import (
	"container/heap"
	"time"

	"github.com/meshweave/fabric-go/module/component"
	"github.com/meshweave/fabric-go/module/irrecoverable"
)

type timer struct {
	deadline time.Time
	fn       func() error
}

type timerQueue []*timer

func (q timerQueue) Len() int            { return len(q) }
func (q timerQueue) Less(i, j int) bool  { return q[i].deadline.Before(q[j].deadline) }
func (q timerQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *timerQueue) Push(x interface{}) { *q = append(*q, x.(*timer)) }
func (q *timerQueue) Pop() interface{} {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return t
}

// processTimers is the worker firing protocol timers. Fired callbacks
// are handed to the serialized work queue so that timer work is
// ordered with synchronous submissions.
func (l *Loop) processTimers(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
	ready()

	pending := &timerQueue{}
	heap.Init(pending)

	wait := time.NewTimer(time.Hour)
	defer wait.Stop()

	for {
		// arm the wait timer for the next deadline, if any
		if !wait.Stop() {
			select {
			case <-wait.C:
			default:
			}
		}
		if pending.Len() > 0 {
			wait.Reset(time.Until((*pending)[0].deadline))
		}

		if pending.Len() == 0 {
			select {
			case <-ctx.Done():
				return
			case t := <-l.schedule:
				heap.Push(pending, t)
			}
			continue
		}

		select {
		case <-ctx.Done():
			return
		case t := <-l.schedule:
			heap.Push(pending, t)
		case <-wait.C:
			t := heap.Pop(pending).(*timer)
			select {
			case <-ctx.Done():
				return
			case l.tasks <- &task{fn: t.fn}:
			}
		}
	}
}
