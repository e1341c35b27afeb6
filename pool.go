package mio

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/brickingsoft/mio/pkg/aio"
	"github.com/brickingsoft/mio/pkg/queue"
	"github.com/brickingsoft/mio/pkg/timers"
)

// Pool is the multi threaded execution context. Worker threads pull ready
// tasks; one dedicated thread polls the timer wheel and posts expired
// callbacks back to the ready queue, so timers share the workers'
// execution discipline. A pool carries no I/O service.
type Pool struct {
	readyMu sync.Mutex
	readyCv *sync.Cond
	ready   *queue.Ring[Task]

	timedMu sync.Mutex
	wheel   *timers.Wheel
	timedCh chan struct{}

	state     atomic.Int32
	inflight  atomic.Int64
	waitMu    sync.Mutex
	waitCv    *sync.Cond
	destroyCh chan struct{}
	destroy   sync.Once
	wg        sync.WaitGroup
}

// NewPool starts workers worker threads plus the timer thread and moves
// the pool to Running.
func NewPool(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{
		ready:     queue.New[Task](),
		wheel:     timers.New(),
		timedCh:   make(chan struct{}, 1),
		destroyCh: make(chan struct{}),
	}
	p.readyCv = sync.NewCond(&p.readyMu)
	p.waitCv = sync.NewCond(&p.waitMu)
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.worker()
		}()
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.timePoller()
	}()
	p.Run()
	return p
}

// Post enqueues task on the ready queue from any goroutine.
func (p *Pool) Post(task Task) {
	if task == nil {
		return
	}
	p.inflight.Add(1)
	p.readyMu.Lock()
	p.ready.Push(task)
	p.readyMu.Unlock()
	p.readyCv.Signal()
}

// Dispatch posts: the pool offers no inline execution.
func (p *Pool) Dispatch(task Task) {
	p.Post(task)
}

// SetTimeout schedules task after delay and returns its timer id.
func (p *Pool) SetTimeout(delay time.Duration, task Task) TimerID {
	p.inflight.Add(1)
	p.timedMu.Lock()
	id := p.wheel.SetTimeout(delay, task)
	p.timedMu.Unlock()
	p.signalTimed()
	return id
}

// Clear cancels a pending timer. Unknown ids are ignored.
func (p *Pool) Clear(id TimerID) {
	p.timedMu.Lock()
	cancelled := p.wheel.Cancel(id)
	p.timedMu.Unlock()
	if cancelled {
		p.done()
	}
}

// Service reports nil: the pool runs no I/O.
func (p *Pool) Service() *aio.Service {
	return nil
}

// Run moves the pool to Running and wakes every thread.
func (p *Pool) Run() {
	p.setState(stateRunning)
}

// Stop pauses task execution; queued work stays queued until Run.
func (p *Pool) Stop() {
	p.setState(stateStop)
}

// Wait blocks until the in-flight counter reaches zero: every posted task
// has finished and every timer has fired or been cleared.
func (p *Pool) Wait() {
	p.waitMu.Lock()
	for p.inflight.Load() != 0 {
		p.waitCv.Wait()
	}
	p.waitMu.Unlock()
}

// Join waits for the in-flight counter to drain, moves the pool to
// PendingDestroy and joins every thread.
func (p *Pool) Join() {
	p.Wait()
	p.destroy.Do(func() {
		p.setState(statePendingDestroy)
		close(p.destroyCh)
	})
	p.wg.Wait()
}

// Attach turns the calling goroutine into an extra worker until the pool
// is destroyed.
func (p *Pool) Attach() {
	p.worker()
}

func (p *Pool) setState(state int32) {
	p.readyMu.Lock()
	p.timedMu.Lock()
	p.state.Store(state)
	p.timedMu.Unlock()
	p.readyMu.Unlock()
	p.readyCv.Broadcast()
	p.signalTimed()
}

func (p *Pool) signalTimed() {
	select {
	case p.timedCh <- struct{}{}:
	default:
	}
}

// done retires one in-flight unit; the last one releases Wait.
func (p *Pool) done() {
	if p.inflight.Add(-1) == 0 {
		p.waitMu.Lock()
		p.waitCv.Broadcast()
		p.waitMu.Unlock()
	}
}

func (p *Pool) worker() {
	for {
		p.readyMu.Lock()
		for {
			state := p.state.Load()
			if state == statePendingDestroy {
				p.readyMu.Unlock()
				return
			}
			if state == stateRunning && !p.ready.Empty() {
				break
			}
			p.readyCv.Wait()
		}
		task := p.ready.Pop()
		p.readyMu.Unlock()

		task()
		p.done()
	}
}

// timePoller sleeps until the earliest deadline, a newly armed timer, or
// shutdown; expired callbacks are posted, never run here.
func (p *Pool) timePoller() {
	for {
		if p.state.Load() == statePendingDestroy {
			return
		}

		var next time.Time
		hasNext := false
		if p.state.Load() == stateRunning {
			now := time.Now()
			p.timedMu.Lock()
			expired := p.wheel.DrainExpired(now)
			next, hasNext = p.wheel.NextDeadline()
			p.timedMu.Unlock()
			for _, cb := range expired {
				p.Post(cb)
				p.done()
			}
			if len(expired) > 0 {
				continue
			}
		}

		if hasNext {
			timer := time.NewTimer(time.Until(next))
			select {
			case <-p.timedCh:
			case <-timer.C:
			case <-p.destroyCh:
			}
			timer.Stop()
		} else {
			select {
			case <-p.timedCh:
			case <-p.destroyCh:
			}
		}
	}
}
