package mio

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/mio/pkg/aio"
	"github.com/brickingsoft/mio/pkg/queue"
	"github.com/brickingsoft/mio/pkg/timers"
	"go.uber.org/zap"
)

const defaultTaskBudget = 256

type ReactorOptions struct {
	// TaskBudget bounds how many ready tasks one loop iteration runs, so
	// a flood of posts cannot starve timers and I/O.
	TaskBudget int
	// ServiceOptions are handed to the I/O service the reactor owns.
	ServiceOptions []aio.Option
}

type ReactorOption func(*ReactorOptions)

// WithTaskBudget sets the per-iteration ready task budget.
func WithTaskBudget(n int) ReactorOption {
	return func(o *ReactorOptions) {
		if n > 0 {
			o.TaskBudget = n
		}
	}
}

// WithServiceOptions forwards options to the owned service.
func WithServiceOptions(opts ...aio.Option) ReactorOption {
	return func(o *ReactorOptions) {
		o.ServiceOptions = append(o.ServiceOptions, opts...)
	}
}

// Reactor is the single threaded execution context. It owns one I/O
// service, one timer wheel and one ready queue, and runs continuations,
// expired timers and completion hooks on the thread that entered Run.
type Reactor struct {
	service    *aio.Service
	mu         sync.Mutex
	ready      *queue.Ring[Task]
	wheel      *timers.Wheel
	taskBudget int
	state      atomic.Int32
	stopping   atomic.Bool
	tid        atomic.Int64
}

// NewReactor creates a reactor and its I/O service.
func NewReactor(opts ...ReactorOption) (*Reactor, error) {
	options := ReactorOptions{TaskBudget: defaultTaskBudget}
	for _, opt := range opts {
		opt(&options)
	}
	service, serviceErr := aio.NewService(options.ServiceOptions...)
	if serviceErr != nil {
		return nil, serviceErr
	}
	return &Reactor{
		service:    service,
		ready:      queue.New[Task](),
		wheel:      timers.New(),
		taskBudget: options.TaskBudget,
	}, nil
}

// Post enqueues task on the ready queue from any goroutine and wakes the
// loop. Tasks posted from the loop thread run in program order.
func (r *Reactor) Post(task Task) {
	if task == nil {
		return
	}
	r.mu.Lock()
	r.ready.Push(task)
	r.mu.Unlock()
	if r.state.Load() == stateRunning && r.tid.Load() != threadID() {
		r.service.Notify()
	}
}

// Dispatch runs task inline when called from the loop thread, and posts it
// otherwise.
func (r *Reactor) Dispatch(task Task) {
	if task == nil {
		return
	}
	if tid := r.tid.Load(); tid != 0 && tid == threadID() {
		task()
		return
	}
	r.Post(task)
}

// SetTimeout schedules task after delay on this reactor and returns its
// timer id. A delay of timers.Never parks a placeholder entry.
func (r *Reactor) SetTimeout(delay time.Duration, task Task) TimerID {
	r.mu.Lock()
	id := r.wheel.SetTimeout(delay, task)
	r.mu.Unlock()
	if r.state.Load() == stateRunning && r.tid.Load() != threadID() {
		r.service.Notify()
	}
	return id
}

// Clear cancels a pending timer. Unknown ids are ignored.
func (r *Reactor) Clear(id TimerID) {
	r.mu.Lock()
	r.wheel.Cancel(id)
	r.mu.Unlock()
}

// Service exposes the owned I/O service.
func (r *Reactor) Service() *aio.Service {
	return r.service
}

// Running reports whether the loop is currently entered.
func (r *Reactor) Running() bool {
	return r.state.Load() == stateRunning
}

// Run enters the loop on the calling goroutine, which is locked to its OS
// thread and made the current context for the duration. Run returns after
// Stop, or with an error when the service fails fatally. A stopped
// reactor can be run again.
func (r *Reactor) Run() error {
	if !r.state.CompareAndSwap(stateStop, stateRunning) {
		return errors.From(aio.ErrInvalidArgument, errors.WithWrap(errors.New("reactor is not stopped")))
	}
	detach, attachErr := attachContext(r)
	if attachErr != nil {
		r.state.Store(stateStop)
		return attachErr
	}
	runtime.LockOSThread()
	r.stopping.Store(false)
	r.tid.Store(threadID())
	runErr := r.loop()
	r.tid.Store(0)
	runtime.UnlockOSThread()
	detach()
	if runErr != nil {
		// kernel-unrecoverable poll failure
		r.state.Store(statePendingDestroy)
		aio.Logger().Error("mio: reactor loop failed", zap.Error(runErr))
		return runErr
	}
	r.state.Store(stateStop)
	return nil
}

// Stop asks the loop to exit after the current iteration. Safe from any
// goroutine.
func (r *Reactor) Stop() {
	r.stopping.Store(true)
	r.service.Notify()
}

// Close drains and releases the owned service. The reactor must not be
// running.
func (r *Reactor) Close() error {
	if r.state.Load() == stateRunning {
		return errors.From(aio.ErrInvalidArgument, errors.WithWrap(errors.New("reactor is running")))
	}
	return r.service.Close()
}

func (r *Reactor) loop() error {
	for {
		now := time.Now()

		// ready tasks, up to the budget
		r.mu.Lock()
		for budget := r.taskBudget; budget > 0 && !r.ready.Empty(); budget-- {
			task := r.ready.Pop()
			r.mu.Unlock()
			task()
			r.mu.Lock()
		}

		// expired timers feed the ready queue, they do not run inline
		for _, cb := range r.wheel.DrainExpired(now) {
			r.ready.Push(cb)
		}
		hasReady := !r.ready.Empty()
		next, hasNext := r.wheel.NextDeadline()
		r.mu.Unlock()

		if r.stopping.Load() {
			return nil
		}

		timeout := time.Duration(-1)
		switch {
		case hasReady:
			timeout = 0
		case hasNext:
			timeout = time.Until(next)
			if timeout < 0 {
				timeout = 0
			}
		}
		if pollErr := r.service.Poll(timeout); pollErr != nil {
			return pollErr
		}
	}
}
