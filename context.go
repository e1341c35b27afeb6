package mio

import (
	"sync/atomic"
	"time"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/mio/pkg/aio"
	"github.com/brickingsoft/mio/pkg/timers"
)

// Task is a ready continuation or a posted unit of work.
type Task func()

// TimerID names a timer within its owning context.
type TimerID = timers.ID

// Context states.
const (
	stateStop int32 = iota
	stateRunning
	statePendingDestroy
)

// ExecutionContext is the capability set shared by the reactor and the
// pool. Service reports nil on contexts that carry no I/O service.
type ExecutionContext interface {
	// Post enqueues task on the ready queue. Safe from any goroutine.
	Post(task Task)
	// Dispatch runs task inline when called from the context's own loop
	// thread, and posts it otherwise.
	Dispatch(task Task)
	// SetTimeout schedules task after delay and returns its timer id.
	SetTimeout(delay time.Duration, task Task) TimerID
	// Clear cancels a pending timer. Unknown ids are ignored.
	Clear(id TimerID)
	// Service exposes the I/O service owned by the context, or nil.
	Service() *aio.Service
}

var (
	// ErrNoContext reports service access without a current context.
	ErrNoContext = errors.Define("no current execution context")
	// ErrContextBusy reports a second context entering while one is
	// current.
	ErrContextBusy = errors.Define("another execution context is current")
	// ErrNoService reports I/O submitted on a context without a service.
	ErrNoService = errors.Define("execution context has no i/o service")
)

type currentBox struct {
	ctx ExecutionContext
}

var current atomic.Pointer[currentBox]

// Current returns the context whose loop is running, set for the duration
// of Reactor.Run. A Pool is never made current. Socket and file wrappers
// use it to reach the service.
func Current() (ExecutionContext, error) {
	if box := current.Load(); box != nil {
		return box.ctx, nil
	}
	return nil, errors.From(ErrNoContext, errors.WithWrap(aio.ErrInvalidArgument))
}

// CurrentService returns the I/O service of the current context.
func CurrentService() (*aio.Service, error) {
	ctx, err := Current()
	if err != nil {
		return nil, err
	}
	service := ctx.Service()
	if service == nil {
		return nil, errors.From(ErrNoService, errors.WithWrap(aio.ErrInvalidArgument))
	}
	return service, nil
}

// attachContext publishes ctx as current and returns the matching detach.
func attachContext(ctx ExecutionContext) (detach func(), err error) {
	box := &currentBox{ctx: ctx}
	if !current.CompareAndSwap(nil, box) {
		if cur := current.Load(); cur != nil && cur.ctx == ctx {
			return func() {}, nil
		}
		return nil, errors.From(ErrContextBusy, errors.WithWrap(aio.ErrInvalidArgument))
	}
	return func() {
		current.CompareAndSwap(box, nil)
	}, nil
}
