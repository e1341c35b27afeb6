package aio

import (
	"sync"
	"sync/atomic"
)

const (
	defaultMaxInflight = 1024
)

type Options struct {
	// MaxInflight is a soft cap on concurrently submitted operations. The
	// service may exceed it but sizes its kernel queues from it.
	MaxInflight int
}

type Option func(*Options)

// WithMaxInflight sets the soft in-flight cap.
func WithMaxInflight(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.MaxInflight = n
		}
	}
}

func resolveOptions(opts []Option) Options {
	o := Options{MaxInflight: defaultMaxInflight}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// inflightTable tracks submitted but not yet completed operations, keyed by
// their target handle. It pins the records against garbage collection while
// the kernel holds raw pointers into them, and backs cancel-by-handle and
// the drain-on-close protocol.
type inflightTable struct {
	mu    sync.Mutex
	ops   map[int]map[*Operation]struct{}
	count atomic.Int64
}

func newInflightTable() *inflightTable {
	return &inflightTable{ops: make(map[int]map[*Operation]struct{})}
}

func (t *inflightTable) add(op *Operation) {
	t.mu.Lock()
	byHandle := t.ops[op.Handle]
	if byHandle == nil {
		byHandle = make(map[*Operation]struct{})
		t.ops[op.Handle] = byHandle
	}
	byHandle[op] = struct{}{}
	t.mu.Unlock()
	t.count.Add(1)
}

func (t *inflightTable) remove(op *Operation) bool {
	t.mu.Lock()
	byHandle, has := t.ops[op.Handle]
	if has {
		if _, has = byHandle[op]; has {
			delete(byHandle, op)
			if len(byHandle) == 0 {
				delete(t.ops, op.Handle)
			}
		}
	}
	t.mu.Unlock()
	if has {
		t.count.Add(-1)
	}
	return has
}

func (t *inflightTable) snapshot(handle int) []*Operation {
	t.mu.Lock()
	byHandle := t.ops[handle]
	ops := make([]*Operation, 0, len(byHandle))
	for op := range byHandle {
		ops = append(ops, op)
	}
	t.mu.Unlock()
	return ops
}

func (t *inflightTable) handles() []int {
	t.mu.Lock()
	handles := make([]int, 0, len(t.ops))
	for handle := range t.ops {
		handles = append(handles, handle)
	}
	t.mu.Unlock()
	return handles
}

func (t *inflightTable) size() int {
	return int(t.count.Load())
}
