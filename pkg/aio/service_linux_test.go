//go:build linux

package aio_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/brickingsoft/mio/pkg/aio"
)

func TestServiceNotify(t *testing.T) {
	s, err := aio.NewService()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	woke := make(chan struct{})
	go func() {
		_ = s.Poll(-1)
		close(woke)
	}()
	time.Sleep(10 * time.Millisecond)
	s.Notify()
	select {
	case <-woke:
	case <-time.After(time.Second):
		t.Error("notify did not unblock poll")
	}
}

func TestServiceOneHookPerSubmit(t *testing.T) {
	s, err := aio.NewService()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	var hooks atomic.Int64
	var hookErr error
	op := &aio.Operation{
		Handle: -1, // bad handle: the kernel reports the failure via the completion
		B:      make([]byte, 4),
		Hook: func(err error, op *aio.Operation, user any) {
			hookErr = err
			hooks.Add(1)
		},
	}
	s.Receive(op)
	for i := 0; i < 100 && hooks.Load() == 0; i++ {
		if pollErr := s.Poll(10 * time.Millisecond); pollErr != nil {
			t.Fatal(pollErr)
		}
	}
	if got := hooks.Load(); got != 1 {
		t.Fatal("hook invocations:", got)
	}
	if hookErr == nil {
		t.Error("bad handle completed without error")
	}
	if s.Inflight() != 0 {
		t.Error("inflight not drained:", s.Inflight())
	}
}

func TestServiceSubmitAfterClose(t *testing.T) {
	s, err := aio.NewService()
	if err != nil {
		t.Fatal(err)
	}
	if closeErr := s.Close(); closeErr != nil {
		t.Fatal(closeErr)
	}

	var hooks atomic.Int64
	var hookErr error
	op := &aio.Operation{
		Handle: 0,
		B:      make([]byte, 4),
		Hook: func(err error, op *aio.Operation, user any) {
			hookErr = err
			hooks.Add(1)
		},
	}
	s.Receive(op)
	if got := hooks.Load(); got != 1 {
		t.Fatal("submit on closed service did not complete inline:", got)
	}
	if !aio.IsInvalidArgument(hookErr) {
		t.Error("unexpected error:", hookErr)
	}
}
