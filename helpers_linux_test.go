//go:build linux

package mio_test

import (
	"testing"
	"time"

	"github.com/brickingsoft/mio"
)

func startReactor(t *testing.T) (*mio.Reactor, func()) {
	t.Helper()
	r, err := mio.NewReactor()
	if err != nil {
		t.Fatal(err)
	}
	go func() {
		_ = r.Run()
	}()
	waitRunning(t, r, true)
	return r, func() {
		r.Stop()
		waitRunning(t, r, false)
		_ = r.Close()
	}
}

func waitRunning(t *testing.T, r *mio.Reactor, running bool) {
	t.Helper()
	for i := 0; i < 2000; i++ {
		if r.Running() == running {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("reactor did not reach running =", running)
}
