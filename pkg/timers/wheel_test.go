package timers_test

import (
	"testing"
	"time"

	"github.com/brickingsoft/mio/pkg/timers"
)

func TestWheelDrainOrder(t *testing.T) {
	w := timers.New()
	fired := make([]int, 0, 3)
	w.SetTimeout(30*time.Millisecond, func() { fired = append(fired, 30) })
	w.SetTimeout(10*time.Millisecond, func() { fired = append(fired, 10) })
	w.SetTimeout(20*time.Millisecond, func() { fired = append(fired, 20) })

	cbs := w.DrainExpired(time.Now().Add(time.Second))
	if len(cbs) != 3 {
		t.Fatal("expected 3 expired, got", len(cbs))
	}
	for _, cb := range cbs {
		cb()
	}
	if fired[0] != 10 || fired[1] != 20 || fired[2] != 30 {
		t.Error("fired out of deadline order:", fired)
	}
	if !w.Empty() {
		t.Error("wheel not drained")
	}
}

func TestWheelInsertionOrderTieBreak(t *testing.T) {
	w := timers.New()
	fired := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		i := i
		w.SetTimeout(0, func() { fired = append(fired, i) })
	}
	for _, cb := range w.DrainExpired(time.Now().Add(time.Second)) {
		cb()
	}
	if len(fired) != 3 || fired[0] != 0 || fired[1] != 1 || fired[2] != 2 {
		t.Error("equal deadlines fired out of insertion order:", fired)
	}
}

func TestWheelCancel(t *testing.T) {
	w := timers.New()
	fired := make([]int, 0, 2)
	w.SetTimeout(10*time.Millisecond, func() { fired = append(fired, 1) })
	id := w.SetTimeout(20*time.Millisecond, func() { fired = append(fired, 2) })
	w.SetTimeout(30*time.Millisecond, func() { fired = append(fired, 3) })

	if !w.Cancel(id) {
		t.Error("cancel of pending id reported false")
	}
	if w.Cancel(timers.ID(9999)) {
		t.Error("cancel of unknown id reported true")
	}
	for _, cb := range w.DrainExpired(time.Now().Add(time.Second)) {
		cb()
	}
	if len(fired) != 2 || fired[0] != 1 || fired[1] != 3 {
		t.Error("cancelled entry fired:", fired)
	}
}

func TestWheelNeverPlaceholder(t *testing.T) {
	w := timers.New()
	w.SetTimeout(timers.Never, func() { t.Error("placeholder fired") })
	if _, has := w.NextDeadline(); has {
		t.Error("placeholder reported a deadline")
	}
	if cbs := w.DrainExpired(time.Now().Add(time.Hour)); len(cbs) != 0 {
		t.Error("placeholder drained")
	}
	if w.Len() != 1 {
		t.Error("placeholder not pending")
	}
}

func TestWheelNextDeadline(t *testing.T) {
	w := timers.New()
	if _, has := w.NextDeadline(); has {
		t.Error("empty wheel reported a deadline")
	}
	w.SetTimeout(50*time.Millisecond, func() {})
	id := w.SetTimeout(10*time.Millisecond, func() {})
	next, has := w.NextDeadline()
	if !has {
		t.Fatal("no deadline reported")
	}
	if until := time.Until(next); until > 15*time.Millisecond {
		t.Error("next deadline is not the earliest:", until)
	}
	w.Cancel(id)
	next, has = w.NextDeadline()
	if !has {
		t.Fatal("no deadline after cancel")
	}
	if until := time.Until(next); until < 20*time.Millisecond {
		t.Error("deadline did not move after cancel:", until)
	}
}
