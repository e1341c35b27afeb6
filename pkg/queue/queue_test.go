package queue_test

import (
	"testing"

	"github.com/brickingsoft/mio/pkg/queue"
)

func TestRingPush(t *testing.T) {
	r := queue.New[int]()
	for i := 0; i < 100; i++ {
		r.Push(i)
	}
	if r.Size() != 100 {
		t.Error("size is not 100:", r.Size())
	}
	if r.Empty() {
		t.Error("ring reports empty")
	}
}

func TestRingPop(t *testing.T) {
	r := queue.New[int]()
	for i := 0; i < 100; i++ {
		r.Push(i)
	}
	out := make([]int, 0, 50)
	for i := 0; i < 50; i++ {
		out = append(out, r.Front())
		r.Pop()
	}
	for i := 100; i < 150; i++ {
		r.Push(i)
	}
	if r.Size() != 100 {
		t.Error("size is not 100:", r.Size())
	}
	for i, v := range out {
		if v != i {
			t.Error("popped out of order:", i, v)
			break
		}
	}
}

func TestRingDrain(t *testing.T) {
	r := queue.New[func()]()
	ran := 0
	for i := 0; i < 10; i++ {
		r.Push(func() { ran++ })
	}
	for !r.Empty() {
		r.Pop()()
	}
	if ran != 10 {
		t.Error("ran is not 10:", ran)
	}
	if r.Size() != 0 {
		t.Error("size is not 0:", r.Size())
	}
}
