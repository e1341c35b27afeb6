package mio_test

import (
	"testing"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/mio"
	"github.com/brickingsoft/mio/pkg/aio"
)

func TestCurrentWithoutContext(t *testing.T) {
	if _, err := mio.Current(); err == nil {
		t.Error("current reported a context outside a running one")
	} else {
		if !errors.Is(err, mio.ErrNoContext) {
			t.Error("unexpected error:", err)
		}
		if !aio.IsInvalidArgument(err) {
			t.Error("error is not invalid_argument:", err)
		}
	}
	if _, err := mio.CurrentService(); err == nil {
		t.Error("current service reported outside a running context")
	}
}
