//go:build linux

package kernel_test

import (
	"testing"

	"github.com/brickingsoft/mio/pkg/kernel"
)

func TestGet(t *testing.T) {
	v := kernel.Get()
	if !v.Valid() {
		t.Fatal("kernel release not readable")
	}
	if v.Major < 2 {
		t.Error("implausible kernel major:", v.Major)
	}
	t.Log("kernel:", v.Major, v.Minor, v.Patch, v.Flavor)
}

func TestEnable(t *testing.T) {
	if !kernel.Enable(2, 6) {
		t.Error("running kernel reported older than 2.6")
	}
	if kernel.Enable(999, 0) {
		t.Error("future kernel reported enabled")
	}
}
