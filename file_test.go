//go:build linux

package mio_test

import (
	"path/filepath"
	"testing"

	"github.com/brickingsoft/mio"
	"github.com/brickingsoft/mio/pkg/aio"
)

func TestFileRandomAccess(t *testing.T) {
	r, stop := startReactor(t)
	defer stop()
	_ = r

	path := filepath.Join(t.TempDir(), "random_access.bin")
	f, openErr := mio.OpenFile(path, mio.ReadWrite|mio.Create|mio.Truncate, 0644)
	if openErr != nil {
		t.Fatal(openErr)
	}

	if n, err := f.WriteAt([]byte("abcdef"), 0); err != nil || n != 6 {
		t.Fatal("write_at(0):", n, err)
	}
	if n, err := f.WriteAt([]byte("XYZ"), 3); err != nil || n != 3 {
		t.Fatal("write_at(3):", n, err)
	}
	buf := make([]byte, 6)
	if n, err := f.ReadAt(buf, 0); err != nil || n != 6 {
		t.Fatal("read_at(0):", n, err)
	}
	if string(buf) != "abcXYZ" {
		t.Error("unexpected content:", string(buf))
	}
	if err := f.SyncData(); err != nil {
		t.Error("sync_data failed:", err)
	}
	if err := f.Close(); err != nil {
		t.Error("close failed:", err)
	}
	if err := f.Close(); err != nil {
		t.Error("double close is not a no-op:", err)
	}
}

func TestFileReadAtEOF(t *testing.T) {
	r, stop := startReactor(t)
	defer stop()
	_ = r

	path := filepath.Join(t.TempDir(), "eof.bin")
	f, openErr := mio.OpenFile(path, mio.ReadWrite|mio.Create|mio.Truncate, 0644)
	if openErr != nil {
		t.Fatal(openErr)
	}
	defer f.Close()

	if _, err := f.WriteAt([]byte("data"), 0); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 8)
	if _, err := f.ReadAt(buf, 4); !aio.IsEOF(err) {
		t.Error("read at end of file did not report eof:", err)
	}
}

func TestFileStreamOffsets(t *testing.T) {
	r, stop := startReactor(t)
	defer stop()
	_ = r

	path := filepath.Join(t.TempDir(), "stream.bin")
	f, openErr := mio.OpenFile(path, mio.ReadWrite|mio.Create|mio.Truncate, 0644)
	if openErr != nil {
		t.Fatal(openErr)
	}
	defer f.Close()

	if n, err := f.Write([]byte("one")); err != nil || n != 3 {
		t.Fatal("write:", n, err)
	}
	if n, err := f.Write([]byte("two")); err != nil || n != 3 {
		t.Fatal("write:", n, err)
	}

	g, reopenErr := mio.OpenFile(path, mio.ReadOnly, 0)
	if reopenErr != nil {
		t.Fatal(reopenErr)
	}
	defer g.Close()
	buf := make([]byte, 3)
	if _, err := g.Read(buf); err != nil || string(buf) != "one" {
		t.Fatal("first read:", string(buf), err)
	}
	if _, err := g.Read(buf); err != nil || string(buf) != "two" {
		t.Fatal("second read:", string(buf), err)
	}
}

func TestFileInterleavedStreamOffsets(t *testing.T) {
	r, stop := startReactor(t)
	defer stop()
	_ = r

	path := filepath.Join(t.TempDir(), "interleaved.bin")
	f, openErr := mio.OpenFile(path, mio.ReadWrite|mio.Create|mio.Truncate, 0644)
	if openErr != nil {
		t.Fatal(openErr)
	}
	defer f.Close()

	// the read and write cursors advance independently
	if n, err := f.Write([]byte("aaa")); err != nil || n != 3 {
		t.Fatal("first write:", n, err)
	}
	buf := make([]byte, 3)
	if _, err := f.Read(buf); err != nil || string(buf) != "aaa" {
		t.Fatal("first read:", string(buf), err)
	}
	if n, err := f.Write([]byte("bbb")); err != nil || n != 3 {
		t.Fatal("second write:", n, err)
	}
	if _, err := f.Read(buf); err != nil || string(buf) != "bbb" {
		t.Fatal("second read:", string(buf), err)
	}

	content := make([]byte, 6)
	if n, err := f.ReadAt(content, 0); err != nil || n != 6 {
		t.Fatal("read_at:", n, err)
	}
	if string(content) != "aaabbb" {
		t.Error("unexpected content:", string(content))
	}
}
