package mio

import (
	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/mio/pkg/aio"
)

// File open modes, combinable with |.
const (
	ReadOnly  = aio.ReadOnly
	WriteOnly = aio.WriteOnly
	ReadWrite = aio.ReadWrite
	Create    = aio.Create
	Truncate  = aio.Truncate
	Append    = aio.Append
)

// File is a random access file driven through the service of the context
// it was opened under. A File is single owner: concurrent operations on
// the same File are not supported. The stream style Read and Write each
// advance their own cursor, so interleaving them does not disturb the
// other side's position.
type File struct {
	ctx         ExecutionContext
	handle      int
	path        string
	readOffset  int64
	writeOffset int64
	closed      bool
}

// OpenFile opens path under the current context.
func OpenFile(path string, mode aio.OpenMode, perm uint32) (*File, error) {
	ctx, ctxErr := Current()
	if ctxErr != nil {
		return nil, ctxErr
	}
	service := ctx.Service()
	if service == nil {
		return nil, errors.From(ErrNoService, errors.WithWrap(aio.ErrInvalidArgument))
	}
	handle, openErr := aio.OpenFile(path, mode, perm)
	if openErr != nil {
		return nil, openErr
	}
	if err := service.Relate(handle); err != nil {
		_ = aio.CloseFile(handle)
		return nil, err
	}
	return &File{
		ctx:    ctx,
		handle: handle,
		path:   path,
	}, nil
}

// Path reports the path the file was opened with.
func (f *File) Path() string {
	return f.path
}

// ReadAt suspends until the read at offset completes and reports the byte
// count. Reading at or past end of file reports ErrEOF.
func (f *File) ReadAt(b []byte, offset int64) (int, error) {
	op := &aio.Operation{Handle: f.handle, B: b, Offset: offset}
	n, err := submitAwait(f.ctx, op, f.ctx.Service().ReadAt)
	if err != nil {
		return 0, err
	}
	if n == 0 && len(b) > 0 {
		return 0, aio.ErrEOF
	}
	return n, nil
}

// WriteAt suspends until the write at offset completes and reports the
// byte count.
func (f *File) WriteAt(b []byte, offset int64) (int, error) {
	op := &aio.Operation{Handle: f.handle, B: b, Offset: offset}
	return submitAwait(f.ctx, op, f.ctx.Service().WriteAt)
}

// Read reads at the file's read cursor and advances it. Single owner
// only.
func (f *File) Read(b []byte) (int, error) {
	n, err := f.ReadAt(b, f.readOffset)
	f.readOffset += int64(n)
	return n, err
}

// Write writes at the file's write cursor and advances it. Single owner
// only.
func (f *File) Write(b []byte) (int, error) {
	n, err := f.WriteAt(b, f.writeOffset)
	f.writeOffset += int64(n)
	return n, err
}

// SyncAll suspends until file data and metadata reach stable storage.
func (f *File) SyncAll() error {
	op := &aio.Operation{Handle: f.handle}
	_, err := submitAwait(f.ctx, op, f.ctx.Service().SyncAll)
	return err
}

// SyncData suspends until file data reaches stable storage.
func (f *File) SyncData() error {
	op := &aio.Operation{Handle: f.handle}
	_, err := submitAwait(f.ctx, op, f.ctx.Service().SyncData)
	return err
}

// Cancel requests best effort cancellation of outstanding operations; they
// complete with ErrCancelled.
func (f *File) Cancel() {
	f.ctx.Service().Cancel(f.handle)
}

// Close cancels outstanding operations and releases the handle. Double
// close is a no-op.
func (f *File) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	f.ctx.Service().Cancel(f.handle)
	err := aio.CloseFile(f.handle)
	f.handle = aio.InvalidHandle
	return err
}
