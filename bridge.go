package mio

import (
	"github.com/brickingsoft/mio/pkg/aio"
)

// ResumeToken parks one continuation until the completion hook wakes it.
// The hook writes Err and Result, then schedules the resume on the token's
// home context; Await blocks the suspended goroutine until then.
type ResumeToken struct {
	home   ExecutionContext
	ch     chan struct{}
	Result int
	Err    error
}

// NewResumeToken binds a token to the context the resume must run on.
func NewResumeToken(home ExecutionContext) *ResumeToken {
	return &ResumeToken{
		home: home,
		ch:   make(chan struct{}, 1),
	}
}

// Await suspends until the completion hook resumes the token, then reports
// the operation result.
func (t *ResumeToken) Await() (int, error) {
	<-t.ch
	return t.Result, t.Err
}

// ResumeHook is the completion hook for suspended continuations: it moves
// error and result from the request record into the token named by user
// and posts the resume to the token's home context. The record and the
// buffers it names belong to the resumed continuation afterwards.
func ResumeHook(err error, op *aio.Operation, user any) {
	t := user.(*ResumeToken)
	t.Err = err
	t.Result = op.Result
	t.home.Post(t.resume)
}

func (t *ResumeToken) resume() {
	t.ch <- struct{}{}
}

// CallbackHook is the completion hook for fire-and-forget submissions: it
// treats user as a callable and invokes it inline on the polling thread
// with the completion error and byte count. The record is released with
// the callable.
func CallbackHook(err error, op *aio.Operation, user any) {
	cb := user.(func(err error, n int))
	cb(err, op.Result)
}

// submitAwait is the one suspension point of every wrapper: it fills the
// record's hook with a fresh token, runs submit, and parks the caller
// until the completion resumes it.
func submitAwait(ctx ExecutionContext, op *aio.Operation, submit func(*aio.Operation)) (int, error) {
	token := NewResumeToken(ctx)
	op.Hook = ResumeHook
	op.User = token
	submit(op)
	return token.Await()
}
