// Package aio implements the platform I/O service of the runtime.
//
// The service owns the kernel completion facility, an io_uring instance on
// Linux and an I/O completion port on Windows. Callers describe one
// asynchronous operation with an Operation record, submit it through the
// service, and are notified exactly once through the record's completion
// hook when the kernel reports the result.
package aio

// InvalidHandle marks a descriptor that is not open.
const InvalidHandle = -1
