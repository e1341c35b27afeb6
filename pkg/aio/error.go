package aio

import (
	"github.com/brickingsoft/errors"
)

// Portable completion errors. Every completion delivered by the service
// carries nil or exactly one of these, possibly wrapping the platform cause.
var (
	ErrCancelled         = errors.Define("operation cancelled")
	ErrWouldBlock        = errors.Define("operation would block")
	ErrConnectionRefused = errors.Define("connection refused")
	ErrConnectionReset   = errors.Define("connection reset")
	ErrEOF               = errors.Define("end of file")
	ErrTimedOut          = errors.Define("operation timed out")
	ErrInvalidArgument   = errors.Define("invalid argument")
	ErrSystem            = errors.Define("system error")
)

const (
	errMetaPkgKey = "pkg"
	errMetaPkgVal = "aio"
	errMetaOpKey  = "op"
)

func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}

func IsWouldBlock(err error) bool {
	return errors.Is(err, ErrWouldBlock)
}

func IsConnectionRefused(err error) bool {
	return errors.Is(err, ErrConnectionRefused)
}

func IsConnectionReset(err error) bool {
	return errors.Is(err, ErrConnectionReset)
}

func IsEOF(err error) bool {
	return errors.Is(err, ErrEOF)
}

func IsTimedOut(err error) bool {
	return errors.Is(err, ErrTimedOut)
}

func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

func IsSystem(err error) bool {
	return errors.Is(err, ErrSystem)
}

func opErr(op string, cause error) error {
	return errors.From(
		cause,
		errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
		errors.WithMeta(errMetaOpKey, op),
	)
}

func sysErr(op string, cause error) error {
	return errors.From(
		ErrSystem,
		errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
		errors.WithMeta(errMetaOpKey, op),
		errors.WithWrap(cause),
	)
}

func invalidErr(op string, reason string) error {
	return errors.From(
		ErrInvalidArgument,
		errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
		errors.WithMeta(errMetaOpKey, op),
		errors.WithWrap(errors.New(reason)),
	)
}
