package databuf

import (
	"errors"

	"github.com/greedchase/daqbuf/stlog"
	"github.com/greedchase/daqbuf/stsem"
)

var (
	// ErrAlreadyExists means the key is taken, usually by a stale buffer
	// from an earlier run that an operator has to destroy.
	ErrAlreadyExists = errors.New("databuf: buffer already exists")
	// ErrNotFound means nothing is created under the key yet. It is the
	// normal answer while a consumer waits for its producer to start.
	ErrNotFound = errors.New("databuf: buffer not found")
	// ErrTimeout means a bounded wait did not see the wanted state. Retry.
	ErrTimeout    = errors.New("databuf: wait timed out")
	ErrBlockIndex = errors.New("databuf: block index out of range")
	ErrLayout     = errors.New("databuf: invalid layout")
	ErrDetached   = errors.New("databuf: buffer is detached")
)

// SysError is a failed kernel call made by the databuf operation Op.
type SysError struct {
	Op  string
	Err error
}

func (e *SysError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *SysError) Unwrap() error {
	return e.Err
}

// IsInterrupted reports whether err is a wait cut short by a signal.
// Such waits are not logged and can simply be retried.
func IsInterrupted(err error) bool {
	return stsem.IsInterrupted(err)
}

// sysErr logs err against the line that called it and wraps it for op.
func sysErr(op string, err error) error {
	return sysErrAt(2, op, err)
}

// sysErrAt takes the logged source depth frames above itself.
func sysErrAt(depth int, op string, err error) error {
	sysLog.Output(depth, stlog.ERROR, "%s: %v", op, err)
	return &SysError{Op: op, Err: err}
}
