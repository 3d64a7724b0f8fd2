// sem.go
package stsem

import (
	"errors"
	"syscall"
)

var (
	ErrExist       = errors.New("sem key already exists")
	ErrNotExist    = errors.New("sem key does not exist")
	ErrUnsupported = errors.New("sysv semaphores are not supported on this platform")
)

// Sembuf is one semaphore operation, laid out as the kernel's struct sembuf.
type Sembuf struct {
	Num uint16
	Op  int16
	Flg int16
}

// Set is a System V semaphore set of N semaphores.
type Set struct {
	id int
	n  int
}

// Open wraps a set whose id is already known, e.g. recorded in shared memory.
func Open(id, n int) *Set {
	return &Set{id: id, n: n}
}

func (s *Set) ID() int {
	return s.id
}

// IsTimeout reports whether err is a timed-out Op.
func IsTimeout(err error) bool {
	return errors.Is(err, syscall.EAGAIN)
}

// IsInterrupted reports whether err is an Op interrupted by a signal.
func IsInterrupted(err error) bool {
	return errors.Is(err, syscall.EINTR)
}
