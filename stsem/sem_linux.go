// sem_linux.go
//go:build linux && (amd64 || arm64)

package stsem

import (
	"fmt"
	"os"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// semctl commands from <linux/sem.h>
const (
	GETVAL = 12
	GETALL = 13
	SETVAL = 16
	SETALL = 17
)

// Create makes a set of n semaphores under key, all starting at 0.
// It never reuses a set: a taken key fails with ErrExist.
func Create(key, n int) (*Set, error) {
	id, _, errno := unix.Syscall(unix.SYS_SEMGET, uintptr(key), uintptr(n), uintptr(0666|unix.IPC_CREAT|unix.IPC_EXCL))
	if errno != 0 {
		if errno == unix.EEXIST {
			return nil, fmt.Errorf("%w: %w", ErrExist, os.NewSyscallError("SYS_SEMGET", errno))
		}
		return nil, os.NewSyscallError("SYS_SEMGET", errno)
	}
	return &Set{id: int(id), n: n}, nil
}

// Lookup finds the set under key. Its size is unknown, so only Remove and
// ID are meaningful on the result.
func Lookup(key int) (*Set, error) {
	id, _, errno := unix.Syscall(unix.SYS_SEMGET, uintptr(key), 0, 0666)
	if errno != 0 {
		if errno == unix.ENOENT {
			return nil, ErrNotExist
		}
		return nil, os.NewSyscallError("SYS_SEMGET", errno)
	}
	return &Set{id: int(id)}, nil
}

// Remove destroys the set under key, waking every waiter with EIDRM.
func Remove(key int) error {
	s, err := Lookup(key)
	if err != nil {
		return err
	}
	return s.Remove()
}

func (s *Set) ctl(num, cmd int, arg uintptr) (uintptr, error) {
	r, _, errno := unix.Syscall6(unix.SYS_SEMCTL, uintptr(s.id), uintptr(num), uintptr(cmd), arg, 0, 0)
	if errno != 0 {
		return 0, os.NewSyscallError("SYS_SEMCTL", errno)
	}
	return r, nil
}

func (s *Set) checkNum(num int) error {
	if num < 0 || num >= s.n {
		return fmt.Errorf("semaphore %d out of range [0,%d)", num, s.n)
	}
	return nil
}

// SetVal assigns v to semaphore num regardless of waiters.
func (s *Set) SetVal(num, v int) error {
	if err := s.checkNum(num); err != nil {
		return err
	}
	_, err := s.ctl(num, SETVAL, uintptr(v))
	return err
}

func (s *Set) GetVal(num int) (int, error) {
	if err := s.checkNum(num); err != nil {
		return 0, err
	}
	r, err := s.ctl(num, GETVAL, 0)
	if err != nil {
		return 0, err
	}
	return int(r), nil
}

// SetAll assigns every semaphore at once; len(vals) must be N.
func (s *Set) SetAll(vals []uint16) error {
	if len(vals) != s.n || s.n == 0 {
		return fmt.Errorf("SetAll needs %d values, got %d", s.n, len(vals))
	}
	_, err := s.ctl(0, SETALL, uintptr(unsafe.Pointer(&vals[0])))
	return err
}

// GetAll reads every semaphore in one call.
func (s *Set) GetAll() ([]uint16, error) {
	if s.n == 0 {
		return nil, nil
	}
	vals := make([]uint16, s.n)
	_, err := s.ctl(0, GETALL, uintptr(unsafe.Pointer(&vals[0])))
	if err != nil {
		return nil, err
	}
	return vals, nil
}

// Op applies ops atomically: the kernel performs all of them or none.
// It blocks for at most timeout; zero means no bound. A timeout fails with
// EAGAIN and a signal with EINTR, see IsTimeout and IsInterrupted.
func (s *Set) Op(ops []Sembuf, timeout time.Duration) error {
	if len(ops) == 0 {
		return nil
	}
	for _, op := range ops {
		if err := s.checkNum(int(op.Num)); err != nil {
			return err
		}
	}
	var tsp *unix.Timespec
	if timeout > 0 {
		ts := unix.NsecToTimespec(int64(timeout))
		tsp = &ts
	}
	_, _, errno := unix.Syscall6(unix.SYS_SEMTIMEDOP, uintptr(s.id),
		uintptr(unsafe.Pointer(&ops[0])), uintptr(len(ops)), uintptr(unsafe.Pointer(tsp)), 0, 0)
	if errno != 0 {
		return os.NewSyscallError("SYS_SEMTIMEDOP", errno)
	}
	return nil
}

func (s *Set) Remove() error {
	_, err := s.ctl(0, unix.IPC_RMID, 0)
	return err
}
