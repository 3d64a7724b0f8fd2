// shm_linux.go
//go:build linux && (amd64 || arm64)

package stshm

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

const SHM_LOCK = 11 /* lock segment (root or RLIMIT_MEMLOCK) */

func (sh *shm) create(key int, size uint64) error {
	id, err := unix.SysvShmGet(key, int(size), 0666|unix.IPC_CREAT|unix.IPC_EXCL)
	if err != nil {
		if err == unix.EEXIST {
			return fmt.Errorf("%w: %w", ErrExist, os.NewSyscallError("SYS_SHMGET", err))
		}
		return os.NewSyscallError("SYS_SHMGET", err)
	}
	return sh.attach(key, id)
}

func (sh *shm) lookup(key int) error {
	id, err := unix.SysvShmGet(key, 0, 0666)
	if err != nil {
		if err == unix.ENOENT {
			return ErrNotExist
		}
		return os.NewSyscallError("SYS_SHMGET", err)
	}
	return sh.attach(key, id)
}

func (sh *shm) attach(key, id int) error {
	data, err := unix.SysvShmAttach(id, 0, 0)
	if err != nil {
		return os.NewSyscallError("SYS_SHMAT", err)
	}
	sh.data = data
	sh.size = uint64(len(data))
	sh.key = key
	sh.id = id
	return nil
}

// Lock pins the segment in physical memory.
func (sh *shm) Lock() error {
	_, err := unix.SysvShmCtl(sh.id, SHM_LOCK, nil)
	if err != nil {
		return os.NewSyscallError("SYS_SHMCTL", err)
	}
	return nil
}

func (sh *shm) Detach() error {
	if sh.data == nil {
		return nil
	}
	err := unix.SysvShmDetach(sh.data)
	if err != nil {
		return os.NewSyscallError("SYS_SHMDT", err)
	}
	sh.reset()
	return nil
}

func (sh *shm) Delete() error {
	_, err := unix.SysvShmCtl(sh.id, unix.IPC_RMID, nil)
	if err != nil {
		return os.NewSyscallError("SYS_SHMCTL", err)
	}
	return nil
}

// Remove marks the segment under key for destruction. Processes still
// attached keep their mapping until they detach.
func Remove(key int) error {
	id, err := unix.SysvShmGet(key, 0, 0666)
	if err != nil {
		if err == unix.ENOENT {
			return ErrNotExist
		}
		return os.NewSyscallError("SYS_SHMGET", err)
	}
	_, err = unix.SysvShmCtl(id, unix.IPC_RMID, nil)
	if err != nil {
		return os.NewSyscallError("SYS_SHMCTL", err)
	}
	return nil
}
