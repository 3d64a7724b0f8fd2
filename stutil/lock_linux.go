// lock_linux.go
//go:build linux

package stutil

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// SysLock takes an exclusive lock on lockfile so only one process plays a
// role at a time. The lock lasts until the returned file is closed or the
// process exits.
func SysLock(lockfile string) (*os.File, error) {
	fp, err := os.OpenFile(lockfile, os.O_CREATE|os.O_RDWR, 0666)
	if err != nil {
		return nil, fmt.Errorf("can not open lock file %s: %w", lockfile, err)
	}
	err = unix.Flock(int(fp.Fd()), unix.LOCK_EX|unix.LOCK_NB)
	if err != nil {
		fp.Close()
		if err == unix.EWOULDBLOCK {
			return nil, fmt.Errorf("%s is held by another process", lockfile)
		}
		return nil, os.NewSyscallError("SYS_FLOCK", err)
	}
	return fp, nil
}
