// lock_other.go
//go:build !linux

package stutil

import (
	"os"
)

// SysLock only creates lockfile on this platform, it does not lock it.
func SysLock(lockfile string) (*os.File, error) {
	return os.OpenFile(lockfile, os.O_CREATE|os.O_RDWR, 0666)
}
