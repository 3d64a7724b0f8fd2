// mmap_linux.go
//go:build linux

package stmmap

import (
	"os"

	"golang.org/x/sys/unix"
)

func (mp *mmap) init(fd int, offset int64, length int) error {
	data, err := unix.Mmap(fd, offset, length, unix.PROT_WRITE|unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return os.NewSyscallError("SYS_MMAP", err)
	}
	mp.data = data
	mp.size = length
	return nil
}

func (mp *mmap) Unmap() error {
	if mp.data == nil {
		return nil
	}
	err := unix.Munmap(mp.data)
	if err != nil {
		return os.NewSyscallError("SYS_MUNMAP", err)
	}
	mp.reset()
	return nil
}

func (mp *mmap) Flush() error {
	if mp.data == nil {
		return nil
	}
	err := unix.Msync(mp.data, unix.MS_SYNC)
	if err != nil {
		return os.NewSyscallError("SYS_MSYNC", err)
	}
	return nil
}

func fallocate(f *os.File, length int64) error {
	if length == 0 {
		return nil
	}
	err := unix.Fallocate(int(f.Fd()), 0, 0, length)
	if err != nil {
		if err == unix.EOPNOTSUPP {
			return f.Truncate(length)
		}
		return os.NewSyscallError("SYS_FALLOCATE", err)
	}
	return nil
}
