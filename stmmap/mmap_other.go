// mmap_other.go
//go:build !linux

package stmmap

import (
	"os"
)

func (mp *mmap) init(fd int, offset int64, length int) error {
	return ErrUnsupported
}

func (mp *mmap) Unmap() error {
	mp.reset()
	return nil
}

func (mp *mmap) Flush() error {
	return ErrUnsupported
}

func fallocate(f *os.File, length int64) error {
	return f.Truncate(length)
}
