// mmap.go
package stmmap

import (
	"errors"
	"os"
)

var ErrUnsupported = errors.New("file mapping is not supported on this platform")

// Mmap is a shared read/write mapping of part of a file.
type Mmap interface {
	Data() []byte
	Size() int
	Flush() error
	Unmap() error
}

func NewMmap(f *os.File, offset int64, length int) (Mmap, error) {
	m := &mmap{}
	e := m.init(int(f.Fd()), offset, length)
	if e != nil {
		return nil, e
	}
	return m, nil
}

type mmap struct {
	data []byte
	size int
}

func (mp *mmap) Data() []byte {
	return mp.data
}
func (mp *mmap) Size() int {
	return mp.size
}

func (mp *mmap) reset() {
	mp.data = nil
	mp.size = 0
}

// CreateFile creates or truncates name and reserves length bytes for it.
func CreateFile(name string, length int64) (*os.File, error) {
	f, e := os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if e != nil {
		return nil, e
	}
	e = fallocate(f, length)
	if e != nil {
		f.Close()
		return nil, e
	}
	return f, nil
}
