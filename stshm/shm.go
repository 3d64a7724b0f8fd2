// shm.go
package stshm

import (
	"errors"
)

var (
	ErrExist       = errors.New("shm key already exists")
	ErrNotExist    = errors.New("shm key does not exist")
	ErrUnsupported = errors.New("sysv shared memory is not supported on this platform")
)

// Shm is a System V shared memory segment attached to this process.
// Detach only unmaps it; the segment lives in the kernel until Delete.
type Shm interface {
	Data() []byte
	Size() uint64
	Key() int
	ID() int
	Lock() error
	Detach() error
	Delete() error
}

// Create makes a segment of size bytes under key and attaches it.
// It never reuses an existing segment: a taken key fails with ErrExist.
func Create(key int, size uint64) (Shm, error) {
	s := &shm{}
	e := s.create(key, size)
	if e != nil {
		return nil, e
	}
	return s, nil
}

// Attach looks up the segment under key and attaches it read/write.
// A missing key fails with ErrNotExist.
func Attach(key int) (Shm, error) {
	s := &shm{}
	e := s.lookup(key)
	if e != nil {
		return nil, e
	}
	return s, nil
}

type shm struct {
	data []byte
	size uint64
	key  int
	id   int
}

func (sh *shm) Data() []byte {
	return sh.data
}
func (sh *shm) Size() uint64 {
	return sh.size
}
func (sh *shm) Key() int {
	return sh.key
}
func (sh *shm) ID() int {
	return sh.id
}

func (sh *shm) reset() {
	sh.data = nil
	sh.size = 0
}
