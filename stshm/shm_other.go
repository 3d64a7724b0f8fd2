// shm_other.go
//go:build !(linux && (amd64 || arm64))

package stshm

func (sh *shm) create(key int, size uint64) error {
	return ErrUnsupported
}

func (sh *shm) lookup(key int) error {
	return ErrUnsupported
}

func (sh *shm) Lock() error {
	return ErrUnsupported
}

func (sh *shm) Detach() error {
	sh.reset()
	return nil
}

func (sh *shm) Delete() error {
	return ErrUnsupported
}

func Remove(key int) error {
	return ErrUnsupported
}
