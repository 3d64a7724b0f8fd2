// sem_other.go
//go:build !(linux && (amd64 || arm64))

package stsem

import (
	"time"
)

func Create(key, n int) (*Set, error) {
	return nil, ErrUnsupported
}

func Lookup(key int) (*Set, error) {
	return nil, ErrUnsupported
}

func Remove(key int) error {
	return ErrUnsupported
}

func (s *Set) SetVal(num, v int) error {
	return ErrUnsupported
}

func (s *Set) GetVal(num int) (int, error) {
	return 0, ErrUnsupported
}

func (s *Set) SetAll(vals []uint16) error {
	return ErrUnsupported
}

func (s *Set) GetAll() ([]uint16, error) {
	return nil, ErrUnsupported
}

func (s *Set) Op(ops []Sembuf, timeout time.Duration) error {
	return ErrUnsupported
}

func (s *Set) Remove() error {
	return ErrUnsupported
}
