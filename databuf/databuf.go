// Package databuf is a ring of blocks in System V shared memory handed from
// one producer process to consumer processes.
//
// Every block is a header of 80-byte cards, a payload, and one semaphore
// holding its State. The producer waits for a block to be FREE, writes it,
// and declares it FILLED with SetFilled; consumers wait for FILLED, read it,
// and hand it back with SetFree. Waits are bounded (WaitTimeout by default)
// so callers can check for shutdown between attempts; only the process that
// owns a block changes its state.
//
// Segment and semaphore set share the key Key(base, id). They outlive every
// process handle: Detach only unmaps, Destroy removes them from the kernel.
package databuf

import (
	"errors"
	"fmt"
	"time"

	"github.com/greedchase/daqbuf/fitshdr"
	"github.com/greedchase/daqbuf/stsem"
	"github.com/greedchase/daqbuf/stshm"
)

// DefaultKeyBase is the key of buffer id 1.
const DefaultKeyBase = 0x00C62C70

// Key derives the IPC key of buffer id (ids start at 1).
func Key(base, id int) int {
	return base + id - 1
}

// Databuf is one process's handle on a shared buffer.
type Databuf struct {
	key     int
	shm     stshm.Shm
	sem     *stsem.Set
	desc    *Descriptor
	layout  Layout
	timeout time.Duration
}

// Create makes buffer id under DefaultKeyBase with nBlock blocks of
// blockSize payload bytes. See CreateKey.
func Create(id, nBlock int, blockSize uint64) (*Databuf, error) {
	return CreateKey(Key(DefaultKeyBase, id), NewLayout(nBlock, blockSize))
}

// CreateKey makes a new buffer under key and attaches it. Every header is
// empty and every block FREE. A key already in use fails with
// ErrAlreadyExists. Failing after the segment exists leaves the kernel
// objects behind; Destroy removes them.
func CreateKey(key int, l Layout) (*Databuf, error) {
	const op = "databuf.Create"
	if err := l.Validate(); err != nil {
		return nil, err
	}

	sh, err := stshm.Create(key, l.RegionSize())
	if err != nil {
		if errors.Is(err, stshm.ErrExist) {
			sysLog.Error("%s: key %#x is in use, destroy the stale buffer first", op, key)
			return nil, fmt.Errorf("%w: key %#x: %w", ErrAlreadyExists, key, err)
		}
		return nil, sysErr(op, err)
	}

	if err = sh.Lock(); err != nil {
		sysLog.Warn("%s: key %#x not locked in memory, latency may suffer: %v", op, key, err)
	}

	data := sh.Data()
	clear(data)

	desc := descriptorAt(data)
	desc.ShmID = int32(sh.ID())
	desc.SemID = 0
	desc.NBlock = int32(l.NBlock)
	desc.HeadersPerBlock = int32(l.HeadersPerBlock)
	desc.BlockSize = l.BlockSize
	desc.HeaderSize = l.HeaderSize
	desc.IndexSize = l.IndexSize

	d := &Databuf{
		key:     key,
		shm:     sh,
		desc:    desc,
		layout:  desc.Layout(),
		timeout: WaitTimeout,
	}
	for i := 0; i < l.NBlock; i++ {
		copy(d.Header(i), fitshdr.EndCard)
	}

	sem, err := stsem.Create(key, l.NBlock)
	if err != nil {
		sh.Detach()
		if errors.Is(err, stsem.ErrExist) {
			sysLog.Error("%s: semaphores of key %#x are in use, destroy the stale buffer first", op, key)
			return nil, fmt.Errorf("%w: key %#x: %w", ErrAlreadyExists, key, err)
		}
		return nil, sysErr(op, err)
	}
	desc.SemID = int32(sem.ID())
	d.sem = sem
	if err = sem.SetAll(make([]uint16, l.NBlock)); err != nil {
		sh.Detach()
		return nil, sysErr(op, err)
	}

	desc.markReady()
	sysLog.Info("%s: key %#x shmid %d semid %d, %d blocks of %d bytes", op, key, sh.ID(), sem.ID(), l.NBlock, l.DataStride())
	return d, nil
}

// Attach attaches buffer id under DefaultKeyBase. See AttachKey.
func Attach(id int) (*Databuf, error) {
	return AttachKey(Key(DefaultKeyBase, id))
}

// AttachKey attaches the existing buffer under key. It returns ErrNotFound,
// without logging, while the buffer is not created or not yet complete.
// The layout always comes from the buffer's own descriptor.
func AttachKey(key int) (*Databuf, error) {
	const op = "databuf.Attach"
	sh, err := stshm.Attach(key)
	if err != nil {
		if errors.Is(err, stshm.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, sysErr(op, err)
	}

	data := sh.Data()
	if len(data) < DescriptorSize {
		sh.Detach()
		return nil, sysErr(op, fmt.Errorf("%w: key %#x segment of %d bytes has no descriptor", ErrLayout, key, len(data)))
	}
	desc := descriptorAt(data)
	if !desc.ready() {
		sh.Detach()
		return nil, ErrNotFound
	}
	l := desc.Layout()
	if err = l.Validate(); err != nil {
		sh.Detach()
		return nil, sysErr(op, fmt.Errorf("key %#x: %w", key, err))
	}
	if l.RegionSize() > uint64(len(data)) {
		sh.Detach()
		return nil, sysErr(op, fmt.Errorf("%w: key %#x descriptor needs %d bytes, segment has %d", ErrLayout, key, l.RegionSize(), len(data)))
	}

	return &Databuf{
		key:     key,
		shm:     sh,
		sem:     stsem.Open(int(desc.SemID), l.NBlock),
		desc:    desc,
		layout:  l,
		timeout: WaitTimeout,
	}, nil
}

// Detach unmaps the buffer from this process. The segment and semaphores
// stay in the kernel. Detaching twice is a no-op.
func (d *Databuf) Detach() error {
	if d.shm == nil {
		return nil
	}
	if err := d.shm.Detach(); err != nil {
		return sysErr("databuf.Detach", err)
	}
	d.shm = nil
	d.sem = nil
	d.desc = nil
	return nil
}

func (d *Databuf) Close() error {
	return d.Detach()
}

// Clear forces every block FREE and every header empty, whatever other
// processes are doing with them. It never blocks. Headers are cleared even
// when resetting the semaphores fails.
func (d *Databuf) Clear() error {
	if d.shm == nil {
		return ErrDetached
	}
	var err error
	if e := d.sem.SetAll(make([]uint16, d.layout.NBlock)); e != nil {
		err = sysErr("databuf.Clear", e)
	}
	for i := 0; i < d.layout.NBlock; i++ {
		fitshdr.Clear(d.Header(i))
	}
	return err
}

// Destroy removes buffer id under DefaultKeyBase. See DestroyKey.
func Destroy(id int) error {
	return DestroyKey(Key(DefaultKeyBase, id))
}

// DestroyKey removes the segment and semaphore set under key from the
// kernel, including leftovers of a failed Create. Attached processes keep
// their mapping, but their waits fail from then on. A key with nothing left
// to remove returns ErrNotFound.
func DestroyKey(key int) error {
	const op = "databuf.Destroy"
	shmErr := stshm.Remove(key)
	semErr := stsem.Remove(key)
	shmGone := errors.Is(shmErr, stshm.ErrNotExist)
	semGone := errors.Is(semErr, stsem.ErrNotExist)
	if shmGone && semGone {
		return ErrNotFound
	}
	if shmGone {
		shmErr = nil
	}
	if semGone {
		semErr = nil
	}
	if err := errors.Join(shmErr, semErr); err != nil {
		return sysErr(op, err)
	}
	sysLog.Info("%s: key %#x removed", op, key)
	return nil
}

// Destroy detaches d and removes its buffer from the kernel.
func (d *Databuf) Destroy() error {
	key := d.key
	if err := d.Detach(); err != nil {
		return err
	}
	return DestroyKey(key)
}

func (d *Databuf) Key() int {
	return d.key
}

// Layout is the buffer's layout as recorded in its descriptor.
func (d *Databuf) Layout() Layout {
	return d.layout
}

func (d *Databuf) NBlock() int {
	return d.layout.NBlock
}

// Descriptor returns a copy of the shared descriptor.
func (d *Databuf) Descriptor() Descriptor {
	if d.desc == nil {
		return Descriptor{}
	}
	return *d.desc
}

func (d *Databuf) ShmID() int {
	if d.desc == nil {
		return -1
	}
	return int(d.desc.ShmID)
}

func (d *Databuf) SemID() int {
	if d.desc == nil {
		return -1
	}
	return int(d.desc.SemID)
}

// Bytes is the whole mapped region, nil once detached.
func (d *Databuf) Bytes() []byte {
	if d.shm == nil {
		return nil
	}
	return d.shm.Data()
}

// Header is the card region of block i, nil if i is out of range.
func (d *Databuf) Header(i int) []byte {
	if d.shm == nil || i < 0 || i >= d.layout.NBlock {
		return nil
	}
	off := d.layout.HeaderOffset(i)
	end := off + d.layout.HeaderSize
	return d.shm.Data()[off:end:end]
}

// Data is the payload of block i, nil if i is out of range.
func (d *Databuf) Data(i int) []byte {
	if d.shm == nil || i < 0 || i >= d.layout.NBlock {
		return nil
	}
	off := d.layout.DataOffset(i)
	end := off + d.layout.DataStride()
	return d.shm.Data()[off:end:end]
}
