package databuf

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/greedchase/daqbuf/fitshdr"
)

const (
	// DescriptorSize is the fixed size of the descriptor at offset 0.
	DescriptorSize = 64
	// DefaultHeaderSize is one FITS record, 36 cards.
	DefaultHeaderSize = 36 * fitshdr.CardSize
	// MaxBlocks is the kernel's SEMMSL ceiling on semaphores per set.
	MaxBlocks = 32000
)

// Layout fixes where every block's header and payload live in the region:
//
//	descriptor | NBlock headers | NBlock index regions | NBlock payloads
//
// This build has no index regions, IndexSize is always 0. Each payload holds
// HeadersPerBlock units of BlockSize bytes.
type Layout struct {
	NBlock          int
	BlockSize       uint64
	HeaderSize      uint64
	IndexSize       uint64
	HeadersPerBlock int
}

// NewLayout returns the layout of nBlock blocks with blockSize payload bytes,
// one default-size header each.
func NewLayout(nBlock int, blockSize uint64) Layout {
	return Layout{
		NBlock:          nBlock,
		BlockSize:       blockSize,
		HeaderSize:      DefaultHeaderSize,
		HeadersPerBlock: 1,
	}
}

func (l Layout) Validate() error {
	switch {
	case l.NBlock < 1 || l.NBlock > MaxBlocks:
		return fmt.Errorf("%w: n_block %d not in [1,%d]", ErrLayout, l.NBlock, MaxBlocks)
	case l.BlockSize == 0:
		return fmt.Errorf("%w: block_size is 0", ErrLayout)
	case l.HeaderSize == 0 || l.HeaderSize%fitshdr.CardSize != 0:
		return fmt.Errorf("%w: header_size %d is not a positive multiple of %d", ErrLayout, l.HeaderSize, fitshdr.CardSize)
	case l.IndexSize != 0:
		return fmt.Errorf("%w: index regions are not supported", ErrLayout)
	case l.HeadersPerBlock < 1:
		return fmt.Errorf("%w: headers_per_block %d", ErrLayout, l.HeadersPerBlock)
	}
	return nil
}

// DataStride is the payload size of one block.
func (l Layout) DataStride() uint64 {
	return l.BlockSize * uint64(l.HeadersPerBlock)
}

// RegionSize is the size of the whole shared segment.
func (l Layout) RegionSize() uint64 {
	return DescriptorSize + uint64(l.NBlock)*(l.HeaderSize+l.IndexSize+l.DataStride())
}

func (l Layout) HeaderOffset(i int) uint64 {
	return DescriptorSize + uint64(i)*l.HeaderSize
}

func (l Layout) IndexOffset(i int) uint64 {
	return DescriptorSize + uint64(l.NBlock)*l.HeaderSize + uint64(i)*l.IndexSize
}

// DataOffset follows the last index region; with IndexSize 0 that is
// the end of the last header.
func (l Layout) DataOffset(i int) uint64 {
	return l.IndexOffset(l.NBlock) + uint64(i)*l.DataStride()
}

// Descriptor is the region descriptor stored at offset 0 of the segment.
// A buffer type that needs more metadata embeds Descriptor as its first
// field and keeps using Layout for addressing.
type Descriptor struct {
	StructSize      uint64 // DescriptorSize once creation is complete, 0 before
	ShmID           int32
	SemID           int32
	NBlock          int32
	HeadersPerBlock int32
	BlockSize       uint64
	HeaderSize      uint64
	IndexSize       uint64
	_               [16]byte
}

// Descriptor must be exactly DescriptorSize bytes.
var (
	_ [DescriptorSize - unsafe.Sizeof(Descriptor{})]byte
	_ [unsafe.Sizeof(Descriptor{}) - DescriptorSize]byte
)

// Layout narrows the descriptor to the constants used for addressing.
func (d *Descriptor) Layout() Layout {
	return Layout{
		NBlock:          int(d.NBlock),
		BlockSize:       d.BlockSize,
		HeaderSize:      d.HeaderSize,
		IndexSize:       d.IndexSize,
		HeadersPerBlock: int(d.HeadersPerBlock),
	}
}

func (d *Descriptor) ready() bool {
	return atomic.LoadUint64(&d.StructSize) == DescriptorSize
}

func (d *Descriptor) markReady() {
	atomic.StoreUint64(&d.StructSize, DescriptorSize)
}

func descriptorAt(data []byte) *Descriptor {
	return (*Descriptor)(unsafe.Pointer(&data[0]))
}
