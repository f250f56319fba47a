package mem

import "encoding/binary"

// Space is a single contiguous span of the target address space backed by
// a host buffer. Bytes are initialized to 0xFF at creation.
//
// All addresses are in the target's address space. The caller is expected
// to stay within [Base, Base+Size); halfword and word accesses are
// expected to be aligned. Neither precondition is policed here.
type Space struct {
	buffer []byte
	order  binary.ByteOrder

	// Base is the virtual address of the first byte of the span.
	Base uint32
	// Size is the span length in bytes.
	Size uint32
}

// NewSpace allocates a span of the given size at the given base address.
// The byte order governs how halfwords and words are laid out in the
// backing buffer; clients always see native values.
func NewSpace(base, size uint32, order binary.ByteOrder) *Space {
	buffer := make([]byte, size)
	for i := range buffer {
		buffer[i] = 0xFF
	}

	return &Space{
		buffer: buffer,
		order:  order,
		Base:   base,
		Size:   size,
	}
}

// Contains reports whether the address falls inside the span.
func (s *Space) Contains(address uint32) bool {
	return s.Base <= address && address-s.Base < s.Size
}

// Read8 returns the byte at the given address.
func (s *Space) Read8(address uint32) uint8 {
	return s.buffer[address-s.Base]
}

// Read16 returns the halfword at the given address.
func (s *Space) Read16(address uint32) uint16 {
	off := address - s.Base
	return s.order.Uint16(s.buffer[off : off+2])
}

// Read32 returns the word at the given address.
func (s *Space) Read32(address uint32) uint32 {
	off := address - s.Base
	return s.order.Uint32(s.buffer[off : off+4])
}

// Write8 stores a byte at the given address.
func (s *Space) Write8(address uint32, value uint8) {
	s.buffer[address-s.Base] = value
}

// Write16 stores a halfword at the given address.
func (s *Space) Write16(address uint32, value uint16) {
	off := address - s.Base
	s.order.PutUint16(s.buffer[off:off+2], value)
}

// Write32 stores a word at the given address.
func (s *Space) Write32(address uint32, value uint32) {
	off := address - s.Base
	s.order.PutUint32(s.buffer[off:off+4], value)
}

// CopyIn copies a host buffer into the span starting at dst.
func (s *Space) CopyIn(dst uint32, src []byte) {
	copy(s.buffer[dst-s.Base:], src)
}

// CopyOut copies span contents starting at src into a host buffer.
func (s *Space) CopyOut(dst []byte, src uint32) {
	copy(dst, s.buffer[src-s.Base:])
}
