// Package mem provides the sparse virtual address space backing the
// interpreter's loads and stores.
package mem

import "math/bits"

// Swap16 reverses the byte order of a halfword. It is the conversion
// applied when host and target endianness disagree; when they agree the
// caller simply does not swap.
func Swap16(v uint16) uint16 {
	return bits.ReverseBytes16(v)
}

// Swap32 reverses the byte order of a word.
func Swap32(v uint32) uint32 {
	return bits.ReverseBytes32(v)
}
