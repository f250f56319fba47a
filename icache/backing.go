package icache

import "github.com/sarchlab/arm9sim/mem"

// ManagerBacking adapts the memory manager as a cache backing store.
// Bytes are read one at a time so unmapped addresses keep their all-ones
// sentinel inside a cached block.
type ManagerBacking struct {
	memory *mem.Manager
}

// NewManagerBacking creates a backing store over the memory manager.
func NewManagerBacking(memory *mem.Manager) *ManagerBacking {
	return &ManagerBacking{memory: memory}
}

// Read fetches raw bytes from target memory.
func (b *ManagerBacking) Read(addr uint32, size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = b.memory.Read8(addr + uint32(i))
	}
	return data
}
