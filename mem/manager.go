package mem

import "encoding/binary"

// Manager is a registry of virtual spaces. It routes each access to the
// first space covering the address. Reads from an unmapped address yield
// the all-ones sentinel of the requested width; writes to an unmapped
// address are silently discarded.
//
// The Manager is not safe for concurrent use; the interpreter is single
// threaded by contract.
type Manager struct {
	spaces []*Space
	order  binary.ByteOrder
}

// NewManager creates an empty registry. The byte order applies to every
// space it creates; it defaults to big-endian, the layout of the images
// this interpreter historically consumes.
func NewManager() *Manager {
	return &Manager{order: binary.BigEndian}
}

// ByteOrder returns the byte order used for halfword and word accesses.
func (m *Manager) ByteOrder() binary.ByteOrder {
	return m.order
}

// SetByteOrder replaces the byte order used by subsequently created
// spaces. Existing spaces keep their layout, so this should be called
// before any image is loaded.
func (m *Manager) SetByteOrder(order binary.ByteOrder) {
	m.order = order
}

// find returns the first space covering the address, or nil.
func (m *Manager) find(address uint32) *Space {
	for _, s := range m.spaces {
		if s.Contains(address) {
			return s
		}
	}
	return nil
}

// Create allocates a new space at the given base address. If a space
// already covers the base address the call succeeds without allocating.
func (m *Manager) Create(base, size uint32) bool {
	if m.find(base) != nil {
		return true
	}

	m.spaces = append(m.spaces, NewSpace(base, size, m.order))
	return true
}

// Destroy releases every space.
func (m *Manager) Destroy() {
	m.spaces = nil
}

// DestroyAt releases the single space whose base address equals base.
func (m *Manager) DestroyAt(base uint32) {
	for i, s := range m.spaces {
		if s.Base == base {
			m.spaces = append(m.spaces[:i], m.spaces[i+1:]...)
			return
		}
	}
}

// Read8 returns the byte at the given address, or 0xFF if unmapped.
func (m *Manager) Read8(address uint32) uint8 {
	s := m.find(address)
	if s == nil {
		return 0xFF
	}
	return s.Read8(address)
}

// Read16 returns the halfword at the given address, or 0xFFFF if unmapped.
func (m *Manager) Read16(address uint32) uint16 {
	s := m.find(address)
	if s == nil {
		return 0xFFFF
	}
	return s.Read16(address)
}

// Read32 returns the word at the given address, or 0xFFFFFFFF if unmapped.
func (m *Manager) Read32(address uint32) uint32 {
	s := m.find(address)
	if s == nil {
		return 0xFFFFFFFF
	}
	return s.Read32(address)
}

// Write8 stores a byte at the given address. Unmapped writes are dropped.
func (m *Manager) Write8(address uint32, value uint8) {
	if s := m.find(address); s != nil {
		s.Write8(address, value)
	}
}

// Write16 stores a halfword at the given address. Unmapped writes are
// dropped.
func (m *Manager) Write16(address uint32, value uint16) {
	if s := m.find(address); s != nil {
		s.Write16(address, value)
	}
}

// Write32 stores a word at the given address. Unmapped writes are dropped.
func (m *Manager) Write32(address uint32, value uint32) {
	if s := m.find(address); s != nil {
		s.Write32(address, value)
	}
}

// CopyIn copies a host buffer into the space covering dst. It is a no-op
// if dst is unmapped.
func (m *Manager) CopyIn(dst uint32, src []byte) {
	if s := m.find(dst); s != nil {
		s.CopyIn(dst, src)
	}
}

// CopyOut copies target memory starting at src into a host buffer. It is
// a no-op if src is unmapped.
func (m *Manager) CopyOut(dst []byte, src uint32) {
	if s := m.find(src); s != nil {
		s.CopyOut(dst, src)
	}
}
