// Package emu provides functional emulation of the 32-bit ARM processor,
// covering both the ARM and Thumb instruction sets.
package emu

// Register indices with an architectural alias. They are ordinary entries
// of the register file; there is no separate storage behind the alias.
const (
	// RegSP is the stack pointer, R13.
	RegSP = 13
	// RegLR is the link register, R14.
	RegLR = 14
	// RegPC is the program counter, R15.
	RegPC = 15
)

// CPSR is the current program status register. The I and F interrupt
// masks and the mode field are tracked but never acted upon.
type CPSR struct {
	// N is the negative result flag.
	N bool
	// Z is the zero result flag.
	Z bool
	// C is the carry / no-borrow flag.
	C bool
	// V is the signed overflow flag.
	V bool
	// I masks IRQs, F masks FIQs.
	I bool
	F bool
	// T selects Thumb mode.
	T bool
	// Mode is the 5-bit processor mode field.
	Mode uint8
}

// Value packs the status register into its architectural 32-bit layout:
// N..V in bits 31..28, I/F/T in bits 7..5, mode in bits 4..0. Reserved
// bits read as zero.
func (c *CPSR) Value() uint32 {
	var v uint32
	if c.N {
		v |= 1 << 31
	}
	if c.Z {
		v |= 1 << 30
	}
	if c.C {
		v |= 1 << 29
	}
	if c.V {
		v |= 1 << 28
	}
	if c.I {
		v |= 1 << 7
	}
	if c.F {
		v |= 1 << 6
	}
	if c.T {
		v |= 1 << 5
	}
	v |= uint32(c.Mode & 0x1F)
	return v
}

// SetValue unpacks an architectural 32-bit status word.
func (c *CPSR) SetValue(v uint32) {
	c.N = v&(1<<31) != 0
	c.Z = v&(1<<30) != 0
	c.C = v&(1<<29) != 0
	c.V = v&(1<<28) != 0
	c.I = v&(1<<7) != 0
	c.F = v&(1<<6) != 0
	c.T = v&(1<<5) != 0
	c.Mode = uint8(v & 0x1F)
}

// RegFile is the processor register file: sixteen 32-bit general
// registers plus the current and saved status registers. SPSR is carried
// for dumps but never consulted by the execution logic.
type RegFile struct {
	R    [16]uint32
	CPSR CPSR
	SPSR uint32
}

// Reset zeroes every register and both status words.
func (r *RegFile) Reset() {
	r.R = [16]uint32{}
	r.CPSR = CPSR{}
	r.SPSR = 0
}
