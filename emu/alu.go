package emu

import (
	"math/bits"

	"github.com/sarchlab/arm9sim/insts"
)

// CarryFrom reports an unsigned carry out of a + b.
func CarryFrom(a, b uint32) bool {
	return a+b < a
}

// BorrowFrom reports an unsigned borrow in a - b.
func BorrowFrom(a, b uint32) bool {
	return a < b
}

// OverflowFrom reports signed overflow of a + b.
func OverflowFrom(a, b uint32) bool {
	s := a + b
	return (a>>31) == (b>>31) && (s>>31) != (a>>31)
}

// ALU implements the arithmetic primitives shared by the ARM and Thumb
// executors: flag-deriving addition and subtraction, the barrel shifter,
// and immediate rotation. It owns no state beyond the CPSR it updates.
type ALU struct {
	cpsr *CPSR
}

// NewALU creates an ALU updating the given status register.
func NewALU(cpsr *CPSR) *ALU {
	return &ALU{cpsr: cpsr}
}

// Addition returns a + b and derives all four NZCV flags from it.
func (a *ALU) Addition(x, y uint32) uint32 {
	result := x + y

	a.cpsr.C = CarryFrom(x, y)
	a.cpsr.V = OverflowFrom(x, y)
	a.cpsr.Z = result == 0
	a.cpsr.N = result>>31 != 0
	return result
}

// Subtract returns a - b and derives all four NZCV flags from it. C is
// the no-borrow convention.
func (a *ALU) Subtract(x, y uint32) uint32 {
	result := x - y

	a.cpsr.C = !BorrowFrom(x, y)
	a.cpsr.V = OverflowFrom(x, -y)
	a.cpsr.Z = result == 0
	a.cpsr.N = result>>31 != 0
	return result
}

// SetNZ derives the N and Z flags from a result.
func (a *ALU) SetNZ(result uint32) {
	a.cpsr.Z = result == 0
	a.cpsr.N = result>>31 != 0
}

// Shift applies the register-operand barrel shift encoded in a
// data-processing opcode: amount in bits 7..11, type in bits 5..6. A zero
// amount returns the value unchanged and leaves C alone. When the S bit
// of the opcode is set, LSL/LSR/ASR update C with the last bit shifted
// out; ROR never touches C here.
func (a *ALU) Shift(opcode, value uint32) uint32 {
	s := (opcode>>20)&1 != 0
	amt := (opcode >> 7) & 0x1F

	if amt == 0 {
		return value
	}

	switch insts.ShiftType((opcode >> 5) & 3) {
	case insts.ShiftLSL:
		if s {
			a.cpsr.C = value&(1<<(32-amt)) != 0
		}
		return value << amt
	case insts.ShiftLSR:
		if s {
			a.cpsr.C = value&(1<<(amt-1)) != 0
		}
		return value >> amt
	case insts.ShiftASR:
		if s {
			a.cpsr.C = value&(1<<(amt-1)) != 0
		}
		return uint32(int32(value) >> amt)
	case insts.ShiftROR:
		return bits.RotateLeft32(value, -int(amt))
	}

	return value
}

// RotateImm expands the 8-bit data-processing immediate by rotating it
// right by rot bits. Callers pass twice the 4-bit rotate field. No flags
// are touched.
func RotateImm(imm uint32, rot uint32) uint32 {
	return bits.RotateLeft32(imm, -int(rot&31))
}
