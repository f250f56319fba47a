package emu

import (
	"fmt"
	"math/bits"
	"strings"

	"github.com/sarchlab/arm9sim/insts"
)

// stepThumb fetches, traces and executes one 16-bit Thumb instruction.
// As in ARM mode the program counter is advanced before execution.
func (e *Emulator) stepThumb() {
	pc := e.regFile.R[RegPC]
	opcode := e.fetch16(pc)
	e.regFile.R[RegPC] += 2

	fmt.Fprintf(e.out, "%08X [T] ", pc)

	inst := e.decoder.DecodeThumb(opcode)

	switch inst.Format {
	case insts.FormatThumbShiftImm:
		e.execThumbShiftImm(inst)
	case insts.FormatThumbAddSub:
		e.execThumbAddSub(inst)
	case insts.FormatThumbImmediate:
		e.execThumbImmediate(inst)
	case insts.FormatThumbALU:
		e.execThumbALU(inst)
	case insts.FormatThumbHiReg:
		e.execThumbHiReg(inst)
	case insts.FormatThumbBranchExchange:
		e.execThumbBranchExchange(inst)
	case insts.FormatThumbPCLoad:
		e.execThumbPCLoad(inst)
	case insts.FormatThumbLoadStoreReg:
		e.execThumbLoadStoreReg(inst)
	case insts.FormatThumbLoadStoreImm, insts.FormatThumbLoadStoreHalf:
		e.execThumbLoadStoreImm(inst)
	case insts.FormatThumbLoadStoreSP:
		e.execThumbLoadStoreSP(inst)
	case insts.FormatThumbAddrGen:
		e.execThumbAddrGen(inst)
	case insts.FormatThumbAdjustSP:
		e.execThumbAdjustSP(inst)
	case insts.FormatThumbPushPop:
		e.execThumbPushPop(inst)
	case insts.FormatThumbMultiple:
		e.execThumbMultiple(inst)
	case insts.FormatThumbCondBranch:
		e.execThumbCondBranch(inst)
	case insts.FormatThumbSWI:
		e.execThumbSWI(inst)
	case insts.FormatThumbBranch:
		e.execThumbBranch(inst)
	case insts.FormatThumbLongBranch:
		e.execThumbLongBranch(inst)
	default:
		fmt.Fprintf(e.out, "Unknown opcode! (0x%04X)\n", inst.Raw)
	}
}

func (e *Emulator) execThumbShiftImm(inst *insts.Instruction) {
	r := &e.regFile.R
	cpsr := &e.regFile.CPSR

	value := r[inst.Rm]
	amt := inst.Imm

	if amt > 0 {
		switch inst.Op {
		case insts.OpLSL:
			cpsr.C = value&(1<<(32-amt)) != 0
			value <<= amt
		case insts.OpLSR:
			cpsr.C = value&(1<<(amt-1)) != 0
			value >>= amt
		case insts.OpASR:
			cpsr.C = value&(1<<(amt-1)) != 0
			value = uint32(int32(value) >> amt)
		}
	}

	r[inst.Rd] = value
	e.alu.SetNZ(value)

	fmt.Fprintf(e.out, "%v r%d, r%d, #0x%02X\n", inst.Op, inst.Rd, inst.Rm, inst.Imm)
}

func (e *Emulator) execThumbAddSub(inst *insts.Instruction) {
	r := &e.regFile.R

	if inst.I {
		if inst.Op == insts.OpSUB {
			r[inst.Rd] = e.alu.Subtract(r[inst.Rm], inst.Imm)
		} else {
			r[inst.Rd] = e.alu.Addition(r[inst.Rm], inst.Imm)
		}
		fmt.Fprintf(e.out, "%v r%d, r%d, #0x%02X\n", inst.Op, inst.Rd, inst.Rm, inst.Imm)
		return
	}

	if inst.Op == insts.OpSUB {
		r[inst.Rd] = e.alu.Subtract(r[inst.Rm], r[inst.Rn])
	} else {
		r[inst.Rd] = e.alu.Addition(r[inst.Rm], r[inst.Rn])
	}
	fmt.Fprintf(e.out, "%v r%d, r%d, r%d\n", inst.Op, inst.Rd, inst.Rm, inst.Rn)
}

func (e *Emulator) execThumbImmediate(inst *insts.Instruction) {
	r := &e.regFile.R

	switch inst.Op {
	case insts.OpMOV:
		r[inst.Rd] = inst.Imm
		e.alu.SetNZ(r[inst.Rd])
		fmt.Fprintf(e.out, "mov r%d, #0x%02X\n", inst.Rd, inst.Imm)
	case insts.OpCMP:
		e.alu.Subtract(r[inst.Rd], inst.Imm)
		fmt.Fprintf(e.out, "cmp r%d, #0x%02X\n", inst.Rd, inst.Imm)
	case insts.OpADD:
		r[inst.Rd] = e.alu.Addition(r[inst.Rd], inst.Imm)
		fmt.Fprintf(e.out, "add r%d, #0x%02X\n", inst.Rd, inst.Imm)
	case insts.OpSUB:
		r[inst.Rd] = e.alu.Subtract(r[inst.Rd], inst.Imm)
		fmt.Fprintf(e.out, "sub r%d, #0x%02X\n", inst.Rd, inst.Imm)
	}
}

func (e *Emulator) execThumbALU(inst *insts.Instruction) {
	r := &e.regFile.R
	cpsr := &e.regFile.CPSR

	rd, rm := inst.Rd, inst.Rm

	switch inst.Op {
	case insts.OpAND:
		r[rd] &= r[rm]
		e.alu.SetNZ(r[rd])
	case insts.OpEOR:
		r[rd] ^= r[rm]
		e.alu.SetNZ(r[rd])
	case insts.OpORR:
		r[rd] |= r[rm]
		e.alu.SetNZ(r[rd])
	case insts.OpBIC:
		r[rd] &^= r[rm]
		e.alu.SetNZ(r[rd])
	case insts.OpMUL:
		r[rd] *= r[rm]
		e.alu.SetNZ(r[rd])
	case insts.OpMVN:
		r[rd] = ^r[rm]
		e.alu.SetNZ(r[rd])
	case insts.OpNEG:
		r[rd] = -r[rm]
		e.alu.SetNZ(r[rd])

	case insts.OpLSL:
		shift := r[rm] & 0xFF
		if shift > 0 && shift <= 32 {
			cpsr.C = r[rd]&(1<<(32-shift)) != 0
			r[rd] = shiftLeft(r[rd], shift)
		} else if shift > 32 {
			cpsr.C = false
			r[rd] = 0
		}
		e.alu.SetNZ(r[rd])
	case insts.OpLSR:
		shift := r[rm] & 0xFF
		if shift > 0 && shift <= 32 {
			cpsr.C = r[rd]&(1<<(shift-1)) != 0
			r[rd] = shiftRight(r[rd], shift)
		} else if shift > 32 {
			cpsr.C = false
			r[rd] = 0
		}
		e.alu.SetNZ(r[rd])
	case insts.OpASR:
		shift := r[rm] & 0xFF
		if shift > 0 && shift < 32 {
			cpsr.C = r[rd]&(1<<(shift-1)) != 0
			r[rd] = uint32(int32(r[rd]) >> shift)
		} else if shift == 32 {
			cpsr.C = r[rd]>>31 != 0
			r[rd] = 0
		} else if shift > 32 {
			cpsr.C = false
			r[rd] = 0
		}
		e.alu.SetNZ(r[rd])
	case insts.OpROR:
		shift := r[rm] & 0xFF % 32
		if shift > 0 {
			cpsr.C = r[rd]&(1<<(shift-1)) != 0
			r[rd] = bits.RotateLeft32(r[rd], -int(shift))
		}
		e.alu.SetNZ(r[rd])

	case insts.OpADC:
		carry := uint32(0)
		if cpsr.C {
			carry = 1
		}
		r[rd] = e.alu.Addition(r[rd], r[rm])
		r[rd] = e.alu.Addition(r[rd], carry)
	case insts.OpSBC:
		borrow := uint32(1)
		if cpsr.C {
			borrow = 0
		}
		r[rd] = e.alu.Subtract(r[rd], r[rm])
		r[rd] = e.alu.Subtract(r[rd], borrow)

	case insts.OpTST:
		e.alu.SetNZ(r[rd] & r[rm])
	case insts.OpCMP:
		e.alu.Subtract(r[rd], r[rm])
	case insts.OpCMN:
		e.alu.Addition(r[rd], r[rm])
	}

	fmt.Fprintf(e.out, "%v r%d, r%d\n", inst.Op, rd, rm)
}

// shiftLeft and shiftRight widen the count so a shift by 32 clears the
// value instead of being reduced modulo 32.
func shiftLeft(v, amt uint32) uint32 {
	return uint32(uint64(v) << amt)
}

func shiftRight(v, amt uint32) uint32 {
	return uint32(uint64(v) >> amt)
}

func (e *Emulator) execThumbHiReg(inst *insts.Instruction) {
	r := &e.regFile.R

	switch inst.Op {
	case insts.OpADD:
		r[inst.Rd] = e.alu.Addition(r[inst.Rd], r[inst.Rm])
		fmt.Fprintf(e.out, "add r%d, r%d\n", inst.Rd, inst.Rm)
	case insts.OpCMP:
		e.alu.Subtract(r[inst.Rd], r[inst.Rm])
		fmt.Fprintf(e.out, "cmp r%d, r%d\n", inst.Rd, inst.Rm)
	case insts.OpMOV:
		r[inst.Rd] = r[inst.Rm]
		fmt.Fprintf(e.out, "mov r%d, r%d\n", inst.Rd, inst.Rm)
	case insts.OpNOP:
		fmt.Fprintln(e.out, "nop")
	}
}

func (e *Emulator) execThumbBranchExchange(inst *insts.Instruction) {
	r := &e.regFile.R
	cpsr := &e.regFile.CPSR

	if inst.Op == insts.OpBLX {
		r[RegLR] = r[RegPC] | 1
		cpsr.T = r[inst.Rm]&1 != 0
		r[RegPC] = r[inst.Rm] &^ 1
		fmt.Fprintf(e.out, "blx r%d\n", inst.Rm)
		return
	}

	cpsr.T = r[inst.Rm]&1 != 0
	if inst.Rm == RegPC {
		r[RegPC] += 2
	} else {
		r[RegPC] = r[inst.Rm] &^ 1
	}
	fmt.Fprintf(e.out, "bx r%d\n", inst.Rm)
}

func (e *Emulator) execThumbPCLoad(inst *insts.Instruction) {
	r := &e.regFile.R

	// The halfword of read-ahead is folded in before bit 1 is cleared,
	// so the literal base is always word aligned.
	addr := (r[RegPC]+2)&^2 + inst.Imm
	r[inst.Rd] = e.memory.Read32(addr)

	fmt.Fprintf(e.out, "ldr r%d, =0x%08X\n", inst.Rd, r[inst.Rd])
}

func (e *Emulator) execThumbLoadStoreReg(inst *insts.Instruction) {
	r := &e.regFile.R
	addr := r[inst.Rn] + r[inst.Rm]

	switch inst.Op {
	case insts.OpSTR:
		e.memory.Write32(addr, r[inst.Rd])
	case insts.OpSTRB:
		e.memory.Write8(addr, uint8(r[inst.Rd]))
	case insts.OpLDR:
		r[inst.Rd] = e.memory.Read32(addr)
	case insts.OpLDRB:
		r[inst.Rd] = uint32(e.memory.Read8(addr))
	}

	fmt.Fprintf(e.out, "%v r%d, [r%d, r%d]\n", inst.Op, inst.Rd, inst.Rn, inst.Rm)
}

func (e *Emulator) execThumbLoadStoreImm(inst *insts.Instruction) {
	r := &e.regFile.R
	addr := r[inst.Rn] + inst.Imm

	switch inst.Op {
	case insts.OpSTR:
		e.memory.Write32(addr, r[inst.Rd])
	case insts.OpSTRB:
		e.memory.Write8(addr, uint8(r[inst.Rd]))
	case insts.OpSTRH:
		e.memory.Write16(addr, uint16(r[inst.Rd]))
	case insts.OpLDR:
		r[inst.Rd] = e.memory.Read32(addr)
	case insts.OpLDRB:
		r[inst.Rd] = uint32(e.memory.Read8(addr))
	case insts.OpLDRH:
		r[inst.Rd] = uint32(e.memory.Read16(addr))
	}

	fmt.Fprintf(e.out, "%v r%d, [r%d, 0x%02X]\n", inst.Op, inst.Rd, inst.Rn, inst.Imm)
}

func (e *Emulator) execThumbLoadStoreSP(inst *insts.Instruction) {
	r := &e.regFile.R
	addr := r[RegSP] + inst.Imm

	if inst.Op == insts.OpLDR {
		r[inst.Rd] = e.memory.Read32(addr)
	} else {
		e.memory.Write32(addr, r[inst.Rd])
	}

	fmt.Fprintf(e.out, "%v r%d, [sp, 0x%02X]\n", inst.Op, inst.Rd, inst.Imm)
}

func (e *Emulator) execThumbAddrGen(inst *insts.Instruction) {
	r := &e.regFile.R

	if inst.L {
		r[inst.Rd] = r[RegSP] + inst.Imm
		fmt.Fprintf(e.out, "add r%d, sp, #0x%02X\n", inst.Rd, inst.Imm)
	} else {
		r[inst.Rd] = (r[RegPC] &^ 2) + inst.Imm
		fmt.Fprintf(e.out, "add r%d, pc, #0x%02X\n", inst.Rd, inst.Imm)
	}
}

func (e *Emulator) execThumbAdjustSP(inst *insts.Instruction) {
	r := &e.regFile.R

	if inst.Op == insts.OpSUB {
		r[RegSP] -= inst.Imm
		fmt.Fprintf(e.out, "sub sp, #0x%02X\n", inst.Imm)
	} else {
		r[RegSP] += inst.Imm
		fmt.Fprintf(e.out, "add sp, #0x%02X\n", inst.Imm)
	}
}

// regListText renders a Thumb push/pop register list, with the optional
// trailing lr or pc.
func regListText(list uint16, extra string) string {
	var b strings.Builder
	for i := 0; i < 8; i++ {
		if list&(1<<i) == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, "r%d", i)
	}
	if extra != "" {
		if b.Len() > 0 {
			b.WriteString(",")
		}
		b.WriteString(extra)
	}
	return b.String()
}

func (e *Emulator) execThumbPushPop(inst *insts.Instruction) {
	r := &e.regFile.R
	cpsr := &e.regFile.CPSR

	if inst.Op == insts.OpPUSH {
		if inst.L {
			e.push(r[RegLR])
		}
		for i := 7; i >= 0; i-- {
			if inst.RegList&(1<<i) != 0 {
				e.push(r[i])
			}
		}

		extra := ""
		if inst.L {
			extra = "lr"
		}
		fmt.Fprintf(e.out, "push {%s}\n", regListText(inst.RegList, extra))
		return
	}

	// POP restores the list from the bottom of the frame up, then the
	// program counter last. A popped PC moves its Thumb tag into T.
	for i := 0; i < 8; i++ {
		if inst.RegList&(1<<i) != 0 {
			r[i] = e.pop()
		}
	}
	if inst.L {
		value := e.pop()
		cpsr.T = value&1 != 0
		r[RegPC] = value &^ 1
	}

	extra := ""
	if inst.L {
		extra = "pc"
	}
	fmt.Fprintf(e.out, "pop {%s}\n", regListText(inst.RegList, extra))
}

func (e *Emulator) execThumbMultiple(inst *insts.Instruction) {
	r := &e.regFile.R

	var regs strings.Builder
	for i := 0; i < 8; i++ {
		if inst.RegList&(1<<i) == 0 {
			continue
		}
		if inst.L {
			r[i] = e.memory.Read32(r[inst.Rn])
		} else {
			e.memory.Write32(r[inst.Rn], r[i])
		}
		r[inst.Rn] += 4
		fmt.Fprintf(&regs, "r%d,", i)
	}

	mnemonic := "stmia"
	if inst.L {
		mnemonic = "ldmia"
	}
	fmt.Fprintf(e.out, "%s r%d!, {%s}\n", mnemonic, inst.Rn, regs.String())
}

func (e *Emulator) execThumbCondBranch(inst *insts.Instruction) {
	r := &e.regFile.R
	target := r[RegPC] + uint32(inst.BranchOffset)

	suffix := inst.Cond.String()
	if inst.Cond == insts.CondAL {
		suffix = "al"
	}
	fmt.Fprintf(e.out, "b%s 0x%08X\n", suffix, target)

	if e.condMet(inst.Cond) {
		r[RegPC] = target
	}
}

func (e *Emulator) execThumbSWI(inst *insts.Instruction) {
	// The printed immediate inherits the conditional-branch offset
	// arithmetic of the encoding family it shares.
	imm := uint32(inst.Imm) << 1
	if imm&0x100 != 0 {
		imm |= ^uint32(0xFF)
	}
	imm += 2

	fmt.Fprintf(e.out, "swi 0x%02X\n", imm>>1)
}

func (e *Emulator) execThumbBranch(inst *insts.Instruction) {
	r := &e.regFile.R

	imm := (inst.Raw & 0x7FF) << 1
	display := imm
	if imm&(1<<11) != 0 {
		display = ^imm & 0xFFE
	}

	r[RegPC] += uint32(inst.BranchOffset)
	fmt.Fprintf(e.out, "b 0x%08X, 0x%X\n", r[RegPC], display)
}

func (e *Emulator) execThumbLongBranch(inst *insts.Instruction) {
	r := &e.regFile.R
	cpsr := &e.regFile.CPSR

	// The second halfword carries the low offset bits and the BL/BLX
	// discriminator in its top bits.
	second := e.fetch16(r[RegPC])
	imm := inst.Imm | uint32(second&0x7FF)<<1
	blx := second>>11 == 0x1D

	r[RegLR] = (r[RegPC] + 2) | 1

	if imm&(1<<22) != 0 {
		r[RegPC] -= ^imm & 0x7FFFFE
	} else {
		r[RegPC] += imm + 2
	}

	if blx {
		cpsr.T = false
		fmt.Fprintf(e.out, "blx 0x%08X\n", r[RegPC])
	} else {
		fmt.Fprintf(e.out, "bl 0x%08X\n", r[RegPC])
	}
}
