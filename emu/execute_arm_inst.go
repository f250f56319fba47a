package emu

import (
	"fmt"
	"math/bits"
	"strings"

	"github.com/sarchlab/arm9sim/insts"
)

// stepARM fetches, traces and executes one 32-bit ARM instruction. The
// program counter is advanced past the instruction before execution, so
// every PC-relative computation below sees the post-increment value.
func (e *Emulator) stepARM() {
	pc := e.regFile.R[RegPC]
	opcode := e.fetch32(pc)
	e.regFile.R[RegPC] += 4

	fmt.Fprintf(e.out, "%08X [A] ", pc)

	inst := e.decoder.Decode(opcode)

	switch inst.Format {
	case insts.FormatBranchExchange:
		e.execBranchExchange(inst)
	case insts.FormatSoftwareInterrupt:
		fmt.Fprintf(e.out, "swi 0x%02X\n", inst.Imm)
	case insts.FormatDataProcessing:
		e.execDataProcessing(inst)
	case insts.FormatPSRTransfer:
		e.execPSRTransfer(inst)
	case insts.FormatSingleDataTransfer:
		e.execSingleDataTransfer(inst)
	case insts.FormatBlockDataTransfer:
		e.execBlockDataTransfer(inst)
	case insts.FormatBranch:
		e.execBranch(inst)
	case insts.FormatCoprocessor:
		fmt.Fprintln(e.out, "mrc ...")
	default:
		fmt.Fprintf(e.out, "Unknown opcode! (0x%08X)\n", inst.Raw)
	}
}

func (e *Emulator) execBranchExchange(inst *insts.Instruction) {
	r := &e.regFile.R
	link := inst.Op == insts.OpBLX

	fmt.Fprintf(e.out, "%v%v r%d\n", inst.Op, inst.Cond, inst.Rm)

	if !e.condMet(inst.Cond) {
		return
	}

	if link {
		r[RegLR] = r[RegPC]
	}

	e.regFile.CPSR.T = r[inst.Rm]&1 != 0
	r[RegPC] = r[inst.Rm] &^ 1
}

// sSuffix is the trace suffix for the S bit.
func sSuffix(inst *insts.Instruction) string {
	if inst.S {
		return "s"
	}
	return ""
}

// armOperand2 resolves the second operand of a data-processing
// instruction: a rotated 8-bit immediate when the I bit is set, otherwise
// Rm through the barrel shifter. The shifter may update C.
func (e *Emulator) armOperand2(inst *insts.Instruction) uint32 {
	if inst.I {
		return RotateImm(inst.Imm, uint32(inst.Rs)<<1)
	}
	return e.alu.Shift(inst.Raw, e.regFile.R[inst.Rm])
}

// dpOperands renders the operand list of a three-register data-processing
// instruction for the trace. The immediate prefix varies by mnemonic;
// AND and EOR historically print the expanded value bare.
func dpOperands(inst *insts.Instruction, immPrefix string) string {
	if inst.I {
		rotated := RotateImm(inst.Imm, uint32(inst.Rs)<<1)
		return fmt.Sprintf(" r%d, r%d, %s0x%X", inst.Rd, inst.Rn, immPrefix, rotated)
	}
	return fmt.Sprintf(" r%d, r%d, r%d%s", inst.Rd, inst.Rn, inst.Rm, inst.ShiftSuffix())
}

// dpMoveOperands is dpOperands for the two-operand MOV/MVN forms.
func dpMoveOperands(inst *insts.Instruction) string {
	if inst.I {
		rotated := RotateImm(inst.Imm, uint32(inst.Rs)<<1)
		return fmt.Sprintf(" r%d, #0x%X", inst.Rd, rotated)
	}
	return fmt.Sprintf(" r%d, r%d%s", inst.Rd, inst.Rm, inst.ShiftSuffix())
}

func (e *Emulator) execDataProcessing(inst *insts.Instruction) {
	r := &e.regFile.R
	cpsr := &e.regFile.CPSR

	// Trace first; a failed predicate still prints the line.
	switch inst.Op {
	case insts.OpAND, insts.OpEOR:
		fmt.Fprintf(e.out, "%v%v%s%s\n", inst.Op, inst.Cond, sSuffix(inst), dpOperands(inst, ""))
	case insts.OpSUB, insts.OpRSB, insts.OpADD, insts.OpADC,
		insts.OpSBC, insts.OpRSC, insts.OpORR, insts.OpBIC:
		fmt.Fprintf(e.out, "%v%v%s%s\n", inst.Op, inst.Cond, sSuffix(inst), dpOperands(inst, "#"))
	case insts.OpMOV, insts.OpMVN:
		fmt.Fprintf(e.out, "%v%v%s%s\n", inst.Op, inst.Cond, sSuffix(inst), dpMoveOperands(inst))
	case insts.OpTST, insts.OpTEQ:
		if inst.I {
			rotated := RotateImm(inst.Imm, uint32(inst.Rs)<<1)
			fmt.Fprintf(e.out, "%v%v r%d, #0x%X\n", inst.Op, inst.Cond, inst.Rn, rotated)
		} else {
			fmt.Fprintf(e.out, "%v%v r%d, r%d%s\n", inst.Op, inst.Cond, inst.Rn, inst.Rm, inst.ShiftSuffix())
		}
	case insts.OpCMP, insts.OpCMN:
		if inst.I {
			rotated := RotateImm(inst.Imm, uint32(inst.Rs)<<1)
			fmt.Fprintf(e.out, "%v%v r%d, 0x%08X\n", inst.Op, inst.Cond, inst.Rn, rotated)
		} else {
			fmt.Fprintf(e.out, "%v%v r%d, r%d\n", inst.Op, inst.Cond, inst.Rn, inst.Rm)
		}
	}

	if !e.condMet(inst.Cond) {
		return
	}

	borrow := uint32(1)
	if cpsr.C {
		borrow = 0
	}

	switch inst.Op {
	case insts.OpAND:
		r[inst.Rd] = r[inst.Rn] & e.armOperand2(inst)
	case insts.OpEOR:
		r[inst.Rd] = r[inst.Rn] ^ e.armOperand2(inst)
	case insts.OpORR:
		r[inst.Rd] = r[inst.Rn] | e.armOperand2(inst)
	case insts.OpBIC:
		r[inst.Rd] = r[inst.Rn] &^ e.armOperand2(inst)
	case insts.OpMOV:
		r[inst.Rd] = e.armOperand2(inst)
	case insts.OpMVN:
		r[inst.Rd] = ^e.armOperand2(inst)

	case insts.OpSUB:
		op2 := e.armOperand2(inst)
		if inst.S {
			r[inst.Rd] = e.alu.Subtract(r[inst.Rn], op2)
		} else {
			r[inst.Rd] = r[inst.Rn] - op2
		}
		return
	case insts.OpRSB:
		op2 := e.armOperand2(inst)
		if inst.S {
			r[inst.Rd] = e.alu.Subtract(op2, r[inst.Rn])
		} else {
			r[inst.Rd] = op2 - r[inst.Rn]
		}
		return
	case insts.OpADD:
		op2 := e.armOperand2(inst)
		if inst.Rn == RegPC {
			// The destination carries one extra word of read-ahead
			// when the base is the program counter.
			op2 += 4
		}
		if inst.S {
			r[inst.Rd] = e.alu.Addition(r[inst.Rn], op2)
		} else {
			r[inst.Rd] = r[inst.Rn] + op2
		}
		return
	case insts.OpADC:
		carry := uint32(0)
		if cpsr.C {
			carry = 1
		}
		r[inst.Rd] = r[inst.Rn] + e.armOperand2(inst) + carry
	case insts.OpSBC:
		op2 := e.armOperand2(inst)
		if inst.S {
			r[inst.Rd] = e.alu.Subtract(r[inst.Rn], op2+borrow)
		} else {
			r[inst.Rd] = r[inst.Rn] - op2 - borrow
		}
		return
	case insts.OpRSC:
		op2 := e.armOperand2(inst)
		if inst.S {
			r[inst.Rd] = e.alu.Subtract(op2, r[inst.Rn]+borrow)
		} else {
			r[inst.Rd] = op2 - r[inst.Rn] - borrow
		}
		return

	case insts.OpTST:
		e.alu.SetNZ(r[inst.Rn] & e.armOperand2(inst))
		return
	case insts.OpTEQ:
		e.alu.SetNZ(r[inst.Rn] ^ e.armOperand2(inst))
		return
	case insts.OpCMP:
		value := r[inst.Rm]
		if inst.I {
			value = RotateImm(inst.Imm, uint32(inst.Rs)<<1)
		}
		e.alu.Subtract(r[inst.Rn], value)
		return
	case insts.OpCMN:
		value := r[inst.Rm]
		if inst.I {
			value = RotateImm(inst.Imm, uint32(inst.Rs)<<1)
		}
		e.alu.Addition(r[inst.Rn], value)
		return

	default:
		return
	}

	if inst.S {
		e.alu.SetNZ(r[inst.Rd])
	}
}

func (e *Emulator) execPSRTransfer(inst *insts.Instruction) {
	r := &e.regFile.R
	cpsr := &e.regFile.CPSR

	switch inst.Op {
	case insts.OpMRS:
		fmt.Fprintf(e.out, "mrs r%d, cpsr\n", inst.Rd)
		r[inst.Rd] = cpsr.Value()
	case insts.OpMSR:
		if inst.I {
			fmt.Fprintf(e.out, "msr cpsr, r%d\n", inst.Rm)
			cpsr.SetValue(r[inst.Rm])
		} else {
			fmt.Fprintf(e.out, "msr cpsr, 0x%08X\n", inst.Imm)
			cpsr.SetValue(inst.Imm)
		}
	case insts.OpMRS2:
		fmt.Fprintln(e.out, "mrs2")
	case insts.OpMSR2:
		fmt.Fprintln(e.out, "msr2")
	}
}

func (e *Emulator) execSingleDataTransfer(inst *insts.Instruction) {
	r := &e.regFile.R

	if inst.L && inst.Rn == RegPC {
		// PC-relative literal load.
		imm := inst.Raw & 0xFFF
		value := e.memory.Read32(r[RegPC] + imm + 4)

		byteSuffix := ""
		if inst.B {
			byteSuffix = "b"
		}
		fmt.Fprintf(e.out, "ldr%s%v r%d, =0x%08X\n", byteSuffix, inst.Cond, inst.Rd, value)

		if !e.condMet(inst.Cond) {
			return
		}
		r[inst.Rd] = value
		return
	}

	// The shifter runs before the predicate, so a failed condition can
	// still update C through a register-specified offset.
	var offset uint32
	var offsetText string
	if inst.I {
		offset = e.alu.Shift(inst.Raw, r[inst.Rm])
		offsetText = fmt.Sprintf("%sr%d%s", signText(inst.U), inst.Rm, inst.ShiftSuffix())
	} else {
		offset = RotateImm(inst.Imm, uint32(inst.Rs)<<1)
		offsetText = fmt.Sprintf("#%s0x%08X", signText(inst.U), offset)
	}

	mnemonic := "str"
	if inst.L {
		mnemonic = "ldr"
	}
	if inst.B {
		mnemonic += "b"
	}
	fmt.Fprintf(e.out, "%s%v r%d, [r%d, %s]\n",
		mnemonic, inst.Cond, inst.Rd, inst.Rn, offsetText)

	if !e.condMet(inst.Cond) {
		return
	}

	final := r[inst.Rn] + offset
	if !inst.U {
		final = r[inst.Rn] - offset
	}

	access := r[inst.Rn]
	if inst.P {
		access = final
	}

	if inst.L {
		if inst.B {
			r[inst.Rd] = uint32(e.memory.Read8(access))
		} else {
			r[inst.Rd] = e.memory.Read32(access)
		}
	} else {
		if inst.B {
			e.memory.Write8(access, uint8(r[inst.Rd]))
		} else {
			e.memory.Write32(access, r[inst.Rd])
		}
	}

	if !inst.P || inst.W {
		r[inst.Rn] = final
	}
}

func signText(up bool) string {
	if up {
		return ""
	}
	return "-"
}

func (e *Emulator) execBlockDataTransfer(inst *insts.Instruction) {
	r := &e.regFile.R

	count := uint32(bits.OnesCount16(inst.RegList))

	var start, end uint32
	switch {
	case !inst.P && !inst.U:
		start = r[inst.Rn] - count<<2 + 4
		end = start - count<<2
	case !inst.P && inst.U:
		start = r[inst.Rn]
		end = start + count<<2
	case inst.P && !inst.U:
		start = r[inst.Rn] - count<<2
		end = start
	default:
		start = r[inst.Rn] + 4
		end = start + count<<2
	}

	fmt.Fprintf(e.out, "%v%s", inst.Op, blockModeChars(inst))
	if inst.Rn == RegSP {
		fmt.Fprint(e.out, " sp")
	} else {
		fmt.Fprintf(e.out, " r%d", inst.Rn)
	}
	if inst.W {
		fmt.Fprint(e.out, "!")
	}

	var regs strings.Builder
	for i := 0; i < 16; i++ {
		if inst.RegList&(1<<i) != 0 {
			fmt.Fprintf(&regs, "r%d,", i)
		}
	}
	fmt.Fprintf(e.out, ", {%s}\n", regs.String())

	if !e.condMet(inst.Cond) {
		return
	}

	addr := start
	for i := 0; i < 16; i++ {
		if inst.RegList&(1<<i) == 0 {
			continue
		}
		if inst.L {
			r[i] = e.memory.Read32(addr)
		} else {
			e.memory.Write32(addr, r[i])
		}
		addr += 4
	}

	if inst.W {
		r[inst.Rn] = end
	}
}

// blockModeChars renders the two addressing-mode letters of the LDM/STM
// mnemonic, with the stack-idiom spelling when the base is SP.
func blockModeChars(inst *insts.Instruction) string {
	increment := byte('a')
	if inst.P {
		increment = 'b'
	}

	if inst.Rn != RegSP {
		return string([]byte{'d', increment})
	}

	if inst.L {
		if inst.P {
			return "ea"
		}
		return "fa"
	}
	if inst.P {
		return "fd"
	}
	return "ed"
}

func (e *Emulator) execBranch(inst *insts.Instruction) {
	r := &e.regFile.R
	target := r[RegPC] + uint32(inst.BranchOffset)

	fmt.Fprintf(e.out, "%v%v 0x%08X\n", inst.Op, inst.Cond, target)

	if !e.condMet(inst.Cond) {
		return
	}

	if inst.L {
		r[RegLR] = r[RegPC]
	}
	r[RegPC] = target
}
