package insts

// thumbALUOps maps the 4-bit sub-opcode of the Thumb two-register ALU
// family to operations.
var thumbALUOps = [16]Op{
	OpAND, OpEOR, OpLSL, OpLSR, OpASR, OpADC, OpSBC, OpROR,
	OpTST, OpNEG, OpCMP, OpCMN, OpORR, OpMUL, OpBIC, OpMVN,
}

// DecodeThumb decodes a 16-bit Thumb instruction halfword. The
// two-halfword BL/BLX form decodes as FormatThumbLongBranch carrying the
// high offset bits; the executor fetches and folds in the second
// halfword, since that requires memory and PC.
func (d *Decoder) DecodeThumb(opcode uint16) *Instruction {
	inst := &Instruction{
		Raw:  uint32(opcode),
		Cond: CondAL,
	}

	switch {
	case opcode>>13 == 0:
		d.decodeThumbShiftAddSub(opcode, inst)
	case opcode>>13 == 1:
		inst.Format = FormatThumbImmediate
		inst.Rd = uint8((opcode >> 8) & 7)
		inst.Imm = uint32(opcode & 0xFF)
		inst.Op = [4]Op{OpMOV, OpCMP, OpADD, OpSUB}[(opcode>>11)&3]
	case opcode>>10 == 0x10:
		inst.Format = FormatThumbALU
		inst.Rd = uint8(opcode & 7)
		inst.Rm = uint8((opcode >> 3) & 7)
		inst.Op = thumbALUOps[(opcode>>6)&0xF]
	case opcode>>7 == 0x8F:
		inst.Format = FormatThumbBranchExchange
		inst.Op = OpBLX
		inst.L = true
		inst.Rm = uint8((opcode >> 3) & 0xF)
	case opcode>>10 == 0x11:
		d.decodeThumbHiReg(opcode, inst)
	case opcode>>11 == 9:
		inst.Format = FormatThumbPCLoad
		inst.Op = OpLDR
		inst.Rd = uint8((opcode >> 8) & 7)
		inst.Imm = uint32(opcode&0xFF) << 2
	case opcode>>12 == 5:
		d.decodeThumbLoadStoreReg(opcode, inst)
	case opcode>>13 == 3:
		inst.Format = FormatThumbLoadStoreImm
		inst.Rd = uint8(opcode & 7)
		inst.Rn = uint8((opcode >> 3) & 7)
		inst.B = opcode&0x1000 != 0
		inst.L = opcode&0x800 != 0
		if inst.B {
			inst.Imm = uint32((opcode >> 6) & 0x1F)
			inst.Op = OpSTRB
			if inst.L {
				inst.Op = OpLDRB
			}
		} else {
			inst.Imm = uint32((opcode>>6)&0x1F) << 2
			inst.Op = OpSTR
			if inst.L {
				inst.Op = OpLDR
			}
		}
	case opcode>>12 == 8:
		inst.Format = FormatThumbLoadStoreHalf
		inst.Rd = uint8(opcode & 7)
		inst.Rn = uint8((opcode >> 3) & 7)
		inst.L = opcode&0x800 != 0
		inst.Imm = uint32((opcode>>6)&0x1F) << 1
		inst.Op = OpSTRH
		if inst.L {
			inst.Op = OpLDRH
		}
	case opcode>>12 == 9:
		inst.Format = FormatThumbLoadStoreSP
		inst.Rd = uint8((opcode >> 8) & 7)
		inst.L = opcode&0x800 != 0
		inst.Imm = uint32(opcode&0xFF) << 2
		inst.Op = OpSTR
		if inst.L {
			inst.Op = OpLDR
		}
	case opcode>>12 == 10:
		inst.Format = FormatThumbAddrGen
		inst.Op = OpADD
		inst.Rd = uint8((opcode >> 8) & 7)
		inst.L = opcode&0x800 != 0 // SP base when set, PC base otherwise
		inst.Imm = uint32(opcode&0xFF) << 2
	case opcode>>12 == 11:
		d.decodeThumbMisc(opcode, inst)
	case opcode>>12 == 12:
		inst.Format = FormatThumbMultiple
		inst.Rn = uint8((opcode >> 8) & 7)
		inst.RegList = opcode & 0xFF
		inst.L = opcode&0x800 != 0
		inst.Op = OpSTM
		if inst.L {
			inst.Op = OpLDM
		}
	case opcode>>12 == 13:
		inst.Cond = Cond((opcode >> 8) & 0xF)
		if inst.Cond == 15 {
			inst.Cond = CondAL
			inst.Format = FormatThumbSWI
			inst.Op = OpSWI
			inst.Imm = uint32(opcode & 0xFF)
			return inst
		}
		inst.Format = FormatThumbCondBranch
		inst.Op = OpB
		inst.BranchOffset = condBranchOffsetThumb(opcode)
	case opcode>>11 == 28:
		inst.Format = FormatThumbBranch
		inst.Op = OpB
		inst.BranchOffset = branchOffsetThumb(opcode)
	case opcode>>11 == 0x1E:
		inst.Format = FormatThumbLongBranch
		inst.Op = OpBL
		inst.Imm = uint32(opcode&0x7FF) << 12
	default:
		inst.Format = FormatUnknown
		inst.Op = OpUnknown
	}

	return inst
}

func (d *Decoder) decodeThumbShiftAddSub(opcode uint16, inst *Instruction) {
	inst.Rd = uint8(opcode & 7)
	inst.Rm = uint8((opcode >> 3) & 7)

	switch (opcode >> 11) & 3 {
	case 0, 1, 2:
		inst.Format = FormatThumbShiftImm
		inst.Op = [3]Op{OpLSL, OpLSR, OpASR}[(opcode>>11)&3]
		inst.Imm = uint32((opcode >> 6) & 0x1F)
	case 3:
		inst.Format = FormatThumbAddSub
		inst.Rn = uint8((opcode >> 6) & 7)
		inst.Imm = uint32((opcode >> 6) & 7)
		inst.I = opcode&0x400 != 0
		if opcode&0x200 != 0 {
			inst.Op = OpSUB
		} else {
			inst.Op = OpADD
		}
	}
}

func (d *Decoder) decodeThumbHiReg(opcode uint16, inst *Instruction) {
	inst.Format = FormatThumbHiReg
	inst.Rd = uint8((opcode>>4)&8 | opcode&7)
	inst.Rm = uint8((opcode >> 3) & 0xF)

	switch (opcode >> 8) & 3 {
	case 0:
		inst.Op = OpADD
	case 1:
		inst.Op = OpCMP
	case 2:
		if inst.Rd == 8 && inst.Rm == 8 {
			inst.Op = OpNOP
			return
		}
		inst.Op = OpMOV
	case 3:
		inst.Format = FormatThumbBranchExchange
		inst.Op = OpBX
	}
}

func (d *Decoder) decodeThumbLoadStoreReg(opcode uint16, inst *Instruction) {
	inst.Rd = uint8(opcode & 7)
	inst.Rn = uint8((opcode >> 3) & 7)
	inst.Rm = uint8((opcode >> 6) & 7)

	switch (opcode >> 9) & 7 {
	case 0:
		inst.Op = OpSTR
	case 2:
		inst.Op = OpSTRB
	case 4:
		inst.Op = OpLDR
		inst.L = true
	case 6:
		inst.Op = OpLDRB
		inst.L = true
	default:
		// Signed and halfword register forms are not implemented.
		inst.Format = FormatUnknown
		inst.Op = OpUnknown
		return
	}
	inst.Format = FormatThumbLoadStoreReg
}

func (d *Decoder) decodeThumbMisc(opcode uint16, inst *Instruction) {
	switch (opcode >> 9) & 7 {
	case 0:
		inst.Format = FormatThumbAdjustSP
		inst.Imm = uint32(opcode&0x7F) << 2
		if opcode&0x80 != 0 {
			inst.Op = OpSUB
		} else {
			inst.Op = OpADD
		}
	case 2:
		inst.Format = FormatThumbPushPop
		inst.Op = OpPUSH
		inst.RegList = opcode & 0xFF
		inst.L = opcode&0x100 != 0 // LR included
	case 6:
		inst.Format = FormatThumbPushPop
		inst.Op = OpPOP
		inst.RegList = opcode & 0xFF
		inst.L = opcode&0x100 != 0 // PC included
	default:
		inst.Format = FormatUnknown
		inst.Op = OpUnknown
	}
}

// condBranchOffsetThumb sign-extends the 8-bit conditional branch offset,
// scales it and folds in the halfword of PC read-ahead.
func condBranchOffsetThumb(opcode uint16) int32 {
	imm := uint32(opcode&0xFF) << 1
	if imm&0x100 != 0 {
		imm |= ^uint32(0xFF)
	}
	return int32(imm) + 2
}

// branchOffsetThumb computes the displacement of the 11-bit unconditional
// branch: the sign-extended, scaled offset plus the halfword of
// read-ahead. The backward form reaches the same sum by negating the
// complemented field.
func branchOffsetThumb(opcode uint16) int32 {
	imm := uint32(opcode&0x7FF) << 1
	if imm&(1<<11) != 0 {
		return -int32(^imm & 0xFFE)
	}
	return int32(imm) + 2
}
