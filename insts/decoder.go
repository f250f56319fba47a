// Package insts provides ARM and Thumb instruction definitions and
// decoding.
package insts

// Op identifies an operation, independent of the encoding it came from.
type Op uint16

// Operations.
const (
	OpUnknown Op = iota
	OpAND
	OpEOR
	OpSUB
	OpRSB
	OpADD
	OpADC
	OpSBC
	OpRSC
	OpTST
	OpTEQ
	OpCMP
	OpCMN
	OpORR
	OpMOV
	OpBIC
	OpMVN
	OpMRS
	OpMSR
	OpMRS2
	OpMSR2
	OpLDR
	OpSTR
	OpLDRB
	OpSTRB
	OpLDRH
	OpSTRH
	OpLDM
	OpSTM
	OpB
	OpBL
	OpBX
	OpBLX
	OpSWI
	OpMRC
	OpLSL
	OpLSR
	OpASR
	OpROR
	OpNEG
	OpMUL
	OpNOP
	OpPUSH
	OpPOP
)

var opStrings = map[Op]string{
	OpUnknown: "unknown",
	OpAND:     "and",
	OpEOR:     "eor",
	OpSUB:     "sub",
	OpRSB:     "rsb",
	OpADD:     "add",
	OpADC:     "adc",
	OpSBC:     "sbc",
	OpRSC:     "rsc",
	OpTST:     "tst",
	OpTEQ:     "teq",
	OpCMP:     "cmp",
	OpCMN:     "cmn",
	OpORR:     "orr",
	OpMOV:     "mov",
	OpBIC:     "bic",
	OpMVN:     "mvn",
	OpMRS:     "mrs",
	OpMSR:     "msr",
	OpMRS2:    "mrs2",
	OpMSR2:    "msr2",
	OpLDR:     "ldr",
	OpSTR:     "str",
	OpLDRB:    "ldrb",
	OpSTRB:    "strb",
	OpLDRH:    "ldrh",
	OpSTRH:    "strh",
	OpLDM:     "ldm",
	OpSTM:     "stm",
	OpB:       "b",
	OpBL:      "bl",
	OpBX:      "bx",
	OpBLX:     "blx",
	OpSWI:     "swi",
	OpMRC:     "mrc",
	OpLSL:     "lsl",
	OpLSR:     "lsr",
	OpASR:     "asr",
	OpROR:     "ror",
	OpNEG:     "neg",
	OpMUL:     "mul",
	OpNOP:     "nop",
	OpPUSH:    "push",
	OpPOP:     "pop",
}

// String returns the lowercase mnemonic without condition or S suffix.
func (o Op) String() string {
	if s, ok := opStrings[o]; ok {
		return s
	}
	return "unknown"
}

// Format identifies the encoding family an instruction was decoded from.
// The executor dispatches on it.
type Format uint8

// Encoding formats. The Thumb formats correspond to the prefix families of
// the 16-bit encoding.
const (
	FormatUnknown Format = iota
	FormatDataProcessing
	FormatPSRTransfer
	FormatSingleDataTransfer
	FormatBlockDataTransfer
	FormatBranch
	FormatBranchExchange
	FormatSoftwareInterrupt
	FormatCoprocessor

	FormatThumbShiftImm
	FormatThumbAddSub
	FormatThumbImmediate
	FormatThumbALU
	FormatThumbHiReg
	FormatThumbBranchExchange
	FormatThumbPCLoad
	FormatThumbLoadStoreReg
	FormatThumbLoadStoreImm
	FormatThumbLoadStoreHalf
	FormatThumbLoadStoreSP
	FormatThumbAddrGen
	FormatThumbAdjustSP
	FormatThumbPushPop
	FormatThumbMultiple
	FormatThumbCondBranch
	FormatThumbSWI
	FormatThumbBranch
	FormatThumbLongBranch
)

// Cond is an ARM condition code.
type Cond uint8

// Condition codes, evaluated against the CPSR flags.
const (
	CondEQ Cond = 0  // Z == 1
	CondNE Cond = 1  // Z == 0
	CondCS Cond = 2  // C == 1
	CondCC Cond = 3  // C == 0
	CondMI Cond = 4  // N == 1
	CondPL Cond = 5  // N == 0
	CondVS Cond = 6  // V == 1
	CondVC Cond = 7  // V == 0
	CondHI Cond = 8  // C == 1 && Z == 0
	CondLS Cond = 9  // C == 0 || Z == 1
	CondGE Cond = 10 // N == V
	CondLT Cond = 11 // N != V
	CondGT Cond = 12 // Z == 0 && N == V
	CondLE Cond = 13 // Z == 1 || N != V
	CondAL Cond = 14 // always
)

var condStrings = [...]string{
	"eq", "ne", "cs", "cc", "mi", "pl", "vs", "vc",
	"hi", "ls", "ge", "lt", "gt", "le",
}

// String returns the condition suffix used in the trace. AL and the
// reserved code print as nothing.
func (c Cond) String() string {
	if c < CondAL {
		return condStrings[c]
	}
	return ""
}

// ShiftType selects the barrel shifter operation applied to a register
// operand.
type ShiftType uint8

// Shift types, as encoded in bits 5..6 of a data-processing operand.
const (
	ShiftLSL ShiftType = 0
	ShiftLSR ShiftType = 1
	ShiftASR ShiftType = 2
	ShiftROR ShiftType = 3
)

var shiftStrings = [...]string{"LSL", "LSR", "ASR", "ROR"}

// String returns the uppercase shift mnemonic used in the trace.
func (s ShiftType) String() string {
	return shiftStrings[s&3]
}

// Instruction is a decoded ARM or Thumb instruction. Only the fields
// meaningful for the instruction's Format are populated.
type Instruction struct {
	Raw    uint32 // original encoding (low 16 bits for Thumb)
	Op     Op
	Format Format
	Cond   Cond

	// Register fields.
	Rd uint8
	Rn uint8
	Rm uint8
	Rs uint8

	// Imm is the raw immediate field; its width and scaling depend on
	// the Format.
	Imm uint32

	// ARM single/block transfer and data-processing flag bits.
	I bool // immediate operand (data processing) / register offset (transfer)
	P bool // pre-index
	U bool // up (add offset)
	B bool // byte transfer
	W bool // writeback
	S bool // set flags
	L bool // load / link

	// RegList is the transfer register bitmap for LDM/STM, PUSH/POP and
	// the Thumb multiple forms.
	RegList uint16

	// BranchOffset is the displacement already scaled and adjusted for
	// the PC-ahead convention, ready to add to the post-increment PC.
	BranchOffset int32
}

// ShiftAmount returns the immediate shift amount encoded in bits 7..11.
func (i *Instruction) ShiftAmount() uint32 {
	return (i.Raw >> 7) & 0x1F
}

// ShiftKind returns the shift type encoded in bits 5..6.
func (i *Instruction) ShiftKind() ShiftType {
	return ShiftType((i.Raw >> 5) & 3)
}

// ShiftSuffix returns the trace suffix for a register operand shift, such
// as ",LSL#4". It is empty when the shift amount is zero.
func (i *Instruction) ShiftSuffix() string {
	amt := i.ShiftAmount()
	if amt == 0 {
		return ""
	}
	return "," + i.ShiftKind().String() + "#" + utoa(amt)
}

// utoa formats a small unsigned value in decimal without pulling strconv
// into every call site.
func utoa(v uint32) string {
	if v == 0 {
		return "0"
	}
	var buf [10]byte
	pos := len(buf)
	for v > 0 {
		pos--
		buf[pos] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[pos:])
}

// Decoder decodes ARM and Thumb machine code into instructions.
type Decoder struct{}

// NewDecoder creates a new instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode decodes a 32-bit ARM instruction word.
func (d *Decoder) Decode(opcode uint32) *Instruction {
	inst := &Instruction{
		Raw:  opcode,
		Cond: Cond(opcode >> 28),
		Rn:   uint8((opcode >> 16) & 0xF),
		Rd:   uint8((opcode >> 12) & 0xF),
		Rs:   uint8((opcode >> 8) & 0xF),
		Rm:   uint8(opcode & 0xF),
		I:    (opcode>>25)&1 != 0,
		P:    (opcode>>24)&1 != 0,
		U:    (opcode>>23)&1 != 0,
		B:    (opcode>>22)&1 != 0,
		W:    (opcode>>21)&1 != 0,
		S:    (opcode>>20)&1 != 0,
		L:    (opcode>>20)&1 != 0,
	}

	// BX/BLX register form sits inside the data-processing space and is
	// matched before the primary dispatch.
	if (opcode>>8)&0xFFFFF == 0x12FFF {
		inst.Format = FormatBranchExchange
		if (opcode>>5)&1 != 0 {
			inst.Op = OpBLX
		} else {
			inst.Op = OpBX
		}
		return inst
	}

	if opcode>>24 == 0xEF {
		inst.Format = FormatSoftwareInterrupt
		inst.Op = OpSWI
		inst.Imm = opcode & 0xFF
		return inst
	}

	switch (opcode >> 26) & 3 {
	case 0:
		d.decodeDataProcessing(opcode, inst)
		return inst
	case 1:
		inst.Format = FormatSingleDataTransfer
		inst.Imm = opcode & 0xFFF
		if inst.L {
			if inst.B {
				inst.Op = OpLDRB
			} else {
				inst.Op = OpLDR
			}
		} else {
			if inst.B {
				inst.Op = OpSTRB
			} else {
				inst.Op = OpSTR
			}
		}
		return inst
	}

	switch (opcode >> 25) & 7 {
	case 4:
		inst.Format = FormatBlockDataTransfer
		inst.RegList = uint16(opcode & 0xFFFF)
		if inst.L {
			inst.Op = OpLDM
		} else {
			inst.Op = OpSTM
		}
	case 5:
		inst.Format = FormatBranch
		if opcode&(1<<24) != 0 {
			inst.Op = OpBL
			inst.L = true
		} else {
			inst.Op = OpB
			inst.L = false
		}
		inst.BranchOffset = branchOffsetARM(opcode)
	case 7:
		inst.Format = FormatCoprocessor
		inst.Op = OpMRC
	default:
		inst.Format = FormatUnknown
		inst.Op = OpUnknown
	}

	return inst
}

// branchOffsetARM scales and sign-extends the 24-bit branch immediate and
// folds in the extra word of PC read-ahead, matching the interpreter's
// convention that PC already points past the fetched instruction.
func branchOffsetARM(opcode uint32) int32 {
	imm := (opcode & 0xFFFFFF) << 2
	if imm&(1<<25) != 0 {
		imm |= ^uint32(0x3FFFFFF)
	}
	return int32(imm + 4)
}

// dataProcessingOps maps the sub-opcode in bits 21..24 to the operation,
// for the S-bit variants of rows 8..11.
var dataProcessingOps = [16]Op{
	OpAND, OpEOR, OpSUB, OpRSB, OpADD, OpADC, OpSBC, OpRSC,
	OpTST, OpTEQ, OpCMP, OpCMN, OpORR, OpMOV, OpBIC, OpMVN,
}

func (d *Decoder) decodeDataProcessing(opcode uint32, inst *Instruction) {
	sub := (opcode >> 21) & 0xF
	inst.Imm = opcode & 0xFF
	inst.Op = dataProcessingOps[sub]
	inst.Format = FormatDataProcessing

	// Rows 8..11 without the S bit are the PSR transfer encodings.
	if !inst.S {
		switch sub {
		case 8:
			inst.Op = OpMRS
			inst.Format = FormatPSRTransfer
		case 9:
			inst.Op = OpMSR
			inst.Format = FormatPSRTransfer
		case 10:
			inst.Op = OpMRS2
			inst.Format = FormatPSRTransfer
		case 11:
			inst.Op = OpMSR2
			inst.Format = FormatPSRTransfer
		}
	}
}
