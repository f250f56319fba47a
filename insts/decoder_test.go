package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/arm9sim/insts"
)

var _ = Describe("Decoder", func() {
	var decoder *insts.Decoder

	BeforeEach(func() {
		decoder = insts.NewDecoder()
	})

	Describe("data processing", func() {
		// MOV r1, #0x64 -> 0xE3A01064
		// cond=AL, I=1, sub=1101, S=0, Rd=1, imm=0x64
		It("should decode MOV r1, #0x64", func() {
			inst := decoder.Decode(0xE3A01064)

			Expect(inst.Op).To(Equal(insts.OpMOV))
			Expect(inst.Format).To(Equal(insts.FormatDataProcessing))
			Expect(inst.Cond).To(Equal(insts.CondAL))
			Expect(inst.I).To(BeTrue())
			Expect(inst.S).To(BeFalse())
			Expect(inst.Rd).To(Equal(uint8(1)))
			Expect(inst.Imm).To(Equal(uint32(0x64)))
		})

		// ADDS r2, r0, r1 -> 0xE0902001
		It("should decode ADDS r2, r0, r1", func() {
			inst := decoder.Decode(0xE0902001)

			Expect(inst.Op).To(Equal(insts.OpADD))
			Expect(inst.I).To(BeFalse())
			Expect(inst.S).To(BeTrue())
			Expect(inst.Rd).To(Equal(uint8(2)))
			Expect(inst.Rn).To(Equal(uint8(0)))
			Expect(inst.Rm).To(Equal(uint8(1)))
		})

		// SUBNE r3, r4, #1 -> cond=NE(0001), I=1, sub=0010, S=0
		It("should decode a conditional SUB immediate", func() {
			inst := decoder.Decode(0x12443001)

			Expect(inst.Op).To(Equal(insts.OpSUB))
			Expect(inst.Cond).To(Equal(insts.CondNE))
			Expect(inst.Rd).To(Equal(uint8(3)))
			Expect(inst.Rn).To(Equal(uint8(4)))
			Expect(inst.Imm).To(Equal(uint32(1)))
		})

		// CMP r3, r4 -> 0xE1530004 (sub=1010, S=1)
		It("should decode CMP as a compare, not a PSR transfer", func() {
			inst := decoder.Decode(0xE1530004)

			Expect(inst.Op).To(Equal(insts.OpCMP))
			Expect(inst.Format).To(Equal(insts.FormatDataProcessing))
			Expect(inst.Rn).To(Equal(uint8(3)))
			Expect(inst.Rm).To(Equal(uint8(4)))
		})

		// MOVS r0, r1, LSL #4 -> 0xE1B00201
		It("should expose the shift fields of a register operand", func() {
			inst := decoder.Decode(0xE1B00201)

			Expect(inst.Op).To(Equal(insts.OpMOV))
			Expect(inst.S).To(BeTrue())
			Expect(inst.ShiftAmount()).To(Equal(uint32(4)))
			Expect(inst.ShiftKind()).To(Equal(insts.ShiftLSL))
			Expect(inst.ShiftSuffix()).To(Equal(",LSL#4"))
		})
	})

	Describe("PSR transfers", func() {
		// MRS r0, cpsr -> 0xE10F0000 (sub=1000, S=0)
		It("should decode MRS when the S bit is clear", func() {
			inst := decoder.Decode(0xE10F0000)

			Expect(inst.Op).To(Equal(insts.OpMRS))
			Expect(inst.Format).To(Equal(insts.FormatPSRTransfer))
			Expect(inst.Rd).To(Equal(uint8(0)))
		})

		// MSR cpsr, r2 (register form carries the I bit here)
		It("should decode MSR when the S bit is clear", func() {
			inst := decoder.Decode(0xE329F002)

			Expect(inst.Op).To(Equal(insts.OpMSR))
			Expect(inst.Format).To(Equal(insts.FormatPSRTransfer))
		})
	})

	Describe("branch exchange", func() {
		// BX r3 -> 0xE12FFF13
		It("should decode BX", func() {
			inst := decoder.Decode(0xE12FFF13)

			Expect(inst.Op).To(Equal(insts.OpBX))
			Expect(inst.Format).To(Equal(insts.FormatBranchExchange))
			Expect(inst.Rm).To(Equal(uint8(3)))
		})

		// BLX r3 -> 0xE12FFF33
		It("should decode BLX", func() {
			inst := decoder.Decode(0xE12FFF33)

			Expect(inst.Op).To(Equal(insts.OpBLX))
			Expect(inst.Rm).To(Equal(uint8(3)))
		})
	})

	Describe("single data transfer", func() {
		// LDR r2, [r1] -> 0xE5912000
		It("should decode LDR with an immediate offset", func() {
			inst := decoder.Decode(0xE5912000)

			Expect(inst.Op).To(Equal(insts.OpLDR))
			Expect(inst.Format).To(Equal(insts.FormatSingleDataTransfer))
			Expect(inst.L).To(BeTrue())
			Expect(inst.P).To(BeTrue())
			Expect(inst.U).To(BeTrue())
			Expect(inst.Rd).To(Equal(uint8(2)))
			Expect(inst.Rn).To(Equal(uint8(1)))
		})

		// STRB r0, [r5] -> 0xE5C50000
		It("should decode STRB", func() {
			inst := decoder.Decode(0xE5C50000)

			Expect(inst.Op).To(Equal(insts.OpSTRB))
			Expect(inst.B).To(BeTrue())
			Expect(inst.L).To(BeFalse())
		})
	})

	Describe("block data transfer", func() {
		// STMDB r13!, {r0, r1, lr} -> 0xE92D4003
		It("should decode STM with its register list", func() {
			inst := decoder.Decode(0xE92D4003)

			Expect(inst.Op).To(Equal(insts.OpSTM))
			Expect(inst.Format).To(Equal(insts.FormatBlockDataTransfer))
			Expect(inst.Rn).To(Equal(uint8(13)))
			Expect(inst.W).To(BeTrue())
			Expect(inst.RegList).To(Equal(uint16(0x4003)))
		})

		// LDMIA r0, {r1, r2} -> 0xE8900006
		It("should decode LDM", func() {
			inst := decoder.Decode(0xE8900006)

			Expect(inst.Op).To(Equal(insts.OpLDM))
			Expect(inst.RegList).To(Equal(uint16(0x0006)))
		})
	})

	Describe("branches", func() {
		// BL +0x10 (field 2) at any PC -> 0xEB000002
		It("should decode BL with the read-ahead folded into the offset", func() {
			inst := decoder.Decode(0xEB000002)

			Expect(inst.Op).To(Equal(insts.OpBL))
			Expect(inst.Format).To(Equal(insts.FormatBranch))
			Expect(inst.BranchOffset).To(Equal(int32(12)))
		})

		// B backwards by 8 (field 0xFFFFFC): offset = -16+4 = -12
		It("should sign-extend a backward branch", func() {
			inst := decoder.Decode(0xEAFFFFFC)

			Expect(inst.Op).To(Equal(insts.OpB))
			Expect(inst.BranchOffset).To(Equal(int32(-12)))
		})
	})

	Describe("system encodings", func() {
		It("should decode SWI", func() {
			inst := decoder.Decode(0xEF000042)

			Expect(inst.Op).To(Equal(insts.OpSWI))
			Expect(inst.Imm).To(Equal(uint32(0x42)))
		})

		// MRC p15, 0, r0, c0, c0, 0 -> 0xEE100F10
		It("should recognize the coprocessor class", func() {
			inst := decoder.Decode(0xEE100F10)

			Expect(inst.Op).To(Equal(insts.OpMRC))
			Expect(inst.Format).To(Equal(insts.FormatCoprocessor))
		})
	})
})
