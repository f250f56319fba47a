package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/arm9sim/insts"
)

var _ = Describe("DecodeThumb", func() {
	var decoder *insts.Decoder

	BeforeEach(func() {
		decoder = insts.NewDecoder()
	})

	Describe("shift and add/sub family", func() {
		// LSL r0, r1, #4 -> 0x0108
		It("should decode LSL immediate", func() {
			inst := decoder.DecodeThumb(0x0108)

			Expect(inst.Op).To(Equal(insts.OpLSL))
			Expect(inst.Format).To(Equal(insts.FormatThumbShiftImm))
			Expect(inst.Rd).To(Equal(uint8(0)))
			Expect(inst.Rm).To(Equal(uint8(1)))
			Expect(inst.Imm).To(Equal(uint32(4)))
		})

		// ADD r0, r1, r2 -> 0x1888
		It("should decode ADD register", func() {
			inst := decoder.DecodeThumb(0x1888)

			Expect(inst.Op).To(Equal(insts.OpADD))
			Expect(inst.Format).To(Equal(insts.FormatThumbAddSub))
			Expect(inst.I).To(BeFalse())
			Expect(inst.Rd).To(Equal(uint8(0)))
			Expect(inst.Rm).To(Equal(uint8(1)))
			Expect(inst.Rn).To(Equal(uint8(2)))
		})

		// SUB r2, r3, #5 -> 0x1F5A
		It("should decode SUB 3-bit immediate", func() {
			inst := decoder.DecodeThumb(0x1F5A)

			Expect(inst.Op).To(Equal(insts.OpSUB))
			Expect(inst.I).To(BeTrue())
			Expect(inst.Rd).To(Equal(uint8(2)))
			Expect(inst.Rm).To(Equal(uint8(3)))
			Expect(inst.Imm).To(Equal(uint32(5)))
		})
	})

	Describe("8-bit immediate family", func() {
		// MOV r3, #0x42 -> 0x2342
		It("should decode MOV immediate", func() {
			inst := decoder.DecodeThumb(0x2342)

			Expect(inst.Op).To(Equal(insts.OpMOV))
			Expect(inst.Format).To(Equal(insts.FormatThumbImmediate))
			Expect(inst.Rd).To(Equal(uint8(3)))
			Expect(inst.Imm).To(Equal(uint32(0x42)))
		})

		// CMP r1, #0 -> 0x2900
		It("should decode CMP immediate", func() {
			inst := decoder.DecodeThumb(0x2900)

			Expect(inst.Op).To(Equal(insts.OpCMP))
			Expect(inst.Rd).To(Equal(uint8(1)))
			Expect(inst.Imm).To(Equal(uint32(0)))
		})
	})

	Describe("two-register ALU family", func() {
		It("should decode every sub-opcode", func() {
			ops := []insts.Op{
				insts.OpAND, insts.OpEOR, insts.OpLSL, insts.OpLSR,
				insts.OpASR, insts.OpADC, insts.OpSBC, insts.OpROR,
				insts.OpTST, insts.OpNEG, insts.OpCMP, insts.OpCMN,
				insts.OpORR, insts.OpMUL, insts.OpBIC, insts.OpMVN,
			}
			for sub, want := range ops {
				opcode := uint16(0x4000 | sub<<6 | 1<<3 | 2)
				inst := decoder.DecodeThumb(opcode)

				Expect(inst.Op).To(Equal(want), "sub-opcode %d", sub)
				Expect(inst.Format).To(Equal(insts.FormatThumbALU))
				Expect(inst.Rd).To(Equal(uint8(2)))
				Expect(inst.Rm).To(Equal(uint8(1)))
			}
		})
	})

	Describe("high register family", func() {
		// ADD r8, r2 -> 0x4490
		It("should decode ADD with a high destination", func() {
			inst := decoder.DecodeThumb(0x4490)

			Expect(inst.Op).To(Equal(insts.OpADD))
			Expect(inst.Format).To(Equal(insts.FormatThumbHiReg))
			Expect(inst.Rd).To(Equal(uint8(8)))
			Expect(inst.Rm).To(Equal(uint8(2)))
		})

		// MOV r8, r8 -> 0x46C0 is the canonical NOP
		It("should decode mov r8, r8 as NOP", func() {
			inst := decoder.DecodeThumb(0x46C0)

			Expect(inst.Op).To(Equal(insts.OpNOP))
		})

		// BX r3 -> 0x4718
		It("should decode BX", func() {
			inst := decoder.DecodeThumb(0x4718)

			Expect(inst.Op).To(Equal(insts.OpBX))
			Expect(inst.Format).To(Equal(insts.FormatThumbBranchExchange))
			Expect(inst.Rm).To(Equal(uint8(3)))
		})

		// BLX r3 -> 0x4798
		It("should decode BLX", func() {
			inst := decoder.DecodeThumb(0x4798)

			Expect(inst.Op).To(Equal(insts.OpBLX))
			Expect(inst.Format).To(Equal(insts.FormatThumbBranchExchange))
			Expect(inst.Rm).To(Equal(uint8(3)))
		})
	})

	Describe("loads and stores", func() {
		// LDR r1, [pc, #8] -> 0x4902
		It("should decode a PC-relative load", func() {
			inst := decoder.DecodeThumb(0x4902)

			Expect(inst.Op).To(Equal(insts.OpLDR))
			Expect(inst.Format).To(Equal(insts.FormatThumbPCLoad))
			Expect(inst.Rd).To(Equal(uint8(1)))
			Expect(inst.Imm).To(Equal(uint32(8)))
		})

		// STR r0, [r1, r2] -> 0x5088
		It("should decode a register-offset store", func() {
			inst := decoder.DecodeThumb(0x5088)

			Expect(inst.Op).To(Equal(insts.OpSTR))
			Expect(inst.Format).To(Equal(insts.FormatThumbLoadStoreReg))
			Expect(inst.Rd).To(Equal(uint8(0)))
			Expect(inst.Rn).To(Equal(uint8(1)))
			Expect(inst.Rm).To(Equal(uint8(2)))
		})

		// LDR r2, [r1, #4] -> 0x684A
		It("should scale the word immediate offset", func() {
			inst := decoder.DecodeThumb(0x684A)

			Expect(inst.Op).To(Equal(insts.OpLDR))
			Expect(inst.Format).To(Equal(insts.FormatThumbLoadStoreImm))
			Expect(inst.Rd).To(Equal(uint8(2)))
			Expect(inst.Rn).To(Equal(uint8(1)))
			Expect(inst.Imm).To(Equal(uint32(4)))
		})

		// LDRB r2, [r1, #1] -> 0x784A
		It("should leave the byte immediate offset unscaled", func() {
			inst := decoder.DecodeThumb(0x784A)

			Expect(inst.Op).To(Equal(insts.OpLDRB))
			Expect(inst.Imm).To(Equal(uint32(1)))
		})

		// STRH r0, [r1, #2] -> 0x8048
		It("should scale the halfword immediate offset", func() {
			inst := decoder.DecodeThumb(0x8048)

			Expect(inst.Op).To(Equal(insts.OpSTRH))
			Expect(inst.Format).To(Equal(insts.FormatThumbLoadStoreHalf))
			Expect(inst.Imm).To(Equal(uint32(2)))
		})

		// LDR r1, [sp, #12] -> 0x9903
		It("should decode SP-relative loads", func() {
			inst := decoder.DecodeThumb(0x9903)

			Expect(inst.Op).To(Equal(insts.OpLDR))
			Expect(inst.Format).To(Equal(insts.FormatThumbLoadStoreSP))
			Expect(inst.Rd).To(Equal(uint8(1)))
			Expect(inst.Imm).To(Equal(uint32(12)))
		})
	})

	Describe("stack family", func() {
		// ADD sp, #16 -> 0xB004
		It("should decode SP adjustment upward", func() {
			inst := decoder.DecodeThumb(0xB004)

			Expect(inst.Op).To(Equal(insts.OpADD))
			Expect(inst.Format).To(Equal(insts.FormatThumbAdjustSP))
			Expect(inst.Imm).To(Equal(uint32(16)))
		})

		// SUB sp, #16 -> 0xB084
		It("should decode SP adjustment downward", func() {
			inst := decoder.DecodeThumb(0xB084)

			Expect(inst.Op).To(Equal(insts.OpSUB))
			Expect(inst.Imm).To(Equal(uint32(16)))
		})

		// PUSH {r0, r1, lr} -> 0xB503
		It("should decode PUSH with LR", func() {
			inst := decoder.DecodeThumb(0xB503)

			Expect(inst.Op).To(Equal(insts.OpPUSH))
			Expect(inst.Format).To(Equal(insts.FormatThumbPushPop))
			Expect(inst.RegList).To(Equal(uint16(0x03)))
			Expect(inst.L).To(BeTrue())
		})

		// POP {r0, r1, pc} -> 0xBD03
		It("should decode POP with PC", func() {
			inst := decoder.DecodeThumb(0xBD03)

			Expect(inst.Op).To(Equal(insts.OpPOP))
			Expect(inst.RegList).To(Equal(uint16(0x03)))
			Expect(inst.L).To(BeTrue())
		})

		// STMIA r0!, {r1, r2} -> 0xC006
		It("should decode STMIA", func() {
			inst := decoder.DecodeThumb(0xC006)

			Expect(inst.Op).To(Equal(insts.OpSTM))
			Expect(inst.Format).To(Equal(insts.FormatThumbMultiple))
			Expect(inst.Rn).To(Equal(uint8(0)))
			Expect(inst.RegList).To(Equal(uint16(0x06)))
		})
	})

	Describe("branches", func() {
		// BEQ +4 -> 0xD002: offset = 2*2 + 2 = 6
		It("should decode a forward conditional branch", func() {
			inst := decoder.DecodeThumb(0xD002)

			Expect(inst.Op).To(Equal(insts.OpB))
			Expect(inst.Format).To(Equal(insts.FormatThumbCondBranch))
			Expect(inst.Cond).To(Equal(insts.CondEQ))
			Expect(inst.BranchOffset).To(Equal(int32(6)))
		})

		// BNE backwards -> 0xD1FC: signext(0xFC)<<1 + 2 = -8 + 2... -6
		It("should sign-extend a backward conditional branch", func() {
			inst := decoder.DecodeThumb(0xD1FC)

			Expect(inst.Cond).To(Equal(insts.CondNE))
			Expect(inst.BranchOffset).To(Equal(int32(-6)))
		})

		// SWI 0x10 -> 0xDF10
		It("should decode SWI out of the conditional branch family", func() {
			inst := decoder.DecodeThumb(0xDF10)

			Expect(inst.Op).To(Equal(insts.OpSWI))
			Expect(inst.Format).To(Equal(insts.FormatThumbSWI))
			Expect(inst.Imm).To(Equal(uint32(0x10)))
		})

		// B +8 -> 0xE004: offset = 8 + 2
		It("should decode a forward unconditional branch", func() {
			inst := decoder.DecodeThumb(0xE004)

			Expect(inst.Op).To(Equal(insts.OpB))
			Expect(inst.Format).To(Equal(insts.FormatThumbBranch))
			Expect(inst.BranchOffset).To(Equal(int32(10)))
		})

		// BL prefix -> 0xF008 carries the high offset bits
		It("should decode the long branch prefix", func() {
			inst := decoder.DecodeThumb(0xF008)

			Expect(inst.Op).To(Equal(insts.OpBL))
			Expect(inst.Format).To(Equal(insts.FormatThumbLongBranch))
			Expect(inst.Imm).To(Equal(uint32(8) << 12))
		})
	})

	Describe("unknown encodings", func() {
		It("should reject the signed register-offset forms", func() {
			// LDSB r0, [r1, r2] -> 0x5688
			inst := decoder.DecodeThumb(0x5688)

			Expect(inst.Op).To(Equal(insts.OpUnknown))
			Expect(inst.Format).To(Equal(insts.FormatUnknown))
		})
	})
})
