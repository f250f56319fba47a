// Package insts provides ARM and Thumb instruction definitions and
// decoding.
//
// This package implements decoding of the 32-bit ARM ("A") encoding and
// the 16-bit Thumb ("T") encoding into structured instruction
// representations. Decoding is pure bit extraction; no processor state is
// consulted. It supports:
//   - Data processing: AND, EOR, SUB, RSB, ADD, ADC, SBC, RSC, TST, TEQ,
//     CMP, CMN, ORR, MOV, BIC, MVN and the MRS/MSR status transfers
//   - Single and block data transfer: LDR, STR, LDRB, STRB, LDM, STM
//   - Branches: B, BL, BX, BLX (register and Thumb two-halfword forms)
//   - The full Thumb dispatch cascade including PUSH/POP, SP adjustment,
//     PC-relative loads and conditional branches
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	inst := decoder.Decode(0xE3A01064) // MOV r1, #0x64
//	fmt.Printf("Op: %v, Rd: %d, Imm: %#x\n", inst.Op, inst.Rd, inst.Imm)
package insts
