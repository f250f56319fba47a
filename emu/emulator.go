package emu

import (
	"fmt"
	"io"
	"os"

	"github.com/sarchlab/arm9sim/icache"
	"github.com/sarchlab/arm9sim/insts"
	"github.com/sarchlab/arm9sim/mem"
)

// Emulator single-steps the processor, dispatching between the ARM and
// Thumb executors on the CPSR Thumb bit and emitting one disassembled
// trace line per executed instruction.
type Emulator struct {
	regFile *RegFile
	alu     *ALU
	memory  *mem.Manager
	decoder *insts.Decoder

	fetchCache *icache.Cache

	breakpoints []uint32

	out io.Writer
}

// EmulatorOption is a functional option for configuring the Emulator.
type EmulatorOption func(*Emulator)

// WithStdout sets the writer receiving the trace and the debug dumps.
func WithStdout(w io.Writer) EmulatorOption {
	return func(e *Emulator) {
		e.out = w
	}
}

// WithFetchCache routes opcode fetches through an instruction cache.
func WithFetchCache(c *icache.Cache) EmulatorOption {
	return func(e *Emulator) {
		e.fetchCache = c
	}
}

// NewEmulator creates an emulator over the given memory manager.
func NewEmulator(memory *mem.Manager, opts ...EmulatorOption) *Emulator {
	regFile := &RegFile{}

	e := &Emulator{
		regFile: regFile,
		alu:     NewALU(&regFile.CPSR),
		memory:  memory,
		decoder: insts.NewDecoder(),
		out:     os.Stdout,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// RegFile returns the emulator's register file.
func (e *Emulator) RegFile() *RegFile {
	return e.regFile
}

// Memory returns the emulator's memory manager.
func (e *Emulator) Memory() *mem.Manager {
	return e.memory
}

// SetPC sets the program counter. The Thumb bit is left alone; loaded
// images always begin in ARM mode.
func (e *Emulator) SetPC(entry uint32) {
	e.regFile.R[RegPC] = entry
}

// Unload clears the processor state: all registers, CPSR and SPSR. The
// fetch cache, if any, is invalidated since its contents belong to the
// unloaded image.
func (e *Emulator) Unload() {
	e.regFile.Reset()
	if e.fetchCache != nil {
		e.fetchCache.InvalidateAll()
	}
}

// BreakAdd adds a breakpoint address. Adding an existing address is a
// no-op.
func (e *Emulator) BreakAdd(address uint32) {
	if e.BreakFind(address) {
		return
	}
	e.breakpoints = append(e.breakpoints, address)
}

// BreakDel removes a breakpoint address.
func (e *Emulator) BreakDel(address uint32) {
	for i, a := range e.breakpoints {
		if a == address {
			e.breakpoints = append(e.breakpoints[:i], e.breakpoints[i+1:]...)
			return
		}
	}
}

// BreakFind reports whether a breakpoint is set at the address.
func (e *Emulator) BreakFind(address uint32) bool {
	for _, a := range e.breakpoints {
		if a == address {
			return true
		}
	}
	return false
}

// fetch32 reads an ARM opcode, through the fetch cache when present.
func (e *Emulator) fetch32(address uint32) uint32 {
	if e.fetchCache != nil {
		return e.fetchCache.Read32(address)
	}
	return e.memory.Read32(address)
}

// fetch16 reads a Thumb opcode, through the fetch cache when present.
func (e *Emulator) fetch16(address uint32) uint16 {
	if e.fetchCache != nil {
		return e.fetchCache.Read16(address)
	}
	return e.memory.Read16(address)
}

// Step executes a single instruction. It returns false when the program
// counter sits on a breakpoint, in which case nothing is executed.
func (e *Emulator) Step() bool {
	// A residual Thumb tag from BX must not taint the fetch address.
	e.regFile.R[RegPC] &^= 1

	pc := e.regFile.R[RegPC]
	if e.BreakFind(pc) {
		fmt.Fprintf(e.out, "BREAKPOINT! (0x%x)\n", pc)
		return false
	}

	if e.regFile.CPSR.T {
		e.stepThumb()
	} else {
		e.stepARM()
	}

	return true
}

// Run steps the processor until the step budget is exhausted or a
// breakpoint fires. It returns the number of steps actually executed.
func (e *Emulator) Run(maxSteps int) int {
	steps := 0
	for steps < maxSteps && e.Step() {
		steps++
	}
	return steps
}

// condMet evaluates a condition code against the current flags.
func (e *Emulator) condMet(c insts.Cond) bool {
	cpsr := &e.regFile.CPSR

	switch c {
	case insts.CondEQ:
		return cpsr.Z
	case insts.CondNE:
		return !cpsr.Z
	case insts.CondCS:
		return cpsr.C
	case insts.CondCC:
		return !cpsr.C
	case insts.CondMI:
		return cpsr.N
	case insts.CondPL:
		return !cpsr.N
	case insts.CondVS:
		return cpsr.V
	case insts.CondVC:
		return !cpsr.V
	case insts.CondHI:
		return cpsr.C && !cpsr.Z
	case insts.CondLS:
		return !cpsr.C || cpsr.Z
	case insts.CondGE:
		return cpsr.N == cpsr.V
	case insts.CondLT:
		return cpsr.N != cpsr.V
	case insts.CondGT:
		return cpsr.N == cpsr.V && !cpsr.Z
	case insts.CondLE:
		return cpsr.N != cpsr.V || cpsr.Z
	case insts.CondAL:
		return true
	}

	return false
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

// DumpRegs prints all sixteen general registers, the decoded CPSR and the
// SPSR.
func (e *Emulator) DumpRegs() {
	fmt.Fprintln(e.out, "REGISTERS DUMP:")
	fmt.Fprintln(e.out, "===============")

	r := &e.regFile.R
	for i := 0; i < 16; i += 2 {
		fmt.Fprintf(e.out, "r%-2d: 0x%08X\t\tr%-2d: 0x%08X\n", i, r[i], i+1, r[i+1])
	}

	fmt.Fprintln(e.out)

	cpsr := &e.regFile.CPSR
	fmt.Fprintf(e.out, "cpsr: 0x%x (z: %d, n: %d, c: %d, v: %d, I: %d, F: %d, t: %d, mode: %d)\n",
		cpsr.Value(), b2i(cpsr.Z), b2i(cpsr.N), b2i(cpsr.C), b2i(cpsr.V),
		b2i(cpsr.I), b2i(cpsr.F), b2i(cpsr.T), cpsr.Mode)
	fmt.Fprintf(e.out, "spsr: 0x%x\n", e.regFile.SPSR)
}

// DumpStack prints count words at and above the stack pointer.
func (e *Emulator) DumpStack(count uint32) {
	fmt.Fprintln(e.out, "STACK DUMP:")
	fmt.Fprintln(e.out, "===========")

	for i := uint32(0); i < count; i++ {
		addr := e.regFile.R[RegSP] + i<<2
		fmt.Fprintf(e.out, "[%02d] 0x%08X\n", i, e.memory.Read32(addr))
	}
}

// push stores a word below the stack pointer, moving it down first.
func (e *Emulator) push(value uint32) {
	e.regFile.R[RegSP] -= 4
	e.memory.Write32(e.regFile.R[RegSP], value)
}

// pop loads the word at the stack pointer and moves it up.
func (e *Emulator) pop() uint32 {
	addr := e.regFile.R[RegSP]
	e.regFile.R[RegSP] += 4
	return e.memory.Read32(addr)
}
