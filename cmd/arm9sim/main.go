// Package main provides the arm9sim command line interface.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sarchlab/arm9sim/emu"
	"github.com/sarchlab/arm9sim/icache"
	"github.com/sarchlab/arm9sim/loader"
	"github.com/sarchlab/arm9sim/mem"
)

// stackSize is the 8 KiB stack mapped just below the top of the address
// space. SP itself is left for the program to initialize.
const stackSize = 8 * 1024

var (
	useICache    = flag.Bool("icache", false, "Fetch opcodes through an instruction cache and report statistics")
	detectEndian = flag.Bool("detect-endian", false, "Honor the ELF EI_DATA byte instead of assuming a foreign-endian image")
)

func main() {
	flag.Parse()

	args := flag.Args()
	if len(args) < 3 {
		fmt.Fprintf(os.Stderr, "[USAGE]: %s [options] [b <binary file> | e <elf file>] <# of steps> (breakpoint)\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	steps, err := strconv.Atoi(args[2])
	if err != nil {
		fmt.Fprintln(os.Stderr, "[ERROR]: Invalid step count!")
		os.Exit(1)
	}

	memory := mem.NewManager()

	var entry uint32
	switch args[0] {
	case "b":
		entry, err = loader.LoadBinary(args[1], memory)
		if err != nil {
			fmt.Fprintln(os.Stderr, "[ERROR]: Could not load the binary file!")
			os.Exit(1)
		}
	case "e":
		var opts []loader.LoadOption
		if *detectEndian {
			opts = append(opts, loader.WithEndianDetection())
		}
		entry, err = loader.LoadELF(args[1], memory, opts...)
		if err != nil {
			fmt.Fprintln(os.Stderr, "[ERROR]: Could not load the ELF file!")
			os.Exit(1)
		}
	default:
		fmt.Fprintln(os.Stderr, "[ERROR]: Invalid option!")
		os.Exit(1)
	}

	// The fetch cache picks up the manager's byte order, which the ELF
	// loader may have switched during endian detection.
	var emuOpts []emu.EmulatorOption
	var fetchCache *icache.Cache
	if *useICache {
		cfg := icache.DefaultConfig()
		cfg.ByteOrder = memory.ByteOrder()
		fetchCache = icache.New(cfg, icache.NewManagerBacking(memory))
		emuOpts = append(emuOpts, emu.WithFetchCache(fetchCache))
	}

	cpu := emu.NewEmulator(memory, emuOpts...)

	if len(args) >= 4 {
		address, err := strconv.ParseUint(strings.TrimPrefix(args[3], "0x"), 16, 32)
		if err != nil {
			fmt.Fprintln(os.Stderr, "[ERROR]: Invalid breakpoint address!")
			os.Exit(1)
		}
		cpu.BreakAdd(uint32(address))
	}

	memory.Create(0xFFFFFFFF-stackSize+1, stackSize)

	cpu.SetPC(entry)
	cpu.Run(steps)
	fmt.Println()

	cpu.DumpRegs()
	fmt.Println()

	cpu.DumpStack(8)

	if fetchCache != nil {
		stats := fetchCache.Stats()
		fmt.Printf("\nICACHE: %d reads, %d hits, %d misses, %d evictions\n",
			stats.Reads, stats.Hits, stats.Misses, stats.Evictions)
	}

	memory.Destroy()
}
