// Package main provides the entry point for arm9sim.
// arm9sim is an ARM9 instruction-set interpreter with ARM and Thumb support.
//
// For the full CLI, use: go run ./cmd/arm9sim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("arm9sim - ARM9 instruction-set interpreter")
	fmt.Println("")
	fmt.Println("Usage: arm9sim [options] <b|e> <image> <steps> [breakpoint]")
	fmt.Println("")
	fmt.Println("Modes:")
	fmt.Println("  b    Load a raw binary image at virtual address 0")
	fmt.Println("  e    Load a 32-bit ELF image")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/arm9sim' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/arm9sim' instead.")
	}
}
