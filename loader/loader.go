// Package loader populates the memory manager from program images: flat
// binaries placed at virtual address zero and 32-bit ELF executables.
package loader

import (
	"fmt"
	"io"
	"os"

	"github.com/sarchlab/arm9sim/mem"
)

// loadConfig carries the options shared by the loaders.
type loadConfig struct {
	log          io.Writer
	detectEndian bool
}

// LoadOption is a functional option for the loaders.
type LoadOption func(*loadConfig)

// WithLogWriter redirects the loader's report (entry point and program
// header table). It defaults to standard output.
func WithLogWriter(w io.Writer) LoadOption {
	return func(c *loadConfig) {
		c.log = w
	}
}

// WithEndianDetection makes LoadELF honor the EI_DATA byte of the ELF
// identification instead of assuming a foreign-endian image. The memory
// manager's byte order is switched to match the file. The default stays
// the legacy unconditional swap for trace compatibility.
func WithEndianDetection() LoadOption {
	return func(c *loadConfig) {
		c.detectEndian = true
	}
}

func newLoadConfig(opts []LoadOption) *loadConfig {
	c := &loadConfig{log: os.Stdout}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LoadBinary reads a flat image into a space at virtual address 0. The
// entry point of a flat image is always 0.
func LoadBinary(path string, m *mem.Manager) (uint32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read binary image: %w", err)
	}

	if !m.Create(0, uint32(len(data))) {
		return 0, fmt.Errorf("failed to create space for %q", path)
	}
	m.CopyIn(0, data)

	return 0, nil
}
