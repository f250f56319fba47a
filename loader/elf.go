package loader

import (
	"debug/elf"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/sarchlab/arm9sim/mem"
)

// LoadELF maps a 32-bit ELF executable into the memory manager and
// returns its entry point.
//
// By default every header field and every program word is byte-swapped on
// ingest, the historical contract for the big-endian images this
// interpreter consumes on little-endian hosts. WithEndianDetection
// switches to honoring the file's own EI_DATA byte instead.
//
// One space is created per program header, at p_vaddr with p_memsz
// bytes; the first p_filesz bytes are stored word by word through the
// manager. Section headers are ignored. On failure, spaces already
// created stay mapped; the caller cleans up with Destroy.
func LoadELF(path string, m *mem.Manager, opts ...LoadOption) (uint32, error) {
	cfg := newLoadConfig(opts)

	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open ELF file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var ident [elf.EI_NIDENT]byte
	if _, err := io.ReadFull(f, ident[:]); err != nil {
		return 0, fmt.Errorf("failed to read ELF identification: %w", err)
	}
	if ident[0] != '\x7f' || ident[1] != 'E' || ident[2] != 'L' || ident[3] != 'F' {
		return 0, fmt.Errorf("not an ELF file")
	}
	if elf.Class(ident[elf.EI_CLASS]) != elf.ELFCLASS32 {
		return 0, fmt.Errorf("not a 32-bit ELF file")
	}

	order := binary.ByteOrder(binary.BigEndian)
	if cfg.detectEndian {
		switch elf.Data(ident[elf.EI_DATA]) {
		case elf.ELFDATA2MSB:
			order = binary.BigEndian
		case elf.ELFDATA2LSB:
			order = binary.LittleEndian
		default:
			return 0, fmt.Errorf("unknown ELF data encoding %d", ident[elf.EI_DATA])
		}
		m.SetByteOrder(order)
	}

	var hdr elf.Header32
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return 0, fmt.Errorf("failed to rewind ELF file: %w", err)
	}
	if err := binary.Read(f, order, &hdr); err != nil {
		return 0, fmt.Errorf("failed to read ELF header: %w", err)
	}

	fmt.Fprintf(cfg.log, "Entry point: 0x%08X\n", hdr.Entry)

	phdrs := make([]elf.Prog32, hdr.Phnum)
	if _, err := f.Seek(int64(hdr.Phoff), io.SeekStart); err != nil {
		return 0, fmt.Errorf("failed to seek to program headers: %w", err)
	}
	if err := binary.Read(f, order, phdrs); err != nil {
		return 0, fmt.Errorf("failed to read program headers: %w", err)
	}

	fmt.Fprintf(cfg.log, "\nProgram headers:\n================\n")

	for i, phdr := range phdrs {
		fmt.Fprintf(cfg.log, "[%d] off    0x%08X vaddr 0x%08X paddr 0x%08X\n",
			i, phdr.Off, phdr.Vaddr, phdr.Paddr)
		fmt.Fprintf(cfg.log, "    filesz 0x%08X memsz 0x%08X flags %06X\n",
			phdr.Filesz, phdr.Memsz, phdr.Flags)

		if !m.Create(phdr.Vaddr, phdr.Memsz) {
			return 0, fmt.Errorf("failed to create space at 0x%08X", phdr.Vaddr)
		}

		if phdr.Filesz == 0 {
			continue
		}

		data := make([]byte, (phdr.Filesz+3)&^uint32(3))
		if _, err := f.Seek(int64(phdr.Off), io.SeekStart); err != nil {
			return 0, fmt.Errorf("failed to seek to segment at 0x%08X: %w", phdr.Vaddr, err)
		}
		if _, err := io.ReadFull(f, data[:phdr.Filesz]); err != nil {
			return 0, fmt.Errorf("short read for segment at 0x%08X: %w", phdr.Vaddr, err)
		}

		for j := uint32(0); j < uint32(len(data)); j += 4 {
			m.Write32(phdr.Vaddr+j, order.Uint32(data[j:j+4]))
		}
	}

	fmt.Fprintln(cfg.log)

	return hdr.Entry, nil
}
