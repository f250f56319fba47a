// Package icache provides an instruction-fetch cache built on Akita
// cache components. It keeps tag state and LRU ordering in an Akita
// cache directory and fills blocks from a backing store; only hit/miss
// bookkeeping is modeled, never timing.
package icache

import (
	"encoding/binary"

	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// Config holds cache geometry.
type Config struct {
	// Size in bytes.
	Size int
	// Associativity (number of ways).
	Associativity int
	// BlockSize in bytes.
	BlockSize int
	// ByteOrder interprets halfwords and words inside a block. Defaults
	// to big-endian, matching the memory manager's default layout.
	ByteOrder binary.ByteOrder
}

// DefaultConfig is an 8 KiB 2-way cache with 16-byte blocks, plenty for
// the loops an interpreted program actually runs.
func DefaultConfig() Config {
	return Config{
		Size:          8 * 1024,
		Associativity: 2,
		BlockSize:     16,
	}
}

// Statistics holds fetch statistics.
type Statistics struct {
	Reads     uint64
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// BackingStore is the next level behind the cache.
type BackingStore interface {
	// Read fetches raw bytes from the backing store.
	Read(addr uint32, size int) []byte
}

// Cache is a read-only set-associative instruction cache.
type Cache struct {
	config Config

	// Akita cache directory for tag/state management.
	directory *akitacache.DirectoryImpl

	// Data storage, indexed by (setID * associativity + wayID).
	dataStore [][]byte

	stats Statistics

	backing BackingStore
}

// New creates a cache with the given configuration over a backing store.
func New(config Config, backing BackingStore) *Cache {
	if config.ByteOrder == nil {
		config.ByteOrder = binary.BigEndian
	}

	numSets := config.Size / (config.Associativity * config.BlockSize)
	totalBlocks := numSets * config.Associativity

	dataStore := make([][]byte, totalBlocks)
	for i := range dataStore {
		dataStore[i] = make([]byte, config.BlockSize)
	}

	return &Cache{
		config: config,
		directory: akitacache.NewDirectory(
			numSets,
			config.Associativity,
			config.BlockSize,
			akitacache.NewLRUVictimFinder(),
		),
		dataStore: dataStore,
		backing:   backing,
	}
}

// Config returns the cache configuration.
func (c *Cache) Config() Config {
	return c.config
}

// Stats returns fetch statistics.
func (c *Cache) Stats() Statistics {
	return c.stats
}

// blockIndex computes the index into dataStore for a block.
func (c *Cache) blockIndex(block *akitacache.Block) int {
	return block.SetID*c.config.Associativity + block.WayID
}

// read returns size bytes starting at addr. Accesses are expected not to
// straddle a block boundary; opcode fetches are aligned and narrower
// than any sane block size.
func (c *Cache) read(addr uint32, size int) []byte {
	c.stats.Reads++

	blockSize := uint64(c.config.BlockSize)
	blockAddr := uint64(addr) / blockSize * blockSize
	offset := uint64(addr) % blockSize

	block := c.directory.Lookup(0, blockAddr)
	if block != nil && block.IsValid {
		c.stats.Hits++
		c.directory.Visit(block)

		data := c.dataStore[c.blockIndex(block)]
		return data[offset : offset+uint64(size)]
	}

	c.stats.Misses++

	victim := c.directory.FindVictim(blockAddr)
	if victim == nil {
		// Bypass the cache entirely; the directory is misconfigured.
		return c.backing.Read(addr, size)
	}

	if victim.IsValid {
		c.stats.Evictions++
	}

	victimData := c.dataStore[c.blockIndex(victim)]
	copy(victimData, c.backing.Read(uint32(blockAddr), c.config.BlockSize))

	victim.Tag = blockAddr
	victim.IsValid = true
	victim.IsDirty = false
	c.directory.Visit(victim)

	return victimData[offset : offset+uint64(size)]
}

// Read32 fetches a word through the cache.
func (c *Cache) Read32(addr uint32) uint32 {
	return c.config.ByteOrder.Uint32(c.read(addr, 4))
}

// Read16 fetches a halfword through the cache.
func (c *Cache) Read16(addr uint32) uint16 {
	return c.config.ByteOrder.Uint16(c.read(addr, 2))
}

// InvalidateAll drops every cached block. Statistics survive.
func (c *Cache) InvalidateAll() {
	c.directory = akitacache.NewDirectory(
		c.config.Size/(c.config.Associativity*c.config.BlockSize),
		c.config.Associativity,
		c.config.BlockSize,
		akitacache.NewLRUVictimFinder(),
	)
	for i := range c.dataStore {
		for j := range c.dataStore[i] {
			c.dataStore[i][j] = 0
		}
	}
}
