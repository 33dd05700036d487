package raster

import (
	"sync"

	"github.com/airbusgeo/coverstore/internal/metrics"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of blocks of the default block cache
const DefaultCacheSize = 1024

// BlockKey identifies a block of a band of a dataset or of one of its overviews
type BlockKey struct {
	// Dataset is the id of the dataset owning the block
	Dataset uint64
	// Level is 0 for the full resolution, i+1 for the overview i
	Level int
	Band  int
	X, Y  int
}

// Block is a cached block. Its data can only be accessed between TryGet/Acquire and Release.
type Block struct {
	Key   BlockKey
	Data  []byte
	mu    sync.Mutex
	valid bool
}

// MarkValid must be called once the data of the block is fully written
func (b *Block) MarkValid() {
	b.valid = true
}

// Valid returns true if the block data has been written
func (b *Block) Valid() bool {
	return b.valid
}

// BlockCache stores decoded blocks.
type BlockCache interface {
	// TryGet returns the locked block if it is present and valid
	TryGet(key BlockKey) (*Block, bool)
	// Acquire returns the locked block, creating it (invalid) if it is absent
	Acquire(key BlockKey, size int) *Block
	// Release unlocks the block. A block that has not been marked valid is removed from the cache.
	Release(b *Block)
}

// LRUBlockCache is a BlockCache keeping the most recently used blocks
type LRUBlockCache struct {
	mu sync.Mutex
	c  *lru.Cache[BlockKey, *Block]
}

var _ BlockCache = &LRUBlockCache{}

// NewLRUBlockCache creates a cache of size blocks
func NewLRUBlockCache(size int) (*LRUBlockCache, error) {
	c, err := lru.NewWithEvict(size, func(BlockKey, *Block) { metrics.ObserveBlockEviction() })
	if err != nil {
		return nil, err
	}
	return &LRUBlockCache{c: c}, nil
}

// TryGet implements BlockCache
func (lc *LRUBlockCache) TryGet(key BlockKey) (*Block, bool) {
	lc.mu.Lock()
	b, ok := lc.c.Get(key)
	lc.mu.Unlock()
	if !ok {
		return nil, false
	}
	b.mu.Lock()
	if !b.valid {
		b.mu.Unlock()
		return nil, false
	}
	return b, true
}

// Acquire implements BlockCache
func (lc *LRUBlockCache) Acquire(key BlockKey, size int) *Block {
	lc.mu.Lock()
	b, ok := lc.c.Get(key)
	if !ok {
		b = &Block{Key: key, Data: make([]byte, size)}
		lc.c.Add(key, b)
	}
	lc.mu.Unlock()
	b.mu.Lock()
	return b
}

// Release implements BlockCache
func (lc *LRUBlockCache) Release(b *Block) {
	if !b.valid {
		lc.mu.Lock()
		if cur, ok := lc.c.Peek(b.Key); ok && cur == b {
			lc.c.Remove(b.Key)
		}
		lc.mu.Unlock()
	}
	b.mu.Unlock()
}

// Len returns the number of blocks in the cache
func (lc *LRUBlockCache) Len() int {
	return lc.c.Len()
}
