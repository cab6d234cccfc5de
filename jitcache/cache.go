package jitcache

import (
	"fmt"
	"io"
	"os"
)

// MaxNumBlocks caps the cache. When it fills, the code generator flushes
// everything and starts over rather than evicting piecemeal.
const MaxNumBlocks = 65536 * 2

const physAddressMask = 0x1FFFFFFF

func blockKey(address, msrBits uint32) uint64 {
	return uint64(msrBits)<<32 | uint64(address)
}

// BlockCache indexes compiled blocks three ways: a paged fast array for
// dispatch, an exact map keyed by (address, mode bits), and a physical
// range index for write invalidation. All methods run on the CPU thread.
type BlockCache struct {
	patcher CodePatcher

	blocks []Block

	startIdx    *startIndex
	blockMap    map[uint64]int32
	ranges      rangeIndex
	validBlocks *granuleBitset

	// linksTo maps a guest address to the blocks that have an exit
	// branch targeting it.
	linksTo map[uint32][]int32

	// fifoWriteAddresses remembers guest addresses written through the
	// gather pipe, so repeated FIFO stores skip invalidation scans.
	fifoWriteAddresses map[uint32]struct{}

	consistencyErrors uint64
	logw              io.Writer
}

// Option configures a BlockCache.
type Option func(*BlockCache)

// WithLogOutput redirects diagnostics away from os.Stderr.
func WithLogOutput(w io.Writer) Option {
	return func(c *BlockCache) { c.logw = w }
}

// NewBlockCache creates an empty cache that patches host code through p.
func NewBlockCache(p CodePatcher, opts ...Option) *BlockCache {
	c := &BlockCache{
		patcher:            p,
		blocks:             make([]Block, 0, 1024),
		startIdx:           newStartIndex(),
		blockMap:           make(map[uint64]int32),
		validBlocks:        newGranuleBitset(),
		linksTo:            make(map[uint32][]int32),
		fifoWriteAddresses: make(map[uint32]struct{}),
		logw:               os.Stderr,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetNumBlocks returns the number of allocated blocks, destroyed ones
// included; slots are only reclaimed by Clear.
func (c *BlockCache) GetNumBlocks() int { return len(c.blocks) }

// IsFull reports whether the cache can take no more blocks. The last
// slot is held in reserve.
func (c *BlockCache) IsFull() bool { return len(c.blocks) >= MaxNumBlocks-1 }

// ConsistencyErrors counts operations on already-destroyed blocks.
func (c *BlockCache) ConsistencyErrors() uint64 { return c.consistencyErrors }

// AllocateBlock reserves a block number for the code generator to fill
// in. Returns a negative number when the cache is full.
func (c *BlockCache) AllocateBlock(effectiveAddress, msr uint32) int32 {
	if c.IsFull() {
		return noBlock
	}
	num := int32(len(c.blocks))
	c.blocks = append(c.blocks, Block{
		EffectiveAddress: effectiveAddress,
		MSRBits:          msr & msrModeMask,
	})
	return num
}

// GetBlock returns the block for a number from AllocateBlock.
func (c *BlockCache) GetBlock(num int32) *Block {
	return &c.blocks[num]
}

// FinalizeBlock publishes a filled-in block: it becomes reachable from
// its start address, registered for write invalidation, and linked with
// existing blocks in both directions. The code generator must have set
// the entry points, the physical address, the sizes, and the exit list.
func (c *BlockCache) FinalizeBlock(num int32) {
	b := &c.blocks[num]
	if b.finalized || b.invalid {
		c.consistencyError("finalize of block %d in state invalid=%v finalized=%v",
			num, b.invalid, b.finalized)
		return
	}
	b.finalized = true

	key := blockKey(b.EffectiveAddress, b.MSRBits)
	if old, ok := c.blockMap[key]; ok && !c.blocks[old].invalid {
		c.DestroyBlock(old)
	}
	c.blockMap[key] = num
	c.startIdx.set(b.EffectiveAddress, num)

	start, end := b.PhysicalRange()
	start &= physAddressMask
	end = start + b.OriginalSize*4
	c.ranges.insert(start, end, num)
	c.validBlocks.setRange(start>>granuleShift, (end-1)>>granuleShift)

	for i := range b.LinkData {
		exit := &b.LinkData[i]
		c.linksTo[exit.ExitAddress] = append(c.linksTo[exit.ExitAddress], num)
	}

	c.linkBlockExits(num)
	for _, linker := range c.linksTo[b.EffectiveAddress] {
		if !c.blocks[linker].invalid {
			c.linkBlockExits(linker)
		}
	}
}

// linkBlockExits patches every unlinked exit of block num whose target
// block exists in the same translation mode.
func (c *BlockCache) linkBlockExits(num int32) {
	b := &c.blocks[num]
	for i := range b.LinkData {
		exit := &b.LinkData[i]
		if exit.Linked {
			continue
		}
		target := c.lookup(exit.ExitAddress, b.MSRBits)
		if target == noBlock {
			continue
		}
		c.patcher.PatchLinkJump(exit.ExitLocation, c.blocks[target].CheckedEntry)
		exit.Linked = true
	}
}

func (c *BlockCache) lookup(address, msrBits uint32) int32 {
	num, ok := c.blockMap[blockKey(address, msrBits)]
	if !ok || c.blocks[num].invalid {
		return noBlock
	}
	return num
}

// GetBlockNumberFromStartAddress returns the block compiled for the
// guest address under the given machine state, or a negative number.
// Destroyed blocks are never returned.
func (c *BlockCache) GetBlockNumberFromStartAddress(address, msr uint32) int32 {
	msrBits := msr & msrModeMask
	if num := c.startIdx.get(address); num != noBlock {
		b := &c.blocks[num]
		if !b.invalid && b.EffectiveAddress == address && b.MSRBits == msrBits {
			return num
		}
	}
	num := c.lookup(address, msrBits)
	if num != noBlock {
		c.startIdx.set(address, num)
	}
	return num
}

// GetBlockFromStartAddress is GetBlockNumberFromStartAddress returning
// the block itself, or nil.
func (c *BlockCache) GetBlockFromStartAddress(address, msr uint32) *Block {
	num := c.GetBlockNumberFromStartAddress(address, msr)
	if num == noBlock {
		return nil
	}
	return &c.blocks[num]
}

// GetCompiledCodeFromBlock returns the dispatcher entry point of a
// block.
func (c *BlockCache) GetCompiledCodeFromBlock(num int32) uint32 {
	return c.blocks[num].NormalEntry
}

// DestroyBlock removes a block from all lookup paths and repatches its
// entry and every branch into it to fall back to the dispatcher. Host
// code currently executing the block body finishes normally.
func (c *BlockCache) DestroyBlock(num int32) {
	b := &c.blocks[num]
	if b.invalid {
		c.consistencyError("destroy of already-destroyed block %d at %#08x",
			num, b.EffectiveAddress)
		return
	}
	b.invalid = true

	delete(c.blockMap, blockKey(b.EffectiveAddress, b.MSRBits))
	if c.startIdx.get(b.EffectiveAddress) == num {
		c.startIdx.set(b.EffectiveAddress, noBlock)
	}

	start, end := b.PhysicalRange()
	start &= physAddressMask
	end = start + b.OriginalSize*4
	c.ranges.remove(start, end, num)

	// Branches into this block go back through the dispatcher.
	for _, linker := range c.linksTo[b.EffectiveAddress] {
		lb := &c.blocks[linker]
		if lb.invalid {
			continue
		}
		for i := range lb.LinkData {
			exit := &lb.LinkData[i]
			if exit.Linked && exit.ExitAddress == b.EffectiveAddress {
				c.patcher.PatchDestroyRedirect(exit.ExitLocation, exit.ExitAddress)
				exit.Linked = false
			}
		}
	}

	c.unregisterLinks(num)

	// Spurious entrances after destruction can only arrive through the
	// checked entry, from linked branches patched before this point.
	c.patcher.PatchDestroyRedirect(b.CheckedEntry, b.EffectiveAddress)
}

func (c *BlockCache) unregisterLinks(num int32) {
	b := &c.blocks[num]
	for i := range b.LinkData {
		addr := b.LinkData[i].ExitAddress
		linkers := c.linksTo[addr]
		for j, l := range linkers {
			if l == num {
				linkers[j] = linkers[len(linkers)-1]
				linkers = linkers[:len(linkers)-1]
				break
			}
		}
		if len(linkers) == 0 {
			delete(c.linksTo, addr)
		} else {
			c.linksTo[addr] = linkers
		}
	}
}

// RegisterFIFOWrite records that the guest address was stored to through
// the write-gather pipe. Such stores never land in backing memory, so
// invalidation scans for them can be skipped.
func (c *BlockCache) RegisterFIFOWrite(address uint32) {
	c.fifoWriteAddresses[address&physAddressMask] = struct{}{}
}

// InvalidateICache destroys every block whose guest instructions overlap
// the written range. Without forced, ranges whose granule bits are all
// clear are skipped, and gather-pipe hints for the range are dropped;
// the hints only suppress the store checks emitted into compiled code,
// never the invalidation itself.
func (c *BlockCache) InvalidateICache(address, length uint32, forced bool) {
	if length == 0 {
		return
	}
	start := address & physAddressMask
	end := start + length
	first := start >> granuleShift
	last := (end - 1) >> granuleShift

	if !forced {
		for addr := range c.fifoWriteAddresses {
			if addr >= start && addr < end {
				delete(c.fifoWriteAddresses, addr)
			}
		}
		if !c.validBlocks.testRange(first, last) {
			return
		}
	}

	hits := c.ranges.overlapping(nil, start, end)
	for _, num := range hits {
		if !c.blocks[num].invalid {
			c.DestroyBlock(num)
		}
	}
	c.validBlocks.clearRange(first, last)
}

// Clear destroys all blocks and releases every index. The code generator
// calls it when the cache fills or on a full flush request.
func (c *BlockCache) Clear() {
	for num := range c.blocks {
		if !c.blocks[num].invalid {
			c.DestroyBlock(int32(num))
		}
	}
	c.blocks = c.blocks[:0]
	c.blockMap = make(map[uint64]int32)
	c.ranges.clear()
	c.validBlocks.clearAll()
	c.linksTo = make(map[uint32][]int32)
	c.fifoWriteAddresses = make(map[uint32]struct{})
	c.startIdx.clear()
}

// Reset is Clear plus counter reset, for a fresh session.
func (c *BlockCache) Reset() {
	c.Clear()
	c.consistencyErrors = 0
}

func (c *BlockCache) consistencyError(format string, args ...any) {
	c.consistencyErrors++
	fmt.Fprintf(c.logw, "jitcache: "+format+"\n", args...)
}
