package jitcache

import "fmt"

// CompileFunc builds a block for the guest address under the given
// machine state and returns its number. Implementations allocate with
// AllocateBlock, fill the block in, and call FinalizeBlock.
type CompileFunc func(address, msr uint32) (int32, error)

// Dispatcher resolves a guest program counter to a host entry point,
// compiling on a miss. It is the slow-path counterpart of the inline
// dispatch code the generator emits.
type Dispatcher struct {
	cache   *BlockCache
	compile CompileFunc
}

// NewDispatcher wires a cache to its code generator.
func NewDispatcher(cache *BlockCache, compile CompileFunc) *Dispatcher {
	return &Dispatcher{cache: cache, compile: compile}
}

// Dispatch returns the host entry point for the guest address, compiling
// a new block when none matches the current translation mode. The run
// counter of the chosen block is incremented.
func (d *Dispatcher) Dispatch(address, msr uint32) (uint32, error) {
	num := d.cache.GetBlockNumberFromStartAddress(address, msr)
	if num == noBlock {
		if d.cache.IsFull() {
			d.cache.Clear()
		}
		var err error
		num, err = d.compile(address, msr)
		if err != nil {
			return 0, fmt.Errorf("compiling block at %#08x: %w", address, err)
		}
		if num == noBlock {
			return 0, fmt.Errorf("compiler produced no block at %#08x", address)
		}
	}
	b := d.cache.GetBlock(num)
	b.RunCount++
	return b.NormalEntry, nil
}
