// Package gpfifo models the write-gather pipe: CPU stores to the gather
// window are collected into cache-line-sized bursts and committed to the
// command FIFO in physical memory. The FIFO write pointer and the
// interrupt flag are the handshake between the CPU context and a GPU
// context that may run on another OS thread, so they are atomics; all
// other state is owned by the CPU context alone.
package gpfifo

import (
	"encoding/binary"
	"runtime"
	"sync/atomic"

	"github.com/sarchlab/gekkosim/memmap"
)

// GatherPipeSize is the burst size, one guest cache line.
const GatherPipeSize = 32

// gatherBufferSize leaves room for a full burst plus the largest single
// store before a flush check runs.
const gatherBufferSize = GatherPipeSize * 4

// FIFO is one session's write-gather pipe.
type FIFO struct {
	mem *memmap.Memory

	gather [gatherBufferSize]byte
	count  int

	base uint32
	end  uint32

	// writePtr is the physical address the next burst commits to. The
	// GPU context polls it, so it is only accessed atomically.
	writePtr atomic.Uint32

	// readPtr is advanced by the GPU context as it consumes commands.
	readPtr atomic.Uint32

	// interruptPending is set when the distance between the pointers
	// crosses the high-water mark.
	interruptPending atomic.Bool

	highWaterMark uint32
}

// NewFIFO creates a gather pipe committing bursts into mem.
func NewFIFO(mem *memmap.Memory) *FIFO {
	return &FIFO{mem: mem}
}

// SetupRing configures the FIFO ring over [base, end) in physical
// memory. The write and read pointers are reset to the base.
func (f *FIFO) SetupRing(base, end, highWaterMark uint32) {
	f.base = base
	f.end = end
	f.highWaterMark = highWaterMark
	f.writePtr.Store(base)
	f.readPtr.Store(base)
	f.interruptPending.Store(false)
}

// WritePointer returns the current committed write pointer.
func (f *FIFO) WritePointer() uint32 { return f.writePtr.Load() }

// ReadPointer returns the GPU context's consumption pointer.
func (f *FIFO) ReadPointer() uint32 { return f.readPtr.Load() }

// AdvanceReadPointer is called by the GPU context after consuming a
// burst.
func (f *FIFO) AdvanceReadPointer() {
	ptr := f.readPtr.Load() + GatherPipeSize
	if ptr >= f.end {
		ptr = f.base
	}
	f.readPtr.Store(ptr)
	if f.Distance() < f.highWaterMark {
		f.interruptPending.Store(false)
	}
}

// InterruptPending reports whether the high-water interrupt is latched.
func (f *FIFO) InterruptPending() bool { return f.interruptPending.Load() }

// Distance returns the number of bytes committed but not yet consumed.
// The value is only well defined once both contexts agree; callers that
// need an exact figure quiesce the GPU context first (see YieldUntil).
func (f *FIFO) Distance() uint32 {
	w := f.writePtr.Load()
	r := f.readPtr.Load()
	if w >= r {
		return w - r
	}
	return (f.end - f.base) - (r - w)
}

// PendingBytes returns the bytes gathered but not yet committed.
func (f *FIFO) PendingBytes() int { return f.count }

// Write8 appends a byte to the gather pipe.
func (f *FIFO) Write8(value uint8) {
	f.gather[f.count] = value
	f.count++
	f.checkGatherPipe()
}

// Write16 appends a big-endian halfword.
func (f *FIFO) Write16(value uint16) {
	binary.BigEndian.PutUint16(f.gather[f.count:], value)
	f.count += 2
	f.checkGatherPipe()
}

// Write32 appends a big-endian word.
func (f *FIFO) Write32(value uint32) {
	binary.BigEndian.PutUint32(f.gather[f.count:], value)
	f.count += 4
	f.checkGatherPipe()
}

// Write64 appends a big-endian doubleword.
func (f *FIFO) Write64(value uint64) {
	binary.BigEndian.PutUint64(f.gather[f.count:], value)
	f.count += 8
	f.checkGatherPipe()
}

// checkGatherPipe commits full bursts to the ring and advances the write
// pointer. The pointer store is the release point for the GPU context.
func (f *FIFO) checkGatherPipe() {
	for f.count >= GatherPipeSize {
		ptr := f.writePtr.Load()
		f.mem.DeviceCopyToEmu(ptr, f.gather[:GatherPipeSize])

		copy(f.gather[:], f.gather[GatherPipeSize:f.count])
		f.count -= GatherPipeSize

		ptr += GatherPipeSize
		if ptr >= f.end {
			ptr = f.base
		}
		f.writePtr.Store(ptr)

		if f.highWaterMark != 0 && f.Distance() >= f.highWaterMark {
			f.interruptPending.Store(true)
		}
	}
}

// YieldUntil spins until cond holds, yielding the processor between
// polls, for at most budget polls. It returns whether cond held. This is
// the only cross-context wait in the subsystem; both contexts must stay
// within a bounded skew, so blocking primitives are deliberately avoided.
func YieldUntil(cond func() bool, budget int) bool {
	for i := 0; i < budget; i++ {
		if cond() {
			return true
		}
		runtime.Gosched()
	}
	return cond()
}
