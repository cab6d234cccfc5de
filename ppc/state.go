// Package ppc holds the architectural state of the emulated Gekko/Broadway
// PowerPC core that the memory subsystem reads and writes: the machine state
// register, segment registers, BAT register pairs, the page-table base
// derived from SDR1, and the exception latches raised by failed translation.
package ppc

// Exception latch bits. Translation faults do not unwind; they set one of
// these bits and the core's outer loop redirects to the guest vector.
const (
	ExceptionDSI = 1 << 3
	ExceptionISI = 1 << 4
)

// DSISR cause bits, in the architectural positions guest handlers expect.
const (
	DSISRPage  = 1 << 30
	DSISRProt  = 1 << 27
	DSISRStore = 1 << 25
)

// NumBATPairs is the number of BAT register pairs per stream. The first
// four are the base architectural set; the upper four exist only when the
// extended-BAT mode of the Broadway variant is switched on via HID4.SBE.
const NumBATPairs = 8

// State is the register state visible to the memory subsystem.
//
// It deliberately carries only what translation and access routing need;
// GPRs, FPRs and the rest of the core live with the interpreter.
type State struct {
	// PC is the current program counter, used in diagnostics.
	PC uint32

	// NPC is the next program counter. An instruction-storage interrupt
	// records the faulting fetch address here.
	NPC uint32

	// MSR is the machine state register. Only IR and DR are consulted.
	MSR MSR

	// SR holds the sixteen segment registers, indexed by the top four
	// bits of an effective address.
	SR [16]SegmentRegister

	// DBAT and IBAT are the data and instruction BAT register pairs.
	DBAT [NumBATPairs]BATPair
	IBAT [NumBATPairs]BATPair

	// SDR1 locates the hashed page table in physical memory.
	SDR1 uint32

	// DAR and DSISR record the address and cause of the most recent
	// data-storage interrupt.
	DAR   uint32
	DSISR uint32

	// Exceptions is the pending-exception latch consulted by the outer
	// execution loop.
	Exceptions uint32

	// HID4SBE enables the extended (upper four) BAT pairs.
	HID4SBE bool

	// PageTableBase and PageTableHashMask are derived from SDR1 by
	// MMU.SDRUpdated. They are cached here because the walker consults
	// them on every TLB miss.
	PageTableBase     uint32
	PageTableHashMask uint32
}

// BATPair is one upper/lower block-address-translation register pair.
type BATPair struct {
	Up BATUpper
	Lo BATLower
}

// MSR is the machine state register.
type MSR uint32

// InstructionTranslation reports whether MSR[IR] is set.
func (m MSR) InstructionTranslation() bool { return m&0x20 != 0 }

// DataTranslation reports whether MSR[DR] is set.
func (m MSR) DataTranslation() bool { return m&0x10 != 0 }

// SetTranslation sets or clears both translation enable bits. Convenience
// for tests and for the fake-VMEM boot path, which flips them together.
func (m *MSR) SetTranslation(on bool) {
	if on {
		*m |= 0x30
	} else {
		*m &^= 0x30
	}
}
