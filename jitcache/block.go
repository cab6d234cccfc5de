// Package jitcache tracks translated code blocks: lookup by guest start
// address, invalidation on guest writes, and direct block-to-block
// linking. It owns no host code itself; patching of emitted code is
// delegated to a CodePatcher supplied by the code generator.
package jitcache

// Translation mode bits of the machine-state register that select which
// compiled variant of an address is valid.
const msrModeMask = 0x30

// LinkData records one exit branch of a compiled block.
type LinkData struct {
	// ExitLocation identifies the branch site in host code, in
	// whatever unit the CodePatcher uses.
	ExitLocation uint32

	// ExitAddress is the guest destination of the branch.
	ExitAddress uint32

	// Linked is true while the branch jumps straight into another
	// block instead of returning to the dispatcher.
	Linked bool
}

// Block describes one compiled region of guest code.
type Block struct {
	// CheckedEntry is the host entry point that performs the downcount
	// check before running the block body. Linked branches target it.
	CheckedEntry uint32

	// NormalEntry is the host entry point the dispatcher jumps to.
	NormalEntry uint32

	// EffectiveAddress is the guest address of the first instruction.
	EffectiveAddress uint32

	// MSRBits holds the translation mode bits the block was compiled
	// under. A block is only valid for a matching mode.
	MSRBits uint32

	// PhysicalAddress is the translated address of the first
	// instruction, used for write invalidation.
	PhysicalAddress uint32

	// CodeSize is the emitted host code size in bytes.
	CodeSize uint32

	// OriginalSize is the number of guest instructions covered.
	OriginalSize uint32

	// RunCount is incremented by the dispatcher on every entry.
	RunCount uint64

	// LinkData lists the block's exit branches.
	LinkData []LinkData

	invalid   bool
	finalized bool
}

// Invalid reports whether the block has been destroyed. Host code may
// still be executing it; its entry points stay patched to fall back to
// the dispatcher.
func (b *Block) Invalid() bool { return b.invalid }

// PhysicalRange returns the physical byte range covered by the block's
// guest instructions.
func (b *Block) PhysicalRange() (start, end uint32) {
	return b.PhysicalAddress, b.PhysicalAddress + b.OriginalSize*4
}

// CodePatcher rewrites already-emitted host code. The block cache calls
// it to install and remove block links; the code generator implements it
// for its target architecture.
type CodePatcher interface {
	// PatchLinkJump makes the exit branch at location jump directly to
	// the host entry target.
	PatchLinkJump(location, target uint32)

	// PatchDestroyRedirect makes the code at location return to the
	// dispatcher with the given guest address.
	PatchDestroyRedirect(location, guestAddress uint32)
}
