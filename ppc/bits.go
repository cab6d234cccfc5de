package ppc

// Hardware register and page-table-entry layouts. The PTE words are read
// from and written back to emulated physical memory, so the bit positions
// here must match the hashed-page-table wire format exactly.

// PTE1 is the first word of a page table entry:
//
//	bit 31   V     valid
//	bits 7-30 VSID virtual segment ID (24 bits)
//	bit 6    H     hash function selector
//	bits 0-5 API   abbreviated page index
type PTE1 uint32

// MakePTE1 assembles a valid first word from a VSID and API.
func MakePTE1(vsid, api uint32) PTE1 {
	return PTE1(1<<31 | (vsid&0xFFFFFF)<<7 | api&0x3F)
}

// Valid reports the V bit.
func (p PTE1) Valid() bool { return p&(1<<31) != 0 }

// VSID returns the 24-bit virtual segment ID.
func (p PTE1) VSID() uint32 { return uint32(p>>7) & 0xFFFFFF }

// Hash reports the H bit (secondary hash function used).
func (p PTE1) Hash() bool { return p&(1<<6) != 0 }

// WithHash returns the word with the H bit set.
func (p PTE1) WithHash() PTE1 { return p | 1<<6 }

// API returns the 6-bit abbreviated page index.
func (p PTE1) API() uint32 { return uint32(p) & 0x3F }

// PTE2 is the second word of a page table entry:
//
//	bits 12-31 RPN  real page number (20 bits)
//	bit 8      R    referenced
//	bit 7      C    changed
//	bits 3-6   WIMG storage attributes
//	bits 0-1   PP   page protection
type PTE2 uint32

// RPN returns the 20-bit real page number.
func (p PTE2) RPN() uint32 { return uint32(p) >> 12 }

// Referenced reports the R bit.
func (p PTE2) Referenced() bool { return p&(1<<8) != 0 }

// SetReferenced returns the word with the R bit set.
func (p PTE2) SetReferenced() PTE2 { return p | 1<<8 }

// Changed reports the C bit.
func (p PTE2) Changed() bool { return p&(1<<7) != 0 }

// SetChanged returns the word with the C bit set.
func (p PTE2) SetChanged() PTE2 { return p | 1<<7 }

// WIMG returns the 4-bit storage attribute field.
func (p PTE2) WIMG() uint32 { return uint32(p>>3) & 0xF }

// PP returns the 2-bit page protection field.
func (p PTE2) PP() uint32 { return uint32(p) & 0x3 }

// SegmentRegister selects the virtual segment for the top four bits of an
// effective address.
type SegmentRegister uint32

// VSID returns the 24-bit virtual segment ID.
func (s SegmentRegister) VSID() uint32 { return uint32(s) & 0xFFFFFF }

// BATUpper is the upper word of a BAT register pair:
//
//	bits 17-31 BEPI block effective page index
//	bits 2-12  BL   block length mask ((BL+1)*128KiB)
//	bit 1      VS   supervisor valid
//	bit 0      VP   problem-state valid
type BATUpper uint32

// BEPI returns the effective base, already shifted to an address.
func (b BATUpper) EffectiveBase() uint32 { return uint32(b) &^ 0x1FFFF }

// BL returns the 11-bit block length field.
func (b BATUpper) BL() uint32 { return uint32(b>>2) & 0x7FF }

// BlockSize returns the mapped size in bytes, (BL+1) << 17.
func (b BATUpper) BlockSize() uint32 { return (b.BL() + 1) << 17 }

// BATLower is the lower word of a BAT register pair:
//
//	bits 17-31 BRPN block real page number
//	bits 0-1   PP   protection (0 means no access)
type BATLower uint32

// PhysicalBase returns the physical base, already shifted to an address.
func (b BATLower) PhysicalBase() uint32 { return uint32(b) &^ 0x1FFFF }

// PP returns the 2-bit protection field.
func (b BATLower) PP() uint32 { return uint32(b) & 0x3 }

// Effective-address field extraction.

// EASegment returns the segment register index for an address.
func EASegment(ea uint32) uint32 { return ea >> 28 }

// EAPageIndex returns the 16-bit page index.
func EAPageIndex(ea uint32) uint32 { return (ea >> 12) & 0xFFFF }

// EAOffset returns the 12-bit page offset.
func EAOffset(ea uint32) uint32 { return ea & 0xFFF }

// EAAPI returns the 6-bit abbreviated page index, the high part of the
// page index that is stored in PTE1 for tag comparison.
func EAAPI(ea uint32) uint32 { return (ea >> 22) & 0x3F }

// SDR1 field extraction.

// SDR1HTabOrg returns the physical base of the hashed page table,
// already shifted to an address.
func SDR1HTabOrg(v uint32) uint32 { return v & 0xFFFF0000 }

// SDR1HTabMask returns the 9-bit hash mask field.
func SDR1HTabMask(v uint32) uint32 { return v & 0x1FF }
