package ppc

import (
	"testing"
)

// Test PTE word field extraction against hand-assembled words.
func TestPTE1Fields(t *testing.T) {
	tests := []struct {
		name     string
		word     PTE1
		valid    bool
		vsid     uint32
		hash     bool
		api      uint32
	}{
		{
			name:  "valid entry primary hash",
			word:  PTE1(1<<31 | 0x123456<<7 | 0x2A),
			valid: true,
			vsid:  0x123456,
			hash:  false,
			api:   0x2A,
		},
		{
			name:  "valid entry secondary hash",
			word:  PTE1(1<<31 | 0xFFFFFF<<7 | 1<<6 | 0x3F),
			valid: true,
			vsid:  0xFFFFFF,
			hash:  true,
			api:   0x3F,
		},
		{
			name:  "invalid entry",
			word:  PTE1(0x123456 << 7),
			valid: false,
			vsid:  0x123456,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.word.Valid(); got != tt.valid {
				t.Errorf("Valid() = %v, want %v", got, tt.valid)
			}
			if got := tt.word.VSID(); got != tt.vsid {
				t.Errorf("VSID() = %#x, want %#x", got, tt.vsid)
			}
			if got := tt.word.Hash(); got != tt.hash {
				t.Errorf("Hash() = %v, want %v", got, tt.hash)
			}
			if got := tt.word.API(); got != tt.api {
				t.Errorf("API() = %#x, want %#x", got, tt.api)
			}
		})
	}
}

func TestMakePTE1RoundTrip(t *testing.T) {
	p := MakePTE1(0xABCDEF, 0x15)
	if !p.Valid() {
		t.Error("MakePTE1 must set V")
	}
	if p.VSID() != 0xABCDEF {
		t.Errorf("VSID() = %#x, want 0xABCDEF", p.VSID())
	}
	if p.API() != 0x15 {
		t.Errorf("API() = %#x, want 0x15", p.API())
	}
	if p.Hash() {
		t.Error("MakePTE1 must not set H")
	}
	if !p.WithHash().Hash() {
		t.Error("WithHash must set H")
	}
}

func TestPTE2Fields(t *testing.T) {
	word := PTE2(0xDEADB<<12 | 1<<8 | 1<<7 | 0x9<<3 | 0x2)
	if word.RPN() != 0xDEADB {
		t.Errorf("RPN() = %#x, want 0xDEADB", word.RPN())
	}
	if !word.Referenced() {
		t.Error("Referenced() = false, want true")
	}
	if !word.Changed() {
		t.Error("Changed() = false, want true")
	}
	if word.WIMG() != 0x9 {
		t.Errorf("WIMG() = %#x, want 0x9", word.WIMG())
	}
	if word.PP() != 0x2 {
		t.Errorf("PP() = %#x, want 0x2", word.PP())
	}

	cold := PTE2(0x12345 << 12)
	if cold.Referenced() || cold.Changed() {
		t.Error("fresh entry must have R and C clear")
	}
	if got := cold.SetReferenced().SetChanged(); !got.Referenced() || !got.Changed() {
		t.Error("SetReferenced/SetChanged must set the bits")
	}
}

func TestBATFields(t *testing.T) {
	tests := []struct {
		name      string
		up        BATUpper
		lo        BATLower
		effBase   uint32
		blockSize uint32
		physBase  uint32
		pp        uint32
	}{
		{
			name:      "single 128KiB block",
			up:        BATUpper(0x80000000), // BEPI=0x8000>>... BL=0
			lo:        BATLower(0x00000002),
			effBase:   0x80000000,
			blockSize: 0x20000,
			physBase:  0x00000000,
			pp:        2,
		},
		{
			name:      "256MiB block",
			up:        BATUpper(0x80000000 | 0x7FF<<2),
			lo:        BATLower(0x10000000 | 0x3),
			effBase:   0x80000000,
			blockSize: 0x10000000,
			physBase:  0x10000000,
			pp:        3,
		},
		{
			name:      "no-access block",
			up:        BATUpper(0xC0000000 | 0xFF<<2),
			lo:        BATLower(0x01800000),
			effBase:   0xC0000000,
			blockSize: 0x100 << 17,
			physBase:  0x01800000,
			pp:        0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.up.EffectiveBase(); got != tt.effBase {
				t.Errorf("EffectiveBase() = %#x, want %#x", got, tt.effBase)
			}
			if got := tt.up.BlockSize(); got != tt.blockSize {
				t.Errorf("BlockSize() = %#x, want %#x", got, tt.blockSize)
			}
			if got := tt.lo.PhysicalBase(); got != tt.physBase {
				t.Errorf("PhysicalBase() = %#x, want %#x", got, tt.physBase)
			}
			if got := tt.lo.PP(); got != tt.pp {
				t.Errorf("PP() = %d, want %d", got, tt.pp)
			}
		})
	}
}

func TestEffectiveAddressFields(t *testing.T) {
	ea := uint32(0x8123_4ABC)
	if got := EASegment(ea); got != 0x8 {
		t.Errorf("EASegment = %#x, want 0x8", got)
	}
	if got := EAPageIndex(ea); got != 0x1234 {
		t.Errorf("EAPageIndex = %#x, want 0x1234", got)
	}
	if got := EAOffset(ea); got != 0xABC {
		t.Errorf("EAOffset = %#x, want 0xABC", got)
	}
	// API is the top 6 bits of the page index.
	if got := EAAPI(ea); got != 0x1234>>10 {
		t.Errorf("EAAPI = %#x, want %#x", got, 0x1234>>10)
	}
}

func TestSDR1Fields(t *testing.T) {
	if got := SDR1HTabOrg(0x0123FFFF); got != 0x01230000 {
		t.Errorf("SDR1HTabOrg = %#x, want 0x01230000", got)
	}
	if got := SDR1HTabMask(0x0123FE71); got != 0x71 {
		t.Errorf("SDR1HTabMask = %#x, want 0x71", got)
	}
}

func TestMSRTranslationBits(t *testing.T) {
	var m MSR
	if m.DataTranslation() || m.InstructionTranslation() {
		t.Error("zero MSR must have translation off")
	}
	m.SetTranslation(true)
	if !m.DataTranslation() || !m.InstructionTranslation() {
		t.Error("SetTranslation(true) must enable IR and DR")
	}
	m.SetTranslation(false)
	if m.DataTranslation() || m.InstructionTranslation() {
		t.Error("SetTranslation(false) must clear IR and DR")
	}
}
