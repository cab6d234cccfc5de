package mmu

import (
	"encoding/binary"

	"github.com/sarchlab/gekkosim/efb"
)

// Access routing. Every interpreter and JIT-slow-path access funnels
// through readFromHardware/writeToHardware, which translate the effective
// address when translation is on and then dispatch by physical region:
// backing memory, the framebuffer peek window, the write-gather pipe, or
// the hardware register space.

const (
	efbWindowMask  = 0xF8000000
	efbWindowBase  = 0x08000000
	efbWindowLimit = 0x0C000000

	gatherWindowMask = 0xFFFFF000
	gatherWindowBase = 0x0C008000

	mmioLogicalBase = 0xC0000000
)

func beLoad(b []byte, size uint32) uint64 {
	switch size {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(binary.BigEndian.Uint16(b))
	case 4:
		return uint64(binary.BigEndian.Uint32(b))
	default:
		return binary.BigEndian.Uint64(b)
	}
}

func beStore(b []byte, size uint32, value uint64) {
	switch size {
	case 1:
		b[0] = byte(value)
	case 2:
		binary.BigEndian.PutUint16(b, uint16(value))
	case 4:
		binary.BigEndian.PutUint32(b, uint32(value))
	default:
		binary.BigEndian.PutUint64(b, value)
	}
}

func inEFBWindow(addr uint32) bool {
	return addr&efbWindowMask == efbWindowBase && addr < efbWindowLimit
}

// readFromHardware performs one data read of size bytes (1, 2, 4 or 8).
// The boolean result reports whether a value was produced; false means a
// translation fault was latched and the caller must not use the value.
func (m *MMU) readFromHardware(address uint32, size uint32, flag AccessKind) (uint64, bool) {
	if flag != FlagNoTranslate && m.state.MSR.DataTranslation() {
		if size > 1 && address&pageMask > PageSize-size {
			// The access crosses a page boundary; the two pages may
			// map to discontiguous physical memory, so go byte by
			// byte.
			var value uint64
			for i := uint32(0); i < size; i++ {
				b, ok := m.readFromHardware(address+i, 1, flag)
				if !ok {
					return 0, false
				}
				value = value<<8 | b
			}
			return value, true
		}

		tr := m.TranslateAddress(address, flag)
		if !tr.Valid {
			if flag == FlagRead {
				m.generateDSIException(address, false)
			}
			return 0, false
		}
		address = tr.Address
	}

	if inEFBWindow(address) && m.efb != nil {
		x, y, z := efb.DecodeAddress(address)
		t := efb.PeekColor
		if z {
			t = efb.PeekZ
		}
		return uint64(m.efb.AccessEFB(t, x, y, 0)), true
	}

	if region := m.mem.PhysicalBytes(address); len(region) >= int(size) {
		return beLoad(region, size), true
	}

	if m.mmio != nil {
		maddr := address | mmioLogicalBase
		switch size {
		case 1:
			return uint64(m.mmio.Read8(maddr)), true
		case 2:
			return uint64(m.mmio.Read16(maddr)), true
		case 4:
			return uint64(m.mmio.Read32(maddr)), true
		case 8:
			hi := m.mmio.Read32(maddr)
			lo := m.mmio.Read32(maddr + 4)
			return uint64(hi)<<32 | uint64(lo), true
		}
	}

	m.logf("unknown hardware read%d from %#08x, PC = %#08x",
		size*8, address, m.state.PC)
	return 0, true
}

// writeToHardware performs one data write of size bytes. The boolean
// result reports whether the write took effect (or was deliberately
// dropped); false means a translation fault was latched.
func (m *MMU) writeToHardware(address uint32, value uint64, size uint32, flag AccessKind) bool {
	effectiveAddress := address

	if flag != FlagNoTranslate && m.state.MSR.DataTranslation() {
		if size > 1 && address&pageMask > PageSize-size {
			for i := uint32(0); i < size; i++ {
				shift := 8 * (size - 1 - i)
				if !m.writeToHardware(address+i, value>>shift&0xFF, 1, flag) {
					return false
				}
			}
			return true
		}

		tr := m.TranslateAddress(address, flag)
		if !tr.Valid {
			if flag == FlagWrite {
				m.generateDSIException(address, true)
			}
			return false
		}
		address = tr.Address
	}

	if address&gatherWindowMask == gatherWindowBase && m.fifo != nil {
		switch size {
		case 1:
			m.fifo.Write8(uint8(value))
		case 2:
			m.fifo.Write16(uint16(value))
		case 4:
			m.fifo.Write32(uint32(value))
		case 8:
			m.fifo.Write64(value)
		}
		return true
	}

	if inEFBWindow(address) && m.efb != nil {
		x, y, z := efb.DecodeAddress(address)
		t := efb.PokeColor
		if z {
			t = efb.PokeZ
		}
		m.efb.AccessEFB(t, x, y, uint32(value))
		return true
	}

	if region := m.mem.PhysicalBytes(address); len(region) >= int(size) {
		beStore(region, size, value)
		if m.icode != nil {
			m.icode.InvalidateICache(effectiveAddress, size, false)
		}
		return true
	}

	if m.mmio != nil {
		maddr := address | mmioLogicalBase
		switch size {
		case 1:
			m.mmio.Write8(maddr, uint8(value))
		case 2:
			m.mmio.Write16(maddr, uint16(value))
		case 4:
			m.mmio.Write32(maddr, uint32(value))
		case 8:
			m.mmio.Write32(maddr, uint32(value>>32))
			m.mmio.Write32(maddr+4, uint32(value))
		}
		return true
	}

	m.logf("unknown hardware write%d to %#08x, PC = %#08x",
		size*8, address, m.state.PC)
	return true
}
