package memmap

import (
	"bytes"
	"encoding/binary"
)

// Physically addressed accessors for emulated hardware outside the CPU
// (DMA engines, interfaces doing bulk transfers). No translation, no guest
// exceptions: a bad address logs and soft-fails.

// DeviceBytes resolves a device-visible physical address to the remainder
// of its backing region, or nil for an unmapped address.
func (m *Memory) DeviceBytes(addr uint32) []byte {
	addr &= 0x3FFFFFFF
	if addr < RealRAMSize {
		return m.ram[addr:]
	}
	if m.config.Wii && addr>>28 == 0x1 && addr&0x0FFFFFFF < EXRAMSize {
		return m.exram[addr&EXRAMMask:]
	}
	m.logf("unknown device pointer %#08x", addr)
	return nil
}

func (m *Memory) deviceValidCopyRange(addr uint32, size int) bool {
	if size >= EXRAMSize {
		// A range this large would span separate banks.
		return false
	}
	return m.DeviceBytes(addr) != nil && m.DeviceBytes(addr+uint32(size)) != nil
}

// DeviceCopyFromEmu copies size bytes of emulated memory starting at addr
// into data.
func (m *Memory) DeviceCopyFromEmu(data []byte, addr uint32, size int) {
	if !m.deviceValidCopyRange(addr, size) {
		m.logf("invalid range in DeviceCopyFromEmu: %#x bytes from %#08x", size, addr)
		return
	}
	copy(data, m.DeviceBytes(addr)[:size])
}

// DeviceCopyToEmu copies data into emulated memory starting at addr.
func (m *Memory) DeviceCopyToEmu(addr uint32, data []byte) {
	if !m.deviceValidCopyRange(addr, len(data)) {
		m.logf("invalid range in DeviceCopyToEmu: %#x bytes to %#08x", len(data), addr)
		return
	}
	copy(m.DeviceBytes(addr), data)
}

// DeviceMemset fills length bytes at addr with value.
func (m *Memory) DeviceMemset(addr uint32, value byte, length int) {
	region := m.DeviceBytes(addr)
	if region == nil {
		return
	}
	for i := 0; i < length && i < len(region); i++ {
		region[i] = value
	}
}

// DeviceGetString reads a string at addr. size zero means NUL-terminated;
// otherwise the string is at most size bytes and may be NUL-padded.
func (m *Memory) DeviceGetString(addr uint32, size int) string {
	region := m.DeviceBytes(addr)
	if region == nil {
		return ""
	}
	if size > 0 && size < len(region) {
		region = region[:size]
	}
	if i := bytes.IndexByte(region, 0); i >= 0 {
		region = region[:i]
	}
	return string(region)
}

// DeviceRead8 reads a byte at a device-visible physical address.
func (m *Memory) DeviceRead8(addr uint32) uint8 {
	if region := m.DeviceBytes(addr); region != nil {
		return region[0]
	}
	return 0
}

// DeviceRead16 reads a big-endian halfword.
func (m *Memory) DeviceRead16(addr uint32) uint16 {
	if region := m.DeviceBytes(addr); len(region) >= 2 {
		return binary.BigEndian.Uint16(region)
	}
	return 0
}

// DeviceRead32 reads a big-endian word.
func (m *Memory) DeviceRead32(addr uint32) uint32 {
	if region := m.DeviceBytes(addr); len(region) >= 4 {
		return binary.BigEndian.Uint32(region)
	}
	return 0
}

// DeviceRead64 reads a big-endian doubleword.
func (m *Memory) DeviceRead64(addr uint32) uint64 {
	if region := m.DeviceBytes(addr); len(region) >= 8 {
		return binary.BigEndian.Uint64(region)
	}
	return 0
}

// DeviceWrite8 writes a byte at a device-visible physical address.
func (m *Memory) DeviceWrite8(value uint8, addr uint32) {
	if region := m.DeviceBytes(addr); region != nil {
		region[0] = value
	}
}

// DeviceWrite16 writes a big-endian halfword.
func (m *Memory) DeviceWrite16(value uint16, addr uint32) {
	if region := m.DeviceBytes(addr); len(region) >= 2 {
		binary.BigEndian.PutUint16(region, value)
	}
}

// DeviceWrite32 writes a big-endian word.
func (m *Memory) DeviceWrite32(value uint32, addr uint32) {
	if region := m.DeviceBytes(addr); len(region) >= 4 {
		binary.BigEndian.PutUint32(region, value)
	}
}

// DeviceWrite64 writes a big-endian doubleword.
func (m *Memory) DeviceWrite64(value uint64, addr uint32) {
	if region := m.DeviceBytes(addr); len(region) >= 8 {
		binary.BigEndian.PutUint64(region, value)
	}
}

// DeviceWrite32Swap writes a word without byte swapping, for sources that
// are already big-endian.
func (m *Memory) DeviceWrite32Swap(value uint32, addr uint32) {
	if region := m.DeviceBytes(addr); len(region) >= 4 {
		binary.LittleEndian.PutUint32(region, value)
	}
}

// DeviceWrite64Swap writes a doubleword without byte swapping.
func (m *Memory) DeviceWrite64Swap(value uint64, addr uint32) {
	if region := m.DeviceBytes(addr); len(region) >= 8 {
		binary.LittleEndian.PutUint64(region, value)
	}
}
