package mmu

// MemCheckEvent describes one watched access, passed to the watchpoint
// action.
type MemCheckEvent struct {
	Address uint32
	Size    uint32
	Value   uint64
	Write   bool
	PC      uint32
}

// MemCheck is a data watchpoint over an effective-address range. Checks
// only run when the platform configuration enables them; the hot path
// carries no cost otherwise.
type MemCheck struct {
	Start   uint32
	End     uint32 // inclusive
	OnRead  bool
	OnWrite bool

	// Action is invoked on each matching access. A nil action only
	// counts hits.
	Action func(MemCheckEvent)

	Hits uint64
}

// AddMemCheck registers a watchpoint. Ranges may overlap; all matching
// watchpoints fire.
func (m *MMU) AddMemCheck(c *MemCheck) {
	m.memChecks = append(m.memChecks, c)
}

// GetMemCheck returns the first watchpoint whose range intersects
// [address, address+size), or nil.
func (m *MMU) GetMemCheck(address, size uint32) *MemCheck {
	last := address + size - 1
	for _, c := range m.memChecks {
		if address <= c.End && last >= c.Start {
			return c
		}
	}
	return nil
}

// ClearMemChecks removes all watchpoints.
func (m *MMU) ClearMemChecks() {
	m.memChecks = nil
}

func (m *MMU) checkMemCheck(address uint32, value uint64, size uint32, write bool) {
	if !m.config.MemChecks || len(m.memChecks) == 0 {
		return
	}
	last := address + size - 1
	for _, c := range m.memChecks {
		if address > c.End || last < c.Start {
			continue
		}
		if write && !c.OnWrite || !write && !c.OnRead {
			continue
		}
		c.Hits++
		if c.Action != nil {
			c.Action(MemCheckEvent{
				Address: address,
				Size:    size,
				Value:   value,
				Write:   write,
				PC:      m.state.PC,
			})
		}
	}
}
