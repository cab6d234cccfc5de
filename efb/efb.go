// Package efb defines the external framebuffer access contract. A special
// address window below the hardware register space routes CPU accesses to
// the graphics backend's embedded framebuffer instead of memory; the
// memory subsystem only decodes the window and forwards the access.
package efb

// AccessType selects the framebuffer plane and direction.
type AccessType int

const (
	PeekZ AccessType = iota
	PokeZ
	PeekColor
	PokeColor
)

// Accessor is implemented by the graphics backend. Peek operations return
// the pixel value; poke operations return zero.
type Accessor interface {
	AccessEFB(t AccessType, x, y int, data uint32) uint32
}

// DecodeAddress converts a framebuffer-window address into coordinates
// and plane selection. Guest code builds these addresses by shifting x and
// y into the low bits and setting bit 22 for the Z plane.
func DecodeAddress(addr uint32) (x, y int, z bool) {
	x = int(addr&0xFFF) >> 2
	y = int(addr>>12) & 0x3FF
	z = addr&0x00400000 != 0
	return x, y, z
}
