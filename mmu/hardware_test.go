package mmu_test

import (
	"io"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/gekkosim/efb"
	"github.com/sarchlab/gekkosim/memmap"
	"github.com/sarchlab/gekkosim/mmio"
	"github.com/sarchlab/gekkosim/mmu"
	"github.com/sarchlab/gekkosim/platform"
	"github.com/sarchlab/gekkosim/ppc"
)

type efbCall struct {
	t    efb.AccessType
	x, y int
	data uint32
}

type fakeEFB struct {
	calls []efbCall
	value uint32
}

func (f *fakeEFB) AccessEFB(t efb.AccessType, x, y int, data uint32) uint32 {
	f.calls = append(f.calls, efbCall{t, x, y, data})
	return f.value
}

var _ = Describe("Hardware routing", func() {
	var (
		state *ppc.State
		mem   *memmap.Memory
	)

	BeforeEach(func() {
		state = &ppc.State{}
		mem = memmap.NewMemory(&platform.Config{},
			memmap.WithLogOutput(io.Discard))
	})

	Describe("Framebuffer window", func() {
		var (
			backend *fakeEFB
			m       *mmu.MMU
		)

		BeforeEach(func() {
			backend = &fakeEFB{value: 0x00C0FFEE}
			m = mmu.NewMMU(state, mem,
				mmu.WithEFB(backend), mmu.WithLogOutput(io.Discard))
		})

		It("should peek the color plane", func() {
			addr := uint32(0x08000000 | 5<<12 | 9<<2)
			Expect(m.ReadU32(addr)).To(Equal(uint32(0x00C0FFEE)))
			Expect(backend.calls).To(HaveLen(1))
			Expect(backend.calls[0].t).To(Equal(efb.PeekColor))
			Expect(backend.calls[0].x).To(Equal(9))
			Expect(backend.calls[0].y).To(Equal(5))
		})

		It("should poke the depth plane", func() {
			addr := uint32(0x08000000 | 0x00400000 | 3<<12 | 7<<2)
			m.WriteU32(0x123456, addr)
			Expect(backend.calls).To(HaveLen(1))
			Expect(backend.calls[0].t).To(Equal(efb.PokeZ))
			Expect(backend.calls[0].x).To(Equal(7))
			Expect(backend.calls[0].y).To(Equal(3))
			Expect(backend.calls[0].data).To(Equal(uint32(0x123456)))
		})
	})

	Describe("Register space", func() {
		var (
			mapping *mmio.Mapping
			m       *mmu.MMU
		)

		BeforeEach(func() {
			mapping = mmio.NewMapping()
			mapping.SetLogOutput(io.Discard)
			m = mmu.NewMMU(state, mem,
				mmu.WithMMIO(mapping), mmu.WithLogOutput(io.Discard))
		})

		It("should route unbacked accesses to registered handlers", func() {
			var stored uint32
			mapping.RegisterRead32(0xCC005000, func() uint32 { return 0xBEEF })
			mapping.RegisterWrite32(0xCC005000, func(v uint32) { stored = v })

			Expect(m.ReadU32(0x0C005000)).To(Equal(uint32(0xBEEF)))
			m.WriteU32(0x1234, 0x0C005000)
			Expect(stored).To(Equal(uint32(0x1234)))
		})

		It("should route halfword registers", func() {
			mapping.RegisterRead16(0xCC002000, func() uint16 { return 0x55AA })
			Expect(m.ReadU16(0x0C002000)).To(Equal(uint16(0x55AA)))
		})

		It("should split doubleword register accesses", func() {
			mapping.RegisterRead32(0xCC005000, func() uint32 { return 1 })
			mapping.RegisterRead32(0xCC005004, func() uint32 { return 2 })
			Expect(m.ReadU64(0x0C005000)).To(Equal(uint64(1)<<32 | 2))
		})

		It("should return zero for unregistered registers", func() {
			Expect(m.ReadU32(0x0C009999)).To(BeZero())
		})
	})
})
