package memmap_test

import (
	"io"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/gekkosim/memmap"
	"github.com/sarchlab/gekkosim/platform"
)

func TestMemmap(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Memmap Suite")
}

var _ = Describe("Memory", func() {
	var mem *memmap.Memory

	newMem := func(cfg *platform.Config) {
		mem = memmap.NewMemory(cfg, memmap.WithLogOutput(io.Discard))
	}

	BeforeEach(func() {
		newMem(platform.DefaultGameCube())
	})

	Describe("Region allocation", func() {
		It("should size the base regions for the console", func() {
			Expect(mem.RAM()).To(HaveLen(memmap.RAMSize))
			Expect(mem.L1Cache()).To(HaveLen(memmap.L1CacheSize))
			Expect(mem.FakeVMEM()).To(HaveLen(memmap.RAMSize))
			Expect(mem.EXRAM()).To(BeNil())
		})

		It("should allocate the expansion region on the newer console", func() {
			newMem(platform.DefaultWii())
			Expect(mem.EXRAM()).To(HaveLen(memmap.EXRAMSize))
			Expect(mem.FakeVMEM()).To(BeNil())
		})
	})

	Describe("Physical dispatch", func() {
		It("should serve main memory below the populated size", func() {
			mem.RAM()[0x1234] = 0xAB
			region := mem.PhysicalBytes(0x1234)
			Expect(region[0]).To(Equal(byte(0xAB)))
		})

		It("should reject the unpopulated mirror above it", func() {
			Expect(mem.PhysicalBytes(memmap.RealRAMSize)).To(BeNil())
		})

		It("should serve the cache segment", func() {
			mem.L1Cache()[0x40] = 0xCD
			Expect(mem.PhysicalBytes(0xE0000040)[0]).To(Equal(byte(0xCD)))
		})

		It("should serve the expansion segment only when present", func() {
			Expect(mem.PhysicalBytes(0x10000000)).To(BeNil())
			newMem(platform.DefaultWii())
			mem.EXRAM()[0x20] = 0xEF
			Expect(mem.PhysicalBytes(0x10000020)[0]).To(Equal(byte(0xEF)))
		})

		It("should serve the fake paging region through its alias", func() {
			mem.FakeVMEM()[0x100] = 0x42
			Expect(mem.PhysicalBytes(memmap.FakeVMEMBase + 0x100)[0]).
				To(Equal(byte(0x42)))
		})
	})

	Describe("Clear", func() {
		It("should zero every region", func() {
			mem.RAM()[0] = 1
			mem.L1Cache()[0] = 2
			mem.FakeVMEM()[0] = 3
			mem.Clear()
			Expect(mem.RAM()[0]).To(BeZero())
			Expect(mem.L1Cache()[0]).To(BeZero())
			Expect(mem.FakeVMEM()[0]).To(BeZero())
		})
	})

	Describe("Logical regions", func() {
		It("should track mapping updates", func() {
			mem.UpdateLogicalRegion(0, 0x80000000, 0x01800000, 0)
			regions := mem.LogicalRegions()
			Expect(regions[0].LogicalBase).To(Equal(uint32(0x80000000)))
			Expect(regions[0].Size).To(Equal(uint32(0x01800000)))

			mem.InvalidateLogicalRegion(0)
			Expect(mem.LogicalRegions()[0].Size).To(BeZero())
		})
	})

	Describe("Snapshot", func() {
		It("should dump regions under stable markers in a fixed order", func() {
			dumps := mem.Snapshot()
			markers := make([]string, len(dumps))
			for i, d := range dumps {
				markers[i] = d.Marker
			}
			Expect(markers).To(Equal([]string{
				"Memory RAM", "Memory L1Cache", "Memory FakeVMEM",
			}))
		})

		It("should include the expansion region on the newer console", func() {
			newMem(platform.DefaultWii())
			dumps := mem.Snapshot()
			markers := make([]string, len(dumps))
			for i, d := range dumps {
				markers[i] = d.Marker
			}
			Expect(markers).To(ContainElement("Memory EXRAM"))
		})
	})
})

var _ = Describe("Device accessors", func() {
	var mem *memmap.Memory

	BeforeEach(func() {
		mem = memmap.NewMemory(platform.DefaultWii(),
			memmap.WithLogOutput(io.Discard))
	})

	It("should mask mirror bits off device addresses", func() {
		mem.DeviceWrite32(0x01020304, 0x80001000)
		Expect(mem.DeviceRead32(0x00001000)).To(Equal(uint32(0x01020304)))
		Expect(mem.DeviceRead32(0xC0001000)).To(Equal(uint32(0x01020304)))
	})

	It("should access the expansion region", func() {
		mem.DeviceWrite8(0x7F, 0x90000123)
		Expect(mem.EXRAM()[0x123]).To(Equal(byte(0x7F)))
	})

	It("should copy ranges in both directions", func() {
		src := []byte{1, 2, 3, 4, 5}
		mem.DeviceCopyToEmu(0x2000, src)

		dst := make([]byte, 5)
		mem.DeviceCopyFromEmu(dst, 0x2000, 5)
		Expect(dst).To(Equal(src))
	})

	It("should fill ranges", func() {
		mem.DeviceMemset(0x3000, 0xAA, 16)
		for i := 0; i < 16; i++ {
			Expect(mem.RAM()[0x3000+i]).To(Equal(byte(0xAA)))
		}
	})

	It("should read strings", func() {
		copy(mem.RAM()[0x4000:], "gamecube\x00disc")
		Expect(mem.DeviceGetString(0x4000, 32)).To(Equal("gamecube"))
	})

	It("should write the swapped forms little endian", func() {
		mem.DeviceWrite32Swap(0x01020304, 0x5000)
		Expect(mem.RAM()[0x5000:0x5004]).
			To(Equal([]byte{0x04, 0x03, 0x02, 0x01}))
	})

	It("should drop writes to invalid device ranges", func() {
		mem.DeviceWrite32(1, 0x0D000000)
		Expect(mem.DeviceRead32(0x0D000000)).To(BeZero())
	})
})
