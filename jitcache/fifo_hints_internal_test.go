package jitcache

import (
	"io"
	"testing"
)

type nopPatcher struct{}

func (nopPatcher) PatchLinkJump(location, target uint32)           {}
func (nopPatcher) PatchDestroyRedirect(location, guestAddress uint32) {}

func TestFIFOHintPurge(t *testing.T) {
	c := NewBlockCache(nopPatcher{}, WithLogOutput(io.Discard))

	c.RegisterFIFOWrite(0x80001010)
	c.RegisterFIFOWrite(0x80002000)

	c.InvalidateICache(0x80001010, 4, true)
	if _, ok := c.fifoWriteAddresses[0x1010]; !ok {
		t.Error("forced invalidation must keep gather-pipe hints")
	}

	c.InvalidateICache(0x80001000, 0x40, false)
	if _, ok := c.fifoWriteAddresses[0x1010]; ok {
		t.Error("invalidation must purge gather-pipe hints in the range")
	}
	if _, ok := c.fifoWriteAddresses[0x2000]; !ok {
		t.Error("hints outside the range must survive")
	}
}
