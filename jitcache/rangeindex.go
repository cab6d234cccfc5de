package jitcache

import "sort"

// rangeIndex maps physical byte ranges to the blocks compiled from them.
// Entries are kept in a slice sorted by (end, start); an overlap query
// lower-bounds on end and scans forward, so ranges whose end precedes the
// query are never visited.

type blockRange struct {
	end    uint32 // exclusive
	start  uint32
	blocks []int32
}

type rangeIndex struct {
	ranges []blockRange
}

func (r *rangeIndex) search(start, end uint32) int {
	return sort.Search(len(r.ranges), func(i int) bool {
		e := &r.ranges[i]
		return e.end > end || e.end == end && e.start >= start
	})
}

// insert registers block num under [start, end).
func (r *rangeIndex) insert(start, end uint32, num int32) {
	i := r.search(start, end)
	if i < len(r.ranges) && r.ranges[i].start == start && r.ranges[i].end == end {
		r.ranges[i].blocks = append(r.ranges[i].blocks, num)
		return
	}
	r.ranges = append(r.ranges, blockRange{})
	copy(r.ranges[i+1:], r.ranges[i:])
	r.ranges[i] = blockRange{end: end, start: start, blocks: []int32{num}}
}

// remove drops block num from the entry for [start, end), deleting the
// entry once empty.
func (r *rangeIndex) remove(start, end uint32, num int32) {
	i := r.search(start, end)
	if i >= len(r.ranges) || r.ranges[i].start != start || r.ranges[i].end != end {
		return
	}
	blocks := r.ranges[i].blocks
	for j, b := range blocks {
		if b == num {
			blocks[j] = blocks[len(blocks)-1]
			r.ranges[i].blocks = blocks[:len(blocks)-1]
			break
		}
	}
	if len(r.ranges[i].blocks) == 0 {
		r.ranges = append(r.ranges[:i], r.ranges[i+1:]...)
	}
}

// overlapping appends to dst the numbers of all blocks whose range
// intersects [start, end).
func (r *rangeIndex) overlapping(dst []int32, start, end uint32) []int32 {
	i := sort.Search(len(r.ranges), func(i int) bool {
		return r.ranges[i].end > start
	})
	for ; i < len(r.ranges); i++ {
		if r.ranges[i].start < end {
			dst = append(dst, r.ranges[i].blocks...)
		}
	}
	return dst
}

func (r *rangeIndex) clear() {
	r.ranges = nil
}
