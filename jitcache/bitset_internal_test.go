package jitcache

import "testing"

func TestGranuleBitsetRanges(t *testing.T) {
	tests := []struct {
		name               string
		setFirst, setLast  uint32
		askFirst, askLast  uint32
		want               bool
	}{
		{"exact overlap", 100, 200, 100, 200, true},
		{"partial overlap", 100, 200, 150, 300, true},
		{"single granule", 100, 100, 100, 100, true},
		{"below", 100, 200, 0, 99, false},
		{"above", 100, 200, 201, 400, false},
		{"across page boundary", granulesPerPage - 2, granulesPerPage + 2,
			granulesPerPage, granulesPerPage, true},
		{"empty page skipped", 100, 100, granulesPerPage, granulesPerPage * 3, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newGranuleBitset()
			s.setRange(tt.setFirst, tt.setLast)
			if got := s.testRange(tt.askFirst, tt.askLast); got != tt.want {
				t.Errorf("testRange(%d, %d) = %v, want %v",
					tt.askFirst, tt.askLast, got, tt.want)
			}
		})
	}
}

func TestGranuleBitsetClear(t *testing.T) {
	s := newGranuleBitset()
	s.setRange(10, 20)
	s.clearRange(12, 14)

	for g := uint32(10); g <= 20; g++ {
		want := g < 12 || g > 14
		if s.test(g) != want {
			t.Errorf("test(%d) = %v, want %v", g, s.test(g), want)
		}
	}

	s.clearRange(10, 20)
	if len(s.pages) != 0 {
		t.Errorf("expected empty pages after full clear, got %d", len(s.pages))
	}
}

func TestRangeIndexOverlapping(t *testing.T) {
	var r rangeIndex
	r.insert(0x1000, 0x1040, 1)
	r.insert(0x1040, 0x1080, 2)
	r.insert(0x2000, 0x2100, 3)

	tests := []struct {
		name       string
		start, end uint32
		want       []int32
	}{
		{"inside first", 0x1010, 0x1014, []int32{1}},
		{"straddling", 0x1030, 0x1050, []int32{1, 2}},
		{"between", 0x1080, 0x2000, nil},
		{"everything", 0, 0x10000, []int32{1, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.overlapping(nil, tt.start, tt.end)
			if len(got) != len(tt.want) {
				t.Fatalf("overlapping(%#x, %#x) = %v, want %v",
					tt.start, tt.end, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("overlapping(%#x, %#x) = %v, want %v",
						tt.start, tt.end, got, tt.want)
				}
			}
		})
	}
}

func TestRangeIndexRemove(t *testing.T) {
	var r rangeIndex
	r.insert(0x1000, 0x1040, 1)
	r.insert(0x1000, 0x1040, 2)

	r.remove(0x1000, 0x1040, 1)
	got := r.overlapping(nil, 0x1000, 0x1040)
	if len(got) != 1 || got[0] != 2 {
		t.Errorf("after remove: overlapping = %v, want [2]", got)
	}

	r.remove(0x1000, 0x1040, 2)
	if len(r.ranges) != 0 {
		t.Errorf("expected empty index, got %d entries", len(r.ranges))
	}
}
