package ring

import "testing"

func TestNewSpaceValidation(t *testing.T) {
	if _, err := NewSpace(0); err == nil {
		t.Fatal("expected error for 0 bits")
	}
	if _, err := NewSpace(64); err == nil {
		t.Fatal("expected error for 64 bits")
	}
	if _, err := NewSpace(8); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDistance(t *testing.T) {
	s, _ := NewSpace(3) // ring size 8
	cases := []struct {
		a, b ID
		want ID
	}{
		{0, 4, 4},
		{4, 0, 4},
		{0, 0, 0},
		{6, 2, 4},
		{2, 6, 4},
	}
	for _, c := range cases {
		if got := s.Distance(c.a, c.b); got != c.want {
			t.Errorf("Distance(%d,%d) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestStartIndex(t *testing.T) {
	s, _ := NewSpace(3)
	cases := []struct {
		d    ID
		want int
	}{
		{1, 0},
		{2, 1},
		{3, 1},
		{4, 2},
		{7, 2}, // floor(log2 7) = 2 = m-1, the largest index
	}
	for _, c := range cases {
		if got := s.StartIndex(c.d); got != c.want {
			t.Errorf("StartIndex(%d) = %d, want %d", c.d, got, c.want)
		}
	}
}

func TestFingerStart(t *testing.T) {
	s, _ := NewSpace(3)
	if got := s.FingerStart(0, 0); got != 1 {
		t.Errorf("FingerStart(0,0) = %d, want 1", got)
	}
	if got := s.FingerStart(0, 2); got != 4 {
		t.Errorf("FingerStart(0,2) = %d, want 4", got)
	}
	if got := s.FingerStart(6, 2); got != 2 { // (6+4) mod 8 = 2
		t.Errorf("FingerStart(6,2) = %d, want 2", got)
	}
}

func TestFingerReusable(t *testing.T) {
	// prev < succ: reusable iff target <= succ
	if !FingerReusable(1, 3, 5) {
		t.Error("expected reusable when prev < succ and target <= succ")
	}
	if FingerReusable(1, 6, 5) {
		t.Error("expected not reusable when prev < succ and target > succ")
	}
	// prev > succ: reusable iff target <= succ or target > prev
	if !FingerReusable(6, 7, 2) {
		t.Error("expected reusable via wraparound (target > prev)")
	}
	if !FingerReusable(6, 1, 2) {
		t.Error("expected reusable via target <= succ")
	}
	if FingerReusable(6, 4, 2) {
		t.Error("expected not reusable")
	}
}

func TestOneBitRing(t *testing.T) {
	// m=1: a 2-slot ring with a single finger, the smallest size NewSpace
	// accepts. Every lookup has exactly one possible finger index (0).
	s, err := NewSpace(1)
	if err != nil {
		t.Fatalf("NewSpace(1): %v", err)
	}
	if s.Size() != 2 {
		t.Fatalf("Size() = %d, want 2", s.Size())
	}
	if got := s.FingerStart(0, 0); got != 1 {
		t.Errorf("FingerStart(0,0) = %d, want 1", got)
	}
	if got := s.FingerStart(1, 0); got != 0 {
		t.Errorf("FingerStart(1,0) = %d, want 0", got)
	}
	// StartIndex must clamp to Bits-1 = 0 regardless of distance.
	if got := s.StartIndex(1); got != 0 {
		t.Errorf("StartIndex(1) = %d, want 0", got)
	}
	if got := s.Distance(0, 1); got != 1 {
		t.Errorf("Distance(0,1) = %d, want 1", got)
	}
	if got := s.Distance(1, 0); got != 1 {
		t.Errorf("Distance(1,0) = %d, want 1", got)
	}
}

func TestKeySlotInRange(t *testing.T) {
	s, _ := NewSpace(8)
	for _, k := range []string{"apple", "banana", ""} {
		slot := s.KeySlot(k)
		if uint64(slot) >= s.Size() {
			t.Errorf("KeySlot(%q) = %d out of range [0,%d)", k, slot, s.Size())
		}
	}
}
