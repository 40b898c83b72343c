package router

import (
	"testing"

	"chordkv/internal/peer"
	"chordkv/internal/ring"
)

func newTestRouter(t *testing.T, slot ring.ID) (*Router, ring.Space) {
	t.Helper()
	space, err := ring.NewSpace(3)
	if err != nil {
		t.Fatal(err)
	}
	self := peer.Info{KeySlot: slot, Addr: "self:0"}
	return New(space, self, nil, nil), space
}

func TestLookupSelfShortCircuits(t *testing.T) {
	r, _ := newTestRouter(t, 0)
	n, ok := r.Lookup(0)
	if !ok || !n.Equal(r.Self()) {
		t.Fatalf("expected self, got %+v ok=%v", n, ok)
	}
}

func TestLookupBeforeBootstrapIsEmpty(t *testing.T) {
	r, _ := newTestRouter(t, 0)
	if _, ok := r.Lookup(4); ok {
		t.Fatal("expected no result before any finger is populated")
	}
}

func TestLookupUsesFarthestNonOvershootingFinger(t *testing.T) {
	r, _ := newTestRouter(t, 0)
	slot0 := peer.Info{KeySlot: 1, Addr: "n1:0"}
	slot2 := peer.Info{KeySlot: 5, Addr: "n5:0"}
	r.SetFinger(0, slot0, &ClientHandle{})
	r.SetFinger(2, slot2, &ClientHandle{})

	// distance to 4 is 4 -> start index = floor(log2(4)) = 2 -> slot 2 populated
	n, ok := r.Lookup(4)
	if !ok || n.Addr != "n5:0" {
		t.Fatalf("expected slot 2 (n5:0), got %+v ok=%v", n, ok)
	}
}

func TestLookupWalksDownToPopulatedSlot(t *testing.T) {
	r, _ := newTestRouter(t, 0)
	slot0 := peer.Info{KeySlot: 1, Addr: "n1:0"}
	r.SetFinger(0, slot0, &ClientHandle{})
	// distance to 4 is 4 -> start index 2, but only slot 0 populated
	n, ok := r.Lookup(4)
	if !ok || n.Addr != "n1:0" {
		t.Fatalf("expected fallback to slot 0, got %+v ok=%v", n, ok)
	}
}

func TestSetFingerInstallsConnCacheEntry(t *testing.T) {
	r, _ := newTestRouter(t, 0)
	node := peer.Info{KeySlot: 4, Addr: "peer:1"}
	h := &ClientHandle{}
	r.SetFinger(0, node, h)

	r.Lock()
	got, ok := r.ConnLocked("peer:1")
	r.Unlock()
	if !ok || got != h {
		t.Fatal("expected conn cache entry installed alongside finger")
	}
}

func TestLookupOnOneBitRing(t *testing.T) {
	// m=1: a 2-slot ring where the finger table has exactly one slot
	// (also slot 0, also the successor). Self is slot 0, the other node
	// occupies slot 1.
	space, err := ring.NewSpace(1)
	if err != nil {
		t.Fatal(err)
	}
	self := peer.Info{KeySlot: 0, Addr: "self:0"}
	r := New(space, self, nil, nil)

	if _, ok := r.Lookup(1); ok {
		t.Fatal("expected no result before the single finger is populated")
	}

	other := peer.Info{KeySlot: 1, Addr: "n1:0"}
	r.SetFinger(0, other, &ClientHandle{})

	n, ok := r.Lookup(1)
	if !ok || !n.Equal(other) {
		t.Fatalf("expected the lone finger %+v, got %+v ok=%v", other, n, ok)
	}
	n, ok = r.Lookup(0)
	if !ok || !n.Equal(self) {
		t.Fatalf("expected self short-circuit, got %+v ok=%v", n, ok)
	}
	succ, ok := r.Successor()
	if !ok || !succ.Equal(other) {
		t.Fatalf("expected successor %+v, got %+v", other, succ)
	}
}

func TestSuccessorIsSlotZero(t *testing.T) {
	r, _ := newTestRouter(t, 0)
	if _, ok := r.Successor(); ok {
		t.Fatal("expected no successor before bootstrap")
	}
	node := peer.Info{KeySlot: 4, Addr: "n:1"}
	r.SetFinger(0, node, &ClientHandle{})
	succ, ok := r.Successor()
	if !ok || !succ.Equal(node) {
		t.Fatalf("expected successor %+v, got %+v", node, succ)
	}
}
