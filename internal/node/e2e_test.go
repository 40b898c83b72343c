package node_test

import (
	"context"
	"testing"
	"time"

	"chordkv/internal/bootstrap"
	"chordkv/internal/node"
	"chordkv/internal/peer"
	"chordkv/internal/ring"
	"chordkv/internal/router"
	"chordkv/internal/rpc"
	"chordkv/internal/server"
	"chordkv/internal/store"

	"google.golang.org/grpc"
)

// testNode bundles everything a scenario test needs to drive one ring
// participant over a real TCP listener, mirroring how cmd/node wires things
// up in production.
type testNode struct {
	rtr    *router.Router
	store  *store.Store
	srv    *server.Server
	client *rpc.Client
	conn   *grpc.ClientConn
	addr   string
}

func newTestNode(t *testing.T, space ring.Space, keySlot uint64) *testNode {
	t.Helper()
	lis, addr, err := server.Listen("127.0.0.1", "127.0.0.1", 0)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	self := peer.Info{KeySlot: ring.ID(keySlot), Addr: addr}
	rtr := router.New(space, self, nil, nil)
	st := store.New(nil)
	n := node.New(rtr, st, nil)

	srv := server.New(lis, n, nil)
	go srv.Start()
	t.Cleanup(srv.Stop)

	conn, err := rpc.Dial(addr)
	if err != nil {
		t.Fatalf("dial self: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return &testNode{rtr: rtr, store: st, srv: srv, client: rpc.NewClient(conn), conn: conn, addr: addr}
}

// twoNodeRing builds a 3-bit ring with nodes at slots 0 and 4 and bootstraps
// node B (slot 4) against node A (slot 0), matching spec.md's two-node
// worked example.
func twoNodeRing(t *testing.T) (a, b *testNode) {
	t.Helper()
	space, err := ring.NewSpace(3)
	if err != nil {
		t.Fatalf("new space: %v", err)
	}
	a = newTestNode(t, space, 0)
	b = newTestNode(t, space, 4)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Node A is first; it has no seed. Node B joins via A directly by
	// calling Run with retries=0 against A's already-listening address;
	// Run still sleeps its settle delay before and after the seed WHOIS.
	if err := bootstrap.Run(ctx, a.rtr, "", 0, nil); err != nil {
		t.Fatalf("bootstrap A: %v", err)
	}
	if err := bootstrap.Run(ctx, b.rtr, a.addr, 0, nil); err != nil {
		t.Fatalf("bootstrap B: %v", err)
	}
	return a, b
}

func TestWhoisReturnsOwnIdentity(t *testing.T) {
	a, _ := twoNodeRing(t)
	ctx := context.Background()
	resp, err := a.client.Whois(ctx, &rpc.WhoisRequest{})
	if err != nil {
		t.Fatalf("whois: %v", err)
	}
	if resp.KeySlot != 0 || resp.Addr != a.addr {
		t.Fatalf("unexpected whois response: %+v", resp)
	}
}

func TestLookupUnrelayedAnswersAuthoritatively(t *testing.T) {
	a, _ := twoNodeRing(t)
	ctx := context.Background()
	resp, err := a.client.Lookup(ctx, &rpc.LookupRequest{KeySlot: 6, Relay: false})
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if resp.KeySlot != 0 {
		t.Fatalf("unrelayed lookup should answer with own identity, got %+v", resp)
	}
}

func TestLookupRelayedOneHop(t *testing.T) {
	a, b := twoNodeRing(t)
	ctx := context.Background()
	resp, err := a.client.Lookup(ctx, &rpc.LookupRequest{KeySlot: 5, Relay: true})
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if resp.KeySlot != 4 || resp.Addr != b.addr {
		t.Fatalf("expected slot 4 (node B) to own key_slot 5, got %+v", resp)
	}
}

func TestLookupRelayedSelfShortCircuit(t *testing.T) {
	a, _ := twoNodeRing(t)
	ctx := context.Background()
	resp, err := a.client.Lookup(ctx, &rpc.LookupRequest{KeySlot: 0, Relay: true})
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if resp.KeySlot != 0 {
		t.Fatalf("lookup for own key_slot should short-circuit, got %+v", resp)
	}
}

func TestSetThenGetAcrossNodes(t *testing.T) {
	a, _ := twoNodeRing(t)
	ctx := context.Background()

	key := "widget"
	setResp, err := a.client.Set(ctx, &rpc.SetRequest{Key: key, Value: []byte("gears"), Relay: true})
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if !setResp.Success {
		t.Fatalf("expected success, got %+v", setResp)
	}

	getResp, err := a.client.Get(ctx, &rpc.GetRequest{Key: key, Relay: true})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(getResp.Value) != "gears" || getResp.Error != "" {
		t.Fatalf("unexpected get response: %+v", getResp)
	}
}

func TestGetMissingKeyReturnsError(t *testing.T) {
	a, _ := twoNodeRing(t)
	ctx := context.Background()
	resp, err := a.client.Get(ctx, &rpc.GetRequest{Key: "nope", Relay: true})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if resp.Error == "" {
		t.Fatalf("expected a not-found error, got %+v", resp)
	}
}

func TestLookupConsistentFromEitherNode(t *testing.T) {
	a, b := twoNodeRing(t)
	ctx := context.Background()

	respFromA, err := a.client.Lookup(ctx, &rpc.LookupRequest{KeySlot: 5, Relay: true})
	if err != nil {
		t.Fatalf("lookup from a: %v", err)
	}
	respFromB, err := b.client.Lookup(ctx, &rpc.LookupRequest{KeySlot: 5, Relay: true})
	if err != nil {
		t.Fatalf("lookup from b: %v", err)
	}
	if respFromA.Addr != respFromB.Addr || respFromA.KeySlot != respFromB.KeySlot {
		t.Fatalf("inconsistent lookup results: %+v vs %+v", respFromA, respFromB)
	}
}
