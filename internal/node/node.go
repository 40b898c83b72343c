// Package node wires the router and store into the ring RPC surface:
// WHOIS, LOOKUP, GET and SET, each respecting the relay flag contract —
// relay=false answers authoritatively from local state, relay=true routes
// via the finger table and forwards with the relay flag recomputed for the
// next hop.
package node

import (
	"context"
	"fmt"

	"chordkv/internal/ctxutil"
	"chordkv/internal/logger"
	"chordkv/internal/peer"
	"chordkv/internal/ring"
	"chordkv/internal/router"
	"chordkv/internal/rpc"
	"chordkv/internal/store"
)

// Node answers the ring RPC surface for one participant.
type Node struct {
	router *router.Router
	store  *store.Store
	lgr    logger.Logger
}

// New builds a Node over rtr and st.
func New(rtr *router.Router, st *store.Store, lgr logger.Logger) *Node {
	if lgr == nil {
		lgr = &logger.NopLogger{}
	}
	return &Node{router: rtr, store: st, lgr: lgr.Named("node")}
}

var _ rpc.Server = (*Node)(nil)

// Whois answers with this node's own identity. It never relays: WHOIS is
// always a direct, single-hop question to the dialed peer.
func (n *Node) Whois(ctx context.Context, req *rpc.WhoisRequest) (*rpc.WhoisResponse, error) {
	if err := ctxutil.CheckContext(ctx); err != nil {
		return nil, err
	}
	self := n.router.Self()
	return &rpc.WhoisResponse{KeySlot: uint64(self.KeySlot), Addr: self.Addr}, nil
}

// Lookup resolves req.KeySlot to the node responsible for it. With
// relay=false it answers authoritatively with its own identity, ignoring
// KeySlot. With relay=true it consults the finger table and either
// short-circuits (the resolved next hop is itself) or forwards the call,
// clearing the relay flag exactly when the next hop is the immediate
// successor (which can always answer authoritatively).
func (n *Node) Lookup(ctx context.Context, req *rpc.LookupRequest) (*rpc.LookupResponse, error) {
	if err := ctxutil.CheckContext(ctx); err != nil {
		return nil, err
	}
	self := n.router.Self()
	if !req.Relay {
		return &rpc.LookupResponse{KeySlot: uint64(self.KeySlot), Addr: self.Addr}, nil
	}

	target := ring.ID(req.KeySlot)
	next, ok := n.router.Lookup(target)
	if !ok || next.Equal(self) {
		return &rpc.LookupResponse{KeySlot: uint64(self.KeySlot), Addr: self.Addr}, nil
	}

	h, ok := n.router.Conn(next.Addr)
	if !ok {
		return nil, fmt.Errorf("node: no cached connection to %s", next.Addr)
	}
	ctx = ctxutil.IncHops(ctx)
	resp, err := h.Client.Lookup(ctx, &rpc.LookupRequest{KeySlot: req.KeySlot, Relay: n.forwardRelay(next)})
	if err != nil {
		return nil, fmt.Errorf("node: forward lookup to %s: %w", next.Addr, err)
	}
	return resp, nil
}

// Get answers a GET. With relay=false it reads its own store, ignoring any
// routing. With relay=true it hashes the key, routes, and either serves
// locally (it is responsible) or forwards.
func (n *Node) Get(ctx context.Context, req *rpc.GetRequest) (*rpc.GetResponse, error) {
	if err := ctxutil.CheckContext(ctx); err != nil {
		return nil, err
	}
	if !req.Relay {
		return n.serveGet(req.Key), nil
	}

	self := n.router.Self()
	slot := n.router.Space().KeySlot(req.Key)
	next, ok := n.router.Lookup(slot)
	if !ok || next.Equal(self) {
		return n.serveGet(req.Key), nil
	}

	h, ok := n.router.Conn(next.Addr)
	if !ok {
		return nil, fmt.Errorf("node: no cached connection to %s", next.Addr)
	}
	ctx = ctxutil.IncHops(ctx)
	resp, err := h.Client.Get(ctx, &rpc.GetRequest{Key: req.Key, Relay: n.forwardRelay(next)})
	if err != nil {
		return nil, fmt.Errorf("node: forward get to %s: %w", next.Addr, err)
	}
	return resp, nil
}

func (n *Node) serveGet(key string) *rpc.GetResponse {
	v, ok := n.store.Get(key)
	if !ok {
		return &rpc.GetResponse{Error: "Key not found"}
	}
	return &rpc.GetResponse{Value: v}
}

// Set answers a SET, following the same relay contract as Get.
func (n *Node) Set(ctx context.Context, req *rpc.SetRequest) (*rpc.SetResponse, error) {
	if err := ctxutil.CheckContext(ctx); err != nil {
		return nil, err
	}
	if !req.Relay {
		n.store.Set(req.Key, req.Value)
		return &rpc.SetResponse{Success: true}, nil
	}

	self := n.router.Self()
	slot := n.router.Space().KeySlot(req.Key)
	next, ok := n.router.Lookup(slot)
	if !ok || next.Equal(self) {
		n.store.Set(req.Key, req.Value)
		return &rpc.SetResponse{Success: true}, nil
	}

	h, ok := n.router.Conn(next.Addr)
	if !ok {
		return nil, fmt.Errorf("node: no cached connection to %s", next.Addr)
	}
	ctx = ctxutil.IncHops(ctx)
	resp, err := h.Client.Set(ctx, &rpc.SetRequest{Key: req.Key, Value: req.Value, Relay: n.forwardRelay(next)})
	if err != nil {
		return nil, fmt.Errorf("node: forward set to %s: %w", next.Addr, err)
	}
	return resp, nil
}

// forwardRelay reports whether the relay flag should remain set on the
// forwarded call: it clears exactly when next is the immediate successor,
// since the successor can always answer authoritatively for any key in its
// range.
func (n *Node) forwardRelay(next peer.Info) bool {
	succ, ok := n.router.Successor()
	return !(ok && next.Equal(succ))
}
