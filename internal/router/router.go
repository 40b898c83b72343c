// Package router implements the finger table and connection cache: the
// Chord routing core. A single mutex guards both the finger table and the
// cache of live RPC client handles, since the two are only ever mutated
// together (set_finger installs a finger and its connection atomically)
// and the spec's invariant ties a populated slot to a cache entry for the
// same address.
package router

import (
	"fmt"
	"sync"

	"chordkv/internal/logger"
	"chordkv/internal/peer"
	"chordkv/internal/ring"
	"chordkv/internal/rpc"

	"google.golang.org/grpc"
)

// ClientHandle is a live RPC connection to a peer, kept open for the
// process lifetime once created.
type ClientHandle struct {
	Conn   *grpc.ClientConn
	Client *rpc.Client
}

// Close releases the underlying connection.
func (h *ClientHandle) Close() error {
	if h == nil || h.Conn == nil {
		return nil
	}
	return h.Conn.Close()
}

// Dialer opens a connection to addr. New falls back to rpc.Dial when no
// Dialer is given.
type Dialer func(addr string) (*grpc.ClientConn, error)

// Router owns the finger table (m slots, index 0..m-1) and the connection
// cache (address -> ClientHandle), both behind one mutex.
type Router struct {
	mu     sync.Mutex
	space  ring.Space
	self   peer.Info
	m      int
	lgr    logger.Logger
	dial   Dialer
	finger []*peer.Info
	conns  map[string]*ClientHandle
}

// New builds an empty Router for the given identity and ring space. m is
// the finger table width (equal to space.Bits).
func New(space ring.Space, self peer.Info, lgr logger.Logger, dial Dialer) *Router {
	if lgr == nil {
		lgr = &logger.NopLogger{}
	}
	if dial == nil {
		dial = func(addr string) (*grpc.ClientConn, error) { return rpc.Dial(addr) }
	}
	r := &Router{
		space:  space,
		self:   self,
		m:      space.Bits,
		lgr:    lgr.Named("router"),
		dial:   dial,
		finger: make([]*peer.Info, space.Bits),
		conns:  make(map[string]*ClientHandle),
	}
	return r
}

// Lock acquires the Router's mutex. Callers must pair every Lock with an
// Unlock. The bootstrap routine uses this directly, to make its finger
// reuse decision and each finger install atomically (it releases the lock
// while a forwarded LOOKUP is in flight); every other caller should use the
// locking methods below.
func (r *Router) Lock() { r.mu.Lock() }

// Unlock releases the Router's mutex.
func (r *Router) Unlock() { r.mu.Unlock() }

// Self returns this node's own identity.
func (r *Router) Self() peer.Info { return r.self }

// Space returns the ring space this router operates in.
func (r *Router) Space() ring.Space { return r.space }

// Lookup resolves k to the best-known next hop: self if k is this node's
// own slot, otherwise the farthest populated finger that does not
// overshoot k.
func (r *Router) Lookup(k ring.ID) (peer.Info, bool) {
	r.Lock()
	defer r.Unlock()
	return r.LookupLocked(k)
}

// LookupLocked is Lookup for a caller already holding the Router lock
// (used by bootstrap's atomic decide-and-install step).
func (r *Router) LookupLocked(k ring.ID) (peer.Info, bool) {
	if k == r.self.KeySlot {
		return r.self, true
	}
	d := r.space.Distance(r.self.KeySlot, k)
	i := r.space.StartIndex(d)
	for ; i >= 0; i-- {
		if r.finger[i] != nil {
			return *r.finger[i], true
		}
	}
	return peer.Info{}, false
}

// LookupConn resolves k via Lookup and returns the cached client handle
// for the resulting node's address.
func (r *Router) LookupConn(k ring.ID) (peer.Info, *ClientHandle, bool) {
	r.Lock()
	defer r.Unlock()
	n, ok := r.LookupLocked(k)
	if !ok {
		return peer.Info{}, nil, false
	}
	h, ok := r.conns[n.Addr]
	return n, h, ok
}

// Successor returns slot 0, the immediate successor.
func (r *Router) Successor() (peer.Info, bool) {
	r.Lock()
	defer r.Unlock()
	return r.SuccessorLocked()
}

// SuccessorLocked is Successor for a caller already holding the lock.
func (r *Router) SuccessorLocked() (peer.Info, bool) {
	if r.finger[0] == nil {
		return peer.Info{}, false
	}
	return *r.finger[0], true
}

// SetFinger writes slot i and installs node's connection in the cache.
func (r *Router) SetFinger(i int, node peer.Info, h *ClientHandle) {
	r.Lock()
	defer r.Unlock()
	r.SetFingerLocked(i, node, h)
}

// SetFingerLocked is SetFinger for a caller already holding the lock.
func (r *Router) SetFingerLocked(i int, node peer.Info, h *ClientHandle) {
	r.finger[i] = &node
	r.conns[node.Addr] = h
	r.lgr.Debug("finger installed", logger.F("slot", i), logger.F("node", node.String()))
}

// Conn returns the cached handle for addr.
func (r *Router) Conn(addr string) (*ClientHandle, bool) {
	r.Lock()
	defer r.Unlock()
	return r.ConnLocked(addr)
}

// ConnLocked returns the cached handle for addr, for a caller already
// holding the lock.
func (r *Router) ConnLocked(addr string) (*ClientHandle, bool) {
	h, ok := r.conns[addr]
	return h, ok
}

// CreateConn dials addr and wraps the connection as a ClientHandle. On
// failure it logs and returns an error; there is no retry.
func (r *Router) CreateConn(addr string) (*ClientHandle, error) {
	conn, err := r.dial(addr)
	if err != nil {
		r.lgr.Error("dial failed", logger.F("addr", addr), logger.F("err", err.Error()))
		return nil, fmt.Errorf("router: dial %s: %w", addr, err)
	}
	return &ClientHandle{Conn: conn, Client: rpc.NewClient(conn)}, nil
}

// M returns the finger table width.
func (r *Router) M() int { return r.m }
