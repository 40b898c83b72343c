// Package bootstrap implements the one-shot ring join protocol: dial a
// seed successor, WHOIS it into slot 0, then fill the remaining finger
// slots either by local ring-containment reasoning or by a relayed LOOKUP
// through the best candidate found so far. There is no periodic
// stabilization pass afterward — once bootstrap returns, the finger table
// is never revisited except by writes this node itself originates.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"chordkv/internal/logger"
	"chordkv/internal/peer"
	"chordkv/internal/ring"
	"chordkv/internal/router"
	"chordkv/internal/rpc"
)

// settleDelay is the pause before dialing the seed, and again before
// filling the remaining slots, giving the seed's own listener time to come
// up when two nodes are started back to back. It is not a retry budget;
// see Run's retries parameter for that.
const settleDelay = time.Second

// Run executes the one-shot bootstrap protocol against rtr. seedAddr is the
// address of a node already on the ring (the "seed successor"); an empty
// seedAddr means rtr.Self() is the first node of its ring and Run returns
// immediately having installed nothing. retries bounds how many times the
// initial seed dial is retried before giving up, in case the seed's
// listener is not yet up (see spec note on the fixed startup delay).
func Run(ctx context.Context, rtr *router.Router, seedAddr string, retries int, lgr logger.Logger) error {
	if lgr == nil {
		lgr = &logger.NopLogger{}
	}
	lgr = lgr.Named("bootstrap")

	if seedAddr == "" {
		lgr.Info("no seed address configured, starting a new ring")
		return nil
	}

	time.Sleep(settleDelay)

	seedHandle, seedInfo, err := dialAndWhois(ctx, rtr, seedAddr, retries, lgr)
	if err != nil {
		return err
	}
	rtr.SetFinger(0, seedInfo, seedHandle)
	lgr.Info("joined ring via seed", logger.F("seed", seedInfo.String()))

	time.Sleep(settleDelay)

	space := rtr.Space()
	self := rtr.Self()
	for i := 1; i < rtr.M(); i++ {
		if err := fillSlot(ctx, rtr, space, self, i, lgr); err != nil {
			lgr.Warn("failed to fill finger slot", logger.F("slot", i), logger.F("err", err.Error()))
		}
	}
	return nil
}

// dialAndWhois dials addr and issues an unrelayed WHOIS, retrying up to
// retries times (in addition to the first attempt) with settleDelay
// between attempts.
func dialAndWhois(ctx context.Context, rtr *router.Router, addr string, retries int, lgr logger.Logger) (*router.ClientHandle, peer.Info, error) {
	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			time.Sleep(settleDelay)
		}
		h, err := rtr.CreateConn(addr)
		if err != nil {
			lastErr = err
			continue
		}
		resp, err := h.Client.Whois(ctx, &rpc.WhoisRequest{})
		if err != nil {
			h.Close()
			lastErr = err
			continue
		}
		return h, peer.Info{KeySlot: ring.ID(resp.KeySlot), Addr: resp.Addr}, nil
	}
	return nil, peer.Info{}, fmt.Errorf("bootstrap: whois %s: %w", addr, lastErr)
}

// fillSlot computes the finger target for slot i and installs either a
// reused candidate (no new connection) or the node returned by a relayed
// LOOKUP through the best candidate already known, dialed unless a cached
// connection to it exists. The reuse decision and each finger install run
// under the router lock so that a concurrent lookup through this finger can
// never observe a half-filled slot; the lock is released while the relayed
// LOOKUP is in flight.
func fillSlot(ctx context.Context, rtr *router.Router, space ring.Space, self peer.Info, i int, lgr logger.Logger) error {
	target := space.FingerStart(self.KeySlot, i)

	rtr.Lock()
	candidate, ok := rtr.LookupLocked(target)
	prev := space.Mod(uint64(target) / 2)
	_, succOk := rtr.SuccessorLocked()
	if ok && succOk && ring.FingerReusable(prev, target, candidate.KeySlot) {
		h, connOk := rtr.ConnLocked(candidate.Addr)
		if connOk {
			rtr.SetFingerLocked(i, candidate, h)
			rtr.Unlock()
			lgr.Debug("reused finger", logger.F("slot", i), logger.F("node", candidate.String()))
			return nil
		}
	}
	rtr.Unlock()

	if !ok {
		return fmt.Errorf("no known candidate for slot %d", i)
	}

	h, connOk := rtr.Conn(candidate.Addr)
	if !connOk {
		return fmt.Errorf("no cached connection to candidate %s for slot %d", candidate.String(), i)
	}

	resp, err := h.Client.Lookup(ctx, &rpc.LookupRequest{KeySlot: uint64(target), Relay: true})
	if err != nil {
		return fmt.Errorf("relayed lookup for slot %d via %s: %w", i, candidate.String(), err)
	}
	resolved := peer.Info{KeySlot: ring.ID(resp.KeySlot), Addr: resp.Addr}

	rtr.Lock()
	defer rtr.Unlock()
	existing, connOk := rtr.ConnLocked(resolved.Addr)
	if connOk {
		rtr.SetFingerLocked(i, resolved, existing)
		return nil
	}
	nh, err := rtr.CreateConn(resolved.Addr)
	if err != nil {
		return fmt.Errorf("dial resolved node %s for slot %d: %w", resolved.String(), i, err)
	}
	rtr.SetFingerLocked(i, resolved, nh)
	lgr.Debug("installed finger via relayed lookup", logger.F("slot", i), logger.F("node", resolved.String()))
	return nil
}
