package srt

import (
	"sync"
	"time"
)

// receiveState is the rcv_data_lock domain of SPEC_FULL.md §4.4/§5: the
// per-link candidate cache ("positions"), the high-water delivered
// sequence, and the wakeup primitive recv blocks on.
//
// The reference blocks recv on a condition variable. sync.Cond doesn't
// compose with a deadline without spawning a helper goroutine per wait (the
// pattern this corpus's net package uses for net.Conn.Read), which leaks a
// goroutine on every timeout. Since recv here needs a *bounded* wait far
// more often than an unbounded one (gap detection re-checks on a timer,
// snd/rcv timeouts are the common case), a broadcast-by-closing-a-channel
// primitive is used instead: every change that might unblock a waiter
// closes the current wake channel and installs a fresh one, so callers can
// select on it alongside time.After without any extra goroutine.
type receiveState struct {
	mu         sync.Mutex
	positions  map[LinkID]*Packet
	rcvBaseSeq SeqNo
	haveBase   bool
	closed     bool
	wake       chan struct{}

	// gapFirstSeen records, for the next expected sequence after a gap
	// was first observed, the time recv noticed it missing — used by the
	// gap-detection timeout of SPEC_FULL.md §4.4.
	gapFirstSeen map[SeqNo]time.Time
}

func (r *receiveState) init() {
	r.positions = make(map[LinkID]*Packet)
	r.gapFirstSeen = make(map[SeqNo]time.Time)
	r.wake = make(chan struct{})
}

// signalLocked wakes every current waiter. Must be called with mu held.
func (r *receiveState) signalLocked() {
	close(r.wake)
	r.wake = make(chan struct{})
}

// forget drops any cached candidate from a member that just left the
// group, per invariant 3 of SPEC_FULL.md §3.
func (r *receiveState) forget(id LinkID) {
	r.mu.Lock()
	delete(r.positions, id)
	r.signalLocked()
	r.mu.Unlock()
}

// ProvidePacket is invoked by a member link (or whatever goroutine drives
// it) when a new in-order packet is ready to be merged into the group's
// single receive stream. A link is expected to hold at most one
// not-yet-consumed candidate here, but two links can race to fill the same
// provider slot (e.g. a link hands off an older buffered packet just as a
// fresher one arrives on a different goroutine) — in that case the smaller
// sequence number is kept, since it is the one recv needs next, and the
// other is counted as dropped rather than silently lost, per Testable
// Property 1 of SPEC_FULL.md §8.
func (g *Group) ProvidePacket(provider LinkID, pkt *Packet) {
	g.rcv.mu.Lock()
	if g.rcv.closed {
		g.rcv.mu.Unlock()
		return
	}
	if g.rcv.haveBase && !seqGreater(pkt.Ctrl.Seq, g.rcv.rcvBaseSeq) {
		g.rcv.mu.Unlock()
		g.stats.incDiscardedDuplicate(g.id, g.metrics)
		return
	}

	accepted := true
	dropped := false
	if existing, occupied := g.rcv.positions[provider]; occupied {
		if seqGreater(pkt.Ctrl.Seq, existing.Ctrl.Seq) {
			accepted = false
		}
		dropped = true
	}
	if accepted {
		g.rcv.positions[provider] = pkt
	}
	g.rcv.signalLocked()
	g.rcv.mu.Unlock()

	if dropped {
		g.stats.incDroppedBeforeMerge(g.id, g.metrics)
	}
	g.updateReadState(provider)
}

// ReadyPackets is invoked when a member's ACK window advances past ack,
// indicating packets below ack are now safe to have been extracted. The
// positions cache here only ever holds packets already safe to deliver
// (see ProvidePacket's doc comment), so there is nothing further to make
// ready; this simply wakes any blocked recv in case the advance is itself
// the signal a caller was waiting on.
func (g *Group) ReadyPackets(provider LinkID, ack SeqNo) {
	g.rcv.mu.Lock()
	g.rcv.signalLocked()
	g.rcv.mu.Unlock()
}

// pickCandidateLocked returns the cached candidate with the smallest
// sequence number strictly greater than rcvBaseSeq, if any. Must be called
// with g.rcv.mu held.
func (g *Group) pickCandidateLocked() (*Packet, LinkID, bool) {
	var best *Packet
	var bestID LinkID
	for lid, pkt := range g.rcv.positions {
		if g.rcv.haveBase && !seqGreater(pkt.Ctrl.Seq, g.rcv.rcvBaseSeq) {
			continue
		}
		if best == nil || seqGreater(best.Ctrl.Seq, pkt.Ctrl.Seq) {
			best = pkt
			bestID = lid
		}
	}
	return best, bestID, best != nil
}

// Recv delivers the next message in ascending shared-sequence order,
// deduplicated across members, per SPEC_FULL.md §4.4. It blocks until a
// candidate is ready, the receive timeout expires, or the group is closed.
// A timeout never consumes anything from positions (property 7).
func (g *Group) Recv(buf []byte) (int, Ctrl, error) {
	g.acquireBusy()
	defer g.releaseBusy()

	var deadline time.Time
	hasDeadline := g.rcvTimeout > 0
	if hasDeadline {
		deadline = g.clock.Now().Add(g.rcvTimeout)
	}

	for {
		g.rcv.mu.Lock()

		if g.rcv.closed {
			g.rcv.mu.Unlock()
			return 0, Ctrl{}, ErrClosed
		}

		pkt, lid, ok := g.pickCandidateLocked()
		// With packet drop enabled, a candidate beyond the next expected
		// sequence is held back until the gap-detection pass below has
		// declared the missing sequence lost.
		if ok && g.packetDropEnable && g.rcv.haveBase && pkt.Ctrl.Seq != g.rcv.rcvBaseSeq+1 {
			ok = false
		}
		if ok {
			n := copy(buf, pkt.Data)
			ctrl := pkt.Ctrl
			ctrl.ProviderID = lid
			g.rcv.rcvBaseSeq = pkt.Ctrl.Seq
			g.rcv.haveBase = true
			delete(g.rcv.positions, lid)
			delete(g.rcv.gapFirstSeen, pkt.Ctrl.Seq)
			g.rcv.mu.Unlock()
			g.stats.incReceived(g.id, lid, n, g.metrics)
			g.clearReadState(lid)
			return n, ctrl, nil
		}

		now := g.clock.Now()
		var wakeAt time.Time
		haveWake := false

		if g.packetDropEnable && g.rcv.haveBase {
			expected := g.rcv.rcvBaseSeq + 1
			first, seen := g.rcv.gapFirstSeen[expected]
			if !seen {
				g.rcv.gapFirstSeen[expected] = now
				first = now
			}
			if now.Sub(first) >= g.gapWait {
				delete(g.rcv.gapFirstSeen, expected)
				g.rcv.rcvBaseSeq = expected
				g.rcv.mu.Unlock()
				g.stats.incRecvDrop(g.id, g.metrics)
				continue
			}
			wakeAt = first.Add(g.gapWait)
			haveWake = true
		}

		if g.rcvTimeout == 0 {
			g.rcv.mu.Unlock()
			return 0, Ctrl{}, ErrWouldBlock
		}

		if hasDeadline && (!haveWake || deadline.Before(wakeAt)) {
			wakeAt = deadline
			haveWake = true
		}

		waitCh := g.rcv.wake
		g.rcv.mu.Unlock()

		if !haveWake {
			<-waitCh
			continue
		}

		wait := wakeAt.Sub(now)
		if wait <= 0 {
			if hasDeadline && !wakeAt.After(deadline) {
				return 0, Ctrl{}, ErrTimeout
			}
			continue
		}

		timer := time.NewTimer(wait)
		select {
		case <-waitCh:
			timer.Stop()
		case <-timer.C:
			if hasDeadline && !g.clock.Now().Before(deadline) {
				return 0, Ctrl{}, ErrTimeout
			}
			// gap deadline elapsed, or a spurious wake; loop re-evaluates.
		}
	}
}

// closeReceive unblocks every waiting Recv with a closed signal, per
// SPEC_FULL.md §5 "close() is idempotent; it unblocks any waiting recv."
func (g *Group) closeReceive() {
	g.rcv.mu.Lock()
	if !g.rcv.closed {
		g.rcv.closed = true
		g.rcv.signalLocked()
	}
	g.rcv.mu.Unlock()
}
