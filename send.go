package srt

import "sync"

// sendResult is the outcome of one member's Link.Send call, collected by
// dispatchSends and applied back onto the member under group_lock.
type sendResult struct {
	member *Member
	status SendStatus
	err    error
}

// Send transmits buf according to the group's policy (Broadcast or Backup),
// assigning the next shared sequence/message number. ctrl may be nil if the
// caller doesn't need the assigned numbers back; otherwise it is filled in
// with Seq, Msg and Timestamp before Send returns.
//
// Per SPEC_FULL.md §5, the group lock is held for bookkeeping (sequence
// assignment, member classification, sender buffer) but released for the
// actual per-link transmission; Policy.Send owns that release/reacquire
// around its own call into dispatchSends.
func (g *Group) Send(buf []byte, ctrl *Ctrl) (int, error) {
	g.acquireBusy()
	defer g.releaseBusy()

	if ctrl == nil {
		ctrl = &Ctrl{}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closing {
		return 0, newGroupError("send", g.id, 0, ErrClosed)
	}
	if g.policy == nil {
		return 0, newGroupError("send", g.id, 0, ErrUnsupportedGroupType)
	}
	if len(buf) > g.maxPayload {
		return 0, newGroupError("send", g.id, 0, ErrInvalidParam)
	}

	n, err := g.policy.Send(g, buf, ctrl)
	g.reapBrokenLocked()
	return n, err
}

// nextSeqLocked/nextMsgLocked hand out the group's shared sequence/message
// numbers. Must be called with g.mu held.
func (g *Group) nextSeqLocked() SeqNo {
	s := g.lastSchedSeq
	g.lastSchedSeq++
	return s
}

func (g *Group) nextMsgLocked() MsgNo {
	m := g.lastSchedMsg
	g.lastSchedMsg++
	return m
}

// dispatchSends issues buf to every member in targets concurrently, with
// group_lock already released by the caller. A single member almost never
// needs concurrency, but Broadcast fanning a message out to many
// heterogeneous links is exactly the case SPEC_FULL.md §1 calls out as
// needing to "coordinate concurrent sends across heterogeneous links"
// without letting a slow link hold up a fast one.
func dispatchSends(targets []*Member, buf []byte, ctrl Ctrl) []sendResult {
	results := make([]sendResult, len(targets))
	if len(targets) == 1 {
		m := targets[0]
		status, err := m.link.Send(buf, ctrl)
		results[0] = sendResult{member: m, status: status, err: err}
		return results
	}

	var wg sync.WaitGroup
	for i, m := range targets {
		wg.Add(1)
		go func(i int, m *Member) {
			defer wg.Done()
			status, err := m.link.Send(buf, ctrl)
			results[i] = sendResult{member: m, status: status, err: err}
		}(i, m)
	}
	wg.Wait()
	return results
}

// allWouldBlock reports whether results is non-empty and every result in
// it is SendWouldBlock, the condition under which a policy's Send should
// surface a retriable ErrWouldBlock instead of ErrNotConnected, per
// SPEC_FULL.md §4.2 step 6 / §4.3 step 8.
func allWouldBlock(results []sendResult) bool {
	if len(results) == 0 {
		return false
	}
	for _, r := range results {
		if r.status != SendWouldBlock {
			return false
		}
	}
	return true
}

// AckMessage records that the peer has acknowledged everything up to and
// including upTo, trimming the Backup sender buffer accordingly. SPEC_FULL.md
// §4.3 names "sender buffer maintenance" as driven by ACKs but leaves the
// ACK transport itself to the Link; a real Link implementation calls this
// whenever it learns of a new cumulative ack from its peer.
func (g *Group) AckMessage(upTo MsgNo) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sndBuf == nil {
		return
	}
	g.sndBuf.trimAckedUpTo(upTo)
	if g.sndAckedMsg == NoMsg || msgGreater(upTo, g.sndAckedMsg) {
		g.sndAckedMsg = upTo
	}
	if oldest, ok := g.sndBuf.oldestMsg(); ok {
		g.sndOldestMsg = oldest
	}
}

// applySendResultsLocked folds dispatchSends' results back onto each
// member's state, per the Idle/Running/Broken transitions of SPEC_FULL.md
// §4.5: a fatal send breaks the member outright; a would-block marks it
// unstable (Backup's stability classifier consumes this next round) without
// otherwise changing its state. Must be called with g.mu held.
func (g *Group) applySendResultsLocked(results []sendResult, bytes int) (succeeded int) {
	for _, r := range results {
		m := r.member
		switch r.status {
		case SendOK:
			m.sndResult = nil
			m.unstable = false
			if m.sndState == Pending || m.sndState == Idle {
				m.sndState = Running
			}
			g.stats.incSent(g.id, m.linkID, bytes, g.metrics)
			g.metrics.SetMemberState(g.id, m.linkID, "send", m.sndState)
			g.updateWriteState(m, true)
			g.lastActive = m
			succeeded++
		case SendWouldBlock:
			m.sndResult = r.err
			m.unstable = true
			g.updateWriteState(m, false)
		case SendFatal:
			m.sndResult = r.err
			m.sndState = Broken
			g.metrics.SetMemberState(g.id, m.linkID, "send", m.sndState)
			g.updateWriteState(m, false)
			g.updateFailedLink(m)
		}
	}
	return succeeded
}
