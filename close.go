package srt

import "github.com/sirupsen/logrus"

// reapBrokenLocked scans every member for a terminal link state and erases
// it, mirroring the reference's send_CheckPendingSockets/
// send_CloseBrokenSockets pass (SPEC_FULL.md §4.6). It runs after every send
// round rather than on its own timer, since a send round is exactly the
// point at which a link's brokenness becomes actionable. Must be called
// with g.mu held.
func (g *Group) reapBrokenLocked() {
	var wiped []LinkID
	for _, m := range g.members.list {
		if m.sndState == Broken || m.rcvState == Broken || m.link.IsClosed() {
			wiped = append(wiped, m.linkID)
		}
	}
	for _, id := range wiped {
		found, stillHasMembers := g.members.Remove(id)
		if !found {
			continue
		}
		g.rcv.forget(id)
		if g.lastActive != nil && g.lastActive.linkID == id {
			g.lastActive = nil
		}
		g.notifier.SignalErr(g)
		logrus.WithFields(logrus.Fields{
			"component": "group",
			"group_id":  g.id,
			"link_id":   id,
		}).Info("reaped broken member")
		if !stillHasMembers {
			g.opened = false
			g.connected = false
			g.lastSchedSeq = newISN()
			g.lastSchedMsg = newInitialMsgNo()
		}
	}
}

// Close severs every member and unblocks any call blocked in Recv, per
// SPEC_FULL.md §5: "close() is idempotent; it unblocks any waiting recv."
// It waits for no in-flight busy_counter holders itself — the registry is
// the layer responsible for not freeing a Group while BusyCount() is still
// positive (SPEC_FULL.md §5's delete-safety note).
func (g *Group) Close() error {
	g.acquireBusy()
	defer g.releaseBusy()

	g.mu.Lock()
	if g.closing {
		g.mu.Unlock()
		return nil
	}
	g.closing = true
	g.opened = false
	g.connected = false
	ids := make([]LinkID, 0, len(g.members.list))
	links := make([]Link, 0, len(g.members.list))
	for _, m := range g.members.list {
		m.sndState = Broken
		m.rcvState = Broken
		ids = append(ids, m.linkID)
		links = append(links, m.link)
	}
	g.mu.Unlock()

	g.closeReceive()

	for i, link := range links {
		if err := link.Close(); err != nil {
			logrus.WithFields(logrus.Fields{
				"component": "group",
				"group_id":  g.id,
				"link_id":   ids[i],
				"error":     err.Error(),
			}).Warn("close: link close failed")
		}
	}

	g.mu.Lock()
	g.members.list = nil
	g.members.byID = make(map[LinkID]*Member)
	g.mu.Unlock()
	return nil
}
