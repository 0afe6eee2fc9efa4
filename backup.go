package srt

// backupPolicy implements Policy for GroupType Backup: a single preferred
// member transmits; standbys stay idle until failover, and a replay buffer
// lets a newly activated standby catch up, per SPEC_FULL.md §4.3. When
// instability forces more than one member to transmit in the same round,
// parallel reconciliation keeps the highest-weight one preferred and
// demotes the rest back to Idle once that one proves stable again.
type backupPolicy struct{}

func (backupPolicy) Type() GroupType { return Backup }

func (backupPolicy) Send(g *Group, buf []byte, ctrl *Ctrl) (int, error) {
	b := g.qualifyBackupLocked()

	stable := stableSendable(b.sendable, b.unstable)
	allUnstable := len(b.sendable) > 0 && len(stable) == 0

	// Activation triggers, SPEC_FULL.md §4.3 step 5: no sendable member at
	// all, every sendable member unstable this round, or a waiting idler
	// outweighs everything that sent successfully last round.
	needActivation := (len(b.sendable) == 0 && len(b.idlers) > 0) ||
		allUnstable ||
		(len(b.idlers) > 0 && int(b.idlers[0].weight) > g.maxSendableWeight)

	// §4.3 step 2: transmit on the whole sendable tier, not just the
	// highest-weight stable member — an unstable sendable member keeps
	// getting traffic alongside a stable one (scenario S3) rather than
	// being silently dropped from the round.
	targets := append([]*Member{}, b.sendable...)

	var activated *Member
	if needActivation && len(b.idlers) > 0 {
		activated = b.idlers[0]
		targets = append(targets, activated)
	}
	if len(targets) == 0 {
		return 0, newGroupError("send", g.id, 0, ErrNotConnected)
	}

	// Snapshot the replay backlog before pushing the current message, so a
	// newly activated member catches up to exactly where every other
	// sender already is, then receives the current message alongside them.
	var backlog []*bufferedMessage
	if activated != nil {
		backlog = g.sndBuf.replayFrom(g.sndAckedMsg)
	}

	ctrl.Seq = g.nextSeqLocked()
	ctrl.Msg = g.nextMsgLocked()
	ctrl.Timestamp = g.clock.Now()
	local := *ctrl

	if err := g.sndBuf.push(local, buf); err != nil {
		return 0, err
	}
	if oldest, ok := g.sndBuf.oldestMsg(); ok {
		g.sndOldestMsg = oldest
	}

	g.mu.Unlock()
	if activated != nil {
		for _, entry := range backlog {
			dispatchSends([]*Member{activated}, entry.data, entry.ctrl)
		}
	}
	results := dispatchSends(targets, buf, local)
	g.mu.Lock()

	succeeded := g.applySendResultsLocked(results, len(buf))

	g.maxSendableWeight = -1
	var parallel []*Member
	for _, r := range results {
		if r.status != SendOK {
			continue
		}
		parallel = append(parallel, r.member)
		if int(r.member.weight) > g.maxSendableWeight {
			g.maxSendableWeight = int(r.member.weight)
		}
	}
	g.reconcileParallelLocked(parallel)

	if activated != nil && succeeded > 0 {
		g.stats.markActivated(g.clock.Now())
	}

	if succeeded == 0 {
		if allWouldBlock(results) {
			return 0, newGroupError("send", g.id, 0, ErrWouldBlock)
		}
		return 0, newGroupError("send", g.id, 0, ErrNotConnected)
	}
	return len(buf), nil
}
