package srt

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	defaultMaxPayload      = 1456
	defaultStabilityTimeout = 60 * time.Millisecond
	defaultSenderBufferMax = 64 * defaultMaxPayload
	defaultSenderSpare     = 64
	defaultGroupMinStable  = 1
	defaultGapWait         = 100 * time.Millisecond
)

// Deps bundles the external collaborators a Group consumes. Every field is
// optional; a nil field gets a no-op or default reference implementation.
type Deps struct {
	Clock    Clock
	Notifier EventNotifier
	Metrics  MetricsSink
}

// Group is one logical connection composed of many bonded member links.
// See SPEC_FULL.md §3 for the full data model this mirrors.
type Group struct {
	mu sync.Mutex // group_lock: members, per-member state, sender buffer, sequence counters, positions

	id     GroupID
	peerID GroupID
	typ    GroupType
	policy Policy

	managed   bool
	closing   bool
	opened    bool
	connected bool

	members    *Members
	lastActive *Member

	lastSchedSeq SeqNo
	lastSchedMsg MsgNo

	startTime        time.Time
	rcvPeerStartTime time.Time
	haveStartTime    bool

	cfg optionList

	sndBuf       *senderBuffer
	sndOldestMsg MsgNo
	sndAckedMsg  MsgNo

	// maxSendableWeight is the highest weight among members that actually
	// transmitted successfully in the last Backup send round, used to
	// decide whether a higher-weight idler should preempt the current
	// sendable tier (SPEC_FULL.md §4.3 step 5's third activation trigger).
	// -1 means no member sent successfully in the last round (or no round
	// has run yet).
	maxSendableWeight int

	rcv receiveState

	busyCounter int32

	stats    Stats
	metrics  MetricsSink
	clock    Clock
	notifier EventNotifier

	tokens tokenGenerator

	// decoded option cache, read on the hot path without walking cfg
	sndTimeout       time.Duration
	rcvTimeout       time.Duration
	stabilityTimeout time.Duration
	tsbpdEnable      bool
	tsbpdDelay       time.Duration
	packetDropEnable bool
	maxPayload       int
	groupMinStable   int
	gapWait          time.Duration
}

// NewGroup constructs a Group of the given type. Its peer id starts as
// NoGroupID until SetPeerID records the peer's own group id. deps may be nil to use the
// default steady clock, no-op notifier and no-op metrics sink.
func NewGroup(id GroupID, typ GroupType, deps *Deps) *Group {
	if deps == nil {
		deps = &Deps{}
	}
	clock := deps.Clock
	if clock == nil {
		clock = NewSteadyClock()
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = noopNotifier{}
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = noopMetricsSink{}
	}

	policy, err := NewPolicy(typ)
	if err != nil {
		// Balancing/Multicast: the group still exists (so callers can
		// construct one without panicking) but every Send will fail with
		// ErrUnsupportedGroupType via the nil-policy guard in send.go.
		policy = nil
	}

	g := &Group{
		id:                id,
		peerID:            NoGroupID,
		typ:               typ,
		policy:            policy,
		members:           newMembers(),
		lastSchedSeq:      newISN(),
		lastSchedMsg:      newInitialMsgNo(),
		sndAckedMsg:       NoMsg,
		sndOldestMsg:      0,
		maxSendableWeight: -1,
		clock:             clock,
		notifier:          notifier,
		metrics:           metrics,
		sndTimeout:        -1,
		rcvTimeout:        -1,
		stabilityTimeout:  defaultStabilityTimeout,
		maxPayload:        defaultMaxPayload,
		groupMinStable:    defaultGroupMinStable,
		gapWait:           defaultGapWait,
	}
	g.rcv.init()
	if typ == Backup {
		g.sndBuf = newSenderBuffer(defaultMaxPayload, defaultSenderSpare, defaultSenderBufferMax)
	}
	return g
}

// ID returns the group's own identifier.
func (g *Group) ID() GroupID { return g.id }

// Type returns the group's immutable type.
func (g *Group) Type() GroupType { return g.typ }

// PeerID returns the peer's group id, or NoGroupID if not yet known.
func (g *Group) PeerID() GroupID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.peerID
}

// SetPeerID records the peer's announced group id.
func (g *Group) SetPeerID(id GroupID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.peerID = id
}

// acquireBusy/releaseBusy implement the busy_counter discipline of
// SPEC_FULL.md §5: every public entry point increments on entry and
// decrements on exit, so the registry can tell whether a Group is safe to
// delete. It is a plain atomic counter, independent of group_lock, because
// its only job is to outlive the operation, not to serialize against it.
func (g *Group) acquireBusy() { atomic.AddInt32(&g.busyCounter, 1) }
func (g *Group) releaseBusy() { atomic.AddInt32(&g.busyCounter, -1) }

// BusyCount reports how many public operations are currently in flight.
// The registry's deletion pass must not free a Group while this is > 0.
func (g *Group) BusyCount() int32 { return atomic.LoadInt32(&g.busyCounter) }

// AddMember appends a new member wrapping link, applying every option
// already configured on the group in insertion order (SPEC_FULL.md §4.7,
// property 8 "Config replay"). It returns the new member's handle.
func (g *Group) AddMember(data MemberData, link Link) *Member {
	g.acquireBusy()
	defer g.releaseBusy()

	g.mu.Lock()
	defer g.mu.Unlock()

	if data.Token == 0 {
		data.Token = g.tokens.Next()
	}
	m := g.members.Add(data, link)

	// A Link handed to AddMember is assumed already connected — the
	// abstract Link surface has no separate "handshake complete" signal,
	// and both reference adapters (Loopback, SecureUDP) only exist once
	// their own handshake, if any, is done. No member is left Pending
	// here: a link that already reports itself closed starts Broken, and
	// the classifier buckets then route it straight to wipeme.
	if link.IsClosed() {
		m.sndState = Broken
		m.rcvState = Broken
	} else {
		m.sndState = Idle
		m.rcvState = Idle
	}

	if !g.haveStartTime {
		g.startTime = g.clock.Now()
		g.haveStartTime = true
	}

	g.applyAllOptionsTo(m, link)

	g.opened = true
	g.metrics.SetMemberState(g.id, m.linkID, "send", m.sndState)
	g.metrics.SetMemberState(g.id, m.linkID, "recv", m.rcvState)

	return m
}

// RemoveMember erases the member with the given link id. When the group
// becomes empty, lastSchedSeq is reinitialized to a freshly generated ISN
// (invariant 4) so any later members start a new numbering space; both the
// removal and any concurrent first send take group_lock, so the race noted
// as unaddressed in SPEC_FULL.md §9 cannot happen here.
//
// found reports whether the link was actually a member; stillHasMembers
// reports the group's real post-removal emptiness. SPEC_FULL.md §9
// resolves the reference's conflation of the two explicitly: callers that
// want the historical "claim empty on not-found" behavior use
// RemoveMemberLegacy.
func (g *Group) RemoveMember(id LinkID) (found bool, stillHasMembers bool) {
	g.acquireBusy()
	defer g.releaseBusy()

	g.mu.Lock()
	defer g.mu.Unlock()

	found, stillHasMembers = g.members.Remove(id)
	if !found {
		logrus.WithFields(logrus.Fields{
			"component": "group",
			"group_id":  g.id,
			"link_id":   id,
		}).Warn("remove: link not found in group")
		return false, stillHasMembers
	}

	g.rcv.forget(id)

	if g.lastActive != nil && g.lastActive.linkID == id {
		g.lastActive = nil
	}

	if !stillHasMembers {
		g.opened = false
		g.connected = false
		g.lastSchedSeq = newISN()
		g.lastSchedMsg = newInitialMsgNo()
	}

	return true, stillHasMembers
}

// RemoveMemberLegacy mirrors the reference's Remove: a not-found link is
// logged and reported as "group is now empty" regardless of the list's
// actual state, even though the list itself is left untouched. Kept only
// because SPEC_FULL.md §9 describes the historical behavior as
// caller-visible in the reference; nothing in this implementation relies
// on it.
func (g *Group) RemoveMemberLegacy(id LinkID) (empty bool) {
	found, stillHasMembers := g.RemoveMember(id)
	if !found {
		return true
	}
	return !stillHasMembers
}

// applyAllOptionsTo replays every configured option onto a newly joined
// member, in insertion order (SPEC_FULL.md §4.7).
func (g *Group) applyAllOptionsTo(m *Member, link Link) {
	for _, opt := range g.cfg.entries {
		g.dispatchOption(opt.id, opt.value, m, link)
	}
}

// SetOpt stores opt with value in the group's ordered option list and, for
// options that are not join-time-only, applies it to every current member
// immediately (SPEC_FULL.md §4.7).
func (g *Group) SetOpt(opt OptID, value []byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.cfg.set(opt, value)
	g.applyDecodedCache(opt, value)

	if joinTimeOnly[opt] {
		return nil
	}
	for _, m := range g.members.list {
		g.dispatchOption(opt, value, m, m.link)
	}
	return nil
}

// GetOpt returns the most recently set raw bytes for opt, if any.
func (g *Group) GetOpt(opt OptID) ([]byte, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cfg.get(opt)
}

// applyDecodedCache updates the group's decoded option cache, used by the
// send/recv hot paths instead of re-walking the option list every call.
func (g *Group) applyDecodedCache(opt OptID, value []byte) {
	switch opt {
	case OptSndTimeout:
		if ms, ok := DecodeInt32(value); ok {
			g.sndTimeout = durationFromMillis(ms)
		}
	case OptRcvTimeout:
		if ms, ok := DecodeInt32(value); ok {
			g.rcvTimeout = durationFromMillis(ms)
		}
	case OptStabilityTimeout:
		if ms, ok := DecodeInt32(value); ok && ms > 0 {
			g.stabilityTimeout = time.Duration(ms) * time.Millisecond
		}
	case OptTSBPDEnable:
		if b, ok := DecodeBool(value); ok {
			g.tsbpdEnable = b
		}
	case OptTSBPDDelay:
		if ms, ok := DecodeInt32(value); ok {
			g.tsbpdDelay = time.Duration(ms) * time.Millisecond
		}
	case OptPacketDropEnable:
		if b, ok := DecodeBool(value); ok {
			g.packetDropEnable = b
		}
	case OptMaxPayloadSize:
		if v, ok := DecodeInt32(value); ok && v > 0 {
			g.maxPayload = int(v)
		}
	case OptGroupMinStable:
		if v, ok := DecodeInt32(value); ok && v > 0 {
			g.groupMinStable = int(v)
		}
	case OptGapWait:
		if ms, ok := DecodeInt32(value); ok && ms > 0 {
			g.gapWait = time.Duration(ms) * time.Millisecond
		}
	}
}

func durationFromMillis(ms int32) time.Duration {
	if ms < 0 {
		return -1
	}
	return time.Duration(ms) * time.Millisecond
}

// dispatchOption is the single switch-on-opt_id apply_to routine named in
// SPEC_FULL.md §9's design notes. Unknown option ids are stored (already
// done by SetOpt) but never dispatched here.
func (g *Group) dispatchOption(opt OptID, value []byte, m *Member, link Link) {
	switch opt {
	case OptTSBPDEnable, OptTSBPDDelay:
		// TSBPD anchoring is owned by the per-link transport; the group
		// only needs to have recorded the value so future members see it
		// too. Nothing to push onto Link here beyond what AddMember's
		// shared start_time handling already does.
	case OptSndTimeout, OptRcvTimeout, OptStabilityTimeout,
		OptPacketDropEnable, OptMaxPayloadSize, OptGroupMinStable, OptGapWait:
		// Pure group-side knobs; already absorbed into the decoded cache.
	default:
		logrus.WithFields(logrus.Fields{
			"component": "group",
			"group_id":  g.id,
			"opt_id":    int(opt),
		}).Debug("dispatchOption: unrecognized option, stored but not applied")
	}
}

// Status derives the coarse lifecycle getter named in SPEC_FULL.md §10.
func (g *Group) Status() Lifecycle {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closing {
		return LifecycleClosed
	}
	if !g.opened {
		return LifecycleIdle
	}
	anyRunning := false
	anyBroken := false
	for _, m := range g.members.list {
		switch m.sndState {
		case Running:
			anyRunning = true
		case Broken:
			anyBroken = true
		}
	}
	switch {
	case anyRunning:
		return LifecycleConnected
	case anyBroken && !anyRunning:
		return LifecycleBroken
	default:
		return LifecycleConnecting
	}
}

// GetStats returns a point-in-time snapshot of the group's counters.
func (g *Group) GetStats() StatsSnapshot { return g.stats.snapshot() }

// GetGroupData fills out up to max member snapshots, copied under
// group_lock, and reports the true member count so a caller whose buffer
// was too small knows to retry with a bigger one (SPEC_FULL.md §10).
func (g *Group) GetGroupData(max int) ([]MemberSnapshot, int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	total := len(g.members.list)
	n := total
	if max >= 0 && max < n {
		n = max
	}
	sorted := g.members.SortedByWeight()
	out := make([]MemberSnapshot, 0, n)
	for i, m := range sorted {
		if i >= n {
			break
		}
		out = append(out, MemberSnapshot{
			LinkID:    m.linkID,
			Token:     m.token,
			SendState: m.sndState,
			RecvState: m.rcvState,
			Weight:    m.weight,
			LocalAddr: addrString(m.link.LocalAddr()),
			PeerAddr:  addrString(m.link.PeerAddr()),
			SendErr:   m.sndResult,
			RecvErr:   m.rcvResult,
		})
	}
	return out, total
}

func addrString(a interface{ String() string }) string {
	if a == nil {
		return ""
	}
	return a.String()
}
