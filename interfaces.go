package srt

import (
	"net"
	"time"
)

// Link is the abstract per-link transport the group sends and receives
// through. A real implementation owns handshake, retransmission, crypto and
// pacing; the group only needs the surface below. Link implementations own
// their own mutex: the group must never hold its group lock while calling a
// method that may block (see SPEC_FULL.md §5).
type Link interface {
	// ID returns the link's identifier within the registry.
	ID() LinkID

	// Send transmits buf under the given shared sequence/message numbers.
	// It may block briefly, or return SendWouldBlock without blocking.
	Send(buf []byte, ctrl Ctrl) (SendStatus, error)

	// RecvPoll returns the next packet the link has buffered, if any,
	// without blocking.
	RecvPoll() (*Packet, bool)

	// OverrideNextSeq rebinds the link's next expected receive sequence,
	// used when a group assigns sequence numbers out of the link's own
	// local space.
	OverrideNextSeq(seq SeqNo)

	LocalAddr() net.Addr
	PeerAddr() net.Addr

	// TimeSinceLastResponse reports how long it has been since the peer
	// last acknowledged anything on this link; used by the stability
	// classifier.
	TimeSinceLastResponse() time.Duration

	IsClosed() bool

	// Close severs the underlying link. The distilled interface list in
	// SPEC_FULL.md §6 names close() only at the group level ("severs each
	// member"); a real per-link transport obviously needs its own close
	// to sever with, so this supplements the abstract Link surface rather
	// than reopening a Non-goal.
	Close() error
}

// Registry is the process-wide collaborator that resolves link ids to Link
// values and groups ids to Group values, and that owns the lock ordered
// above every group's own lock (registry lock acquired first).
type Registry interface {
	LookupGroup(id GroupID) (*Group, bool)
	LookupLink(id LinkID) (Link, bool)
}

// EventNotifier reports member readiness transitions to whatever external
// readiness-wakeup primitive the application layer polls (an epoll-alike,
// a channel, …). eid identifies the registered waiter.
type EventNotifier interface {
	Register(eid int, g *Group)
	SignalRead(g *Group)
	SignalWrite(g *Group)
	SignalErr(g *Group)
	Unregister(eid int, g *Group)
}

// Clock is a steady, monotonic time source, used for stability timing and
// TSBPD anchors. Deps.Clock lets a caller substitute its own
// implementation; the default is NewSteadyClock.
type Clock interface {
	Now() time.Time
}

// MetricsSink receives the same events that update the in-struct Stats
// counters (SPEC_FULL.md §4.8). A nil sink is valid and simply means no
// external metrics system is wired up; the in-struct counters are always
// maintained regardless.
type MetricsSink interface {
	IncSent(gid GroupID, lid LinkID, bytes int)
	IncReceived(gid GroupID, lid LinkID, bytes int)
	IncDroppedBeforeMerge(gid GroupID)
	IncDiscardedDuplicate(gid GroupID)
	IncRecvDrop(gid GroupID)
	SetMemberState(gid GroupID, lid LinkID, direction string, state MemberState)
}

// steadyClock is the default Clock, backed by time.Now. time.Now on every
// supported platform already returns a monotonic reading suitable for
// duration math, so no extra bookkeeping is needed here.
type steadyClock struct{}

func (steadyClock) Now() time.Time { return time.Now() }

// NewSteadyClock returns the default Clock implementation.
func NewSteadyClock() Clock { return steadyClock{} }

// noopMetricsSink discards every event; used when a Group is constructed
// with a nil MetricsSink so call sites never need a nil check.
type noopMetricsSink struct{}

func (noopMetricsSink) IncSent(GroupID, LinkID, int)                        {}
func (noopMetricsSink) IncReceived(GroupID, LinkID, int)                    {}
func (noopMetricsSink) IncDroppedBeforeMerge(GroupID)                       {}
func (noopMetricsSink) IncDiscardedDuplicate(GroupID)                       {}
func (noopMetricsSink) IncRecvDrop(GroupID)                                 {}
func (noopMetricsSink) SetMemberState(GroupID, LinkID, string, MemberState) {}

// noopNotifier discards every readiness event; used when a Group is
// constructed without an EventNotifier.
type noopNotifier struct{}

func (noopNotifier) Register(int, *Group)   {}
func (noopNotifier) SignalRead(*Group)      {}
func (noopNotifier) SignalWrite(*Group)     {}
func (noopNotifier) SignalErr(*Group)       {}
func (noopNotifier) Unregister(int, *Group) {}
