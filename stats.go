package srt

import (
	"sync/atomic"
	"time"
)

// Stats is the always-present, lock-free snapshot of the counters named in
// SPEC_FULL.md §3/§4.8. Every field is updated with atomic operations so
// GetStats never has to contend with the group lock.
type Stats struct {
	Sent                uint64
	Received            uint64
	DroppedBeforeMerge  uint64
	DiscardedDuplicate  uint64
	RecvDrop            uint64
	ActivationTimeNanos int64
}

// StatsSnapshot is a point-in-time copy of Stats, safe to hand to callers.
type StatsSnapshot struct {
	Sent               uint64
	Received           uint64
	DroppedBeforeMerge uint64
	DiscardedDuplicate uint64
	RecvDrop           uint64
	ActivationTime     time.Time
}

func (s *Stats) incSent(gid GroupID, lid LinkID, bytes int, sink MetricsSink) {
	atomic.AddUint64(&s.Sent, 1)
	sink.IncSent(gid, lid, bytes)
}

func (s *Stats) incReceived(gid GroupID, lid LinkID, bytes int, sink MetricsSink) {
	atomic.AddUint64(&s.Received, 1)
	sink.IncReceived(gid, lid, bytes)
}

func (s *Stats) incDroppedBeforeMerge(gid GroupID, sink MetricsSink) {
	atomic.AddUint64(&s.DroppedBeforeMerge, 1)
	sink.IncDroppedBeforeMerge(gid)
}

func (s *Stats) incDiscardedDuplicate(gid GroupID, sink MetricsSink) {
	atomic.AddUint64(&s.DiscardedDuplicate, 1)
	sink.IncDiscardedDuplicate(gid)
}

func (s *Stats) incRecvDrop(gid GroupID, sink MetricsSink) {
	atomic.AddUint64(&s.RecvDrop, 1)
	sink.IncRecvDrop(gid)
}

func (s *Stats) markActivated(at time.Time) {
	atomic.StoreInt64(&s.ActivationTimeNanos, at.UnixNano())
}

func (s *Stats) snapshot() StatsSnapshot {
	return StatsSnapshot{
		Sent:               atomic.LoadUint64(&s.Sent),
		Received:           atomic.LoadUint64(&s.Received),
		DroppedBeforeMerge: atomic.LoadUint64(&s.DroppedBeforeMerge),
		DiscardedDuplicate: atomic.LoadUint64(&s.DiscardedDuplicate),
		RecvDrop:           atomic.LoadUint64(&s.RecvDrop),
		ActivationTime:     time.Unix(0, atomic.LoadInt64(&s.ActivationTimeNanos)),
	}
}

// MemberSnapshot is one row of the Group.GetGroupData getter, per
// SPEC_FULL.md §10.
type MemberSnapshot struct {
	LinkID     LinkID
	Token      uint32
	SendState  MemberState
	RecvState  MemberState
	Weight     uint16
	LocalAddr  string
	PeerAddr   string
	SendErr    error
	RecvErr    error
}
