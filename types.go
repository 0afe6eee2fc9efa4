package srt

import "time"

// GroupID identifies a Group. Negative values are the "unassigned" sentinel.
type GroupID int32

// NoGroupID is the sentinel for an unassigned group or peer-group id.
const NoGroupID GroupID = -1

// LinkID identifies a member's underlying link within the socket registry.
type LinkID int32

// SeqNo is a shared, group-assigned sequence number. Comparisons must use
// seqGreater/seqGreaterOrEqual rather than plain integer comparison, since the space
// wraps around.
type SeqNo uint32

// NoSeq is a "no sequence" sentinel value. The receive path does not use
// it: it tracks "nothing delivered yet" with a separate flag.
const NoSeq SeqNo = 0xFFFFFFFF

// MsgNo is a shared, group-assigned message number. Unlike SeqNo it
// increases monotonically per *message* rather than per packet, and backs
// the sender replay buffer's bookkeeping.
type MsgNo uint32

// NoMsg is the "nothing acknowledged yet" sentinel for snd_acked_msg.
const NoMsg MsgNo = 0xFFFFFFFF

// seqGreater reports whether a is strictly ahead of b in the wrapping
// sequence space, using signed difference the way TCP/SRT sequence
// comparisons do.
func seqGreater(a, b SeqNo) bool {
	return int32(a-b) > 0
}

func seqGreaterOrEqual(a, b SeqNo) bool {
	return int32(a-b) >= 0
}

func msgGreater(a, b MsgNo) bool {
	return int32(a-b) > 0
}

// GroupType selects the membership policy of a Group. It is immutable once
// the Group is created.
type GroupType int

const (
	// Broadcast transmits every message on every Running member.
	Broadcast GroupType = iota
	// Backup keeps a single preferred transmitting member and fails over
	// to a standby by replaying the sender buffer.
	Backup
	// Balancing is declared but not implemented by this core; see
	// SPEC_FULL.md §9.
	Balancing
	// Multicast is declared but not implemented by this core; see
	// SPEC_FULL.md §9.
	Multicast
)

func (t GroupType) String() string {
	switch t {
	case Broadcast:
		return "broadcast"
	case Backup:
		return "backup"
	case Balancing:
		return "balancing"
	case Multicast:
		return "multicast"
	default:
		return "unknown"
	}
}

// MemberState is the four-valued per-direction state of a member link, per
// SPEC_FULL.md §4.5.
type MemberState int

const (
	// Pending means the underlying link has not finished its handshake.
	Pending MemberState = iota
	// Idle means the link is connected but has not been selected to carry
	// traffic yet.
	Idle
	// Running means the link is actively carrying traffic.
	Running
	// Broken is terminal; the member is wiped on the next send round.
	Broken
)

func (s MemberState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Broken:
		return "broken"
	default:
		return "unknown"
	}
}

// Lifecycle is the coarse group-level status surfaced by Group.Status, per
// SPEC_FULL.md §10.
type Lifecycle int

const (
	LifecycleIdle Lifecycle = iota
	LifecycleConnecting
	LifecycleConnected
	LifecycleBroken
	LifecycleClosed
)

func (l Lifecycle) String() string {
	switch l {
	case LifecycleIdle:
		return "idle"
	case LifecycleConnecting:
		return "connecting"
	case LifecycleConnected:
		return "connected"
	case LifecycleBroken:
		return "broken"
	case LifecycleClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// SendStatus is the outcome of a single Link.Send call.
type SendStatus int

const (
	// SendOK means the link accepted the payload.
	SendOK SendStatus = iota
	// SendWouldBlock means the link could not accept the payload right
	// now but is not broken.
	SendWouldBlock
	// SendFatal means the link is no longer usable.
	SendFatal
)

// Ctrl carries the shared message metadata that travels identically across
// every link transmitting a given message, per SPEC_FULL.md's Shared
// sequence number glossary entry.
type Ctrl struct {
	Seq        SeqNo
	Msg        MsgNo
	Flags      uint8
	Timestamp  time.Time
	ProviderID LinkID // filled by recv to tell the caller which member delivered it
}

// Packet is what a Link hands back from RecvPoll.
type Packet struct {
	Ctrl Ctrl
	Data []byte
}
