package srt

// Policy implements the group-type-specific part of the send path:
// SPEC_FULL.md §4.2 for Broadcast, §4.3 for Backup. Broadcast and Backup
// differ only in which members are selected to transmit and in what
// happens on failure; everything else (sequence assignment, per-link send
// dispatch with the lock released, result application) is shared
// scaffolding in send.go.
type Policy interface {
	// Send transmits buf, filling in ctrl's Seq/Msg before returning. It
	// is always called with the group lock held, and must release it
	// before invoking any Link method that may block.
	Send(g *Group, buf []byte, ctrl *Ctrl) (int, error)

	// Type identifies which GroupType this policy implements.
	Type() GroupType
}

// NewPolicy selects the send-path policy for a group type. Balancing and
// Multicast are declared in the type enumeration but this core does not
// commit to their semantics (SPEC_FULL.md §9), so selecting them fails
// fast instead of silently behaving like Broadcast or Backup.
func NewPolicy(t GroupType) (Policy, error) {
	switch t {
	case Broadcast:
		return broadcastPolicy{}, nil
	case Backup:
		return backupPolicy{}, nil
	case Balancing, Multicast:
		return nil, ErrUnsupportedGroupType
	default:
		return nil, ErrUnsupportedGroupType
	}
}
