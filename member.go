package srt

import "sort"

// LinkStatus is the last observed lifecycle state of a member's underlying
// link, independent of the per-direction MemberState the group itself
// tracks.
type LinkStatus int

const (
	LinkConnecting LinkStatus = iota
	LinkConnected
	LinkClosed
	LinkBroken
)

// MemberData is the caller-supplied description of a new member, passed to
// Group.AddMember.
type MemberData struct {
	LinkID LinkID
	// Token disambiguates links across rebinds. Zero means "generate one",
	// per SPEC_FULL.md §10's token generator.
	Token  uint32
	Weight uint16
}

// Member is the per-link record a Group keeps for each bonded link.
//
// The reference implementation this spec distills from has Link hold a
// strong reference back to its owning Group, forming a cycle that has to be
// broken with manual bookkeeping. A Go Member instead holds the Link value
// it was given at AddMember time directly: there is no refcounting cycle to
// avoid, since the garbage collector already handles the graph, and the
// registry remains the process-wide authority for link_id -> Link lookup
// and for busy-counter-gated deletion (see the registry package).
type Member struct {
	linkID LinkID
	token  uint32
	weight uint16

	link Link

	lastStatus LinkStatus
	sndState   MemberState
	rcvState   MemberState
	sndResult  error
	rcvResult  error

	readyRead  bool
	readyWrite bool
	readyErr   bool

	// unstable is set when a send on this member reports would-block and
	// stays set until a later send succeeds or the member is demoted; the
	// Backup stability classifier reads it, see SPEC_FULL.md §4.3.
	unstable bool

	// downgradePending marks a Running member that transmitted alongside a
	// higher-weight member during parallel reconciliation (SPEC_FULL.md
	// §4.3 step 7). It is demoted back to Idle once that preferred member
	// proves stable in a later round.
	downgradePending bool
}

// LinkID returns the member's underlying link identifier.
func (m *Member) LinkID() LinkID { return m.linkID }

// Weight returns the member's priority used by Backup activation ordering.
func (m *Member) Weight() uint16 { return m.weight }

// SendState returns the member's current send-direction state.
func (m *Member) SendState() MemberState { return m.sndState }

// RecvState returns the member's current receive-direction state.
func (m *Member) RecvState() MemberState { return m.rcvState }

// ReadyRead reports whether a candidate is currently cached for this
// member's provider slot, per SPEC_FULL.md §3's ready_read flag.
func (m *Member) ReadyRead() bool { return m.readyRead }

// ReadyWrite reports whether this member's last send attempt succeeded
// rather than would-blocked, per SPEC_FULL.md §3's ready_write flag.
func (m *Member) ReadyWrite() bool { return m.readyWrite }

// ReadyErr reports whether this member's link has failed, per
// SPEC_FULL.md §3's ready_error flag.
func (m *Member) ReadyErr() bool { return m.readyErr }

// Members is the ordered membership registry owned by a Group. All
// mutation and iteration must happen under the owning Group's lock.
type Members struct {
	list []*Member
	byID map[LinkID]*Member
}

func newMembers() *Members {
	return &Members{byID: make(map[LinkID]*Member)}
}

// Add appends a new member and returns a stable handle to it. Members are
// always appended, never inserted mid-list, per SPEC_FULL.md §4.1.
func (ms *Members) Add(data MemberData, link Link) *Member {
	m := &Member{
		linkID:     data.LinkID,
		token:      data.Token,
		weight:     data.Weight,
		link:       link,
		lastStatus: LinkConnecting,
		sndState:   Pending,
		rcvState:   Pending,
	}
	ms.list = append(ms.list, m)
	ms.byID[data.LinkID] = m
	return m
}

// Remove erases the member with the given link id. It reports whether the
// member was found and whether the group still has any members afterward.
// Unlike the reference's Remove, which conflates "not found" with
// "emptied," these are reported separately — see SPEC_FULL.md §9.
func (ms *Members) Remove(id LinkID) (found bool, stillHasMembers bool) {
	m, ok := ms.byID[id]
	if !ok {
		return false, len(ms.list) > 0
	}
	delete(ms.byID, id)
	for i, cur := range ms.list {
		if cur == m {
			ms.list = append(ms.list[:i], ms.list[i+1:]...)
			break
		}
	}
	return true, len(ms.list) > 0
}

// Contains looks up a member by link id.
func (ms *Members) Contains(id LinkID) (*Member, bool) {
	m, ok := ms.byID[id]
	return m, ok
}

// Len returns the current member count.
func (ms *Members) Len() int { return len(ms.list) }

// All returns a snapshot slice of every current member, safe to iterate
// after the caller releases the group lock.
func (ms *Members) All() []*Member {
	out := make([]*Member, len(ms.list))
	copy(out, ms.list)
	return out
}

// sortByWeight orders ms by descending weight, falling back to original
// insertion order for ties (sort.SliceStable's stability does that for
// free). The single comparator backing both SortedIdle and SortedByWeight,
// per SPEC_FULL.md §4.3's idler ordering reused by §10's presentation
// order.
func sortByWeight(ms []*Member) {
	sort.SliceStable(ms, func(i, j int) bool {
		return ms[i].weight > ms[j].weight
	})
}

// SortedIdle returns every member with SendState == Idle whose link is
// still connected, sorted by descending weight, per SPEC_FULL.md §4.3's
// idler ordering.
func (ms *Members) SortedIdle() []*Member {
	var idlers []*Member
	for _, m := range ms.list {
		if m.sndState == Idle && !m.link.IsClosed() {
			idlers = append(idlers, m)
		}
	}
	sortByWeight(idlers)
	return idlers
}

// SortedByWeight returns every current member, regardless of state,
// sorted by descending weight — the presentation order GetGroupData uses,
// per SPEC_FULL.md §10.
func (ms *Members) SortedByWeight() []*Member {
	out := make([]*Member, len(ms.list))
	copy(out, ms.list)
	sortByWeight(out)
	return out
}
