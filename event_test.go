package srt

import (
	"sync"
	"testing"
)

// fakeNotifier is a controllable srt.EventNotifier that just counts calls,
// analogous in spirit to fakeLink.
type fakeNotifier struct {
	mu     sync.Mutex
	reads  int
	writes int
	errs   int
}

func (n *fakeNotifier) Register(int, *Group)   {}
func (n *fakeNotifier) Unregister(int, *Group) {}

func (n *fakeNotifier) SignalRead(*Group) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reads++
}

func (n *fakeNotifier) SignalWrite(*Group) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.writes++
}

func (n *fakeNotifier) SignalErr(*Group) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errs++
}

func (n *fakeNotifier) counts() (reads, writes, errs int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.reads, n.writes, n.errs
}

func TestProvidePacketSignalsReadReady(t *testing.T) {
	notifier := &fakeNotifier{}
	g := NewGroup(1, Broadcast, &Deps{Notifier: notifier})
	g.AddMember(MemberData{LinkID: 1}, newFakeLink(1))

	g.ProvidePacket(1, &Packet{Ctrl: Ctrl{Seq: g.lastSchedSeq + 1}, Data: []byte("x")})

	reads, _, _ := notifier.counts()
	if reads == 0 {
		t.Fatal("expected SignalRead to fire once a candidate was cached")
	}
	m, _ := g.members.Contains(1)
	if !m.ReadyRead() {
		t.Fatal("expected ReadyRead to be true after ProvidePacket")
	}
}

func TestRecvClearsReadyReadOnceConsumed(t *testing.T) {
	notifier := &fakeNotifier{}
	g := NewGroup(1, Broadcast, &Deps{Notifier: notifier})
	g.SetOpt(OptRcvTimeout, EncodeInt32(0))
	g.AddMember(MemberData{LinkID: 1}, newFakeLink(1))

	base := g.lastSchedSeq
	g.ProvidePacket(1, &Packet{Ctrl: Ctrl{Seq: base + 1}, Data: []byte("x")})

	buf := make([]byte, 8)
	if _, _, err := g.Recv(buf); err != nil {
		t.Fatalf("Recv: %v", err)
	}

	m, _ := g.members.Contains(1)
	if m.ReadyRead() {
		t.Fatal("expected ReadyRead to clear once the candidate was consumed")
	}
}

func TestSendSignalsWriteReadyOnSuccessAndErrOnFatal(t *testing.T) {
	notifier := &fakeNotifier{}
	g := NewGroup(1, Broadcast, &Deps{Notifier: notifier})
	ok := newFakeLink(1)
	failing := newFakeLink(2)
	failing.sendFunc = func([]byte, Ctrl) (SendStatus, error) { return SendFatal, ErrInternal }
	g.AddMember(MemberData{LinkID: 1}, ok)
	// Send reaps the broken member before it returns, so the handle from
	// AddMember is the only way to inspect it afterward.
	failingMember := g.AddMember(MemberData{LinkID: 2}, failing)

	if _, err := g.Send([]byte("hi"), nil); err != nil {
		t.Fatalf("Send: %v", err)
	}

	_, writes, errs := notifier.counts()
	if writes == 0 {
		t.Fatal("expected SignalWrite to fire for the member that sent OK")
	}
	if errs == 0 {
		t.Fatal("expected SignalErr to fire for the member whose send was fatal")
	}

	okMember, _ := g.members.Contains(1)
	if !okMember.ReadyWrite() {
		t.Fatal("expected ReadyWrite true on the succeeding member")
	}
	if !failingMember.ReadyErr() {
		t.Fatal("expected ReadyErr true on the fatally failed member")
	}
}

func TestReapBrokenSignalsErrOnWipe(t *testing.T) {
	notifier := &fakeNotifier{}
	g := NewGroup(1, Broadcast, &Deps{Notifier: notifier})
	failing := newFakeLink(1)
	failing.sendFunc = func([]byte, Ctrl) (SendStatus, error) { return SendFatal, ErrInternal }
	g.AddMember(MemberData{LinkID: 1}, failing)

	if _, err := g.Send([]byte("hi"), nil); err == nil {
		t.Fatal("expected the only member's fatal send to fail the whole Send")
	}

	_, _, errsAfterSend := notifier.counts()
	if errsAfterSend == 0 {
		t.Fatal("expected at least one SignalErr by the time reapBrokenLocked has run")
	}
}
