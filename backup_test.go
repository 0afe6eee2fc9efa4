package srt

import (
	"errors"
	"testing"
	"time"
)

func TestBackupSendsOnlyToHighestWeightStableMember(t *testing.T) {
	g := NewGroup(1, Backup, nil)
	primary := newFakeLink(1)
	standby := newFakeLink(2)
	g.AddMember(MemberData{LinkID: 1, Weight: 10}, primary)
	g.AddMember(MemberData{LinkID: 2, Weight: 1}, standby)

	// Both members start Idle; the first send activates the
	// highest-weight one and leaves the other standing by.
	if _, err := g.Send([]byte("hi"), nil); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if primary.sentCount() != 1 {
		t.Fatalf("primary sentCount = %d, want 1", primary.sentCount())
	}
	if standby.sentCount() != 0 {
		t.Fatalf("standby sentCount = %d, want 0 while primary is stable", standby.sentCount())
	}
}

func TestBackupFailsOverToStandbyWhenPrimaryGoesQuiet(t *testing.T) {
	g := NewGroup(1, Backup, nil)
	if err := g.SetOpt(OptStabilityTimeout, EncodeDuration(5*time.Millisecond)); err != nil {
		t.Fatalf("SetOpt: %v", err)
	}
	primary := newFakeLink(1)
	standby := newFakeLink(2)
	g.AddMember(MemberData{LinkID: 1, Weight: 10}, primary)
	g.AddMember(MemberData{LinkID: 2, Weight: 1}, standby)

	if _, err := g.Send([]byte("one"), nil); err != nil {
		t.Fatalf("Send: %v", err)
	}

	primary.goQuiet(time.Second)

	if _, err := g.Send([]byte("two"), nil); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if standby.sentCount() == 0 {
		t.Fatal("expected standby to receive a send once the primary went quiet")
	}
}

func TestBackupReplaysBufferOntoNewlyActivatedStandby(t *testing.T) {
	g := NewGroup(1, Backup, nil)
	if err := g.SetOpt(OptStabilityTimeout, EncodeDuration(5*time.Millisecond)); err != nil {
		t.Fatalf("SetOpt: %v", err)
	}
	primary := newFakeLink(1)
	standby := newFakeLink(2)
	g.AddMember(MemberData{LinkID: 1, Weight: 10}, primary)

	if _, err := g.Send([]byte("buffered-one"), nil); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if _, err := g.Send([]byte("buffered-two"), nil); err != nil {
		t.Fatalf("Send: %v", err)
	}

	primary.goQuiet(time.Second)
	g.AddMember(MemberData{LinkID: 2, Weight: 1}, standby)

	if _, err := g.Send([]byte("three"), nil); err != nil {
		t.Fatalf("Send: %v", err)
	}

	// The standby should have received the two buffered messages replayed
	// ahead of the new one sent to every unstable sendable member plus
	// the freshly activated standby.
	if got := standby.sentCount(); got < 3 {
		t.Fatalf("standby sentCount = %d, want at least 3 (2 replayed + 1 live)", got)
	}
}

// TestBackupParallelReconciliationDemotesStandbyOncePrimaryStabilizes
// reproduces SPEC_FULL.md §8 scenario S3: P and B both Running, P goes
// unstable so a send round transmits on both, then once P recovers,
// parallel reconciliation demotes B back to Idle.
func TestBackupParallelReconciliationDemotesStandbyOncePrimaryStabilizes(t *testing.T) {
	g := NewGroup(1, Backup, nil)
	if err := g.SetOpt(OptStabilityTimeout, EncodeDuration(20*time.Millisecond)); err != nil {
		t.Fatalf("SetOpt: %v", err)
	}
	primary := newFakeLink(1)
	backup := newFakeLink(2)
	p := g.AddMember(MemberData{LinkID: 1, Weight: 10}, primary)
	b := g.AddMember(MemberData{LinkID: 2, Weight: 5}, backup)

	// First send activates the highest-weight member only.
	if _, err := g.Send([]byte("one"), nil); err != nil {
		t.Fatalf("first send: %v", err)
	}
	if b.SendState() != Idle {
		t.Fatalf("backup state = %v, want Idle before any instability", b.SendState())
	}

	// Primary goes quiet past the stability window: the next send must
	// classify it unstable and transmit on both the primary and the
	// newly activated backup in the same round.
	primary.goQuiet(time.Second)
	if _, err := g.Send([]byte("two"), nil); err != nil {
		t.Fatalf("second send: %v", err)
	}
	if p.SendState() != Running || b.SendState() != Running {
		t.Fatalf("want both members Running, got primary=%v backup=%v", p.SendState(), b.SendState())
	}
	if backup.sentCount() == 0 {
		t.Fatal("expected backup to receive a send while primary was unstable")
	}

	// Primary recovers. The next round still transmits on both (parallel
	// reconciliation happens after the round's own sends), but once it
	// sees the primary stable again it demotes the backup back to Idle.
	primary.touch()
	backup.touch()
	if _, err := g.Send([]byte("three"), nil); err != nil {
		t.Fatalf("third send: %v", err)
	}
	if p.SendState() != Running {
		t.Fatalf("primary state = %v, want Running", p.SendState())
	}
	if b.SendState() != Idle {
		t.Fatalf("backup state = %v, want Idle once primary stabilized", b.SendState())
	}

	// Steady state: a fourth send goes to the primary alone.
	before := backup.sentCount()
	if _, err := g.Send([]byte("four"), nil); err != nil {
		t.Fatalf("fourth send: %v", err)
	}
	if backup.sentCount() != before {
		t.Fatalf("backup sentCount grew to %d after being demoted, want unchanged", backup.sentCount())
	}
}

func TestBackupSurfacesWouldBlockWhenEveryAttemptWouldBlock(t *testing.T) {
	g := NewGroup(1, Backup, nil)
	primary := newFakeLink(1)
	primary.sendFunc = func([]byte, Ctrl) (SendStatus, error) { return SendWouldBlock, ErrWouldBlock }
	g.AddMember(MemberData{LinkID: 1, Weight: 10}, primary)

	_, err := g.Send([]byte("hi"), nil)
	if !errors.Is(err, ErrWouldBlock) {
		t.Fatalf("Send error = %v, want ErrWouldBlock", err)
	}
}

func TestBackupSenderBufferExhaustionIsReported(t *testing.T) {
	g := NewGroup(1, Backup, nil)
	g.AddMember(MemberData{LinkID: 1}, newFakeLink(1))
	g.sndBuf = newSenderBuffer(16, 4, 32)

	if _, err := g.Send(make([]byte, 16), nil); err != nil {
		t.Fatalf("first send: %v", err)
	}
	if _, err := g.Send(make([]byte, 16), nil); err != nil {
		t.Fatalf("second send: %v", err)
	}
	if _, err := g.Send(make([]byte, 16), nil); err == nil {
		t.Fatal("expected ErrResourceExhausted once the sender buffer is full")
	}
}
