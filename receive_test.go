package srt

import (
	"testing"
	"time"
)

func TestRecvDeliversInAscendingSequenceOrder(t *testing.T) {
	g := NewGroup(1, Broadcast, nil)
	g.SetOpt(OptRcvTimeout, EncodeInt32(0))

	base := g.lastSchedSeq
	g.ProvidePacket(2, &Packet{Ctrl: Ctrl{Seq: base + 2}, Data: []byte("second")})
	g.ProvidePacket(1, &Packet{Ctrl: Ctrl{Seq: base + 1}, Data: []byte("first")})

	buf := make([]byte, 32)
	n, ctrl, err := g.Recv(buf)
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if string(buf[:n]) != "first" || ctrl.Seq != base+1 {
		t.Fatalf("got %q seq %d, want %q seq %d", buf[:n], ctrl.Seq, "first", base+1)
	}

	// The second member's candidate, provided before the first was even
	// consumed, must still be delivered afterward rather than lost.
	n, ctrl, err = g.Recv(buf)
	if err != nil {
		t.Fatalf("second Recv: %v", err)
	}
	if string(buf[:n]) != "second" || ctrl.Seq != base+2 {
		t.Fatalf("got %q seq %d, want %q seq %d", buf[:n], ctrl.Seq, "second", base+2)
	}
}

// TestProvidePacketKeepsEarlierSequenceWhenProviderSlotBusy exercises the
// same-provider race ProvidePacket can see when a link hands off a second
// candidate before recv has consumed the first: the smaller sequence number
// must win, and the discarded one must be counted rather than silently lost.
func TestProvidePacketKeepsEarlierSequenceWhenProviderSlotBusy(t *testing.T) {
	g := NewGroup(1, Broadcast, nil)
	g.SetOpt(OptRcvTimeout, EncodeInt32(0))

	base := g.lastSchedSeq
	g.ProvidePacket(1, &Packet{Ctrl: Ctrl{Seq: base + 1}, Data: []byte("first")})
	g.ProvidePacket(1, &Packet{Ctrl: Ctrl{Seq: base + 2}, Data: []byte("second")})

	buf := make([]byte, 32)
	n, ctrl, err := g.Recv(buf)
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if string(buf[:n]) != "first" || ctrl.Seq != base+1 {
		t.Fatalf("got %q seq %d, want %q seq %d", buf[:n], ctrl.Seq, "first", base+1)
	}
	if got := g.stats.DroppedBeforeMerge; got != 1 {
		t.Fatalf("DroppedBeforeMerge = %d, want 1", got)
	}
}

func TestRecvDedupsRepeatedSequence(t *testing.T) {
	g := NewGroup(1, Broadcast, nil)
	g.SetOpt(OptRcvTimeout, EncodeInt32(0))

	base := g.lastSchedSeq
	g.ProvidePacket(1, &Packet{Ctrl: Ctrl{Seq: base + 1}, Data: []byte("dup")})

	buf := make([]byte, 32)
	if _, _, err := g.Recv(buf); err != nil {
		t.Fatalf("first Recv: %v", err)
	}

	// Same sequence delivered again, as if a second member relayed it.
	g.ProvidePacket(2, &Packet{Ctrl: Ctrl{Seq: base + 1}, Data: []byte("dup")})

	if _, _, err := g.Recv(buf); err != ErrWouldBlock {
		t.Fatalf("Recv after duplicate = %v, want ErrWouldBlock", err)
	}
	if got := g.stats.DiscardedDuplicate; got != 1 {
		t.Fatalf("DiscardedDuplicate = %d, want 1", got)
	}
}

func TestRecvReportsProviderID(t *testing.T) {
	g := NewGroup(1, Broadcast, nil)
	g.SetOpt(OptRcvTimeout, EncodeInt32(0))

	base := g.lastSchedSeq
	g.ProvidePacket(7, &Packet{Ctrl: Ctrl{Seq: base + 1}, Data: []byte("x")})

	buf := make([]byte, 8)
	_, ctrl, err := g.Recv(buf)
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if ctrl.ProviderID != 7 {
		t.Fatalf("ProviderID = %d, want 7", ctrl.ProviderID)
	}
}

func TestRecvNonBlockingReturnsWouldBlockWhenEmpty(t *testing.T) {
	g := NewGroup(1, Broadcast, nil)
	g.SetOpt(OptRcvTimeout, EncodeInt32(0))

	buf := make([]byte, 8)
	if _, _, err := g.Recv(buf); err != ErrWouldBlock {
		t.Fatalf("Recv on empty group = %v, want ErrWouldBlock", err)
	}
}

func TestRecvTimesOutWithoutConsumingPositions(t *testing.T) {
	g := NewGroup(1, Broadcast, nil)
	g.SetOpt(OptRcvTimeout, EncodeInt32(20))

	base := g.lastSchedSeq
	g.rcv.rcvBaseSeq = base
	g.rcv.haveBase = true

	buf := make([]byte, 8)
	start := time.Now()
	_, _, err := g.Recv(buf)
	if err != ErrTimeout {
		t.Fatalf("Recv = %v, want ErrTimeout", err)
	}
	if time.Since(start) < 15*time.Millisecond {
		t.Fatal("Recv returned before the timeout elapsed")
	}

	g.rcv.mu.Lock()
	empty := len(g.rcv.positions) == 0
	g.rcv.mu.Unlock()
	if !empty {
		t.Fatal("positions should still be empty; nothing was ever provided")
	}
}

func TestRecvUnblocksOnClose(t *testing.T) {
	g := NewGroup(1, Broadcast, nil)
	g.SetOpt(OptRcvTimeout, EncodeInt32(-1))

	done := make(chan error, 1)
	go func() {
		buf := make([]byte, 8)
		_, _, err := g.Recv(buf)
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	g.Close()

	select {
	case err := <-done:
		if err != ErrClosed {
			t.Fatalf("Recv after Close = %v, want ErrClosed", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Recv did not unblock after Close")
	}
}

func TestRecvGapWaitDropsAndAdvancesBase(t *testing.T) {
	g := NewGroup(1, Broadcast, nil)
	g.SetOpt(OptPacketDropEnable, EncodeBool(true))
	g.SetOpt(OptGapWait, EncodeDuration(10*time.Millisecond))
	g.SetOpt(OptRcvTimeout, EncodeInt32(500))

	base := g.lastSchedSeq
	g.rcv.rcvBaseSeq = base
	g.rcv.haveBase = true

	// base+1 never arrives; base+2 is supplied. After the gap wait elapses,
	// recv should skip the missing sequence and deliver base+2.
	g.ProvidePacket(1, &Packet{Ctrl: Ctrl{Seq: base + 2}, Data: []byte("skip-ahead")})

	buf := make([]byte, 32)
	n, ctrl, err := g.Recv(buf)
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if string(buf[:n]) != "skip-ahead" || ctrl.Seq != base+2 {
		t.Fatalf("got %q seq %d, want %q seq %d", buf[:n], ctrl.Seq, "skip-ahead", base+2)
	}
	if got := g.stats.RecvDrop; got != 1 {
		t.Fatalf("RecvDrop = %d, want 1", got)
	}
}
