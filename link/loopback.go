package link

import (
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/ngxial02/srt"
)

// loopbackAddr is a minimal net.Addr for an in-process link endpoint.
type loopbackAddr struct{ id srt.LinkID }

func (a loopbackAddr) Network() string { return "loopback" }
func (a loopbackAddr) String() string  { return "loopback:" + strconv.Itoa(int(a.id)) }

// Loopback is an in-process srt.Link, wired to a peer Loopback via buffered
// channels, round-tripping every packet through encodeFrame/decodeFrame so
// its framing and checksum path is exercised the same way a real transport
// would use it. It never blocks: a full outbound queue reports
// srt.SendWouldBlock rather than stalling the caller, matching the "may
// return would-block without blocking" contract of the Link interface.
type Loopback struct {
	id    srt.LinkID
	local net.Addr
	peer  net.Addr

	out chan []byte // frames this endpoint hands to its peer
	in  chan []byte // frames this endpoint receives from its peer

	mu           sync.Mutex
	lastResponse time.Time
	closed       bool
}

// NewLoopbackPair builds two Loopback links wired to each other, suitable
// for tests and demos that need a working Link without a real network.
func NewLoopbackPair(idA, idB srt.LinkID) (*Loopback, *Loopback) {
	ab := make(chan []byte, 64)
	ba := make(chan []byte, 64)
	now := time.Now()
	a := &Loopback{id: idA, local: loopbackAddr{idA}, peer: loopbackAddr{idB}, out: ab, in: ba, lastResponse: now}
	b := &Loopback{id: idB, local: loopbackAddr{idB}, peer: loopbackAddr{idA}, out: ba, in: ab, lastResponse: now}
	return a, b
}

func (l *Loopback) ID() srt.LinkID { return l.id }

func (l *Loopback) Send(buf []byte, ctrl srt.Ctrl) (srt.SendStatus, error) {
	l.mu.Lock()
	closed := l.closed
	l.mu.Unlock()
	if closed {
		return srt.SendFatal, srt.ErrClosed
	}

	frame := encodeFrame(uint32(ctrl.Seq), uint32(ctrl.Msg), ctrl.Flags, ctrl.Timestamp.UnixNano(), buf)
	select {
	case l.out <- frame:
		return srt.SendOK, nil
	default:
		return srt.SendWouldBlock, srt.ErrWouldBlock
	}
}

func (l *Loopback) RecvPoll() (*srt.Packet, bool) {
	select {
	case frame, ok := <-l.in:
		if !ok {
			return nil, false
		}
		seq, msg, flags, ts, data, err := decodeFrame(frame)
		if err != nil {
			return nil, false
		}
		l.mu.Lock()
		l.lastResponse = time.Now()
		l.mu.Unlock()
		return &srt.Packet{
			Ctrl: srt.Ctrl{
				Seq:       srt.SeqNo(seq),
				Msg:       srt.MsgNo(msg),
				Flags:     flags,
				Timestamp: time.Unix(0, ts),
			},
			Data: data,
		}, true
	default:
		return nil, false
	}
}

// OverrideNextSeq is a no-op here: Loopback never assigns its own sequence
// numbers, it only carries the ones the group already assigned.
func (l *Loopback) OverrideNextSeq(srt.SeqNo) {}

func (l *Loopback) LocalAddr() net.Addr { return l.local }
func (l *Loopback) PeerAddr() net.Addr  { return l.peer }

func (l *Loopback) TimeSinceLastResponse() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return time.Since(l.lastResponse)
}

func (l *Loopback) IsClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

func (l *Loopback) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}
