package srt

import "github.com/ngxial02/srt/internal/bufpool"

// bufferedMessage is one entry of the Backup sender replay buffer, per
// SPEC_FULL.md §3.
type bufferedMessage struct {
	ctrl Ctrl
	data []byte // borrowed from the group's payload pool
	size int
}

// senderBuffer is the bounded deque of bufferedMessage kept until
// acknowledged, so an idle link activated by failover can replay them with
// their original sequence/message numbers (SPEC_FULL.md §4.3).
//
// The reference implementation uses a growable deque with a separately
// pooled payload allocator; this keeps the same shape (a slice used as a
// deque plus a pool) rather than a fixed-capacity ring, since the bound is
// enforced in bytes, not entry count, and a ring sized for the worst case
// would either waste memory or need resizing anyway.
type senderBuffer struct {
	pool     *bufpool.Pool
	maxBytes int
	curBytes int
	entries  []*bufferedMessage
}

func newSenderBuffer(maxPayload, maxSpareBlocks, maxBytes int) *senderBuffer {
	return &senderBuffer{
		pool:     bufpool.New(maxPayload, maxSpareBlocks),
		maxBytes: maxBytes,
	}
}

// push appends a new message to the buffer, copying data into a
// pool-allocated block. It returns ErrResourceExhausted if the buffer's
// byte bound would be exceeded — per SPEC_FULL.md §4.3, that means ACKs
// are not progressing and is treated as a caller-level problem, not
// something the send path can recover from locally.
func (sb *senderBuffer) push(ctrl Ctrl, payload []byte) error {
	if sb.curBytes+len(payload) > sb.maxBytes {
		return ErrResourceExhausted
	}
	block := sb.pool.Get()
	n := copy(block, payload)
	sb.entries = append(sb.entries, &bufferedMessage{
		ctrl: ctrl,
		data: block[:n],
		size: n,
	})
	sb.curBytes += n
	return nil
}

// trimAckedUpTo drops every entry with message number <= acked, returning
// their blocks to the pool (SPEC_FULL.md §4.3 "Sender buffer maintenance").
func (sb *senderBuffer) trimAckedUpTo(acked MsgNo) {
	i := 0
	for i < len(sb.entries) {
		e := sb.entries[i]
		if msgGreater(e.ctrl.Msg, acked) {
			break
		}
		sb.curBytes -= e.size
		sb.pool.Put(e.data[:sb.pool.BlockSize()])
		i++
	}
	sb.entries = sb.entries[i:]
}

// replayFrom returns every entry with message number strictly greater than
// from, in original send order, for replay onto a freshly activated link.
func (sb *senderBuffer) replayFrom(from MsgNo) []*bufferedMessage {
	var out []*bufferedMessage
	for _, e := range sb.entries {
		if msgGreater(e.ctrl.Msg, from) {
			out = append(out, e)
		}
	}
	return out
}

// oldestMsg returns the message number of the oldest buffered entry, and
// whether the buffer is non-empty.
func (sb *senderBuffer) oldestMsg() (MsgNo, bool) {
	if len(sb.entries) == 0 {
		return 0, false
	}
	return sb.entries[0].ctrl.Msg, true
}

func (sb *senderBuffer) len() int { return len(sb.entries) }
