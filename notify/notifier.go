package notify

import (
	"sync"

	"github.com/ngxial02/srt"
)

// Event describes one readiness transition delivered to a waiter.
type Event struct {
	GroupID srt.GroupID
	Kind    Kind
}

// Kind distinguishes the three readiness signals srt.EventNotifier reports.
type Kind int

const (
	Read Kind = iota
	Write
	Err
)

// Notifier is a channel-based srt.EventNotifier: every registered waiter
// gets its own one-deep buffered channel, so the first signal that arrives
// while nobody is reading is kept and a signaler is never blocked by a slow
// reader. Later signals are dropped until the reader drains the channel —
// the same one-deep non-blocking buffering the teacher's net.Conn uses for
// its own connStateCh.
type Notifier struct {
	mu      sync.RWMutex
	waiters map[int]chan Event
}

// New returns an empty Notifier.
func New() *Notifier {
	return &Notifier{waiters: make(map[int]chan Event)}
}

// Register implements srt.EventNotifier. g's id is reported with any event
// this waiter later receives, in case one waiter watches several groups.
func (n *Notifier) Register(eid int, g *srt.Group) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.waiters[eid]; !ok {
		n.waiters[eid] = make(chan Event, 1)
	}
}

// Unregister implements srt.EventNotifier.
func (n *Notifier) Unregister(eid int, g *srt.Group) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if ch, ok := n.waiters[eid]; ok {
		close(ch)
		delete(n.waiters, eid)
	}
}

// Chan returns the channel a caller registered under eid reads events
// from, and whether that eid is currently registered.
func (n *Notifier) Chan(eid int) (<-chan Event, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	ch, ok := n.waiters[eid]
	return ch, ok
}

func (n *Notifier) signal(g *srt.Group, kind Kind) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	ev := Event{GroupID: g.ID(), Kind: kind}
	for _, ch := range n.waiters {
		select {
		case ch <- ev:
		default:
			// The waiter already has an unread event pending; this one
			// is dropped, so the reader sees only the earlier event's
			// group and kind when it drains the channel.
		}
	}
}

func (n *Notifier) SignalRead(g *srt.Group)  { n.signal(g, Read) }
func (n *Notifier) SignalWrite(g *srt.Group) { n.signal(g, Write) }
func (n *Notifier) SignalErr(g *srt.Group)   { n.signal(g, Err) }
