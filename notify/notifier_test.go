package notify_test

import (
	"testing"

	"github.com/ngxial02/srt"
	"github.com/ngxial02/srt/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignalDeliversToRegisteredWaiter(t *testing.T) {
	n := notify.New()
	g := srt.NewGroup(1, srt.Broadcast, nil)
	n.Register(1, g)

	n.SignalRead(g)

	ch, ok := n.Chan(1)
	require.True(t, ok)
	select {
	case ev := <-ch:
		assert.Equal(t, notify.Read, ev.Kind)
		assert.Equal(t, srt.GroupID(1), ev.GroupID)
	default:
		t.Fatal("expected a buffered event")
	}
}

func TestSignalDoesNotBlockOnFullChannel(t *testing.T) {
	n := notify.New()
	g := srt.NewGroup(1, srt.Broadcast, nil)
	n.Register(1, g)

	n.SignalRead(g)
	n.SignalWrite(g) // channel already has one event buffered; must not block

	ch, _ := n.Chan(1)
	ev := <-ch
	assert.Equal(t, notify.Read, ev.Kind)
}

func TestUnregisterClosesChannel(t *testing.T) {
	n := notify.New()
	g := srt.NewGroup(1, srt.Broadcast, nil)
	n.Register(1, g)
	n.Unregister(1, g)

	_, ok := n.Chan(1)
	assert.False(t, ok)
}
