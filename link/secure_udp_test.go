package link_test

import (
	"testing"
	"time"

	"github.com/ngxial02/srt"
	"github.com/ngxial02/srt/link"
	"github.com/stretchr/testify/require"
)

func TestSecureUDPHandshakeAndRoundTrip(t *testing.T) {
	responderKey, err := link.GenerateStaticKeypair()
	require.NoError(t, err)
	initiatorKey, err := link.GenerateStaticKeypair()
	require.NoError(t, err)

	ln, err := link.ListenSecureUDP(2, "127.0.0.1:0", responderKey)
	require.NoError(t, err)

	accepted := make(chan *link.SecureUDP, 1)
	acceptErr := make(chan error, 1)
	go func() {
		l, err := ln.Accept()
		if err != nil {
			acceptErr <- err
			return
		}
		accepted <- l
	}()

	dialed, err := link.DialSecureUDP(1, "127.0.0.1:0", ln.Addr().String(), initiatorKey, responderKey.Public)
	require.NoError(t, err)
	defer dialed.Close()

	var responder *link.SecureUDP
	select {
	case responder = <-accepted:
	case err := <-acceptErr:
		t.Fatalf("Accept failed: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for Accept")
	}
	defer responder.Close()

	ctrl := srt.Ctrl{Seq: 10, Msg: 1, Timestamp: time.Now()}
	status, err := dialed.Send([]byte("secret message"), ctrl)
	require.NoError(t, err)
	require.Equal(t, srt.SendOK, status)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if pkt, ok := responder.RecvPoll(); ok {
			require.Equal(t, "secret message", string(pkt.Data))
			require.Equal(t, srt.SeqNo(10), pkt.Ctrl.Seq)
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("timed out waiting for decrypted packet")
}
