// Command bonddemo wires a Backup group over two Loopback links and sends
// a few messages, printing what each Recv call on the peer side observes.
// It exists to exercise the bonding core end to end without a real network,
// the way a smoke-test binary in this corpus tends to be shaped.
package main

import (
	"fmt"
	"time"

	"github.com/ngxial02/srt"
	"github.com/ngxial02/srt/link"
	"github.com/ngxial02/srt/metrics"
	"github.com/ngxial02/srt/registry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

func main() {
	logrus.SetLevel(logrus.InfoLevel)

	reg := registry.New()
	sink := metrics.New(prometheus.NewRegistry())

	sender := srt.NewGroup(1, srt.Backup, &srt.Deps{Metrics: sink})
	receiver := srt.NewGroup(2, srt.Backup, &srt.Deps{Metrics: sink})
	reg.AddGroup(sender)
	reg.AddGroup(receiver)

	primaryA, primaryB := link.NewLoopbackPair(1, 1)
	standbyA, standbyB := link.NewLoopbackPair(2, 2)

	sender.AddMember(srt.MemberData{LinkID: 1, Weight: 10}, primaryA)
	sender.AddMember(srt.MemberData{LinkID: 2, Weight: 5}, standbyA)
	receiver.AddMember(srt.MemberData{LinkID: 1, Weight: 10}, primaryB)
	receiver.AddMember(srt.MemberData{LinkID: 2, Weight: 5}, standbyB)

	go pump(primaryB, receiver)
	go pump(standbyB, receiver)

	for i := 0; i < 5; i++ {
		msg := fmt.Sprintf("message %d", i)
		if _, err := sender.Send([]byte(msg), nil); err != nil {
			logrus.WithError(err).Warn("send failed")
		}
	}

	buf := make([]byte, 1500)
	receiver.SetOpt(srt.OptRcvTimeout, srt.EncodeDuration(2*time.Second))
	for i := 0; i < 5; i++ {
		n, ctrl, err := receiver.Recv(buf)
		if err != nil {
			logrus.WithError(err).Warn("recv failed")
			break
		}
		fmt.Printf("received %q from link %d (seq=%d)\n", buf[:n], ctrl.ProviderID, ctrl.Seq)
	}

	sender.Close()
	receiver.Close()
}

// pump drives a single link's RecvPoll into the group's receive merge,
// standing in for whatever per-link goroutine a real deployment would run.
func pump(l srt.Link, g *srt.Group) {
	for {
		if l.IsClosed() {
			return
		}
		if pkt, ok := l.RecvPoll(); ok {
			g.ProvidePacket(l.ID(), pkt)
			continue
		}
		time.Sleep(time.Millisecond)
	}
}
