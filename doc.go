// Package srt implements the connection-bonding core of a reliable,
// low-latency, datagram-oriented transport: the subsystem that aggregates
// several independent point-to-point transport links into a single logical
// stream exposed to the application.
//
// A Group owns an ordered list of Member records, each wrapping one
// underlying Link. The group decides, for every outbound message, which
// member links to transmit over (Broadcast fans a message out to every
// running member; Backup keeps a single preferred link and fails over to a
// standby by replaying buffered messages); it merges inbound packets from
// all members into one deduplicated, in-order stream; and it tracks the
// health of each member through a small per-direction state machine.
//
// The package treats the per-link transport, the socket registry, the
// event-notification primitive and the steady clock as abstract
// collaborators (see the Link, Registry, EventNotifier and Clock
// interfaces). Reference implementations of each live in the link,
// registry, notify and metrics subpackages so the core can be exercised
// end to end without a real network.
//
// Example:
//
//	g := srt.NewGroup(1, srt.Backup, nil)
//	g.SetOpt(srt.OptStabilityTimeout, srt.EncodeDuration(60*time.Millisecond))
//	g.AddMember(srt.MemberData{LinkID: 1, Weight: 10}, primaryLink)
//	g.AddMember(srt.MemberData{LinkID: 2, Weight: 5}, standbyLink)
//
//	n, err := g.Send([]byte("hello"), nil)
package srt
