// Package link provides concrete srt.Link implementations: an in-process
// Loopback pair for tests and demos, and a SecureUDP link that wraps a
// net.PacketConn with a Noise-IK handshake and per-packet authenticated
// encryption, for exercising the bonding core over a real transport.
package link
