package srt

import (
	"crypto/rand"
	"encoding/binary"
	"math"

	"github.com/sirupsen/logrus"
)

// newISN generates a fresh, random 31-bit initial sequence number (top bit
// clear, matching common ARQ sequence-space conventions), per SPEC_FULL.md
// §10. It falls back to a fixed value, logged once, if the entropy source
// is exhausted — which should never happen on a supported platform.
func newISN() SeqNo {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		logrus.WithFields(logrus.Fields{
			"component": "sequence",
			"error":     err.Error(),
		}).Error("crypto/rand exhausted, falling back to fixed ISN")
		return 0
	}
	v := binary.BigEndian.Uint32(buf[:])
	return SeqNo(v & 0x7FFFFFFF)
}

// newInitialMsgNo mirrors newISN for the message-number space.
func newInitialMsgNo() MsgNo {
	return MsgNo(newISN())
}

// tokenGenerator produces monotonically increasing tokens for members that
// don't supply their own, wrapping to zero on overflow per SPEC_FULL.md §3.
type tokenGenerator struct {
	next uint32
}

func (g *tokenGenerator) Next() uint32 {
	v := g.next
	if g.next == math.MaxUint32 {
		g.next = 0
	} else {
		g.next++
	}
	return v
}
