package link

import (
	"crypto/rand"
	"errors"

	"github.com/flynn/noise"
)

// HandshakeRole distinguishes the two sides of a Noise-IK handshake. IK
// requires the initiator to already know the responder's static public
// key, which fits this module's use case: a member link is dialed by one
// side that already holds the peer's identity.
type HandshakeRole uint8

const (
	Initiator HandshakeRole = iota
	Responder
)

var ErrHandshakeIncomplete = errors.New("link: handshake not complete")

// GenerateStaticKeypair creates a fresh Curve25519 keypair for use as a
// link's long-term identity, the same DH group the teacher's noise package
// uses for both its IK and XX patterns.
func GenerateStaticKeypair() (noise.DHKey, error) {
	return noise.DH25519.GenerateKeypair(rand.Reader)
}

var cipherSuite = noise.NewCipherSuite(noise.DH25519, noise.CipherChaChaPoly, noise.HashSHA256)

// ikHandshake drives a two-message Noise-IK exchange: the initiator sends
// one message carrying its ephemeral and (encrypted) static key, the
// responder answers with one message, and both sides then hold a shared
// channel-binding value derived from the completed handshake hash.
type ikHandshake struct {
	hs       *noise.HandshakeState
	role     HandshakeRole
	complete bool
}

func newIKHandshake(staticKey noise.DHKey, peerStaticPub []byte, role HandshakeRole) (*ikHandshake, error) {
	cfg := noise.Config{
		CipherSuite:   cipherSuite,
		Pattern:       noise.HandshakeIK,
		Initiator:     role == Initiator,
		StaticKeypair: staticKey,
	}
	if role == Initiator {
		cfg.PeerStatic = peerStaticPub
	}
	hs, err := noise.NewHandshakeState(cfg)
	if err != nil {
		return nil, err
	}
	return &ikHandshake{hs: hs, role: role}, nil
}

// writeMessage produces this side's next handshake message.
func (ik *ikHandshake) writeMessage() ([]byte, error) {
	out, cs1, _, err := ik.hs.WriteMessage(nil, nil)
	if err != nil {
		return nil, err
	}
	if cs1 != nil {
		ik.complete = true
	}
	return out, nil
}

// readMessage consumes the peer's handshake message.
func (ik *ikHandshake) readMessage(msg []byte) error {
	_, cs1, _, err := ik.hs.ReadMessage(nil, msg)
	if err != nil {
		return err
	}
	if cs1 != nil {
		ik.complete = true
	}
	return nil
}

// channelKey derives a 32-byte symmetric key from the completed handshake's
// channel-binding hash, for use as a nacl/secretbox key on the data plane.
// Noise's own per-message CipherState already does AEAD internally, but
// using it directly would mean re-deriving a nonce-counter discipline on
// both sides; secretbox's random-nonce-per-message model is simpler to get
// right for a link that may reorder or drop frames, and is exactly how the
// teacher's own crypto package encrypts once a symmetric key is in hand.
func (ik *ikHandshake) channelKey() ([32]byte, error) {
	var key [32]byte
	if !ik.complete {
		return key, ErrHandshakeIncomplete
	}
	copy(key[:], ik.hs.ChannelBinding())
	return key, nil
}

func (ik *ikHandshake) peerStatic() []byte { return ik.hs.PeerStatic() }
