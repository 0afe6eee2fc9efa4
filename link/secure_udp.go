package link

import (
	"crypto/rand"
	"net"
	"sync"
	"time"

	"github.com/flynn/noise"
	"github.com/ngxial02/srt"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/nacl/secretbox"
)

const handshakeDeadline = 5 * time.Second

// SecureUDP is an srt.Link backed by a UDP socket, authenticated with a
// Noise-IK handshake and encrypted per packet with nacl/secretbox using a
// key derived from the completed handshake, grounded on the combination
// the teacher uses across transport/noise_transport.go (Noise handshake)
// and crypto/encrypt.go (secretbox for the data plane).
type SecureUDP struct {
	id       srt.LinkID
	conn     net.PacketConn
	peerAddr net.Addr
	key      [32]byte

	incoming chan *srt.Packet
	closeCh  chan struct{}

	mu           sync.Mutex
	lastResponse time.Time
	closed       bool
}

// DialSecureUDP opens a UDP socket bound to localAddr, performs the
// initiator side of an IK handshake against remoteAddr using peerStaticPub
// (the responder's known static public key), and returns a ready link.
func DialSecureUDP(id srt.LinkID, localAddr, remoteAddr string, staticKey noise.DHKey, peerStaticPub []byte) (*SecureUDP, error) {
	conn, err := net.ListenPacket("udp", localAddr)
	if err != nil {
		return nil, err
	}
	remote, err := net.ResolveUDPAddr("udp", remoteAddr)
	if err != nil {
		conn.Close()
		return nil, err
	}

	ik, err := newIKHandshake(staticKey, peerStaticPub, Initiator)
	if err != nil {
		conn.Close()
		return nil, err
	}
	msg1, err := ik.writeMessage()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if _, err := conn.WriteTo(msg1, remote); err != nil {
		conn.Close()
		return nil, err
	}

	buf := make([]byte, 2048)
	conn.SetReadDeadline(time.Now().Add(handshakeDeadline))
	n, _, err := conn.ReadFrom(buf)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := ik.readMessage(buf[:n]); err != nil {
		conn.Close()
		return nil, err
	}
	conn.SetReadDeadline(time.Time{})

	key, err := ik.channelKey()
	if err != nil {
		conn.Close()
		return nil, err
	}
	return newSecureUDP(id, conn, remote, key), nil
}

// Listener binds a UDP socket and waits to perform the responder side of an
// IK handshake against the first peer that dials in. Splitting bind from
// handshake lets a caller (or a test) learn the bound ephemeral port via
// Addr before blocking in Accept.
type Listener struct {
	id   srt.LinkID
	conn net.PacketConn
	key  noise.DHKey
}

// ListenSecureUDP binds localAddr and returns a Listener ready to Accept.
func ListenSecureUDP(id srt.LinkID, localAddr string, staticKey noise.DHKey) (*Listener, error) {
	conn, err := net.ListenPacket("udp", localAddr)
	if err != nil {
		return nil, err
	}
	return &Listener{id: id, conn: conn, key: staticKey}, nil
}

// Addr returns the socket's bound local address.
func (ln *Listener) Addr() net.Addr { return ln.conn.LocalAddr() }

// Accept performs the responder side of an IK handshake against the first
// peer that dials in, and returns the resulting link.
func (ln *Listener) Accept() (*SecureUDP, error) {
	conn := ln.conn
	ik, err := newIKHandshake(ln.key, nil, Responder)
	if err != nil {
		conn.Close()
		return nil, err
	}

	buf := make([]byte, 2048)
	conn.SetReadDeadline(time.Now().Add(handshakeDeadline))
	n, addr, err := conn.ReadFrom(buf)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := ik.readMessage(buf[:n]); err != nil {
		conn.Close()
		return nil, err
	}
	msg2, err := ik.writeMessage()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if _, err := conn.WriteTo(msg2, addr); err != nil {
		conn.Close()
		return nil, err
	}
	conn.SetReadDeadline(time.Time{})

	key, err := ik.channelKey()
	if err != nil {
		conn.Close()
		return nil, err
	}
	return newSecureUDP(ln.id, conn, addr, key), nil
}

func newSecureUDP(id srt.LinkID, conn net.PacketConn, peer net.Addr, key [32]byte) *SecureUDP {
	l := &SecureUDP{
		id:           id,
		conn:         conn,
		peerAddr:     peer,
		key:          key,
		incoming:     make(chan *srt.Packet, 256),
		closeCh:      make(chan struct{}),
		lastResponse: time.Now(),
	}
	go l.readLoop()
	return l
}

func (l *SecureUDP) ID() srt.LinkID { return l.id }

func (l *SecureUDP) Send(buf []byte, ctrl srt.Ctrl) (srt.SendStatus, error) {
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return srt.SendFatal, err
	}
	sealed := secretbox.Seal(nonce[:], buf, &nonce, &l.key)

	frame := encodeFrame(uint32(ctrl.Seq), uint32(ctrl.Msg), ctrl.Flags, ctrl.Timestamp.UnixNano(), sealed)
	if _, err := l.conn.WriteTo(frame, l.peerAddr); err != nil {
		return srt.SendFatal, err
	}
	return srt.SendOK, nil
}

func (l *SecureUDP) RecvPoll() (*srt.Packet, bool) {
	select {
	case pkt, ok := <-l.incoming:
		return pkt, ok
	default:
		return nil, false
	}
}

func (l *SecureUDP) OverrideNextSeq(srt.SeqNo) {}

func (l *SecureUDP) LocalAddr() net.Addr { return l.conn.LocalAddr() }
func (l *SecureUDP) PeerAddr() net.Addr  { return l.peerAddr }

func (l *SecureUDP) TimeSinceLastResponse() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return time.Since(l.lastResponse)
}

func (l *SecureUDP) IsClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

func (l *SecureUDP) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()
	close(l.closeCh)
	return l.conn.Close()
}

// readLoop decodes and decrypts inbound frames into the buffered incoming
// channel, the same "dedicated goroutine feeding a channel" shape the
// teacher's ConnectionMultiplexer uses for its own packetLoop.
func (l *SecureUDP) readLoop() {
	buf := make([]byte, 2048)
	for {
		select {
		case <-l.closeCh:
			return
		default:
		}

		l.conn.SetReadDeadline(time.Now().Add(time.Second))
		n, _, err := l.conn.ReadFrom(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			select {
			case <-l.closeCh:
			default:
				logrus.WithFields(logrus.Fields{
					"component": "link",
					"link_id":   l.id,
					"error":     err.Error(),
				}).Warn("secure_udp: read failed")
			}
			return
		}

		seq, msg, flags, ts, sealed, err := decodeFrame(buf[:n])
		if err != nil || len(sealed) < 24 {
			continue
		}
		var nonce [24]byte
		copy(nonce[:], sealed[:24])
		plain, ok := secretbox.Open(nil, sealed[24:], &nonce, &l.key)
		if !ok {
			continue
		}

		pkt := &srt.Packet{
			Ctrl: srt.Ctrl{
				Seq:       srt.SeqNo(seq),
				Msg:       srt.MsgNo(msg),
				Flags:     flags,
				Timestamp: time.Unix(0, ts),
			},
			Data: plain,
		}

		l.mu.Lock()
		l.lastResponse = time.Now()
		l.mu.Unlock()

		select {
		case l.incoming <- pkt:
		default:
		}
	}
}
