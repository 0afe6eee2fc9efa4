package link

import (
	"encoding/binary"
	"errors"

	"github.com/howeyc/crc16"
)

// ErrCorruptFrame indicates a decoded frame's checksum didn't match its
// payload, grounded on the CRC-on-the-wire convention the rest of this
// corpus's bundle formats use (a CRC16/CCITT trailer over everything but
// itself).
var ErrCorruptFrame = errors.New("link: corrupt frame")

var crc16Table = crc16.MakeTable(crc16.CCITT)

// frameHeaderSize is Seq(4) + Msg(4) + Flags(1) + TimestampUnixNano(8).
// ProviderID is never put on the wire — it's filled in locally by the
// receiving side, not carried by the sender.
const frameHeaderSize = 4 + 4 + 1 + 8

// encodeFrame serializes ctrl and data into a single checksummed frame:
// header, payload, then a 2-byte CRC16/CCITT trailer over everything
// before it.
func encodeFrame(seq uint32, msg uint32, flags uint8, timestampNano int64, data []byte) []byte {
	buf := make([]byte, frameHeaderSize+len(data)+2)
	binary.BigEndian.PutUint32(buf[0:4], seq)
	binary.BigEndian.PutUint32(buf[4:8], msg)
	buf[8] = flags
	binary.BigEndian.PutUint64(buf[9:17], uint64(timestampNano))
	copy(buf[frameHeaderSize:], data)

	sum := crc16.Checksum(buf[:frameHeaderSize+len(data)], crc16Table)
	binary.BigEndian.PutUint16(buf[len(buf)-2:], sum)
	return buf
}

// decodeFrame is the inverse of encodeFrame. It returns ErrCorruptFrame if
// the trailing checksum doesn't match.
func decodeFrame(buf []byte) (seq, msg uint32, flags uint8, timestampNano int64, data []byte, err error) {
	if len(buf) < frameHeaderSize+2 {
		return 0, 0, 0, 0, nil, ErrCorruptFrame
	}
	body := buf[:len(buf)-2]
	want := binary.BigEndian.Uint16(buf[len(buf)-2:])
	if crc16.Checksum(body, crc16Table) != want {
		return 0, 0, 0, 0, nil, ErrCorruptFrame
	}
	seq = binary.BigEndian.Uint32(buf[0:4])
	msg = binary.BigEndian.Uint32(buf[4:8])
	flags = buf[8]
	timestampNano = int64(binary.BigEndian.Uint64(buf[9:17]))
	data = append([]byte(nil), buf[frameHeaderSize:len(buf)-2]...)
	return seq, msg, flags, timestampNano, data, nil
}
