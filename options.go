package srt

import (
	"encoding/binary"
	"time"
)

// OptID identifies a group option, per the flat (opt_id, bytes) design of
// SPEC_FULL.md §9/§4.7 — no polymorphic per-option configuration objects.
type OptID int

const (
	OptSndTimeout OptID = iota + 1
	OptRcvTimeout
	OptStabilityTimeout
	OptTSBPDEnable
	OptTSBPDDelay
	OptPacketDropEnable
	OptMaxPayloadSize
	OptGroupMinStable
	OptGapWait
)

// joinTimeOnly lists the options that only affect members added after the
// option is set, per the table in SPEC_FULL.md §4.7.
var joinTimeOnly = map[OptID]bool{
	OptTSBPDEnable: true,
	OptTSBPDDelay:  true,
}

type option struct {
	id    OptID
	value []byte
}

// optionList is the ordered (opt_id, bytes) list a Group replays onto every
// member that joins. SetOpt overwrites the most recent entry for a given id
// in place, preserving its original position, so replay order stays
// deterministic (SPEC_FULL.md §4.7).
type optionList struct {
	entries []option
}

func (ol *optionList) set(id OptID, value []byte) {
	for i := range ol.entries {
		if ol.entries[i].id == id {
			ol.entries[i].value = value
			return
		}
	}
	ol.entries = append(ol.entries, option{id: id, value: value})
}

func (ol *optionList) get(id OptID) ([]byte, bool) {
	for i := range ol.entries {
		if ol.entries[i].id == id {
			return ol.entries[i].value, true
		}
	}
	return nil, false
}

// EncodeInt32/EncodeBool/EncodeDuration are convenience encoders matching
// the payload encodings named in SPEC_FULL.md §4.7's option table; they
// turn a typed value into the opaque bytes SetOpt stores.

func EncodeInt32(v int32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(v))
	return b
}

func DecodeInt32(b []byte) (int32, bool) {
	if len(b) != 4 {
		return 0, false
	}
	return int32(binary.BigEndian.Uint32(b)), true
}

func EncodeBool(v bool) []byte {
	if v {
		return []byte{1}
	}
	return []byte{0}
}

func DecodeBool(b []byte) (bool, bool) {
	if len(b) != 1 {
		return false, false
	}
	return b[0] != 0, true
}

// EncodeDuration encodes a duration as milliseconds, matching every
// millisecond-valued option in SPEC_FULL.md §4.7's table.
func EncodeDuration(d time.Duration) []byte {
	return EncodeInt32(int32(d / time.Millisecond))
}

// DecodeDuration is the inverse of EncodeDuration.
func DecodeDuration(b []byte) (time.Duration, bool) {
	ms, ok := DecodeInt32(b)
	if !ok {
		return 0, false
	}
	return time.Duration(ms) * time.Millisecond, true
}
