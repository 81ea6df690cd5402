package token

import (
	"encoding/binary"
	"fmt"
	"time"
)

// recordVersion is the current on-disk record format version. Decoding any
// other version is a hard failure.
const recordVersion = 1

// recordHeaderLen is version (4) plus last-use milliseconds (8).
const recordHeaderLen = 12

// record is the value stored against a token: the owning uid and the
// timestamp of the last successful consumption. A zero lastUse means the
// token has never been used.
type record struct {
	uid     string
	lastUse time.Time
}

// encode serializes a record as: uint32 LE version, uint64 LE milliseconds
// since epoch, raw uid bytes.
func (r record) encode() []byte {
	buf := make([]byte, recordHeaderLen+len(r.uid))
	binary.LittleEndian.PutUint32(buf[0:4], recordVersion)
	binary.LittleEndian.PutUint64(buf[4:12], uint64(r.lastUse.UnixMilli()))
	copy(buf[recordHeaderLen:], r.uid)
	return buf
}

func decodeRecord(buf []byte) (record, error) {
	if len(buf) < recordHeaderLen {
		return record{}, fmt.Errorf("token record too short: %d bytes", len(buf))
	}
	if v := binary.LittleEndian.Uint32(buf[0:4]); v != recordVersion {
		return record{}, fmt.Errorf("unknown token record version %d", v)
	}

	ms := binary.LittleEndian.Uint64(buf[4:12])
	return record{
		uid:     string(buf[recordHeaderLen:]),
		lastUse: time.UnixMilli(int64(ms)).UTC(),
	}, nil
}
