package archiver

import (
	"encoding/binary"
	"fmt"

	"github.com/colorfulnotion/dsn/dsnerrors"
	"github.com/colorfulnotion/dsn/types"
)

// Records are packed into a segment payload as a fixed-width big-endian
// length prefix followed by the record bytes, then zero padding up to the
// segment capacity. Records are non-empty, so a zero length prefix
// unambiguously marks the start of padding and unpacking is lossless.

func packRecord(buf []byte, record []byte) []byte {
	var prefix [types.RecordLengthPrefixSize]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(record)))
	buf = append(buf, prefix[:]...)
	buf = append(buf, record...)
	return buf
}

// UnpackRecords reverses the padding scheme, recovering the original records
// in order from a segment payload.
func UnpackRecords(payload []byte) ([][]byte, error) {
	var records [][]byte
	for len(payload) >= types.RecordLengthPrefixSize {
		length := binary.BigEndian.Uint32(payload[:types.RecordLengthPrefixSize])
		if length == 0 {
			break
		}
		payload = payload[types.RecordLengthPrefixSize:]
		if int(length) > len(payload) {
			return nil, fmt.Errorf("%w: record length %d exceeds remaining payload %d", dsnerrors.ErrMMalformedInput, length, len(payload))
		}
		record := make([]byte, length)
		copy(record, payload[:length])
		records = append(records, record)
		payload = payload[length:]
	}
	return records, nil
}
