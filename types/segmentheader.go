package types

import (
	"encoding/binary"
	"fmt"

	"github.com/colorfulnotion/dsn/common"
	"github.com/colorfulnotion/dsn/dsnerrors"
)

// SegmentHeader summarizes one archived segment. Each header carries the hash
// of the previous one, so the headers form a chain that lets a light peer
// check that a segment commitment belongs to the archived history without
// holding any segment data.
type SegmentHeader struct {
	SegmentIndex          SegmentIndex
	SegmentCommitment     Commitment
	PrevSegmentHeaderHash common.Hash
}

const SegmentHeaderSize = SegmentIndexSize + CommitmentSize + common.HashSize

// Bytes returns the fixed-size wire encoding:
// segment index (8) | segment commitment (80) | prev header hash (32)
func (h *SegmentHeader) Bytes() []byte {
	out := make([]byte, 0, SegmentHeaderSize)
	var seg [SegmentIndexSize]byte
	binary.BigEndian.PutUint64(seg[:], uint64(h.SegmentIndex))
	out = append(out, seg[:]...)
	out = append(out, h.SegmentCommitment.Bytes()...)
	out = append(out, h.PrevSegmentHeaderHash.Bytes()...)
	return out
}

// Hash is the BLAKE2b-256 hash of the whole header, referenced by the next
// segment's header.
func (h *SegmentHeader) Hash() common.Hash {
	return common.Blake2Hash(h.Bytes())
}

func SegmentHeaderFromBytes(b []byte) (*SegmentHeader, error) {
	if len(b) != SegmentHeaderSize {
		return nil, fmt.Errorf("%w: segment header is %d bytes, expected %d", dsnerrors.ErrMMalformedInput, len(b), SegmentHeaderSize)
	}
	h := &SegmentHeader{}
	h.SegmentIndex = SegmentIndex(binary.BigEndian.Uint64(b[:SegmentIndexSize]))
	b = b[SegmentIndexSize:]
	commitment, err := CommitmentFromBytes(b[:CommitmentSize])
	if err != nil {
		return nil, err
	}
	h.SegmentCommitment = commitment
	b = b[CommitmentSize:]
	h.PrevSegmentHeaderHash = common.BytesToHash(b)
	return h, nil
}
