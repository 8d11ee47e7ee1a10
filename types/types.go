package types

import (
	"fmt"

	"github.com/colorfulnotion/dsn/common"
	"github.com/colorfulnotion/dsn/dsnerrors"
)

// SegmentIndex identifies one segment within the archived history.
type SegmentIndex uint64

// ShardIndex is the position of a coded shard within a segment, dense in
// [0, 2N). Indices below N are source shards, the rest are parity.
type ShardIndex uint32

// ShardValue is the canonical big-endian encoding of one field element.
type ShardValue [ShardValueSize]byte

func (v ShardValue) Hex() string {
	return common.Bytes2Hex(v[:])
}

// Segment is a fixed-capacity container of concatenated, length-prefixed
// records, zero-padded to its capacity. Immutable once committed.
type Segment struct {
	Index   SegmentIndex
	Payload []byte
}

// CodedShard is one evaluation of a segment's polynomial at one of the 2N
// canonical points, tagged with its positional index.
type CodedShard struct {
	Index ShardIndex
	Value ShardValue
}

// OpeningProof is the compressed G1 quotient point proving that a shard value
// is the committed polynomial's evaluation at the shard's canonical point.
type OpeningProof [ProofSize]byte

// Commitment binds to a segment's polynomial. ParamsID is the identity digest
// of the public parameter blob the commitment was produced under, so verifiers
// holding different parameters fail loudly instead of silently rejecting.
type Commitment struct {
	Point    [CommitmentPointSize]byte
	ParamsID common.Hash
}

// Bytes returns the fixed-size wire encoding: G1 point followed by params ID.
func (c Commitment) Bytes() []byte {
	out := make([]byte, 0, CommitmentSize)
	out = append(out, c.Point[:]...)
	out = append(out, c.ParamsID.Bytes()...)
	return out
}

// CommitmentFromBytes decodes the fixed-size commitment encoding. Curve point
// validity is checked by the commitment scheme, not here.
func CommitmentFromBytes(b []byte) (Commitment, error) {
	var c Commitment
	if len(b) != CommitmentSize {
		return c, fmt.Errorf("%w: commitment is %d bytes, expected %d", dsnerrors.ErrMMalformedInput, len(b), CommitmentSize)
	}
	copy(c.Point[:], b[:CommitmentPointSize])
	c.ParamsID = common.BytesToHash(b[CommitmentPointSize:])
	return c, nil
}

func (c Commitment) String() string {
	return common.Bytes2Hex(c.Point[:])
}
