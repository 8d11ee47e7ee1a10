package types

import (
	"encoding/binary"
	"fmt"

	"github.com/colorfulnotion/dsn/dsnerrors"
)

// Piece is the unit actually stored and transmitted: one coded shard bundled
// with the segment commitment and its opening proof. A Piece is self-verifying
// against a known commitment; no other context is required.
type Piece struct {
	SegmentIndex SegmentIndex
	ShardIndex   ShardIndex
	Value        ShardValue
	Commitment   Commitment
	Proof        OpeningProof
}

// Shard returns the piece's coded shard.
func (p *Piece) Shard() CodedShard {
	return CodedShard{Index: p.ShardIndex, Value: p.Value}
}

// Bytes returns the fixed 172-byte wire encoding:
// segment index (8) | shard index (4) | shard value (32) | commitment (80) | proof (48)
func (p *Piece) Bytes() []byte {
	out := make([]byte, 0, PieceSize)
	var seg [SegmentIndexSize]byte
	binary.BigEndian.PutUint64(seg[:], uint64(p.SegmentIndex))
	out = append(out, seg[:]...)
	var idx [ShardIndexSize]byte
	binary.BigEndian.PutUint32(idx[:], uint32(p.ShardIndex))
	out = append(out, idx[:]...)
	out = append(out, p.Value[:]...)
	out = append(out, p.Commitment.Bytes()...)
	out = append(out, p.Proof[:]...)
	return out
}

// PieceFromBytes decodes the fixed-size wire encoding. Only layout is checked
// here; cryptographic validity is the verifier's job.
func PieceFromBytes(b []byte) (*Piece, error) {
	if len(b) != PieceSize {
		return nil, fmt.Errorf("%w: piece is %d bytes, expected %d", dsnerrors.ErrMMalformedInput, len(b), PieceSize)
	}
	p := &Piece{}
	p.SegmentIndex = SegmentIndex(binary.BigEndian.Uint64(b[:SegmentIndexSize]))
	b = b[SegmentIndexSize:]
	p.ShardIndex = ShardIndex(binary.BigEndian.Uint32(b[:ShardIndexSize]))
	b = b[ShardIndexSize:]
	copy(p.Value[:], b[:ShardValueSize])
	b = b[ShardValueSize:]
	commitment, err := CommitmentFromBytes(b[:CommitmentSize])
	if err != nil {
		return nil, err
	}
	p.Commitment = commitment
	b = b[CommitmentSize:]
	copy(p.Proof[:], b)
	return p, nil
}

func (p *Piece) String() string {
	return fmt.Sprintf("piece[seg=%d shard=%d value=%s]", p.SegmentIndex, p.ShardIndex, p.Value.Hex())
}
