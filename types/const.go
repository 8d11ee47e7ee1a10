package types

// Protocol constants for the archival erasure code. NumSourceShards is fixed by
// protocol and must be a power of two so segment polynomials can be evaluated
// with radix-2 transforms. Test configurations may instantiate the codec with a
// smaller power of two.
const (
	// NumSourceShards is N: the number of source shards per segment.
	NumSourceShards = 128

	// ShardsPerSegment is 2N: source shards plus parity shards.
	ShardsPerSegment = 2 * NumSourceShards

	// SafeBytesPerShard is the number of data bytes carried by one source
	// shard. One byte short of the full scalar encoding so that arbitrary
	// data always stays below the field modulus.
	SafeBytesPerShard = 31

	// FullBytesPerShard is the canonical big-endian encoding size of one
	// field element.
	FullBytesPerShard = 32

	// SegmentPayloadSize is the raw data capacity of one segment.
	SegmentPayloadSize = NumSourceShards * SafeBytesPerShard

	// RecordLengthPrefixSize is the fixed-width length prefix written before
	// each record in a segment payload.
	RecordLengthPrefixSize = 4
)

// Wire encoding sizes. All integers and field elements are fixed-width
// big-endian; there is no variable-length framing inside a Piece.
const (
	SegmentIndexSize    = 8
	ShardIndexSize      = 4
	ShardValueSize      = FullBytesPerShard
	CommitmentPointSize = 48
	CommitmentSize      = CommitmentPointSize + 32 // G1 point + params ID
	ProofSize           = 48

	PieceSize = SegmentIndexSize + ShardIndexSize + ShardValueSize + CommitmentSize + ProofSize
)

// SegmentCapacity returns the payload capacity in bytes for a segment with n
// source shards.
func SegmentCapacity(n int) int {
	return n * SafeBytesPerShard
}
