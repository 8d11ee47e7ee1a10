package erasurecoding

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/colorfulnotion/dsn/dsnerrors"
	"github.com/colorfulnotion/dsn/kzg"
	"github.com/colorfulnotion/dsn/types"
	"github.com/stretchr/testify/require"
)

const testShards = 8

func testCodec(t *testing.T) *Codec {
	t.Helper()
	params, err := kzg.GenerateTestParams(testShards, 1337)
	require.NoError(t, err)
	codec, err := New(testShards, kzg.NewScheme(params))
	require.NoError(t, err)
	return codec
}

func randomSegment(rng *rand.Rand, codec *Codec, index types.SegmentIndex) *types.Segment {
	payload := make([]byte, codec.Capacity())
	rng.Read(payload)
	return &types.Segment{Index: index, Payload: payload}
}

func TestEncodeDecodeIdentity(t *testing.T) {
	codec := testCodec(t)
	rng := rand.New(rand.NewSource(1))
	segment := randomSegment(rng, codec, 0)

	_, shards, err := codec.Encode(segment)
	require.NoError(t, err)
	require.Len(t, shards, codec.TotalShards())

	payload, err := codec.Decode(shards)
	require.NoError(t, err)
	require.True(t, bytes.Equal(payload, segment.Payload))
}

func TestSourceShardsAreVerbatim(t *testing.T) {
	codec := testCodec(t)
	rng := rand.New(rand.NewSource(2))
	segment := randomSegment(rng, codec, 0)

	_, shards, err := codec.Encode(segment)
	require.NoError(t, err)

	// Shard k < N carries the segment's k-th 31-byte chunk in the low bytes
	// of its value, with a zero top byte.
	for k := 0; k < codec.N(); k++ {
		require.EqualValues(t, k, shards[k].Index)
		chunk := segment.Payload[k*types.SafeBytesPerShard : (k+1)*types.SafeBytesPerShard]
		require.Zero(t, shards[k].Value[0], "shard %d top byte", k)
		require.True(t, bytes.Equal(shards[k].Value[1:], chunk), "shard %d is not the source chunk", k)
	}
}

func TestDecodeFromAnySubset(t *testing.T) {
	codec := testCodec(t)
	rng := rand.New(rand.NewSource(3))
	segment := randomSegment(rng, codec, 0)

	_, shards, err := codec.Encode(segment)
	require.NoError(t, err)

	n := codec.N()
	subsets := [][]int{
		{0, 1, 2, 3, 4, 5, 6, 7},       // source only: identity
		{8, 9, 10, 11, 12, 13, 14, 15}, // parity only
		{1, 3, 5, 7, 9, 11, 13, 15},
		{0, 2, 4, 6, 8, 10, 12, 14},
	}
	for trial := 0; trial < 10; trial++ {
		subsets = append(subsets, rng.Perm(codec.TotalShards())[:n+rng.Intn(n)])
	}
	for _, subset := range subsets {
		picked := make([]types.CodedShard, len(subset))
		for i, k := range subset {
			picked[i] = shards[k]
		}
		payload, err := codec.Decode(picked)
		require.NoError(t, err, "subset %v", subset)
		require.True(t, bytes.Equal(payload, segment.Payload), "subset %v decodes wrong payload", subset)
	}
}

func TestDecodeErrors(t *testing.T) {
	codec := testCodec(t)
	rng := rand.New(rand.NewSource(4))
	segment := randomSegment(rng, codec, 0)

	_, shards, err := codec.Encode(segment)
	require.NoError(t, err)

	_, err = codec.Decode(shards[:codec.N()-1])
	require.ErrorIs(t, err, dsnerrors.ErrIInsufficientShards)

	dup := append([]types.CodedShard{}, shards[:codec.N()]...)
	dup[1] = dup[0]
	_, err = codec.Decode(dup)
	require.ErrorIs(t, err, dsnerrors.ErrMDuplicateShardIndex)

	oor := append([]types.CodedShard{}, shards[:codec.N()]...)
	oor[0].Index = types.ShardIndex(codec.TotalShards())
	_, err = codec.Decode(oor)
	require.ErrorIs(t, err, dsnerrors.ErrMShardIndexOutOfRange)

	// A value above the field modulus is rejected, not reduced.
	bad := append([]types.CodedShard{}, shards[:codec.N()]...)
	for i := range bad[0].Value {
		bad[0].Value[i] = 0xff
	}
	_, err = codec.Decode(bad)
	require.ErrorIs(t, err, dsnerrors.ErrMNonCanonicalScalar)
}

func TestSegmentPolynomialSizeCheck(t *testing.T) {
	codec := testCodec(t)
	_, err := codec.SegmentPolynomial(&types.Segment{Payload: make([]byte, codec.Capacity()-1)})
	require.ErrorIs(t, err, dsnerrors.ErrMMalformedInput)
	_, _, err = codec.Encode(&types.Segment{Payload: nil})
	require.ErrorIs(t, err, dsnerrors.ErrMMalformedInput)
}

func TestEncodeWithProofsAllVerify(t *testing.T) {
	codec := testCodec(t)
	rng := rand.New(rand.NewSource(5))
	segment := randomSegment(rng, codec, 3)

	commitment, shards, proofs, err := codec.EncodeWithProofs(segment)
	require.NoError(t, err)
	require.Len(t, proofs, codec.TotalShards())

	for k, shard := range shards {
		piece := &types.Piece{
			SegmentIndex: segment.Index,
			ShardIndex:   shard.Index,
			Value:        shard.Value,
			Commitment:   commitment,
			Proof:        proofs[k],
		}
		require.NoError(t, codec.VerifyPiece(piece), "shard %d", k)
	}
}

func TestVerifyPieceRejectsTampering(t *testing.T) {
	codec := testCodec(t)
	rng := rand.New(rand.NewSource(6))
	segment := randomSegment(rng, codec, 0)

	commitment, shards, proofs, err := codec.EncodeWithProofs(segment)
	require.NoError(t, err)

	good := types.Piece{
		SegmentIndex: 0,
		ShardIndex:   shards[2].Index,
		Value:        shards[2].Value,
		Commitment:   commitment,
		Proof:        proofs[2],
	}
	require.NoError(t, codec.VerifyPiece(&good))

	// Tampered value.
	tampered := good
	tampered.Value[31] ^= 0x01
	err = codec.VerifyPiece(&tampered)
	require.ErrorIs(t, err, dsnerrors.ErrVProofInvalid)

	// Value/proof pair claimed at the wrong index.
	misplaced := good
	misplaced.ShardIndex = 5
	err = codec.VerifyPiece(&misplaced)
	require.ErrorIs(t, err, dsnerrors.ErrVProofInvalid)

	// Index outside the domain.
	oor := good
	oor.ShardIndex = types.ShardIndex(codec.TotalShards())
	err = codec.VerifyPiece(&oor)
	require.ErrorIs(t, err, dsnerrors.ErrMShardIndexOutOfRange)
}

func TestNewRejectsSmallParams(t *testing.T) {
	params, err := kzg.GenerateTestParams(4, 1337)
	require.NoError(t, err)
	_, err = New(8, kzg.NewScheme(params))
	require.ErrorIs(t, err, dsnerrors.ErrPParamsTooSmall)

	_, err = New(6, kzg.NewScheme(params))
	require.ErrorIs(t, err, dsnerrors.ErrMMalformedInput)
}
