// Package erasurecoding expands segments into 2N coded shards and recovers
// them from any N. Shards are evaluations of the segment polynomial at the
// canonical domain points, which makes the code maximum-distance-separable and
// lets the commitment scheme open source and parity shards uniformly. A
// XOR-based or systematic-only code cannot replace this construction.
package erasurecoding

import (
	"fmt"
	"runtime"
	"sort"

	"github.com/colorfulnotion/dsn/dsnerrors"
	"github.com/colorfulnotion/dsn/kzg"
	"github.com/colorfulnotion/dsn/polynomial"
	"github.com/colorfulnotion/dsn/types"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"golang.org/x/sync/errgroup"
)

// Codec encodes and decodes segments for a fixed shard layout of n source and
// n parity shards. Stateless apart from the immutable domain and parameter
// set; safe for concurrent use.
type Codec struct {
	n      int
	domain *polynomial.Domain
	scheme *kzg.Scheme
}

// New builds a codec for n source shards. n must be a power of two and the
// scheme's parameters must support degree-(n-1) polynomials.
func New(n int, scheme *kzg.Scheme) (*Codec, error) {
	domain, err := polynomial.NewDomain(n)
	if err != nil {
		return nil, err
	}
	if scheme.Params().MaxPolyLen() < n {
		return nil, fmt.Errorf("%w: parameters support %d coefficients, codec needs %d", dsnerrors.ErrPParamsTooSmall, scheme.Params().MaxPolyLen(), n)
	}
	return &Codec{
		n:      n,
		domain: domain,
		scheme: scheme,
	}, nil
}

// NewDefault builds a codec with the protocol shard count.
func NewDefault(scheme *kzg.Scheme) (*Codec, error) {
	return New(types.NumSourceShards, scheme)
}

// N returns the source shard count.
func (c *Codec) N() int {
	return c.n
}

// TotalShards returns 2N.
func (c *Codec) TotalShards() int {
	return 2 * c.n
}

// Capacity returns the segment payload size in bytes.
func (c *Codec) Capacity() int {
	return types.SegmentCapacity(c.n)
}

// SegmentPolynomial derives the unique degree-<n polynomial whose evaluations
// at the source points are the segment's shards. Each shard packs
// SafeBytesPerShard payload bytes into the low bytes of one field element, so
// arbitrary payloads are always canonical scalars.
func (c *Codec) SegmentPolynomial(segment *types.Segment) (polynomial.Polynomial, error) {
	if len(segment.Payload) != c.Capacity() {
		return nil, fmt.Errorf("%w: segment payload is %d bytes, expected %d", dsnerrors.ErrMMalformedInput, len(segment.Payload), c.Capacity())
	}
	evals := make([]fr.Element, c.n)
	var buf [types.FullBytesPerShard]byte
	for i := 0; i < c.n; i++ {
		copy(buf[types.FullBytesPerShard-types.SafeBytesPerShard:], segment.Payload[i*types.SafeBytesPerShard:(i+1)*types.SafeBytesPerShard])
		evals[i].SetBytes(buf[:])
	}
	return c.domain.FromSourceEvals(evals)
}

// Encode commits to the segment and evaluates its polynomial at all 2N
// canonical points. The first N coded shards are the source shards verbatim,
// the rest parity; output is always in canonical index order.
func (c *Codec) Encode(segment *types.Segment) (types.Commitment, []types.CodedShard, error) {
	poly, err := c.SegmentPolynomial(segment)
	if err != nil {
		return types.Commitment{}, nil, err
	}
	commitment, err := c.scheme.Commit(poly)
	if err != nil {
		return types.Commitment{}, nil, err
	}
	shards, err := c.shardsFromPolynomial(poly)
	if err != nil {
		return types.Commitment{}, nil, err
	}
	return commitment, shards, nil
}

// EncodeWithProofs additionally opens the commitment at every one of the 2N
// canonical points. Proof generation is independent per shard and fans out
// across all available workers.
func (c *Codec) EncodeWithProofs(segment *types.Segment) (types.Commitment, []types.CodedShard, []types.OpeningProof, error) {
	poly, err := c.SegmentPolynomial(segment)
	if err != nil {
		return types.Commitment{}, nil, nil, err
	}
	commitment, err := c.scheme.Commit(poly)
	if err != nil {
		return types.Commitment{}, nil, nil, err
	}
	shards, err := c.shardsFromPolynomial(poly)
	if err != nil {
		return types.Commitment{}, nil, nil, err
	}

	proofs := make([]types.OpeningProof, 2*c.n)
	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for k := 0; k < 2*c.n; k++ {
		g.Go(func() error {
			point, err := c.domain.ShardPoint(k)
			if err != nil {
				return err
			}
			proof, err := c.scheme.Open(poly, point)
			if err != nil {
				return err
			}
			proofs[k] = proof
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return types.Commitment{}, nil, nil, err
	}
	return commitment, shards, proofs, nil
}

func (c *Codec) shardsFromPolynomial(poly polynomial.Polynomial) ([]types.CodedShard, error) {
	evals, err := c.domain.EvaluateBatch(poly)
	if err != nil {
		return nil, err
	}
	shards := make([]types.CodedShard, 2*c.n)
	for k := range evals {
		shards[k] = types.CodedShard{
			Index: types.ShardIndex(k),
			Value: evals[k].Bytes(),
		}
	}
	return shards, nil
}

// Decode recovers the segment payload from any >= N distinct-index coded
// shards. Duplicate indices are malformed input, not silently deduplicated.
// When more than N shards are supplied the first N by index are used, so the
// result is reproducible; any valid subset recovers the same payload.
func (c *Codec) Decode(shards []types.CodedShard) ([]byte, error) {
	seen := make(map[types.ShardIndex]bool, len(shards))
	for _, shard := range shards {
		if int(shard.Index) >= 2*c.n {
			return nil, fmt.Errorf("%w: shard index %d not in [0, %d)", dsnerrors.ErrMShardIndexOutOfRange, shard.Index, 2*c.n)
		}
		if seen[shard.Index] {
			return nil, fmt.Errorf("%w: shard index %d", dsnerrors.ErrMDuplicateShardIndex, shard.Index)
		}
		seen[shard.Index] = true
	}
	if len(shards) < c.n {
		return nil, fmt.Errorf("%w: have %d shards, need %d", dsnerrors.ErrIInsufficientShards, len(shards), c.n)
	}

	ordered := make([]types.CodedShard, len(shards))
	copy(ordered, shards)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })
	ordered = ordered[:c.n]

	indices := make([]int, c.n)
	values := make([]fr.Element, c.n)
	for i, shard := range ordered {
		indices[i] = int(shard.Index)
		if err := values[i].SetBytesCanonical(shard.Value[:]); err != nil {
			return nil, fmt.Errorf("%w: shard %d: %v", dsnerrors.ErrMNonCanonicalScalar, shard.Index, err)
		}
	}

	poly, err := c.domain.Interpolate(indices, values)
	if err != nil {
		return nil, err
	}
	srcEvals, err := c.domain.EvaluateSource(poly)
	if err != nil {
		return nil, err
	}

	payload := make([]byte, 0, c.Capacity())
	for i := 0; i < c.n; i++ {
		b := srcEvals[i].Bytes()
		payload = append(payload, b[types.FullBytesPerShard-types.SafeBytesPerShard:]...)
	}
	return payload, nil
}

// VerifyPiece checks a piece's opening proof against its commitment at its
// claimed index. Any failure is reported as an error; garbage input never
// panics.
func (c *Codec) VerifyPiece(piece *types.Piece) error {
	point, err := c.domain.ShardPoint(int(piece.ShardIndex))
	if err != nil {
		return err
	}
	var value fr.Element
	if err := value.SetBytesCanonical(piece.Value[:]); err != nil {
		return fmt.Errorf("%w: shard %d: %v", dsnerrors.ErrMNonCanonicalScalar, piece.ShardIndex, err)
	}
	return c.scheme.Verify(piece.Commitment, point, value, piece.Proof)
}
