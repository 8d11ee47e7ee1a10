package archiver

import (
	"fmt"
	"runtime"
	"sort"

	"github.com/colorfulnotion/dsn/dsnerrors"
	"github.com/colorfulnotion/dsn/erasurecoding"
	"github.com/colorfulnotion/dsn/log"
	"github.com/colorfulnotion/dsn/types"
	"golang.org/x/sync/errgroup"
)

// Strategy selects how reconstruction spends resources: Parallel verifies
// shards across all available workers at higher peak memory, Sequential walks
// them in index order with minimal allocation. A pure time/memory trade-off,
// chosen per call so callers can adapt to what the host has free.
type Strategy int

const (
	StrategyParallel Strategy = iota
	StrategySequential
)

func (s Strategy) String() string {
	switch s {
	case StrategyParallel:
		return "parallel"
	case StrategySequential:
		return "sequential"
	default:
		return "unknown"
	}
}

// Reconstructor recovers a segment's records from pieces fetched off the
// network. Pieces failing verification are dropped, never fatal: an
// adversarial peer can cost shards, not crash the node.
type Reconstructor struct {
	codec *erasurecoding.Codec
}

func NewReconstructor(codec *erasurecoding.Codec) *Reconstructor {
	return &Reconstructor{
		codec: codec,
	}
}

// Reconstruct verifies the supplied pieces for one segment, decodes the
// survivors and strips the padding, returning the original records in order.
// The result depends only on the set of valid pieces, not on arrival or
// processing order.
func (r *Reconstructor) Reconstruct(pieces []types.Piece, strategy Strategy) ([][]byte, error) {
	n := r.codec.N()
	if len(pieces) == 0 {
		return nil, fmt.Errorf("%w: have 0 valid pieces, need %d", dsnerrors.ErrIReconstructionImpossible, n)
	}
	// One segment means one commitment. A piece under a different commitment
	// can verify against its own claimed commitment, so without pinning it a
	// single adversarial piece could steer the decode; conflicting commitments
	// are malformed input, not something to pick a winner from.
	segmentIndex := pieces[0].SegmentIndex
	commitment := pieces[0].Commitment
	for i := range pieces {
		if pieces[i].SegmentIndex != segmentIndex {
			return nil, fmt.Errorf("%w: segment %d and %d", dsnerrors.ErrMMixedSegments, segmentIndex, pieces[i].SegmentIndex)
		}
		if pieces[i].Commitment != commitment {
			return nil, fmt.Errorf("%w: segment %d, shard %d disagrees", dsnerrors.ErrMMixedCommitments, segmentIndex, pieces[i].ShardIndex)
		}
	}

	ordered := make([]types.Piece, len(pieces))
	copy(ordered, pieces)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ShardIndex < ordered[j].ShardIndex })

	valid := make([]bool, len(ordered))
	switch strategy {
	case StrategySequential:
		for i := range ordered {
			valid[i] = r.verify(&ordered[i])
		}
	default:
		var g errgroup.Group
		g.SetLimit(runtime.NumCPU())
		for i := range ordered {
			g.Go(func() error {
				valid[i] = r.verify(&ordered[i])
				return nil
			})
		}
		_ = g.Wait()
	}

	// Keep the first valid piece per index. With the commitment pinned above,
	// two verified pieces at the same index carry the same value, so the
	// choice cannot affect the output.
	shards := make([]types.CodedShard, 0, len(ordered))
	seen := make(map[types.ShardIndex]bool, len(ordered))
	for i := range ordered {
		if !valid[i] || seen[ordered[i].ShardIndex] {
			continue
		}
		seen[ordered[i].ShardIndex] = true
		shards = append(shards, ordered[i].Shard())
	}
	if len(shards) < n {
		return nil, fmt.Errorf("%w: have %d valid pieces, need %d", dsnerrors.ErrIReconstructionImpossible, len(shards), n)
	}

	payload, err := r.codec.Decode(shards)
	if err != nil {
		return nil, err
	}
	records, err := UnpackRecords(payload)
	if err != nil {
		return nil, err
	}
	log.Debug(log.ReconstructMonitoring, "reconstructed segment", "segment", segmentIndex, "validPieces", len(shards), "records", len(records), "strategy", strategy.String())
	return records, nil
}

func (r *Reconstructor) verify(piece *types.Piece) bool {
	if err := r.codec.VerifyPiece(piece); err != nil {
		log.Warn(log.ReconstructMonitoring, "dropping piece", "segment", piece.SegmentIndex, "shard", piece.ShardIndex, "err", err)
		return false
	}
	return true
}
