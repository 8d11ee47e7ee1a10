// Package archiver turns an ordered record stream into self-verifying pieces
// and recovers the records back from any sufficient subset of them. It owns
// the segment boundary: records are buffered until a segment's worth of
// payload exists, then the whole segment is committed, erasure-coded and
// opened in one atomic step.
package archiver

import (
	"fmt"
	"sync"

	"github.com/colorfulnotion/dsn/common"
	"github.com/colorfulnotion/dsn/dsnerrors"
	"github.com/colorfulnotion/dsn/erasurecoding"
	"github.com/colorfulnotion/dsn/log"
	"github.com/colorfulnotion/dsn/types"
)

// ArchivedSegment is the output of sealing one segment: its header and all 2N
// pieces. Either the whole struct is produced or nothing is; a segment is
// never partially committed.
type ArchivedSegment struct {
	Header types.SegmentHeader
	Pieces []types.Piece
}

// Archiver buffers records and seals full segments. The record order and the
// semantic meaning of segment boundaries are decided by the caller; the
// archiver only consumes an ordered sequence.
type Archiver struct {
	mu             sync.Mutex
	codec          *erasurecoding.Codec
	buffer         []byte
	nextSegment    types.SegmentIndex
	prevHeaderHash common.Hash
}

func NewArchiver(codec *erasurecoding.Codec) *Archiver {
	return &Archiver{
		codec: codec,
	}
}

// AddRecord buffers one record, sealing and returning a segment when the
// buffer fills. A record never spans two segments: if it does not fit into
// the space left, the current segment is sealed with padding first.
func (a *Archiver) AddRecord(record []byte) ([]ArchivedSegment, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(record) == 0 {
		return nil, dsnerrors.ErrMEmptyRecord
	}
	needed := types.RecordLengthPrefixSize + len(record)
	capacity := a.codec.Capacity()
	if needed > capacity {
		return nil, fmt.Errorf("%w: record needs %d bytes, segment capacity is %d", dsnerrors.ErrMRecordTooLarge, needed, capacity)
	}

	var sealed []ArchivedSegment
	if len(a.buffer)+needed > capacity {
		segment, err := a.seal()
		if err != nil {
			return nil, err
		}
		sealed = append(sealed, *segment)
	}
	a.buffer = packRecord(a.buffer, record)
	if len(a.buffer) == capacity {
		segment, err := a.seal()
		if err != nil {
			return nil, err
		}
		sealed = append(sealed, *segment)
	}
	return sealed, nil
}

// Flush seals the currently buffered records into a padded segment. Returns
// nil if nothing is buffered.
func (a *Archiver) Flush() (*ArchivedSegment, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.buffer) == 0 {
		return nil, nil
	}
	return a.seal()
}

// Assemble is the batch form: archive all records and flush, returning every
// produced piece in canonical order.
func (a *Archiver) Assemble(records [][]byte) ([]types.Piece, error) {
	var pieces []types.Piece
	for _, record := range records {
		sealed, err := a.AddRecord(record)
		if err != nil {
			return nil, err
		}
		for _, segment := range sealed {
			pieces = append(pieces, segment.Pieces...)
		}
	}
	flushed, err := a.Flush()
	if err != nil {
		return nil, err
	}
	if flushed != nil {
		pieces = append(pieces, flushed.Pieces...)
	}
	return pieces, nil
}

// seal commits the buffered payload as one segment. Caller holds a.mu. All
// 2N pieces and the header are fully built before any archiver state changes,
// so a failure leaves the archiver as if seal was never called.
func (a *Archiver) seal() (*ArchivedSegment, error) {
	payload := make([]byte, a.codec.Capacity())
	copy(payload, a.buffer)
	segment := &types.Segment{
		Index:   a.nextSegment,
		Payload: payload,
	}

	commitment, shards, proofs, err := a.codec.EncodeWithProofs(segment)
	if err != nil {
		return nil, err
	}
	pieces := make([]types.Piece, len(shards))
	for k, shard := range shards {
		pieces[k] = types.Piece{
			SegmentIndex: segment.Index,
			ShardIndex:   shard.Index,
			Value:        shard.Value,
			Commitment:   commitment,
			Proof:        proofs[k],
		}
	}
	header := types.SegmentHeader{
		SegmentIndex:          segment.Index,
		SegmentCommitment:     commitment,
		PrevSegmentHeaderHash: a.prevHeaderHash,
	}

	a.buffer = a.buffer[:0]
	a.prevHeaderHash = header.Hash()
	a.nextSegment++

	log.Info(log.ArchiverMonitoring, "sealed segment", "segment", header.SegmentIndex, "pieces", len(pieces), "commitment", commitment.String())
	return &ArchivedSegment{
		Header: header,
		Pieces: pieces,
	}, nil
}
