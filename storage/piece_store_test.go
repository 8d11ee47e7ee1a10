package storage

import (
	"math/rand"
	"testing"

	"github.com/colorfulnotion/dsn/types"
)

func randomPiece(rng *rand.Rand, segment types.SegmentIndex, shard types.ShardIndex) types.Piece {
	p := types.Piece{SegmentIndex: segment, ShardIndex: shard}
	rng.Read(p.Value[:])
	rng.Read(p.Commitment.Point[:])
	rng.Read(p.Commitment.ParamsID[:])
	rng.Read(p.Proof[:])
	return p
}

func TestPieceStore_BasicOperations(t *testing.T) {
	ps, err := NewMemoryPieceStore()
	if err != nil {
		t.Fatalf("Failed to create memory store: %v", err)
	}
	defer ps.Close()

	rng := rand.New(rand.NewSource(1))
	piece := randomPiece(rng, 7, 3)

	if err := ps.PutPiece(&piece); err != nil {
		t.Fatalf("PutPiece failed: %v", err)
	}

	got, found, err := ps.GetPiece(7, 3)
	if err != nil {
		t.Fatalf("GetPiece failed: %v", err)
	}
	if !found {
		t.Fatal("Expected piece to be found")
	}
	if *got != piece {
		t.Errorf("GetPiece returned %v, want %v", got, piece)
	}

	has, err := ps.HasPiece(7, 3)
	if err != nil || !has {
		t.Errorf("HasPiece = (%v, %v), want (true, nil)", has, err)
	}

	// Non-existent piece
	_, found, err = ps.GetPiece(7, 4)
	if err != nil {
		t.Fatalf("GetPiece non-existent failed: %v", err)
	}
	if found {
		t.Error("Expected piece not to be found")
	}

	if err := ps.DeletePiece(7, 3); err != nil {
		t.Fatalf("DeletePiece failed: %v", err)
	}
	_, found, err = ps.GetPiece(7, 3)
	if err != nil {
		t.Fatalf("GetPiece after delete failed: %v", err)
	}
	if found {
		t.Error("Expected piece to be deleted")
	}
}

func TestPieceStore_GetSegmentPieces(t *testing.T) {
	ps, err := NewMemoryPieceStore()
	if err != nil {
		t.Fatalf("Failed to create memory store: %v", err)
	}
	defer ps.Close()

	rng := rand.New(rand.NewSource(2))

	// Insert out of order across two segments; neighbors must not leak in.
	var batch []types.Piece
	for _, shard := range []types.ShardIndex{5, 0, 3, 7} {
		batch = append(batch, randomPiece(rng, 1, shard))
	}
	batch = append(batch, randomPiece(rng, 0, 2), randomPiece(rng, 2, 1))
	if err := ps.PutPieces(batch); err != nil {
		t.Fatalf("PutPieces failed: %v", err)
	}

	pieces, err := ps.GetSegmentPieces(1)
	if err != nil {
		t.Fatalf("GetSegmentPieces failed: %v", err)
	}
	if len(pieces) != 4 {
		t.Fatalf("Expected 4 pieces, got %d", len(pieces))
	}
	for i, want := range []types.ShardIndex{0, 3, 5, 7} {
		if pieces[i].SegmentIndex != 1 {
			t.Errorf("Piece %d has segment %d, want 1", i, pieces[i].SegmentIndex)
		}
		if pieces[i].ShardIndex != want {
			t.Errorf("Piece %d has shard %d, want %d (shard index order)", i, pieces[i].ShardIndex, want)
		}
	}

	pieces, err = ps.GetSegmentPieces(99)
	if err != nil {
		t.Fatalf("GetSegmentPieces empty failed: %v", err)
	}
	if len(pieces) != 0 {
		t.Errorf("Expected no pieces for empty segment, got %d", len(pieces))
	}
}

func TestPieceStore_SegmentHeaders(t *testing.T) {
	ps, err := NewMemoryPieceStore()
	if err != nil {
		t.Fatalf("Failed to create memory store: %v", err)
	}
	defer ps.Close()

	rng := rand.New(rand.NewSource(3))
	header := &types.SegmentHeader{SegmentIndex: 12}
	rng.Read(header.SegmentCommitment.Point[:])
	rng.Read(header.SegmentCommitment.ParamsID[:])
	rng.Read(header.PrevSegmentHeaderHash[:])

	if err := ps.PutSegmentHeader(header); err != nil {
		t.Fatalf("PutSegmentHeader failed: %v", err)
	}

	got, found, err := ps.GetSegmentHeader(12)
	if err != nil {
		t.Fatalf("GetSegmentHeader failed: %v", err)
	}
	if !found {
		t.Fatal("Expected header to be found")
	}
	if *got != *header {
		t.Errorf("GetSegmentHeader returned %v, want %v", got, header)
	}

	_, found, err = ps.GetSegmentHeader(13)
	if err != nil {
		t.Fatalf("GetSegmentHeader non-existent failed: %v", err)
	}
	if found {
		t.Error("Expected header not to be found")
	}
}

func TestPieceStore_DB(t *testing.T) {
	ps, err := NewMemoryPieceStore()
	if err != nil {
		t.Fatalf("Failed to create memory store: %v", err)
	}
	defer ps.Close()

	if ps.DB() == nil {
		t.Error("DB() returned nil")
	}
}
