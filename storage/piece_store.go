// Package storage persists archived pieces and segment headers in LevelDB.
// Pieces are keyed by (segment index, shard index) so one segment's pieces
// are contiguous on disk and a segment scan is a single prefix iteration.
package storage

import (
	"encoding/binary"
	"fmt"

	"github.com/colorfulnotion/dsn/log"
	"github.com/colorfulnotion/dsn/types"
	"github.com/syndtr/goleveldb/leveldb"
	leveldbstorage "github.com/syndtr/goleveldb/leveldb/storage"
)

const (
	pieceKeyPrefix  = 'p'
	headerKeyPrefix = 'h'
)

// PieceStore wraps LevelDB for piece and header persistence.
// Thread-safe: LevelDB handles its own synchronization.
type PieceStore struct {
	db *leveldb.DB
}

// NewPieceStore opens or creates a LevelDB database at the given path.
// If path is empty, uses in-memory storage.
func NewPieceStore(path string) (*PieceStore, error) {
	var db *leveldb.DB
	var err error

	if path == "" {
		memStorage := leveldbstorage.NewMemStorage()
		db, err = leveldb.Open(memStorage, nil)
	} else {
		db, err = leveldb.OpenFile(path, nil)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open piece store at %s: %w", path, err)
	}

	return &PieceStore{db: db}, nil
}

// NewMemoryPieceStore creates an in-memory PieceStore for testing.
func NewMemoryPieceStore() (*PieceStore, error) {
	return NewPieceStore("")
}

// Keys are big-endian so LevelDB's lexicographic order matches index order.
func pieceKey(segment types.SegmentIndex, shard types.ShardIndex) []byte {
	key := make([]byte, 1+types.SegmentIndexSize+types.ShardIndexSize)
	key[0] = pieceKeyPrefix
	binary.BigEndian.PutUint64(key[1:], uint64(segment))
	binary.BigEndian.PutUint32(key[1+types.SegmentIndexSize:], uint32(shard))
	return key
}

func segmentKeyPrefix(segment types.SegmentIndex) []byte {
	prefix := make([]byte, 1+types.SegmentIndexSize)
	prefix[0] = pieceKeyPrefix
	binary.BigEndian.PutUint64(prefix[1:], uint64(segment))
	return prefix
}

func headerKey(segment types.SegmentIndex) []byte {
	key := make([]byte, 1+types.SegmentIndexSize)
	key[0] = headerKeyPrefix
	binary.BigEndian.PutUint64(key[1:], uint64(segment))
	return key
}

func (ps *PieceStore) PutPiece(piece *types.Piece) error {
	return ps.db.Put(pieceKey(piece.SegmentIndex, piece.ShardIndex), piece.Bytes(), nil)
}

// PutPieces writes a batch of pieces atomically.
func (ps *PieceStore) PutPieces(pieces []types.Piece) error {
	batch := new(leveldb.Batch)
	for i := range pieces {
		batch.Put(pieceKey(pieces[i].SegmentIndex, pieces[i].ShardIndex), pieces[i].Bytes())
	}
	if err := ps.db.Write(batch, nil); err != nil {
		return fmt.Errorf("PutPieces: %w", err)
	}
	log.Debug(log.StoreMonitoring, "stored pieces", "count", len(pieces))
	return nil
}

// GetPiece retrieves one piece. Returns (nil, false, nil) if not found.
func (ps *PieceStore) GetPiece(segment types.SegmentIndex, shard types.ShardIndex) (*types.Piece, bool, error) {
	data, err := ps.db.Get(pieceKey(segment, shard), nil)
	if err == leveldb.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("GetPiece %d/%d: %w", segment, shard, err)
	}
	piece, err := types.PieceFromBytes(data)
	if err != nil {
		return nil, false, fmt.Errorf("GetPiece %d/%d: %w", segment, shard, err)
	}
	return piece, true, nil
}

// HasPiece reports whether a piece is stored without decoding it.
func (ps *PieceStore) HasPiece(segment types.SegmentIndex, shard types.ShardIndex) (bool, error) {
	return ps.db.Has(pieceKey(segment, shard), nil)
}

func (ps *PieceStore) DeletePiece(segment types.SegmentIndex, shard types.ShardIndex) error {
	return ps.db.Delete(pieceKey(segment, shard), nil)
}

// GetSegmentPieces returns all stored pieces of one segment in shard index
// order. May return fewer than 2N pieces; the caller decides whether that is
// enough to reconstruct.
func (ps *PieceStore) GetSegmentPieces(segment types.SegmentIndex) ([]types.Piece, error) {
	prefix := segmentKeyPrefix(segment)
	iter := ps.db.NewIterator(nil, nil)
	defer iter.Release()

	var pieces []types.Piece
	for ok := iter.Seek(prefix); ok; ok = iter.Next() {
		key := iter.Key()
		if len(key) < len(prefix) || string(key[:len(prefix)]) != string(prefix) {
			break
		}
		piece, err := types.PieceFromBytes(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("GetSegmentPieces %d: key %x: %w", segment, key, err)
		}
		pieces = append(pieces, *piece)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("GetSegmentPieces %d: %w", segment, err)
	}
	return pieces, nil
}

func (ps *PieceStore) PutSegmentHeader(header *types.SegmentHeader) error {
	return ps.db.Put(headerKey(header.SegmentIndex), header.Bytes(), nil)
}

// GetSegmentHeader retrieves one segment header. Returns (nil, false, nil) if
// not found.
func (ps *PieceStore) GetSegmentHeader(segment types.SegmentIndex) (*types.SegmentHeader, bool, error) {
	data, err := ps.db.Get(headerKey(segment), nil)
	if err == leveldb.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("GetSegmentHeader %d: %w", segment, err)
	}
	header, err := types.SegmentHeaderFromBytes(data)
	if err != nil {
		return nil, false, fmt.Errorf("GetSegmentHeader %d: %w", segment, err)
	}
	return header, true, nil
}

func (ps *PieceStore) Close() error {
	return ps.db.Close()
}

// DB returns the underlying LevelDB instance for advanced operations.
// Use sparingly - prefer the wrapper methods.
func (ps *PieceStore) DB() *leveldb.DB {
	return ps.db
}
