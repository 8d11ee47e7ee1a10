package kzg

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/colorfulnotion/dsn/common"
	"github.com/colorfulnotion/dsn/dsnerrors"
	"github.com/colorfulnotion/dsn/log"
	gkzg "github.com/consensys/gnark-crypto/ecc/bls12-381/kzg"
)

// paramsMagic prefixes every serialized parameter blob.
var paramsMagic = []byte("dsnsrs")

const paramsVersion uint16 = 1

// PublicParams is the structured reference string the commitment scheme runs
// on. It is loaded once at process start and never mutated afterwards, so it
// can be read concurrently without synchronization. Its identity digest is
// embedded in every commitment produced under it.
type PublicParams struct {
	srs  *gkzg.SRS
	id   common.Hash
	blob []byte
}

// ParamsFromBytes parses a versioned parameter blob. The blob's BLAKE2b-256
// hash becomes the parameter identity.
func ParamsFromBytes(blob []byte) (*PublicParams, error) {
	if len(blob) < len(paramsMagic)+2 || !bytes.Equal(blob[:len(paramsMagic)], paramsMagic) {
		return nil, fmt.Errorf("%w: missing parameter blob magic", dsnerrors.ErrPParamsMalformed)
	}
	version := binary.BigEndian.Uint16(blob[len(paramsMagic):])
	if version != paramsVersion {
		return nil, fmt.Errorf("%w: unknown parameter blob version %d", dsnerrors.ErrPParamsMalformed, version)
	}
	srs := &gkzg.SRS{}
	if _, err := srs.ReadFrom(bytes.NewReader(blob[len(paramsMagic)+2:])); err != nil {
		return nil, fmt.Errorf("%w: %v", dsnerrors.ErrPParamsMalformed, err)
	}
	p := &PublicParams{
		srs:  srs,
		id:   common.Blake2Hash(blob),
		blob: append([]byte{}, blob...),
	}
	log.Info(log.KzgMonitoring, "loaded public parameters", "id", common.Str(p.id), "maxPoly", p.MaxPolyLen())
	return p, nil
}

// Bytes returns the versioned blob this parameter set was loaded from (or
// serialized to at generation time).
func (p *PublicParams) Bytes() []byte {
	return append([]byte{}, p.blob...)
}

// ID is the identity digest of the parameter blob.
func (p *PublicParams) ID() common.Hash {
	return p.id
}

// MaxPolyLen is the largest coefficient count Commit supports under these
// parameters. A codec for n source shards needs MaxPolyLen() >= n.
func (p *PublicParams) MaxPolyLen() int {
	return len(p.srs.Pk.G1)
}

// GenerateTestParams builds a parameter set of the given size from a known
// secret. Only for tests and local tooling: a production SRS comes from an
// external ceremony and is loaded with ParamsFromBytes.
func GenerateTestParams(size int, secret int64) (*PublicParams, error) {
	if size < 2 {
		return nil, fmt.Errorf("%w: parameter size %d too small", dsnerrors.ErrPParamsMalformed, size)
	}
	srs, err := gkzg.NewSRS(uint64(size), big.NewInt(secret))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", dsnerrors.ErrPParamsMalformed, err)
	}
	var buf bytes.Buffer
	buf.Write(paramsMagic)
	var version [2]byte
	binary.BigEndian.PutUint16(version[:], paramsVersion)
	buf.Write(version[:])
	if _, err := srs.WriteTo(&buf); err != nil {
		return nil, err
	}
	blob := buf.Bytes()
	return &PublicParams{
		srs:  srs,
		id:   common.Blake2Hash(blob),
		blob: blob,
	}, nil
}
