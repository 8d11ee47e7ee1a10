// Package kzg implements the polynomial commitment scheme used to make every
// coded shard independently verifiable. Commitments and opening proofs are
// single compressed G1 points; verification is one pairing check, independent
// of segment size, so a light peer can validate a piece without any segment
// data. Proofs exist for evaluations at any point, which is what lets parity
// shards carry proofs even though they were never part of the source data.
package kzg

import (
	"fmt"

	"github.com/colorfulnotion/dsn/common"
	"github.com/colorfulnotion/dsn/dsnerrors"
	"github.com/colorfulnotion/dsn/polynomial"
	"github.com/colorfulnotion/dsn/types"
	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	gkzg "github.com/consensys/gnark-crypto/ecc/bls12-381/kzg"
)

// Scheme commits to segment polynomials and produces/verifies opening proofs
// under one immutable parameter set. Safe for concurrent use.
type Scheme struct {
	params *PublicParams
}

func NewScheme(params *PublicParams) *Scheme {
	return &Scheme{params: params}
}

// Params returns the parameter set the scheme operates under.
func (s *Scheme) Params() *PublicParams {
	return s.params
}

// Commit produces the commitment to p. Deterministic: committing the same
// polynomial under the same parameters always yields the same value.
func (s *Scheme) Commit(p polynomial.Polynomial) (types.Commitment, error) {
	if len(p) > s.params.MaxPolyLen() {
		return types.Commitment{}, fmt.Errorf("%w: polynomial has %d coefficients, parameters support %d", dsnerrors.ErrPParamsTooSmall, len(p), s.params.MaxPolyLen())
	}
	digest, err := gkzg.Commit(p, s.params.srs.Pk)
	if err != nil {
		return types.Commitment{}, err
	}
	return types.Commitment{
		Point:    digest.Bytes(),
		ParamsID: s.params.id,
	}, nil
}

// Open produces the proof that p evaluates at point to p(point). The claimed
// value itself travels as the piece's shard value, not inside the proof.
func (s *Scheme) Open(p polynomial.Polynomial, point fr.Element) (types.OpeningProof, error) {
	if len(p) > s.params.MaxPolyLen() {
		return types.OpeningProof{}, fmt.Errorf("%w: polynomial has %d coefficients, parameters support %d", dsnerrors.ErrPParamsTooSmall, len(p), s.params.MaxPolyLen())
	}
	proof, err := gkzg.Open(p, point, s.params.srs.Pk)
	if err != nil {
		return types.OpeningProof{}, err
	}
	return types.OpeningProof(proof.H.Bytes()), nil
}

// Verify checks that value is the committed polynomial's evaluation at point.
// Malformed byte layouts are rejected before any pairing work, a parameter
// mismatch is reported distinctly from a forged proof, and no input can make
// verification panic.
func (s *Scheme) Verify(commitment types.Commitment, point fr.Element, value fr.Element, proof types.OpeningProof) error {
	if commitment.ParamsID != s.params.id {
		return fmt.Errorf("%w: commitment under %s, verifier holds %s", dsnerrors.ErrPParamsMismatch, common.Str(commitment.ParamsID), common.Str(s.params.id))
	}
	var digest gkzg.Digest
	if _, err := digest.SetBytes(commitment.Point[:]); err != nil {
		return fmt.Errorf("%w: %v", dsnerrors.ErrMMalformedCommitment, err)
	}
	var h bls12381.G1Affine
	if _, err := h.SetBytes(proof[:]); err != nil {
		return fmt.Errorf("%w: %v", dsnerrors.ErrMMalformedProof, err)
	}
	opening := gkzg.OpeningProof{
		H:            h,
		ClaimedValue: value,
	}
	if err := gkzg.Verify(&digest, &opening, point, s.params.srs.Vk); err != nil {
		return fmt.Errorf("%w: %v", dsnerrors.ErrVProofInvalid, err)
	}
	return nil
}
