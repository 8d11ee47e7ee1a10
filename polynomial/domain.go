package polynomial

import (
	"fmt"

	"github.com/colorfulnotion/dsn/dsnerrors"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr/fft"
)

// Domain fixes the canonical evaluation points for segments with n source
// shards. The extended domain has cardinality 2n; shard index k maps to the
// extended-domain position 2k for k < n and 2(k-n)+1 for the parity shards,
// so the first n shards are the source evaluations verbatim (the n-th roots
// of unity) and parity shards interleave on the odd positions.
type Domain struct {
	n        int
	source   *fft.Domain
	extended *fft.Domain
	roots    []fr.Element // extended-domain roots of unity, natural order
}

// NewDomain builds the evaluation domains for n source shards. n must be a
// power of two >= 2 so that radix-2 transforms apply.
func NewDomain(n int) (*Domain, error) {
	if n < 2 || n&(n-1) != 0 {
		return nil, fmt.Errorf("%w: source shard count %d is not a power of two >= 2", dsnerrors.ErrMMalformedInput, n)
	}
	d := &Domain{
		n:        n,
		source:   fft.NewDomain(uint64(n)),
		extended: fft.NewDomain(uint64(2 * n)),
	}
	d.roots = make([]fr.Element, 2*n)
	d.roots[0].SetOne()
	for i := 1; i < 2*n; i++ {
		d.roots[i].Mul(&d.roots[i-1], &d.extended.Generator)
	}
	return d, nil
}

// N returns the number of source shards.
func (d *Domain) N() int {
	return d.n
}

// ExtendedSize returns 2n, the total number of canonical evaluation points.
func (d *Domain) ExtendedSize() int {
	return 2 * d.n
}

// position maps a shard index to its extended-domain position.
func (d *Domain) position(index int) int {
	if index < d.n {
		return 2 * index
	}
	return 2*(index-d.n) + 1
}

// ShardPoint returns the canonical evaluation point for a shard index.
func (d *Domain) ShardPoint(index int) (fr.Element, error) {
	if index < 0 || index >= 2*d.n {
		return fr.Element{}, fmt.Errorf("%w: shard index %d not in [0, %d)", dsnerrors.ErrMShardIndexOutOfRange, index, 2*d.n)
	}
	return d.roots[d.position(index)], nil
}
