package polynomial

import (
	"fmt"

	"github.com/colorfulnotion/dsn/dsnerrors"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr/fft"
)

// Polynomial holds coefficients in monomial basis, lowest degree first. It is
// an ephemeral structure derived from segment data during encode/decode and is
// never persisted or put on the wire.
type Polynomial []fr.Element

// Evaluate computes p(x) by Horner's rule. All arithmetic is exact modular
// field arithmetic.
func Evaluate(p Polynomial, x fr.Element) fr.Element {
	var res fr.Element
	for i := len(p) - 1; i >= 0; i-- {
		res.Mul(&res, &x)
		res.Add(&res, &p[i])
	}
	return res
}

// FromSourceEvals recovers the unique polynomial of degree < n whose
// evaluations at the n source points equal the given values. values is
// consumed in shard-index order and not modified.
func (d *Domain) FromSourceEvals(values []fr.Element) (Polynomial, error) {
	if len(values) != d.n {
		return nil, fmt.Errorf("%w: got %d source evaluations, expected %d", dsnerrors.ErrMMalformedInput, len(values), d.n)
	}
	coeffs := make([]fr.Element, d.n)
	copy(coeffs, values)
	d.source.FFTInverse(coeffs, fft.DIF)
	fft.BitReverse(coeffs)
	return coeffs, nil
}

// EvaluateBatch evaluates p at all 2n canonical points with a single size-2n
// transform, returning the values in shard-index order: out[k] is the
// evaluation at ShardPoint(k). Cost is O(n log n) field operations.
func (d *Domain) EvaluateBatch(p Polynomial) ([]fr.Element, error) {
	if len(p) > d.n {
		return nil, fmt.Errorf("%w: polynomial degree %d exceeds source shard count %d", dsnerrors.ErrMMalformedInput, len(p)-1, d.n)
	}
	ext := make([]fr.Element, 2*d.n)
	copy(ext, p)
	d.extended.FFT(ext, fft.DIF)
	fft.BitReverse(ext)

	out := make([]fr.Element, 2*d.n)
	for k := 0; k < 2*d.n; k++ {
		out[k] = ext[d.position(k)]
	}
	return out, nil
}

// EvaluateSource evaluates p at the n source points only, with a size-n
// transform. out[k] is the evaluation at ShardPoint(k) for k < n.
func (d *Domain) EvaluateSource(p Polynomial) ([]fr.Element, error) {
	if len(p) > d.n {
		return nil, fmt.Errorf("%w: polynomial degree %d exceeds source shard count %d", dsnerrors.ErrMMalformedInput, len(p)-1, d.n)
	}
	out := make([]fr.Element, d.n)
	copy(out, p)
	d.source.FFT(out, fft.DIF)
	fft.BitReverse(out)
	return out, nil
}
