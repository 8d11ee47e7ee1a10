package polynomial

import (
	"fmt"

	"github.com/colorfulnotion/dsn/dsnerrors"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr/fft"
)

// vanishingPolyCoeff returns the monomial coefficients of
// Z(X) = prod (X - r) over the given roots. Quadratic in len(roots); a
// subproduct tree would bring this to O(k log^2 k) if large erasure counts
// ever dominate recovery time.
func vanishingPolyCoeff(roots []fr.Element) Polynomial {
	coeffs := make([]fr.Element, len(roots)+1)
	coeffs[0].SetOne()
	for i := range roots {
		var t fr.Element
		for j := i + 1; j > 0; j-- {
			t.Mul(&coeffs[j], &roots[i])
			coeffs[j].Sub(&coeffs[j-1], &t)
		}
		t.Mul(&coeffs[0], &roots[i])
		coeffs[0].Neg(&t)
	}
	return coeffs
}

// Interpolate recovers the unique polynomial of degree < n passing through the
// given (shard index, value) pairs. At least n distinct indices are required;
// if more are supplied they all constrain the recovery. The transform-based
// algorithm multiplies the partial evaluation vector by the vanishing
// polynomial of the missing positions, then divides it back out on a coset
// where the vanishing polynomial has no zeros.
func (d *Domain) Interpolate(indices []int, values []fr.Element) (Polynomial, error) {
	if len(indices) != len(values) {
		return nil, fmt.Errorf("%w: %d indices but %d values", dsnerrors.ErrMMalformedInput, len(indices), len(values))
	}
	m := 2 * d.n
	known := make([]bool, m)
	evals := make([]fr.Element, m)
	for i, idx := range indices {
		if idx < 0 || idx >= m {
			return nil, fmt.Errorf("%w: shard index %d not in [0, %d)", dsnerrors.ErrMShardIndexOutOfRange, idx, m)
		}
		pos := d.position(idx)
		if known[pos] {
			return nil, fmt.Errorf("%w: shard index %d", dsnerrors.ErrMDuplicateShardIndex, idx)
		}
		known[pos] = true
		evals[pos] = values[i]
	}
	if len(indices) < d.n {
		return nil, fmt.Errorf("%w: have %d points, need %d", dsnerrors.ErrIInsufficientPoints, len(indices), d.n)
	}

	var missingRoots []fr.Element
	for pos := 0; pos < m; pos++ {
		if !known[pos] {
			missingRoots = append(missingRoots, d.roots[pos])
		}
	}

	// Nothing missing: one inverse transform yields the coefficients, of
	// which only the first n can be non-zero for consistent inputs.
	if len(missingRoots) == 0 {
		coeffs := make([]fr.Element, m)
		copy(coeffs, evals)
		d.extended.FFTInverse(coeffs, fft.DIF)
		fft.BitReverse(coeffs)
		return coeffs[:d.n], nil
	}

	// Z(X) vanishing on the missing positions, evaluated over the domain.
	zCoeffs := make([]fr.Element, m)
	copy(zCoeffs, vanishingPolyCoeff(missingRoots))
	zEvals := make([]fr.Element, m)
	copy(zEvals, zCoeffs)
	d.extended.FFT(zEvals, fft.DIF)
	fft.BitReverse(zEvals)

	// (E*Z)(x) is known at every position: zero where E is missing.
	ez := make([]fr.Element, m)
	for i := 0; i < m; i++ {
		ez[i].Mul(&evals[i], &zEvals[i])
	}
	d.extended.FFTInverse(ez, fft.DIF)
	fft.BitReverse(ez)

	// Divide D*Z by Z on a multiplicative coset, where Z has no roots.
	cosetDZ := ez
	d.extended.FFT(cosetDZ, fft.DIF, fft.OnCoset())
	fft.BitReverse(cosetDZ)

	cosetZ := zCoeffs
	d.extended.FFT(cosetZ, fft.DIF, fft.OnCoset())
	fft.BitReverse(cosetZ)
	cosetZ = fr.BatchInvert(cosetZ)

	quotient := make([]fr.Element, m)
	for i := 0; i < m; i++ {
		quotient[i].Mul(&cosetDZ[i], &cosetZ[i])
	}
	d.extended.FFTInverse(quotient, fft.DIF, fft.OnCoset())
	fft.BitReverse(quotient)

	return quotient[:d.n], nil
}
