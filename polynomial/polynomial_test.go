package polynomial

import (
	"errors"
	"math/big"
	"math/rand"
	"testing"

	"github.com/colorfulnotion/dsn/dsnerrors"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/stretchr/testify/require"
)

func randomPoly(rng *rand.Rand, n int) Polynomial {
	p := make(Polynomial, n)
	for i := range p {
		p[i].SetUint64(rng.Uint64())
	}
	return p
}

func TestNewDomainRejectsBadSizes(t *testing.T) {
	for _, n := range []int{-4, 0, 1, 3, 6, 100} {
		_, err := NewDomain(n)
		if !errors.Is(err, dsnerrors.ErrMMalformedInput) {
			t.Errorf("NewDomain(%d): expected malformed input, got %v", n, err)
		}
	}
	for _, n := range []int{2, 4, 128} {
		if _, err := NewDomain(n); err != nil {
			t.Errorf("NewDomain(%d): %v", n, err)
		}
	}
}

func TestShardPointLayout(t *testing.T) {
	n := 8
	d, err := NewDomain(n)
	require.NoError(t, err)

	var one fr.Element
	one.SetOne()

	for k := 0; k < 2*n; k++ {
		point, err := d.ShardPoint(k)
		require.NoError(t, err)

		// Every point is a 2n-th root of unity.
		var p2n fr.Element
		p2n.Exp(point, big.NewInt(int64(2*n)))
		require.True(t, p2n.Equal(&one), "shard %d point is not a 2n-th root of unity", k)

		// Source points are n-th roots of unity, parity points are not.
		var pn fr.Element
		pn.Exp(point, big.NewInt(int64(n)))
		if k < n {
			require.True(t, pn.Equal(&one), "source shard %d point is not an n-th root of unity", k)
		} else {
			require.False(t, pn.Equal(&one), "parity shard %d point collides with source domain", k)
		}
	}

	// All 2n points are distinct.
	seen := make(map[string]int)
	for k := 0; k < 2*n; k++ {
		point, _ := d.ShardPoint(k)
		s := point.String()
		if prev, ok := seen[s]; ok {
			t.Fatalf("shard %d and %d share an evaluation point", prev, k)
		}
		seen[s] = k
	}

	for _, bad := range []int{-1, 2 * n, 1000} {
		_, err := d.ShardPoint(bad)
		require.ErrorIs(t, err, dsnerrors.ErrMShardIndexOutOfRange)
	}
}

func TestEvaluateBatchMatchesHorner(t *testing.T) {
	n := 8
	d, err := NewDomain(n)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(42))
	p := randomPoly(rng, n)

	out, err := d.EvaluateBatch(p)
	require.NoError(t, err)
	require.Len(t, out, 2*n)

	for k := 0; k < 2*n; k++ {
		point, err := d.ShardPoint(k)
		require.NoError(t, err)
		want := Evaluate(p, point)
		require.True(t, out[k].Equal(&want), "shard %d evaluation mismatch", k)
	}

	_, err = d.EvaluateBatch(make(Polynomial, n+1))
	require.ErrorIs(t, err, dsnerrors.ErrMMalformedInput)
}

func TestFromSourceEvalsRoundtrip(t *testing.T) {
	n := 16
	d, err := NewDomain(n)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(7))
	values := make([]fr.Element, n)
	for i := range values {
		values[i].SetUint64(rng.Uint64())
	}

	p, err := d.FromSourceEvals(values)
	require.NoError(t, err)
	require.Len(t, p, n)

	back, err := d.EvaluateSource(p)
	require.NoError(t, err)
	for i := range values {
		require.True(t, back[i].Equal(&values[i]), "source eval %d mismatch", i)
	}

	// The extended evaluation agrees on the source half.
	ext, err := d.EvaluateBatch(p)
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		require.True(t, ext[i].Equal(&values[i]), "extended eval %d diverges from source", i)
	}

	_, err = d.FromSourceEvals(values[:n-1])
	require.ErrorIs(t, err, dsnerrors.ErrMMalformedInput)
}

func TestInterpolateRecovers(t *testing.T) {
	n := 8
	d, err := NewDomain(n)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(99))
	p := randomPoly(rng, n)
	evals, err := d.EvaluateBatch(p)
	require.NoError(t, err)

	subsets := [][]int{
		{0, 1, 2, 3, 4, 5, 6, 7},         // source only
		{8, 9, 10, 11, 12, 13, 14, 15},   // parity only
		{1, 3, 5, 7, 9, 11, 13, 15},      // mixed
		{0, 2, 4, 6, 8, 10, 12, 14},      // mixed
		{0, 1, 2, 3, 4, 5, 6, 7, 8, 9},   // more than n
	}
	for _, indices := range subsets {
		values := make([]fr.Element, len(indices))
		for i, idx := range indices {
			values[i] = evals[idx]
		}
		got, err := d.Interpolate(indices, values)
		require.NoError(t, err, "subset %v", indices)
		require.Len(t, got, n)
		for i := range p {
			require.True(t, got[i].Equal(&p[i]), "subset %v: coefficient %d mismatch", indices, i)
		}
	}

	// Full 2n points take the fast path.
	indices := make([]int, 2*n)
	for i := range indices {
		indices[i] = i
	}
	got, err := d.Interpolate(indices, evals)
	require.NoError(t, err)
	for i := range p {
		require.True(t, got[i].Equal(&p[i]), "full set: coefficient %d mismatch", i)
	}
}

func TestInterpolateRandomSubsets(t *testing.T) {
	n := 16
	d, err := NewDomain(n)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(123))
	p := randomPoly(rng, n)
	evals, err := d.EvaluateBatch(p)
	require.NoError(t, err)

	for trial := 0; trial < 10; trial++ {
		perm := rng.Perm(2 * n)
		count := n + rng.Intn(n)
		indices := perm[:count]
		values := make([]fr.Element, count)
		for i, idx := range indices {
			values[i] = evals[idx]
		}
		got, err := d.Interpolate(indices, values)
		require.NoError(t, err, "trial %d", trial)
		for i := range p {
			require.True(t, got[i].Equal(&p[i]), "trial %d: coefficient %d mismatch", trial, i)
		}
	}
}

func TestInterpolateErrors(t *testing.T) {
	n := 4
	d, err := NewDomain(n)
	require.NoError(t, err)

	values := make([]fr.Element, n)

	_, err = d.Interpolate([]int{0, 1, 2}, values)
	require.ErrorIs(t, err, dsnerrors.ErrMMalformedInput)

	_, err = d.Interpolate([]int{0, 1, 2}, values[:3])
	require.ErrorIs(t, err, dsnerrors.ErrIInsufficientPoints)

	_, err = d.Interpolate([]int{0, 1, 2, 8}, values)
	require.ErrorIs(t, err, dsnerrors.ErrMShardIndexOutOfRange)

	_, err = d.Interpolate([]int{0, 1, 2, 2}, values)
	require.ErrorIs(t, err, dsnerrors.ErrMDuplicateShardIndex)
}
