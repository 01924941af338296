package poly

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortress-labs/floop/internal/expr"
	"github.com/fortress-labs/floop/internal/ir"
)

func parseExpr(t *testing.T, s string) expr.Expr {
	t.Helper()
	e, err := expr.Parse(s)
	require.NoError(t, err)
	return e
}

func loopRange(t *testing.T, start, stop string) ir.LoopRange {
	t.Helper()
	return ir.LoopRange{Start: parseExpr(t, start), Stop: parseExpr(t, stop)}
}

func satisfies(p *Polyhedron, point []int64) bool {
	for i := range p.A {
		var sum int64
		for j := range p.A[i] {
			sum += p.A[i][j] * point[j]
		}
		if sum > p.B[i] {
			return false
		}
	}
	return true
}

func TestFromLoopRanges(t *testing.T) {
	t.Parallel()

	p, err := FromLoopRanges([]string{"i", "j"}, []ir.LoopRange{
		loopRange(t, "1", "n"),
		loopRange(t, "i", "m"),
	})
	require.NoError(t, err)

	// loop variables first, free symbols sorted after
	assert.Equal(t, []string{"i", "j", "m", "n"}, p.Variables)
	require.Len(t, p.A, 4)

	assert.Equal(t, [][]int64{
		{-1, 0, 0, 0}, // 1 <= i
		{1, 0, 0, -1}, // i <= n
		{1, -1, 0, 0}, // i <= j
		{0, 1, -1, 0}, // j <= m
	}, p.A)
	assert.Equal(t, []int64{-1, 0, 0, 0}, p.B)
}

func TestFromLoopRangesRejectsNonAffine(t *testing.T) {
	t.Parallel()

	_, err := FromLoopRanges([]string{"i"}, []ir.LoopRange{loopRange(t, "1", "n*n")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-affine")
}

func TestFromLoopRangesRejectsNonUnitStep(t *testing.T) {
	t.Parallel()

	r := loopRange(t, "1", "n")
	r.Step = expr.Int(2)
	_, err := FromLoopRanges([]string{"i"}, []ir.LoopRange{r})
	assert.Error(t, err)

	r.Step = expr.Int(1)
	_, err = FromLoopRanges([]string{"i"}, []ir.LoopRange{r})
	assert.NoError(t, err)
}

func TestBounds(t *testing.T) {
	t.Parallel()

	p, err := FromLoopRanges([]string{"i", "j"}, []ir.LoopRange{
		loopRange(t, "1", "n"),
		loopRange(t, "i", "n"),
	})
	require.NoError(t, err)

	lows := p.LowerBounds(1, nil)
	require.Len(t, lows, 1)
	assert.Equal(t, "i", lows[0].String())

	// with column i ignored, the bound through i disappears
	lows = p.LowerBounds(1, []int{0})
	assert.Empty(t, lows)

	ups := p.UpperBounds(0, nil)
	require.Len(t, ups, 2)
	assert.Equal(t, "n", ups[0].String())
	assert.Equal(t, "j", ups[1].String())
}

func TestBoundsIsolateCoefficients(t *testing.T) {
	t.Parallel()

	// 2*i <= 10  =>  i <= 5
	p, err := New([][]int64{{2}}, []int64{10}, []string{"i"})
	require.NoError(t, err)
	ups := p.UpperBounds(0, nil)
	require.Len(t, ups, 1)
	assert.Equal(t, "5", ups[0].String())
}

func TestEliminateSoundAndComplete(t *testing.T) {
	t.Parallel()

	// 1 <= i <= 5, i <= j <= 8 over (i, j)
	p, err := New([][]int64{
		{-1, 0},
		{1, 0},
		{1, -1},
		{0, 1},
	}, []int64{-1, 5, 0, 8}, []string{"i", "j"})
	require.NoError(t, err)

	proj := Eliminate(p, 1)
	assert.Equal(t, []string{"i"}, proj.Variables)

	for i := int64(-3); i <= 10; i++ {
		// soundness: every point of P projects into eliminate(P)
		inOriginal := false
		for j := int64(-3); j <= 12; j++ {
			if satisfies(p, []int64{i, j}) {
				inOriginal = true
				require.True(t, satisfies(proj, []int64{i}), "i=%d j=%d", i, j)
			}
		}
		// completeness: every projected point is realizable
		if satisfies(proj, []int64{i}) {
			assert.True(t, inOriginal, "i=%d has no witness for j", i)
		}
	}
}

func TestEliminateKeepsRedundantRows(t *testing.T) {
	t.Parallel()

	// two lower and two upper bounds on j produce all four
	// combinations; no pruning is applied
	p, err := New([][]int64{
		{0, -1},
		{-1, -1},
		{0, 1},
		{1, 1},
	}, []int64{-1, -2, 9, 20}, []string{"i", "j"})
	require.NoError(t, err)

	proj := Eliminate(p, 1)
	assert.Len(t, proj.A, 4)
}

func TestReorderTriangular(t *testing.T) {
	t.Parallel()

	// 1 <= i <= n, i <= j <= n reordered to (j, i)
	p, err := FromLoopRanges([]string{"i", "j"}, []ir.LoopRange{
		loopRange(t, "1", "n"),
		loopRange(t, "i", "n"),
	})
	require.NoError(t, err)

	re, err := Reorder(p, []int{1, 0})
	require.NoError(t, err)
	assert.Equal(t, []string{"j", "i", "n"}, re.Variables)

	// outermost j, independent of i
	lows := re.LowerBounds(0, []int{1})
	require.Len(t, lows, 1)
	assert.Equal(t, "1", lows[0].String())
	ups := re.UpperBounds(0, []int{1})
	require.Len(t, ups, 1)
	assert.Equal(t, "n", ups[0].String())

	// inner i depends on j
	lows = re.LowerBounds(1, nil)
	require.Len(t, lows, 1)
	assert.Equal(t, "1", lows[0].String())
	ups = re.UpperBounds(1, nil)
	require.Len(t, ups, 2)
	assert.Equal(t, "n", ups[0].String())
	assert.Equal(t, "j", ups[1].String())
}

func TestIndex(t *testing.T) {
	t.Parallel()

	p, err := New([][]int64{{1, 0}}, []int64{3}, []string{"i", "j"})
	require.NoError(t, err)

	j, err := p.Index("J")
	require.NoError(t, err)
	assert.Equal(t, 1, j)

	_, err = p.Index("k")
	assert.Error(t, err)
}
