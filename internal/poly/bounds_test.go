package poly

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortress-labs/floop/internal/expr"
)

func TestMaxOfMinOf(t *testing.T) {
	t.Parallel()

	one := expr.Int(1)
	n := expr.V("n")

	assert.Equal(t, "1", MaxOf([]expr.Expr{one}).String())
	assert.Equal(t, "max(1, n)", MaxOf([]expr.Expr{one, n}).String())
	assert.Equal(t, "n", MinOf([]expr.Expr{n}).String())
	assert.Equal(t, "min(1, n)", MinOf([]expr.Expr{one, n}).String())
}

func TestMergeLower(t *testing.T) {
	t.Parallel()

	one, three := expr.Int(1), expr.Int(3)
	n := expr.V("n")

	// a provably smaller constant replaces the accumulated bound
	acc := MergeLower(nil, three)
	acc = MergeLower(acc, one)
	require.Len(t, acc, 1)
	assert.Equal(t, "1", acc[0].String())

	// a provably larger constant teaches nothing
	acc = MergeLower(acc, three)
	require.Len(t, acc, 1)
	assert.Equal(t, "1", acc[0].String())

	// a symbolic bound is kept alongside, never silently dropped
	acc = MergeLower(acc, n)
	require.Len(t, acc, 2)
	assert.Equal(t, "1", acc[0].String())
	assert.Equal(t, "n", acc[1].String())

	// a constant candidate against a purely symbolic set is dropped:
	// it cannot be shown to widen the range
	acc = MergeLower([]expr.Expr{n}, one)
	require.Len(t, acc, 1)
	assert.Equal(t, "n", acc[0].String())
}

func TestMergeUpper(t *testing.T) {
	t.Parallel()

	five, eight := expr.Int(5), expr.Int(8)
	m := expr.V("m")

	acc := MergeUpper(nil, five)
	acc = MergeUpper(acc, eight)
	require.Len(t, acc, 1)
	assert.Equal(t, "8", acc[0].String())

	acc = MergeUpper(acc, five)
	require.Len(t, acc, 1)
	assert.Equal(t, "8", acc[0].String())

	acc = MergeUpper(acc, m)
	require.Len(t, acc, 2)
	assert.Equal(t, "8", acc[0].String())
	assert.Equal(t, "m", acc[1].String())
}
