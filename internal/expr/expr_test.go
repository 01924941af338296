package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimplify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "constant folding", input: "1 + 2*3", expected: "7"},
		{name: "like terms collected", input: "i + 2*i - i", expected: "2*i"},
		{name: "cancellation to zero", input: "n - n", expected: "0"},
		{name: "exact quotient", input: "(2*n + 4) / 2", expected: "n + 2"},
		{name: "inexact quotient kept", input: "(n + 1) / 2", expected: "(n + 1) / 2"},
		{name: "negated quotient", input: "(5 - j) / (-1)", expected: "j - 5"},
		{name: "nested sums flattened", input: "(i + 1) + (j + 2)", expected: "i + j + 3"},
		{name: "product distribution", input: "2*(i + 3)", expected: "2*i + 6"},
		{name: "min call untouched", input: "min(n, m + 0)", expected: "min(n, m)"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, Simplify(e).String())
		})
	}
}

func TestMonomials(t *testing.T) {
	t.Parallel()

	e, err := Parse("3*i - j + n*n + 5")
	require.NoError(t, err)

	monos, c, err := Monomials(e)
	require.NoError(t, err)
	assert.Equal(t, int64(5), c)
	require.Len(t, monos, 3)
	assert.Equal(t, []string{"i"}, monos[0].Vars)
	assert.Equal(t, int64(3), monos[0].Coeff)
	assert.Equal(t, []string{"j"}, monos[1].Vars)
	assert.Equal(t, int64(-1), monos[1].Coeff)
	assert.Equal(t, []string{"n", "n"}, monos[2].Vars)
	assert.Equal(t, int64(1), monos[2].Coeff)
}

func TestMonomialsRejectsCalls(t *testing.T) {
	t.Parallel()

	e, err := Parse("min(n, 5)")
	require.NoError(t, err)
	_, _, err = Monomials(e)
	assert.Error(t, err)
}

func TestIsConstant(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected bool
	}{
		{"42", true},
		{"2 + 3", true},
		{"n", false},
		{"n - n", true},
	}
	for _, tt := range tests {
		e, err := Parse(tt.input)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, IsConstant(e), tt.input)
	}
}

func TestCompare(t *testing.T) {
	t.Parallel()

	one, five := Int(1), Int(5)
	n := V("n")

	assert.True(t, Compare(one, Lt, five))
	assert.False(t, Compare(five, Lt, one))
	assert.True(t, Compare(five, Ge, five))

	// undecidable orderings report false
	assert.False(t, Compare(n, Lt, five))
	assert.False(t, Compare(five, Lt, n))

	// equality falls back to structural comparison
	assert.True(t, Compare(n, Eq, V("n")))
	assert.True(t, Compare(n, Ne, five))
	nPlus, err := Parse("n + 1 - 1")
	require.NoError(t, err)
	assert.True(t, Compare(n, Eq, nPlus))
}

func TestSubstitute(t *testing.T) {
	t.Parallel()

	e, err := Parse("a(i) + i*2")
	require.NoError(t, err)
	out := Substitute(e, map[string]Expr{"i": V("k")})
	assert.Equal(t, "a(k) + k*2", out.String())

	// array base names are renamed when mapped to a variable
	ref, err := Parse("x(j)")
	require.NoError(t, err)
	out = Substitute(ref, map[string]Expr{"x": V("y")})
	assert.Equal(t, "y(j)", out.String())
}

func TestParseRange(t *testing.T) {
	t.Parallel()

	start, stop, step, err := ParseRange("1:n")
	require.NoError(t, err)
	assert.Equal(t, "1", start.String())
	assert.Equal(t, "n", stop.String())
	assert.Nil(t, step)

	_, _, _, err = ParseRange("oops")
	assert.Error(t, err)
}

func TestParseComparisonAndConjunction(t *testing.T) {
	t.Parallel()

	e, err := Parse("i >= 3 .and. i <= 5")
	require.NoError(t, err)
	and, ok := e.(*And)
	require.True(t, ok)
	require.Len(t, and.Conds, 2)
	assert.Equal(t, "i >= 3 .and. i <= 5", e.String())
}

func TestVars(t *testing.T) {
	t.Parallel()

	e, err := Parse("a(i, j) + n")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "i", "j", "n"}, Vars(e))
}
