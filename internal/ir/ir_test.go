package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortress-labs/floop/internal/expr"
)

func assign(lhs, rhs string) *Assignment {
	l, err := expr.Parse(lhs)
	if err != nil {
		panic(err)
	}
	r, err := expr.Parse(rhs)
	if err != nil {
		panic(err)
	}
	return &Assignment{LHS: l, RHS: r}
}

func TestTransformSplicesReplacements(t *testing.T) {
	t.Parallel()

	a := assign("x", "1")
	b := assign("y", "2")
	loop := &Loop{Variable: "i", Bounds: LoopRange{Start: expr.Int(1), Stop: expr.V("n")}, Body: []Node{a, b}}

	comment := &Comment{Text: "replaced"}
	out := Transform([]Node{loop}, map[Node][]Node{a: {comment}, b: nil})

	require.Len(t, out, 1)
	rebuilt, ok := out[0].(*Loop)
	require.True(t, ok)
	require.Len(t, rebuilt.Body, 1)
	assert.Equal(t, comment, rebuilt.Body[0])

	// the original tree is untouched
	assert.Len(t, loop.Body, 2)
}

func TestSliceWindow(t *testing.T) {
	t.Parallel()

	a := assign("x", "1")
	p1 := &Pragma{Content: "loop-fission"}
	b := assign("y", "2")
	p2 := &Pragma{Content: "loop-fission"}
	c := assign("z", "3")
	body := []Node{a, p1, b, p2, c}

	head := SliceWindow(body, nil, p1)
	require.Len(t, head, 1)
	assert.Equal(t, a, head[0])

	mid := SliceWindow(body, p1, p2)
	require.Len(t, mid, 1)
	assert.Equal(t, b, mid[0])

	tail := SliceWindow(body, p2, nil)
	require.Len(t, tail, 1)
	assert.Equal(t, c, tail[0])
}

func TestSliceWindowReproducesConditionalShell(t *testing.T) {
	t.Parallel()

	a := assign("x", "1")
	p := &Pragma{Content: "loop-fission"}
	b := assign("y", "2")
	cond, err := expr.Parse("n > 0")
	require.NoError(t, err)
	c := &Conditional{Cond: cond, Body: []Node{a, p, b}}
	outside := assign("z", "3")
	body := []Node{c, outside}

	head := SliceWindow(body, nil, p)
	require.Len(t, head, 1)
	shell, ok := head[0].(*Conditional)
	require.True(t, ok)
	require.Len(t, shell.Body, 1)
	assert.Equal(t, a, shell.Body[0])

	tail := SliceWindow(body, p, nil)
	require.Len(t, tail, 2)
	shell, ok = tail[0].(*Conditional)
	require.True(t, ok)
	require.Len(t, shell.Body, 1)
	assert.Equal(t, b, shell.Body[0])
	assert.Equal(t, outside, tail[1])
}

func TestSliceWindowKeepsUntouchedSubtrees(t *testing.T) {
	t.Parallel()

	inner := &Loop{Variable: "j", Bounds: LoopRange{Start: expr.Int(1), Stop: expr.Int(5)}, Body: []Node{assign("x", "j")}}
	p := &Pragma{Content: "loop-fission"}
	body := []Node{inner, p, assign("y", "1")}

	head := SliceWindow(body, nil, p)
	require.Len(t, head, 1)
	// the untouched inner loop keeps its identity
	assert.Same(t, inner, head[0])
}

func TestScopePath(t *testing.T) {
	t.Parallel()

	target := &Pragma{Content: "section-hoist"}
	cond, err := expr.Parse("n > 0")
	require.NoError(t, err)
	inner := &Conditional{Cond: cond, Body: []Node{target}}
	outer := &Loop{Variable: "i", Bounds: LoopRange{Start: expr.Int(1), Stop: expr.V("n")}, Body: []Node{inner}}

	path := ScopePath([]Node{outer}, target)
	require.Len(t, path, 2)
	assert.Equal(t, Node(outer), path[0])
	assert.Equal(t, Node(inner), path[1])

	assert.Nil(t, ScopePath([]Node{outer}, &Comment{Text: "absent"}))
}

func TestMaskCutsSpans(t *testing.T) {
	t.Parallel()

	start := &Pragma{Content: "section-hoist"}
	inside := assign("x", "1")
	stop := &Pragma{Content: "end section-hoist"}
	after := assign("y", "2")
	target := &Pragma{Content: "target"}
	body := []Node{start, inside, stop, after, target}

	hoisted := &Comment{Text: "hoisted"}
	moved := []Node{inside}
	out := Mask(body, map[Node]Node{start: stop}, map[Node][]Node{stop: {hoisted}, target: moved})

	require.Len(t, out, 3)
	assert.Equal(t, hoisted, out[0])
	assert.Equal(t, after, out[1])
	assert.Equal(t, inside, out[2])
}

func TestSubstituteExprs(t *testing.T) {
	t.Parallel()

	loop := &Loop{
		Variable: "j",
		Bounds:   LoopRange{Start: expr.Int(1), Stop: expr.V("m")},
		Body:     []Node{assign("a(j)", "j + 1")},
	}
	out := SubstituteExprs([]Node{loop}, map[string]expr.Expr{"j": expr.V("i")})

	rebuilt, ok := out[0].(*Loop)
	require.True(t, ok)
	assert.Equal(t, "i", rebuilt.Variable)
	stmt, ok := rebuilt.Body[0].(*Assignment)
	require.True(t, ok)
	assert.Equal(t, "a(i)", stmt.LHS.String())
	assert.Equal(t, "i + 1", stmt.RHS.String())
}

func TestParams(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		content  string
		expected map[string]string
	}{
		{
			name:     "fusion with group and collapse",
			content:  "loop-fusion group(g1) collapse(2)",
			expected: map[string]string{"loop-fusion": "", "group": "g1", "collapse": "2"},
		},
		{
			name:     "interchange order list",
			content:  "loop-interchange(j, i)",
			expected: map[string]string{"loop-interchange": "j, i"},
		},
		{
			name:     "fission with promotion",
			content:  "loop-fission collapse(2) promote(tmp, work)",
			expected: map[string]string{"loop-fission": "", "collapse": "2", "promote": "tmp, work"},
		},
		{
			name:     "fusion range keeps colons",
			content:  "loop-fusion range(1:n, 0:10)",
			expected: map[string]string{"loop-fusion": "", "range": "1:n, 0:10"},
		},
		{
			name:     "bare target",
			content:  "target group(g)",
			expected: map[string]string{"target": "", "group": "g"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, Params(&Pragma{Content: tt.content}))
		})
	}
}

func TestIsDirective(t *testing.T) {
	t.Parallel()

	assert.True(t, IsDirective(&Pragma{Content: "section-hoist group(g)"}, "section-hoist"))
	assert.True(t, IsDirective(&Pragma{Content: "loop-interchange(j, i)"}, "loop-interchange"))
	assert.False(t, IsDirective(&Pragma{Content: "end section-hoist"}, "section-hoist"))
	assert.False(t, IsDirective(&Pragma{Content: "loop-fusion"}, "loop-fission"))
}
