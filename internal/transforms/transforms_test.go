package transforms

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fortress-labs/floop/internal/frontend"
	"github.com/fortress-labs/floop/internal/ir"
)

func parseRoutine(t *testing.T, src string) *ir.Routine {
	t.Helper()
	r, err := frontend.ParseRoutine([]byte(src))
	require.NoError(t, err)
	return r
}

func render(r *ir.Routine) string {
	return frontend.RenderRoutine(r)
}

func indexOf(t *testing.T, s, sub string) int {
	t.Helper()
	i := strings.Index(s, sub)
	require.GreaterOrEqual(t, i, 0)
	return i
}
