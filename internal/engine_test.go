package internal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tt "github.com/fortress-labs/floop/internal/types"
)

func TestRunSourcePipeline(t *testing.T) {
	t.Parallel()

	src := `subroutine work(n, m, a, b)
  integer :: i, j

  !$floop loop-interchange(j, i)
  do i = 1, n
    do j = 1, m
      a(i, j) = 0
    end do
  end do

  do i = 1, n
    b(i) = 1
    !$floop loop-fission
    b(i) = b(i) + 1
  end do
end subroutine work
`
	engine := NewEngine(nil, nil)
	result, err := engine.RunSource([]byte(src))
	require.NoError(t, err)

	out := string(result.Output)
	assert.Contains(t, out, "! floop loop-interchange (i, j <--> j, i)")
	assert.Contains(t, out, "do j = 1, m")
	assert.Contains(t, out, "! floop loop-fission")

	require.Len(t, result.Changes, 2)
	assert.Equal(t, "loop-interchange", result.Changes[0].Pass)
	assert.Equal(t, "loop-fission", result.Changes[1].Pass)
	assert.Equal(t, "work", result.Changes[0].Routine)
}

func TestRunSourceDisabledPass(t *testing.T) {
	t.Parallel()

	src := `subroutine work(n, b)
  integer :: i

  do i = 1, n
    b(i) = 1
    !$floop loop-fission
    b(i) = 2
  end do
end subroutine work
`
	cfg := map[string]tt.ConfigPass{
		"loop-fission": {Disabled: true},
	}
	engine := NewEngine(cfg, nil)
	result, err := engine.RunSource([]byte(src))
	require.NoError(t, err)

	assert.Empty(t, result.Changes)
	assert.Contains(t, string(result.Output), "!$floop loop-fission")
}

func TestRunSourceProjectBoundsOption(t *testing.T) {
	t.Parallel()

	src := `subroutine tri(n, a)
  integer :: i, j

  !$floop loop-interchange(j, i)
  do i = 1, n
    do j = i, n
      a(i, j) = 1
    end do
  end do
end subroutine tri
`
	cfg := map[string]tt.ConfigPass{
		"loop-interchange": {Options: map[string]string{"project-bounds": "true"}},
	}
	engine := NewEngine(cfg, nil)
	result, err := engine.RunSource([]byte(src))
	require.NoError(t, err)

	out := string(result.Output)
	assert.Contains(t, out, "do j = 1, n")
	assert.Contains(t, out, "do i = 1, min(n, j)")
}

func TestRunSetsFilename(t *testing.T) {
	t.Parallel()

	src := `subroutine work(n, b)
  integer :: i

  do i = 1, n
    b(i) = 1
    !$floop loop-fission
    b(i) = 2
  end do
end subroutine work
`
	path := filepath.Join(t.TempDir(), "work.f90")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	engine := NewEngine(nil, nil)
	result, err := engine.Run(path)
	require.NoError(t, err)
	require.Len(t, result.Changes, 1)
	assert.Equal(t, path, result.Changes[0].Filename)
}

func TestRunSourceParseError(t *testing.T) {
	t.Parallel()

	engine := NewEngine(nil, nil)
	_, err := engine.RunSource([]byte("subroutine broken\n  do i = 1, n\nend subroutine\n"))
	assert.Error(t, err)
}

func TestAbortedPassLeavesOthersApplied(t *testing.T) {
	t.Parallel()

	// the fusion group misconfigures collapse, aborting fusion; the
	// fission marker in the same routine is still consumed
	src := `subroutine mixedup(n, a, b)
  integer :: i, j

  !$floop loop-fusion collapse(2)
  do i = 1, n
    do j = 1, n
      a(i, j) = 0
    end do
  end do
  !$floop loop-fusion
  do i = 1, n
    a(i, 1) = 1
  end do

  do i = 1, n
    b(i) = 1
    !$floop loop-fission
    b(i) = 2
  end do
end subroutine mixedup
`
	engine := NewEngine(nil, nil)
	result, err := engine.RunSource([]byte(src))
	require.NoError(t, err)

	out := string(result.Output)
	assert.Contains(t, out, "!$floop loop-fusion collapse(2)")
	assert.Contains(t, out, "! floop loop-fission")
	require.Len(t, result.Changes, 1)
	assert.Equal(t, "loop-fission", result.Changes[0].Pass)
}
