package transforms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortress-labs/floop/internal/types"
)

func TestFissionSplitsAtMarker(t *testing.T) {
	t.Parallel()

	r := parseRoutine(t, `subroutine work(n, a, b)
  integer :: i
  real :: tmp

  do i = 1, n
    tmp = a(i)
    !$floop loop-fission promote(tmp)
    b(i) = tmp
  end do
end subroutine work
`)

	changes, err := NewFission(nil).Apply(r)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, "loop-fission", changes[0].Pass)

	assert.Equal(t, `subroutine work(n, a, b)
  integer :: i
  real :: tmp(n)

  do i = 1, n
    tmp(i) = a(i)
  end do
  ! floop loop-fission promote(tmp)
  do i = 1, n
    b(i) = tmp(i)
  end do
end subroutine work
`, render(r))
}

func TestFissionPreservesStatements(t *testing.T) {
	t.Parallel()

	r := parseRoutine(t, `subroutine work(n, a)
  integer :: i

  do i = 1, n
    a(i) = 1
    a(i) = 2
    !$floop loop-fission
    a(i) = 3
    !$floop loop-fission
    a(i) = 4
  end do
end subroutine work
`)

	_, err := NewFission(nil).Apply(r)
	require.NoError(t, err)

	// every statement survives, distributed over three loop copies
	out := render(r)
	for _, line := range []string{"a(i) = 1", "a(i) = 2", "a(i) = 3", "a(i) = 4"} {
		assert.Contains(t, out, line)
	}
	assert.Equal(t, `subroutine work(n, a)
  integer :: i

  do i = 1, n
    a(i) = 1
    a(i) = 2
  end do
  ! floop loop-fission
  do i = 1, n
    a(i) = 3
  end do
  ! floop loop-fission
  do i = 1, n
    a(i) = 4
  end do
end subroutine work
`, out)
}

func TestFissionCollapseSplitsEnclosingLoops(t *testing.T) {
	t.Parallel()

	r := parseRoutine(t, `subroutine deep(n, m, a)
  integer :: i, j

  do i = 1, n
    do j = 1, m
      a(i, j) = 0
      !$floop loop-fission collapse(2)
      a(i, j) = a(i, j) + 1
    end do
  end do
end subroutine deep
`)

	_, err := NewFission(nil).Apply(r)
	require.NoError(t, err)

	assert.Equal(t, `subroutine deep(n, m, a)
  integer :: i, j

  do i = 1, n
    do j = 1, m
      a(i, j) = 0
    end do
  end do
  ! floop loop-fission collapse(2)
  do i = 1, n
    do j = 1, m
      a(i, j) = a(i, j) + 1
    end do
  end do
end subroutine deep
`, render(r))
}

func TestFissionNestedMarkers(t *testing.T) {
	t.Parallel()

	r := parseRoutine(t, `subroutine nested(n, m, a, b, c)
  integer :: i, j

  do i = 1, n
    a(i) = 0
    !$floop loop-fission
    do j = 1, m
      b(j) = 0
      !$floop loop-fission
      c(j) = 0
    end do
  end do
end subroutine nested
`)

	changes, err := NewFission(nil).Apply(r)
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Equal(t, `split loop "i" into 2 segments`, changes[0].Message)
	assert.Equal(t, `split loop "j" into 2 segments`, changes[1].Message)

	assert.Equal(t, `subroutine nested(n, m, a, b, c)
  integer :: i, j

  do i = 1, n
    a(i) = 0
  end do
  ! floop loop-fission
  do i = 1, n
    do j = 1, m
      b(j) = 0
    end do
    ! floop loop-fission
    do j = 1, m
      c(j) = 0
    end do
  end do
end subroutine nested
`, render(r))
}

func TestFissionMarkerAtLoopEnd(t *testing.T) {
	t.Parallel()

	r := parseRoutine(t, `subroutine work(n, a)
  integer :: i

  do i = 1, n
    a(i) = 1
    !$floop loop-fission
  end do
end subroutine work
`)

	_, err := NewFission(nil).Apply(r)
	require.NoError(t, err)

	// the empty trailing segment is dropped along with its comment
	assert.Equal(t, `subroutine work(n, a)
  integer :: i

  do i = 1, n
    a(i) = 1
  end do
end subroutine work
`, render(r))
}

func TestFissionPromotionConflictAborts(t *testing.T) {
	t.Parallel()

	src := `subroutine bad(n, m, a, b)
  integer :: i, j
  real :: tmp

  do i = 1, n
    tmp = a(i)
    !$floop loop-fission promote(tmp)
    b(i) = tmp
  end do
  do j = 1, m
    tmp = b(j)
    !$floop loop-fission promote(tmp)
    a(j) = tmp
  end do
end subroutine bad
`
	r := parseRoutine(t, src)
	changes, err := NewFission(nil).Apply(r)
	require.Error(t, err)
	var cfg *types.ConfigurationError
	require.ErrorAs(t, err, &cfg)
	assert.Empty(t, changes)
	assert.Equal(t, src, render(r))
}

func TestFissionPromotionKeepsDeclarationLine(t *testing.T) {
	t.Parallel()

	r := parseRoutine(t, `subroutine work(n, a, b)
  integer :: i
  real :: tmp, s

  do i = 1, n
    tmp = a(i)
    !$floop loop-fission promote(tmp)
    b(i) = tmp + s
  end do
end subroutine work
`)

	_, err := NewFission(nil).Apply(r)
	require.NoError(t, err)

	// the promoted entity stays on its declaration line
	assert.Contains(t, render(r), "real :: tmp(n), s")
	tmp := r.Lookup("tmp")
	require.NotNil(t, tmp)
	require.Len(t, tmp.Shape, 1)
	assert.Equal(t, "n", tmp.Shape[0].String())
}

func TestFissionWidensConflictingSizes(t *testing.T) {
	t.Parallel()

	r := parseRoutine(t, `subroutine widen(a, b)
  integer :: i
  real :: tmp

  do i = 1, 4
    tmp = a(i)
    !$floop loop-fission promote(tmp)
    b(i) = tmp
  end do
  do i = 1, 9
    tmp = b(i)
    !$floop loop-fission promote(tmp)
    a(i) = tmp
  end do
end subroutine widen
`)

	_, err := NewFission(nil).Apply(r)
	require.NoError(t, err)

	// the promoted size is the element-wise maximum of both loops
	assert.Contains(t, render(r), "real :: tmp(9)")
}
