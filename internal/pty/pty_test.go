package pty

import (
	"os"
	"strings"
	"testing"

	ptylib "github.com/creack/pty"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/term"

	"github.com/PiranhaCodes/ptyrun/internal/errdefs"
)

func TestOpenAllocatesUsableSlave(t *testing.T) {
	m, err := Open(os.Stdout, zerolog.New(zerolog.NewTestWriter(t)))
	if err != nil {
		t.Skipf("no pseudo-terminal available: %v", err)
	}
	defer m.Close()

	assert.Greater(t, m.Fd(), 2)
	assert.True(t, strings.HasPrefix(m.SlavePath(), "/dev/pts/"), "slave path %q", m.SlavePath())

	slave, err := m.OpenSlave()
	require.NoError(t, err)
	defer slave.Close()
	assert.True(t, term.IsTerminal(int(slave.Fd())))
}

func TestOpenAllocatesDistinctPairs(t *testing.T) {
	a, err := Open(os.Stdout, zerolog.Nop())
	if err != nil {
		t.Skipf("no pseudo-terminal available: %v", err)
	}
	defer a.Close()

	b, err := Open(os.Stdout, zerolog.Nop())
	require.NoError(t, err)
	defer b.Close()

	assert.NotEqual(t, a.SlavePath(), b.SlavePath())
}

// TestSyncIdempotent checks that re-propagating an unchanged geometry does
// not move the pty's reported size. A second pty pair stands in for the
// invoking terminal so the test controls the source geometry.
func TestSyncIdempotent(t *testing.T) {
	srcMaster, srcTTY, err := ptylib.Open()
	if err != nil {
		t.Skipf("no pseudo-terminal available: %v", err)
	}
	defer srcMaster.Close()
	defer srcTTY.Close()
	require.NoError(t, ptylib.Setsize(srcTTY, &ptylib.Winsize{Rows: 24, Cols: 80}))

	m, err := Open(srcTTY, zerolog.Nop())
	require.NoError(t, err)
	defer m.Close()

	// Open already synced once from srcTTY.
	first, err := ptylib.GetsizeFull(m.File())
	require.NoError(t, err)
	assert.EqualValues(t, 24, first.Rows)
	assert.EqualValues(t, 80, first.Cols)

	require.NoError(t, Sync(srcTTY, m.File()))
	require.NoError(t, Sync(srcTTY, m.File()))

	again, err := ptylib.GetsizeFull(m.File())
	require.NoError(t, err)
	assert.Equal(t, first, again)
}

func TestSyncFollowsSourceChanges(t *testing.T) {
	srcMaster, srcTTY, err := ptylib.Open()
	if err != nil {
		t.Skipf("no pseudo-terminal available: %v", err)
	}
	defer srcMaster.Close()
	defer srcTTY.Close()

	m, err := Open(srcTTY, zerolog.Nop())
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, ptylib.Setsize(srcTTY, &ptylib.Winsize{Rows: 33, Cols: 120}))
	require.NoError(t, Sync(srcTTY, m.File()))

	size, err := ptylib.GetsizeFull(m.File())
	require.NoError(t, err)
	assert.EqualValues(t, 33, size.Rows)
	assert.EqualValues(t, 120, size.Cols)
}

// TestSyncBestEffortOnNonTerminal verifies the geometry copy never turns a
// sizeless source into a fatal condition.
func TestSyncBestEffortOnNonTerminal(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	m, err := Open(w, zerolog.Nop())
	if err != nil {
		t.Skipf("no pseudo-terminal available: %v", err)
	}
	defer m.Close()

	err = Sync(r, m.File())
	require.Error(t, err)
	assert.True(t, errdefs.IsBestEffort(err))
}
