package terminal

import (
	"os"
	"testing"

	ptylib "github.com/creack/pty"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/PiranhaCodes/ptyrun/internal/errdefs"
)

// TestRawClearsProcessingFlags verifies the exact attribute mask: the raw
// derivation disables break handling, CR/NL translation, flow control,
// output post-processing, echo, canonical editing and signal generation,
// and switches to single-byte reads. Everything outside that mask stays.
func TestRawClearsProcessingFlags(t *testing.T) {
	var in unix.Termios
	in.Iflag = ^uint32(0)
	in.Oflag = ^uint32(0)
	in.Lflag = ^uint32(0)
	in.Cflag = ^uint32(0)
	in.Cc[unix.VMIN] = 0
	in.Cc[unix.VTIME] = 5

	out := Raw(in)

	clearedIflag := uint32(unix.BRKINT | unix.ICRNL | unix.IGNBRK | unix.IGNCR |
		unix.INLCR | unix.IXON | unix.IXOFF | unix.PARMRK)
	assert.Zero(t, out.Iflag&clearedIflag)
	assert.Zero(t, out.Oflag&uint32(unix.OPOST))
	assert.Zero(t, out.Lflag&uint32(unix.ECHO|unix.ICANON|unix.IEXTEN|unix.ISIG))
	assert.EqualValues(t, 1, out.Cc[unix.VMIN])
	assert.EqualValues(t, 0, out.Cc[unix.VTIME])

	// Attributes outside the mask are untouched.
	assert.NotZero(t, out.Iflag&uint32(unix.IUTF8))
	assert.NotZero(t, out.Oflag&uint32(unix.ONLCR))
	assert.NotZero(t, out.Lflag&uint32(unix.ECHOE))
	assert.Equal(t, in.Cflag, out.Cflag)
}

func TestCaptureReturnsNilForNonTerminal(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	assert.Nil(t, Capture(int(r.Fd()), zerolog.Nop()))
}

// TestRawModeRoundTrip enters raw mode on a real pseudo-terminal and checks
// that Restore brings every attribute word back to its captured value.
func TestRawModeRoundTrip(t *testing.T) {
	master, tty, err := ptylib.Open()
	if err != nil {
		t.Skipf("no pseudo-terminal available: %v", err)
	}
	defer master.Close()
	defer tty.Close()

	fd := int(tty.Fd())
	before, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	require.NoError(t, err)

	snap := Capture(fd, zerolog.New(zerolog.NewTestWriter(t)))
	require.NotNil(t, snap)

	require.NoError(t, snap.EnterRaw())
	during, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	require.NoError(t, err)
	assert.Zero(t, during.Lflag&uint32(unix.ECHO|unix.ICANON|unix.IEXTEN|unix.ISIG))
	assert.Zero(t, during.Oflag&uint32(unix.OPOST))

	require.NoError(t, snap.Restore())
	after, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	require.NoError(t, err)
	assert.Equal(t, before.Iflag, after.Iflag)
	assert.Equal(t, before.Oflag, after.Oflag)
	assert.Equal(t, before.Cflag, after.Cflag)
	assert.Equal(t, before.Lflag, after.Lflag)
	assert.Equal(t, before.Cc, after.Cc)
}

// TestRestoreIsBestEffort verifies that a failed restore comes back as a
// best-effort error, the category callers log and survive.
func TestRestoreIsBestEffort(t *testing.T) {
	master, tty, err := ptylib.Open()
	if err != nil {
		t.Skipf("no pseudo-terminal available: %v", err)
	}
	defer master.Close()

	snap := Capture(int(tty.Fd()), zerolog.Nop())
	require.NotNil(t, snap)
	require.NoError(t, tty.Close())

	err = snap.Restore()
	require.Error(t, err)
	assert.True(t, errdefs.IsBestEffort(err))
}
