// Package winch turns SIGWINCH deliveries into a pollable wake descriptor
// plus a pending flag, so window-resize events become visible only at the
// forwarding loop's wait point.
//
// The delivery goroutine is the sole asynchronous context in the program.
// It mutates nothing but the flag and the wake pipe; the flag is read and
// cleared exclusively by Consume, on the loop's own goroutine.
package winch

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

// Bridge owns the SIGWINCH subscription, the pending flag and the wake
// pipe.
type Bridge struct {
	pending atomic.Bool
	readFD  int
	writeFD int
	ch      chan os.Signal
	done    chan struct{}
	log     zerolog.Logger

	closeOnce sync.Once
}

// Install subscribes to SIGWINCH and starts the delivery pump.
func Install(logger zerolog.Logger) (*Bridge, error) {
	var p [2]int
	if err := unix.Pipe2(p[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		return nil, fmt.Errorf("cannot install window-size watcher: %w", err)
	}
	for i := range p {
		fd, err := raiseAbove(p[i], 3)
		if err != nil {
			unix.Close(p[0])
			unix.Close(p[1])
			return nil, fmt.Errorf("cannot install window-size watcher: %w", err)
		}
		p[i] = fd
	}

	b := &Bridge{
		readFD:  p[0],
		writeFD: p[1],
		ch:      make(chan os.Signal, 1),
		done:    make(chan struct{}),
		log:     logger,
	}
	signal.Notify(b.ch, unix.SIGWINCH)
	go b.pump()

	b.log.Debug().Int("wake_fd", b.readFD).Msg("window-size watcher installed")
	return b, nil
}

// raiseAbove returns fd unchanged when it is at or above floor; otherwise
// it duplicates fd to the lowest free slot at or above floor, close-on-exec
// preserved, and closes the original. The wake pipe must stay out of the
// standard-stream slots: with a standard stream closed at invocation the
// pipe would otherwise absorb the freed slot, and the pseudo-terminal
// allocator's descriptor check could no longer see it.
func raiseAbove(fd, floor int) (int, error) {
	if fd >= floor {
		return fd, nil
	}
	raised, err := unix.FcntlInt(uintptr(fd), unix.F_DUPFD_CLOEXEC, floor)
	if err != nil {
		return fd, err
	}
	unix.Close(fd)
	return raised, nil
}

// pump runs on the delivery goroutine. It only sets the flag and nudges the
// wake pipe; a full pipe already holds a pending wake, so the dropped write
// loses nothing.
func (b *Bridge) pump() {
	defer close(b.done)
	one := [1]byte{0}
	for range b.ch {
		b.pending.Store(true)
		unix.Write(b.writeFD, one[:])
	}
}

// WakeFD returns the descriptor the forwarding loop polls for readability.
func (b *Bridge) WakeFD() int { return b.readFD }

// Consume drains the wake pipe and clears the pending flag, reporting
// whether a resize was pending. Call it only from the loop that polls
// WakeFD.
func (b *Bridge) Consume() bool {
	var buf [16]byte
	for {
		n, err := unix.Read(b.readFD, buf[:])
		if n <= 0 || err != nil {
			break
		}
	}
	return b.pending.Swap(false)
}

// Close stops signal delivery, waits for the pump to finish and releases
// the pipe. Safe to call more than once.
func (b *Bridge) Close() {
	b.closeOnce.Do(func() {
		signal.Stop(b.ch)
		close(b.ch)
		<-b.done
		unix.Close(b.readFD)
		unix.Close(b.writeFD)
		b.log.Debug().Msg("window-size watcher closed")
	})
}
