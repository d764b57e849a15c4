// Package relay forwards bytes between the local terminal and a
// pseudo-terminal master through a pair of directional channels multiplexed
// over one poll loop.
//
// Each Channel is a three-state machine (Reading, Writing, Inactive) over a
// single fixed-capacity buffer: a read fills the buffer, one or more writes
// drain it, and EOF or a read error retires the channel for good. The
// Engine polls exactly one descriptor per live channel, plus an optional
// wake descriptor through which window-resize events reach the loop without
// any asynchronous I/O.
//
// The loop ends when the outbound channel (master to local output) goes
// Inactive. The inbound channel may still be mid-stream at that point:
// local input has no completion signal, while every byte the child produced
// must be delivered before the loop returns.
package relay
