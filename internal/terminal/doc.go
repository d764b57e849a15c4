// Package terminal controls the local terminal's input mode for the
// lifetime of a forwarding run.
//
// The flow captures a Snapshot of the invoking terminal's attributes,
// derives raw attributes from it (no echo, no canonical line editing, no
// signal generation, no output post-processing, byte-at-a-time reads) and
// applies them for the duration of the run. Restoration is best-effort and
// happens exactly once, on every exit path that entered raw mode.
//
// Descriptors that are not terminals produce no Snapshot and the run
// proceeds without mode changes.
package terminal
