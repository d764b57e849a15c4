// Package pty allocates pseudo-terminal pairs: master descriptors opened
// from /dev/ptmx, slave naming and opening, and window-geometry propagation
// from the invoking terminal to the pair.
//
// Allocation assumes Linux devpts semantics: the grant step happens when the
// master is opened, the slave is unlocked with TIOCSPTLCK and named with
// TIOCGPTN.
package pty
