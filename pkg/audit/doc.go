// Package audit records privileged session events: mode switches, society
// switches, permission denials and logouts.
//
// Entries are append-only and written after the state transition they
// describe commits, so the trail never shows a transition that did not
// happen. Sink failures are retried once, then buffered in a bounded ring;
// the Log exposes Degraded() rather than failing the parent operation.
package audit
