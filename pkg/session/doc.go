// Package session implements the resident/admin session state machine for
// the resident app: entering and exiting admin mode, switching between
// societies, lock-free permission checks against immutable session
// snapshots, and audit of every transition. The Manager is the single
// entry point the UI layer talks to.
package session
