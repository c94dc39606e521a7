// Package kvstore provides the persisted key/value storage contract used by
// the tenant data cache (snapshots) and the session manager (mode
// preference), with in-memory, filesystem and Redis implementations.
package kvstore
