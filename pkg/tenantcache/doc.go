// Package tenantcache caches per-society data with strict isolation: each
// society's payload lives in its own entry keyed by society ID, so a value
// written under one society can never be read under another.
//
// Loads restore the persisted snapshot first, then fetch authoritatively; a
// failed fetch leaves stale-but-available data in place. Snapshot writes are
// fire-and-forget to a kvstore.Store backend.
package tenantcache
