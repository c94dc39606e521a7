// Package tenant defines societies, per-society role grants and the
// registry that validates an admin user's access against live society
// metadata, with last-known-good fallback when the metadata service is
// unreachable.
package tenant
