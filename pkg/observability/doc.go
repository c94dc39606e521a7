// Package observability provides structured logging and Prometheus metrics
// for the admin session core.
//
// The Logger is a thin wrapper around stdlib slog with JSON output and
// context helpers for session, user and society IDs. Metrics covers session
// transitions, permission checks, tenant cache behavior and audit health.
package observability
