package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventType represents the category of a privileged event
type EventType string

const (
	// EventTypeModeSwitched records a resident/admin mode transition
	EventTypeModeSwitched EventType = "session.mode_switched"
	// EventTypeTenantSwitched records a society switch
	EventTypeTenantSwitched EventType = "session.tenant_switched"
	// EventTypeAdminLogout records the end of an admin session
	EventTypeAdminLogout EventType = "session.admin_logout"
	// EventTypePermissionDenied records a denied permission check.
	// Allowed checks are deliberately not audited to keep volume down.
	EventTypePermissionDenied EventType = "authz.permission_denied"
	// EventTypeTenantCacheCleared records removal of a society's cached data
	EventTypeTenantCacheCleared EventType = "tenant.cache_cleared"
)

// Entry represents a single audit log entry. Entries are append-only; they
// are never edited or deleted within a session's lifetime.
type Entry struct {
	ID        string         `json:"id"`
	EventType EventType      `json:"event_type"`
	UserID    string         `json:"user_id"`
	TenantID  string         `json:"tenant_id,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Details   map[string]any `json:"details,omitempty"`
}

// NewEntry creates an entry stamped with a fresh ID and the current UTC time
func NewEntry(eventType EventType, userID, tenantID string, details map[string]any) Entry {
	return Entry{
		ID:        uuid.NewString(),
		EventType: eventType,
		UserID:    userID,
		TenantID:  tenantID,
		Timestamp: time.Now().UTC(),
		Details:   details,
	}
}

// Sink receives audit entries. Implementations may write to local storage or
// a remote logging endpoint; the Log treats them opaquely.
type Sink interface {
	Write(ctx context.Context, entry Entry) error
}

// PersistenceError wraps a sink failure that survived the retry.
// The in-memory state transition that produced the entry is unaffected.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return "audit persistence failed during " + e.Op + ": " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
