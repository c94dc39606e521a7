package session

import (
	"context"
	"time"

	"github.com/habitatlabs/societycore/pkg/rbac"
	"github.com/habitatlabs/societycore/pkg/tenant"
)

// Mode is whether the user is acting as an ordinary resident or as a
// privileged society admin.
type Mode string

const (
	ModeResident Mode = "resident"
	ModeAdmin    Mode = "admin"
)

// DeviceInfo is opaque device metadata recorded on the session
type DeviceInfo struct {
	DeviceID   string `json:"device_id,omitempty"`
	Platform   string `json:"platform,omitempty"`
	AppVersion string `json:"app_version,omitempty"`
}

// Session is the active admin session record. Sessions are immutable once
// published; transitions replace the whole record (copy-on-switch), so
// concurrent readers observe either the old or the new session, never a
// torn one.
type Session struct {
	ID             string            `json:"id"`
	UserID         string            `json:"user_id"`
	Mode           Mode              `json:"mode"`
	ActiveTenantID string            `json:"active_tenant_id"`
	Role           rbac.Role         `json:"role"`
	Permissions    []rbac.Permission `json:"permissions"`
	StartTime      time.Time         `json:"start_time"`
	LastActivity   time.Time         `json:"last_activity"`
	Device         DeviceInfo        `json:"device"`
}

// Authenticator supplies the already-authenticated identity. Login, OTP and
// token refresh live elsewhere; this core never performs authentication.
type Authenticator interface {
	CurrentUser(ctx context.Context) (userID string, err error)
}

// AdminDirectory resolves an identity's admin roles and society grants.
// Implementations return (nil, nil) for identities with no admin record;
// such users simply stay residents.
type AdminDirectory interface {
	ResolveAdminUser(ctx context.Context, userID string) (*tenant.AdminUser, error)
}

// Observer receives session change notifications. UI layers subscribe here
// instead of polling; callbacks run after the transition commits, on the
// transitioning goroutine, and must not call back into the Manager.
type Observer interface {
	OnModeChanged(mode Mode)
	OnTenantChanged(tenantID string)
}

// preference is the persisted mode/society selection restored on launch
type preference struct {
	Mode     Mode   `json:"mode"`
	TenantID string `json:"tenant_id,omitempty"`
}

// preferenceKey is the kvstore key for the persisted preference
const preferenceKey = "session:preference"
