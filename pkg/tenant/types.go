package tenant

import (
	"time"

	"github.com/habitatlabs/societycore/pkg/rbac"
)

// Status represents a society's lifecycle state
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Tenant represents a society: an isolated organizational unit whose data
// must never leak to other societies. Settings is an opaque blob owned by
// the society's own configuration surfaces.
type Tenant struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Code     string         `json:"code"`
	Status   Status         `json:"status"`
	Settings map[string]any `json:"settings,omitempty"`
}

// IsActive reports whether the society is active
func (t Tenant) IsActive() bool {
	return t.Status == StatusActive
}

// Access is a grant of one role to one user within one society. A user may
// hold several Access records with different roles in different societies.
type Access struct {
	TenantID   string    `json:"tenant_id"`
	Role       rbac.Role `json:"role"`
	AssignedBy string    `json:"assigned_by,omitempty"`
	AssignedAt time.Time `json:"assigned_at"`
	IsActive   bool      `json:"is_active"`
}

// AdminUser is an admin-capable identity: the user ID, a primary role, and
// the ordered list of society grants. Deactivated users keep their record
// but lose all capability.
type AdminUser struct {
	ID          string    `json:"id"`
	PrimaryRole rbac.Role `json:"primary_role"`
	Access      []Access  `json:"access"`
	IsActive    bool      `json:"is_active"`
}

// ActiveAccess returns the user's active grants in their original order
func (u *AdminUser) ActiveAccess() []Access {
	if u == nil || !u.IsActive {
		return nil
	}
	var out []Access
	for _, a := range u.Access {
		if a.IsActive {
			out = append(out, a)
		}
	}
	return out
}

// AccessFor returns the user's active grant for a society, if any
func (u *AdminUser) AccessFor(tenantID string) (Access, bool) {
	if u == nil || !u.IsActive {
		return Access{}, false
	}
	for _, a := range u.Access {
		if a.TenantID == tenantID && a.IsActive {
			return a, true
		}
	}
	return Access{}, false
}

// CanAdminister reports whether the user holds at least one active grant
func (u *AdminUser) CanAdminister() bool {
	return len(u.ActiveAccess()) > 0
}
