package rbac

// Role represents an admin role within a society. Residents hold no admin
// role at all; RoleResident exists only as the zero value for display.
type Role string

const (
	RoleResident         Role = ""
	RoleSuperAdmin       Role = "super_admin"
	RoleCommunityManager Role = "community_manager"
	RoleFinancialManager Role = "financial_manager"
	RoleSecurityAdmin    Role = "security_admin"
	RoleMaintenanceAdmin Role = "maintenance_admin"
)

// AdminRoles returns the closed set of admin roles
func AdminRoles() []Role {
	return []Role{
		RoleSuperAdmin,
		RoleCommunityManager,
		RoleFinancialManager,
		RoleSecurityAdmin,
		RoleMaintenanceAdmin,
	}
}

// IsAdminRole reports whether r is one of the known admin roles
func IsAdminRole(r Role) bool {
	switch r {
	case RoleSuperAdmin, RoleCommunityManager, RoleFinancialManager,
		RoleSecurityAdmin, RoleMaintenanceAdmin:
		return true
	}
	return false
}

// Scope represents the breadth at which a permission applies
type Scope string

const (
	// ScopeGlobal matches any active society
	ScopeGlobal Scope = "global"
	// ScopeSociety matches only the session's active society
	ScopeSociety Scope = "society"
)

// Wildcard matches any resource or action in a permission
const Wildcard = "*"

// Permission represents a grant of one action on one resource at a scope.
// Resource and Action may be Wildcard.
type Permission struct {
	Resource string `json:"resource" yaml:"resource"`
	Action   string `json:"action" yaml:"action"`
	Scope    Scope  `json:"scope" yaml:"scope"`
}

// String returns a string representation of the permission
func (p Permission) String() string {
	return p.Resource + ":" + p.Action + "@" + string(p.Scope)
}

// Resource names used by the resident app's admin surfaces
const (
	ResourceBilling    = "billing"
	ResourceRecharges  = "recharges"
	ResourceNotices    = "notices"
	ResourceResidents  = "residents"
	ResourceVisitors   = "visitors"
	ResourceComplaints = "complaints"
	ResourceAmenities  = "amenities"
	ResourceDocuments  = "documents"
	ResourceReports    = "reports"
	ResourceSettings   = "settings"
)

// Action names
const (
	ActionRead    = "read"
	ActionCreate  = "create"
	ActionUpdate  = "update"
	ActionDelete  = "delete"
	ActionApprove = "approve"
	ActionPublish = "publish"
	ActionExport  = "export"
	ActionResolve = "resolve"
)

// PolicyTable maps each admin role to its granted permissions.
// RoleSuperAdmin needs no entry; it satisfies every check implicitly.
type PolicyTable map[Role][]Permission

// DefaultPolicy returns the built-in role-to-permission table
func DefaultPolicy() PolicyTable {
	return PolicyTable{
		RoleCommunityManager: {
			{Resource: ResourceNotices, Action: Wildcard, Scope: ScopeSociety},
			{Resource: ResourceResidents, Action: ActionRead, Scope: ScopeSociety},
			{Resource: ResourceResidents, Action: ActionUpdate, Scope: ScopeSociety},
			{Resource: ResourceAmenities, Action: Wildcard, Scope: ScopeSociety},
			{Resource: ResourceDocuments, Action: Wildcard, Scope: ScopeSociety},
			{Resource: ResourceComplaints, Action: ActionRead, Scope: ScopeSociety},
			{Resource: ResourceBilling, Action: ActionRead, Scope: ScopeSociety},
			{Resource: ResourceReports, Action: ActionRead, Scope: ScopeSociety},
			{Resource: ResourceSettings, Action: ActionRead, Scope: ScopeSociety},
		},
		RoleFinancialManager: {
			{Resource: ResourceBilling, Action: Wildcard, Scope: ScopeSociety},
			{Resource: ResourceRecharges, Action: Wildcard, Scope: ScopeSociety},
			{Resource: ResourceReports, Action: ActionRead, Scope: ScopeSociety},
			{Resource: ResourceReports, Action: ActionExport, Scope: ScopeSociety},
			{Resource: ResourceResidents, Action: ActionRead, Scope: ScopeSociety},
		},
		RoleSecurityAdmin: {
			{Resource: ResourceVisitors, Action: Wildcard, Scope: ScopeSociety},
			{Resource: ResourceResidents, Action: ActionRead, Scope: ScopeSociety},
			{Resource: ResourceComplaints, Action: ActionRead, Scope: ScopeSociety},
			{Resource: ResourceComplaints, Action: ActionCreate, Scope: ScopeSociety},
		},
		RoleMaintenanceAdmin: {
			{Resource: ResourceComplaints, Action: ActionRead, Scope: ScopeSociety},
			{Resource: ResourceComplaints, Action: ActionUpdate, Scope: ScopeSociety},
			{Resource: ResourceComplaints, Action: ActionResolve, Scope: ScopeSociety},
			{Resource: ResourceAmenities, Action: ActionRead, Scope: ScopeSociety},
			{Resource: ResourceAmenities, Action: ActionUpdate, Scope: ScopeSociety},
		},
	}
}
