package rbac

// escalationChains maps each role to the ordered chain of superior roles to
// notify when the role cannot resolve an issue within its own permission
// scope. Every chain ends at RoleSuperAdmin.
var escalationChains = map[Role][]Role{
	RoleSuperAdmin:       {},
	RoleCommunityManager: {RoleSuperAdmin},
	RoleFinancialManager: {RoleCommunityManager, RoleSuperAdmin},
	RoleSecurityAdmin:    {RoleCommunityManager, RoleSuperAdmin},
	RoleMaintenanceAdmin: {RoleCommunityManager, RoleSuperAdmin},
}

// EscalationPath returns the ordered escalation chain for a role. The chain
// is empty for RoleSuperAdmin and for unknown roles. The returned slice is a
// copy; callers may modify it freely.
func EscalationPath(role Role) []Role {
	chain, ok := escalationChains[role]
	if !ok {
		return nil
	}
	out := make([]Role, len(chain))
	copy(out, chain)
	return out
}
