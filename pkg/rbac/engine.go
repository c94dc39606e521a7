package rbac

// Check evaluates whether the given permission list grants the requested
// resource/action for the session's active society.
//
// RoleSuperAdmin satisfies every check without consulting the permission
// list. A permission matches when its resource and action each equal the
// requested value or Wildcard, and its scope is ScopeGlobal or the session
// has a non-empty active society. A ScopeSociety permission never matches an
// empty activeTenantID, so a missing tenant cannot bypass scoping.
//
// Check is a pure function: no I/O, no mutation, safe for concurrent use.
func Check(permissions []Permission, resource, action, activeTenantID string, role Role) bool {
	if role == RoleSuperAdmin {
		return true
	}

	for _, p := range permissions {
		if p.Resource != Wildcard && p.Resource != resource {
			continue
		}
		if p.Action != Wildcard && p.Action != action {
			continue
		}
		if p.Scope != ScopeGlobal && activeTenantID == "" {
			continue
		}
		return true
	}
	return false
}
