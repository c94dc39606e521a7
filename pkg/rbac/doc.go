// Package rbac provides role-based permission evaluation for society admin
// sessions.
//
// # Overview
//
// Permissions are (resource, action, scope) triples granted per role by a
// declarative PolicyTable. The evaluator itself (Check) carries no
// role-specific logic; super_admin is the single special case and satisfies
// every check implicitly.
//
// # Scopes
//
// ScopeGlobal permissions apply in any active society. ScopeSociety
// permissions apply only while a society is active; they never match an
// empty active society ID.
//
// # Policy loading
//
// DefaultPolicy provides the built-in table. LoadPolicyFile reads a YAML
// table, and PolicyStore.Watch hot-reloads it on change:
//
//	roles:
//	  financial_manager:
//	    - {resource: billing, action: "*", scope: society}
//
// # Escalation
//
// EscalationPath returns the static ordered chain of superior roles ending
// at super_admin, used to route issues an admin cannot resolve alone.
package rbac
