package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheck(t *testing.T) {
	societyPerms := []Permission{
		{Resource: ResourceBilling, Action: ActionRead, Scope: ScopeSociety},
		{Resource: ResourceNotices, Action: Wildcard, Scope: ScopeSociety},
	}
	globalPerms := []Permission{
		{Resource: ResourceReports, Action: ActionRead, Scope: ScopeGlobal},
	}

	tests := []struct {
		name     string
		perms    []Permission
		resource string
		action   string
		tenantID string
		role     Role
		expected bool
	}{
		{
			name:     "exact match with active tenant",
			perms:    societyPerms,
			resource: ResourceBilling,
			action:   ActionRead,
			tenantID: "T1",
			role:     RoleFinancialManager,
			expected: true,
		},
		{
			name:     "wildcard action matches any action",
			perms:    societyPerms,
			resource: ResourceNotices,
			action:   ActionPublish,
			tenantID: "T1",
			role:     RoleCommunityManager,
			expected: true,
		},
		{
			name:     "no matching permission",
			perms:    societyPerms,
			resource: ResourceVisitors,
			action:   ActionRead,
			tenantID: "T1",
			role:     RoleFinancialManager,
			expected: false,
		},
		{
			name:     "action mismatch",
			perms:    societyPerms,
			resource: ResourceBilling,
			action:   ActionDelete,
			tenantID: "T1",
			role:     RoleFinancialManager,
			expected: false,
		},
		{
			name:     "society scope never matches empty tenant",
			perms:    societyPerms,
			resource: ResourceBilling,
			action:   ActionRead,
			tenantID: "",
			role:     RoleFinancialManager,
			expected: false,
		},
		{
			name:     "global scope matches empty tenant",
			perms:    globalPerms,
			resource: ResourceReports,
			action:   ActionRead,
			tenantID: "",
			role:     RoleCommunityManager,
			expected: true,
		},
		{
			name:     "super_admin bypasses empty permission list",
			perms:    nil,
			resource: ResourceSettings,
			action:   ActionDelete,
			tenantID: "",
			role:     RoleSuperAdmin,
			expected: true,
		},
		{
			name:     "super_admin bypasses non-matching list",
			perms:    societyPerms,
			resource: ResourceVisitors,
			action:   ActionDelete,
			tenantID: "T9",
			role:     RoleSuperAdmin,
			expected: true,
		},
		{
			name:     "empty permission list denies non-super roles",
			perms:    nil,
			resource: ResourceBilling,
			action:   ActionRead,
			tenantID: "T1",
			role:     RoleSecurityAdmin,
			expected: false,
		},
		{
			name: "wildcard resource and action",
			perms: []Permission{
				{Resource: Wildcard, Action: Wildcard, Scope: ScopeSociety},
			},
			resource: ResourceDocuments,
			action:   ActionExport,
			tenantID: "T1",
			role:     RoleCommunityManager,
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Check(tt.perms, tt.resource, tt.action, tt.tenantID, tt.role)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestCheckIsPure(t *testing.T) {
	perms := []Permission{
		{Resource: ResourceBilling, Action: ActionRead, Scope: ScopeSociety},
	}

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 1000; j++ {
				Check(perms, ResourceBilling, ActionRead, "T1", RoleFinancialManager)
			}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}

	assert.Equal(t, ResourceBilling, perms[0].Resource)
}

func TestDefaultPolicy(t *testing.T) {
	table := DefaultPolicy()

	// super_admin is implicit, never listed
	_, ok := table[RoleSuperAdmin]
	assert.False(t, ok)

	// every non-super admin role has grants
	for _, role := range AdminRoles() {
		if role == RoleSuperAdmin {
			continue
		}
		assert.NotEmpty(t, table[role], "role %s should have permissions", role)
	}

	// financial manager manages billing, community manager does not
	assert.True(t, Check(table[RoleFinancialManager], ResourceBilling, ActionUpdate, "T1", RoleFinancialManager))
	assert.False(t, Check(table[RoleCommunityManager], ResourceBilling, ActionUpdate, "T1", RoleCommunityManager))
}

func TestIsAdminRole(t *testing.T) {
	assert.True(t, IsAdminRole(RoleSuperAdmin))
	assert.True(t, IsAdminRole(RoleMaintenanceAdmin))
	assert.False(t, IsAdminRole(RoleResident))
	assert.False(t, IsAdminRole(Role("janitor")))
}
