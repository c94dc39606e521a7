package tenant

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habitatlabs/societycore/pkg/observability"
	"github.com/habitatlabs/societycore/pkg/rbac"
)

// fakeMetadata serves a fixed tenant set and can be flipped to failing
type fakeMetadata struct {
	tenants map[string]Tenant
	failing bool
	calls   int
}

func (f *fakeMetadata) FetchTenants(ctx context.Context, ids []string) ([]Tenant, error) {
	f.calls++
	if f.failing {
		return nil, errors.New("metadata service unreachable")
	}
	var out []Tenant
	for _, id := range ids {
		if t, ok := f.tenants[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func testUser() *AdminUser {
	return &AdminUser{
		ID:          "user-1",
		PrimaryRole: rbac.RoleCommunityManager,
		IsActive:    true,
		Access: []Access{
			{TenantID: "T1", Role: rbac.RoleCommunityManager, AssignedAt: time.Now(), IsActive: true},
			{TenantID: "T2", Role: rbac.RoleFinancialManager, AssignedAt: time.Now(), IsActive: true},
			{TenantID: "T3", Role: rbac.RoleSecurityAdmin, AssignedAt: time.Now(), IsActive: false},
		},
	}
}

func testMetadata() *fakeMetadata {
	return &fakeMetadata{tenants: map[string]Tenant{
		"T1": {ID: "T1", Name: "Green Meadows", Code: "GM", Status: StatusActive},
		"T2": {ID: "T2", Name: "Palm Heights", Code: "PH", Status: StatusActive},
		"T3": {ID: "T3", Name: "Old Towers", Code: "OT", Status: StatusInactive},
	}}
}

func newTestRegistry(svc MetadataService) *Registry {
	return NewRegistry(svc, observability.NewLogger(observability.ErrorLevel, os.Stderr))
}

func TestRegistryLoad(t *testing.T) {
	svc := testMetadata()
	registry := newTestRegistry(svc)

	tenants, err := registry.Load(context.Background(), testUser())
	require.NoError(t, err)

	// T3's grant is inactive, so only T1 and T2 are fetched, in grant order
	require.Len(t, tenants, 2)
	assert.Equal(t, "T1", tenants[0].ID)
	assert.Equal(t, "T2", tenants[1].ID)
}

func TestRegistryLoadNoActiveGrants(t *testing.T) {
	registry := newTestRegistry(testMetadata())

	user := &AdminUser{ID: "user-2", IsActive: true}
	tenants, err := registry.Load(context.Background(), user)
	require.NoError(t, err)
	assert.Empty(t, tenants)
}

func TestRegistryLoadDeactivatedUser(t *testing.T) {
	registry := newTestRegistry(testMetadata())

	user := testUser()
	user.IsActive = false
	tenants, err := registry.Load(context.Background(), user)
	require.NoError(t, err)
	assert.Empty(t, tenants)
}

func TestRegistryLoadFetchErrorWithoutCache(t *testing.T) {
	svc := testMetadata()
	svc.failing = true
	registry := newTestRegistry(svc)

	tenants, err := registry.Load(context.Background(), testUser())
	require.Error(t, err)

	var ferr *FetchError
	assert.ErrorAs(t, err, &ferr)
	assert.Empty(t, tenants)
}

func TestRegistryLoadFallsBackToLastKnown(t *testing.T) {
	svc := testMetadata()
	registry := newTestRegistry(svc)

	_, err := registry.Load(context.Background(), testUser())
	require.NoError(t, err)

	svc.failing = true
	tenants, err := registry.Load(context.Background(), testUser())
	require.Error(t, err)

	var ferr *FetchError
	require.ErrorAs(t, err, &ferr)
	require.Len(t, tenants, 2)
	assert.Equal(t, "T1", tenants[0].ID)
}

func TestRegistryValidateAccess(t *testing.T) {
	registry := newTestRegistry(testMetadata())
	user := testUser()

	_, err := registry.Load(context.Background(), user)
	require.NoError(t, err)

	tests := []struct {
		name     string
		tenantID string
		expected bool
	}{
		{"active grant and active tenant", "T1", true},
		{"second active grant", "T2", true},
		{"inactive grant", "T3", false},
		{"no grant at all", "T9", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, registry.ValidateAccess(user, tt.tenantID))
		})
	}
}

func TestRegistryValidateAccessInactiveTenant(t *testing.T) {
	svc := testMetadata()
	registry := newTestRegistry(svc)

	// User holds an active grant for T3, but the society itself is inactive
	user := testUser()
	user.Access[2].IsActive = true

	_, err := registry.Load(context.Background(), user)
	require.NoError(t, err)

	assert.False(t, registry.ValidateAccess(user, "T3"))
}

func TestRegistryDefaultTenant(t *testing.T) {
	svc := testMetadata()
	registry := newTestRegistry(svc)
	user := testUser()

	_, err := registry.Load(context.Background(), user)
	require.NoError(t, err)

	t.Run("last selected wins when still valid", func(t *testing.T) {
		selected, ok := registry.DefaultTenant(user, "T2")
		require.True(t, ok)
		assert.Equal(t, "T2", selected.ID)
	})

	t.Run("invalid last selection falls back to first active", func(t *testing.T) {
		selected, ok := registry.DefaultTenant(user, "T9")
		require.True(t, ok)
		assert.Equal(t, "T1", selected.ID)
	})

	t.Run("empty last selection picks first active", func(t *testing.T) {
		selected, ok := registry.DefaultTenant(user, "")
		require.True(t, ok)
		assert.Equal(t, "T1", selected.ID)
	})
}

func TestRegistryDefaultTenantSkipsInactive(t *testing.T) {
	svc := &fakeMetadata{tenants: map[string]Tenant{
		"T1": {ID: "T1", Name: "Dormant", Status: StatusInactive},
		"T2": {ID: "T2", Name: "Lively", Status: StatusActive},
	}}
	registry := newTestRegistry(svc)

	user := &AdminUser{
		ID:       "user-1",
		IsActive: true,
		Access: []Access{
			{TenantID: "T1", Role: rbac.RoleCommunityManager, IsActive: true},
			{TenantID: "T2", Role: rbac.RoleCommunityManager, IsActive: true},
		},
	}
	_, err := registry.Load(context.Background(), user)
	require.NoError(t, err)

	selected, ok := registry.DefaultTenant(user, "")
	require.True(t, ok)
	assert.Equal(t, "T2", selected.ID, "an inactive tenant must never win over an active one")
}

func TestRegistryDefaultTenantAllInactive(t *testing.T) {
	svc := &fakeMetadata{tenants: map[string]Tenant{
		"T1": {ID: "T1", Status: StatusInactive},
	}}
	registry := newTestRegistry(svc)

	user := &AdminUser{
		ID:       "user-1",
		IsActive: true,
		Access:   []Access{{TenantID: "T1", Role: rbac.RoleCommunityManager, IsActive: true}},
	}
	_, err := registry.Load(context.Background(), user)
	require.NoError(t, err)

	selected, ok := registry.DefaultTenant(user, "")
	require.True(t, ok)
	assert.Equal(t, "T1", selected.ID)
}

func TestAdminUserAccessors(t *testing.T) {
	user := testUser()

	assert.True(t, user.CanAdminister())
	assert.Len(t, user.ActiveAccess(), 2)

	access, ok := user.AccessFor("T2")
	require.True(t, ok)
	assert.Equal(t, rbac.RoleFinancialManager, access.Role)

	_, ok = user.AccessFor("T3")
	assert.False(t, ok, "inactive grants are invisible")

	user.IsActive = false
	assert.False(t, user.CanAdminister())
	assert.Empty(t, user.ActiveAccess())

	var nilUser *AdminUser
	assert.False(t, nilUser.CanAdminister())
}
