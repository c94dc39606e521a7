package tenant

import (
	"context"
	"sync"

	"github.com/habitatlabs/societycore/pkg/observability"
)

// MetadataService is the external lookup for society metadata
type MetadataService interface {
	FetchTenants(ctx context.Context, tenantIDs []string) ([]Tenant, error)
}

// Registry holds the set of societies an admin user may access, validates
// access against it, and selects default societies. It keeps the last
// successfully fetched list so a flaky metadata service degrades to
// stale-but-usable rather than locking the admin out.
type Registry struct {
	svc    MetadataService
	logger *observability.Logger

	mu        sync.RWMutex
	lastKnown []Tenant
	byID      map[string]Tenant
}

// NewRegistry creates a registry backed by the given metadata service
func NewRegistry(svc MetadataService, logger *observability.Logger) *Registry {
	return &Registry{
		svc:    svc,
		logger: logger,
		byID:   make(map[string]Tenant),
	}
}

// Load fetches metadata for every society the user holds an active grant
// for. On upstream failure it returns a FetchError together with the cached
// last-known list when one exists; the caller decides whether stale data is
// acceptable.
func (r *Registry) Load(ctx context.Context, user *AdminUser) ([]Tenant, error) {
	access := user.ActiveAccess()
	if len(access) == 0 {
		r.mu.Lock()
		r.lastKnown = nil
		r.byID = make(map[string]Tenant)
		r.mu.Unlock()
		return nil, nil
	}

	ids := make([]string, 0, len(access))
	for _, a := range access {
		ids = append(ids, a.TenantID)
	}

	tenants, err := r.svc.FetchTenants(ctx, ids)
	if err != nil {
		r.logger.WithError(err).Warn("tenant metadata fetch failed")
		r.mu.RLock()
		cached := copyTenants(r.lastKnown)
		r.mu.RUnlock()
		return cached, &FetchError{Op: "registry load", Err: err}
	}

	// Preserve the order of the user's grants regardless of how the
	// service returns the batch.
	fetched := make(map[string]Tenant, len(tenants))
	for _, t := range tenants {
		fetched[t.ID] = t
	}
	ordered := make([]Tenant, 0, len(ids))
	byID := make(map[string]Tenant, len(ids))
	for _, id := range ids {
		if t, ok := fetched[id]; ok {
			ordered = append(ordered, t)
			byID[id] = t
		}
	}

	r.mu.Lock()
	r.lastKnown = ordered
	r.byID = byID
	r.mu.Unlock()

	return copyTenants(ordered), nil
}

// Tenants returns a copy of the last successfully loaded society list
func (r *Registry) Tenants() []Tenant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return copyTenants(r.lastKnown)
}

// Tenant returns a society from the last loaded list
func (r *Registry) Tenant(tenantID string) (Tenant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byID[tenantID]
	return t, ok
}

// ValidateAccess reports whether the user holds an active grant for the
// society AND the society itself is active. Unknown societies fail closed.
func (r *Registry) ValidateAccess(user *AdminUser, tenantID string) bool {
	if _, ok := user.AccessFor(tenantID); !ok {
		return false
	}
	t, ok := r.Tenant(tenantID)
	return ok && t.IsActive()
}

// DefaultTenant selects the society to activate on admin-mode entry:
// the last selected one if still valid, else the first active society,
// else the first society in the list. Returns false only when the user has
// no loaded societies at all.
func (r *Registry) DefaultTenant(user *AdminUser, lastSelectedID string) (Tenant, bool) {
	if lastSelectedID != "" && r.ValidateAccess(user, lastSelectedID) {
		t, _ := r.Tenant(lastSelectedID)
		return t, true
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var fallback *Tenant
	for i := range r.lastKnown {
		t := r.lastKnown[i]
		if _, ok := user.AccessFor(t.ID); !ok {
			continue
		}
		if t.IsActive() {
			return t, true
		}
		if fallback == nil {
			fallback = &t
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return Tenant{}, false
}

func copyTenants(in []Tenant) []Tenant {
	if in == nil {
		return nil
	}
	out := make([]Tenant, len(in))
	copy(out, in)
	return out
}
