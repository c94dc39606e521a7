package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/habitatlabs/societycore/pkg/audit"
	"github.com/habitatlabs/societycore/pkg/kvstore"
	"github.com/habitatlabs/societycore/pkg/observability"
	"github.com/habitatlabs/societycore/pkg/rbac"
	"github.com/habitatlabs/societycore/pkg/tenant"
	"github.com/habitatlabs/societycore/pkg/tenantcache"
)

// Manager owns the resident/admin mode state machine and is the only
// component UI code calls directly. All transitions serialize through one
// mutex; permission checks read an immutable session snapshot and never
// block on an in-flight switch.
type Manager struct {
	authn     Authenticator
	directory AdminDirectory
	registry  *tenant.Registry
	cache     *tenantcache.Cache
	policy    *rbac.PolicyStore
	audit     *audit.Log
	prefs     kvstore.Store
	logger    *observability.Logger
	metrics   *observability.Metrics
	tracer    trace.Tracer
	device    DeviceInfo

	mu           sync.Mutex
	initialized  bool
	user         *tenant.AdminUser
	switching    bool
	switchCancel context.CancelFunc
	observers    []Observer

	// current is the published session snapshot; nil means resident mode.
	// Replaced wholesale on every transition (copy-on-switch).
	current atomic.Pointer[Session]
}

// Config wires the manager's collaborators. Authenticator, Directory,
// Registry, Cache, Policy, Audit, Preferences and Logger are required.
type Config struct {
	Authenticator Authenticator
	Directory     AdminDirectory
	Registry      *tenant.Registry
	Cache         *tenantcache.Cache
	Policy        *rbac.PolicyStore
	Audit         *audit.Log
	Preferences   kvstore.Store
	Logger        *observability.Logger
	Metrics       *observability.Metrics
	Device        DeviceInfo
}

// NewManager creates a session manager in resident mode
func NewManager(cfg Config) (*Manager, error) {
	switch {
	case cfg.Authenticator == nil:
		return nil, fmt.Errorf("authenticator is required")
	case cfg.Directory == nil:
		return nil, fmt.Errorf("admin directory is required")
	case cfg.Registry == nil:
		return nil, fmt.Errorf("tenant registry is required")
	case cfg.Cache == nil:
		return nil, fmt.Errorf("tenant data cache is required")
	case cfg.Policy == nil:
		return nil, fmt.Errorf("policy store is required")
	case cfg.Audit == nil:
		return nil, fmt.Errorf("audit log is required")
	case cfg.Preferences == nil:
		return nil, fmt.Errorf("preference store is required")
	case cfg.Logger == nil:
		return nil, fmt.Errorf("logger is required")
	}

	return &Manager{
		authn:     cfg.Authenticator,
		directory: cfg.Directory,
		registry:  cfg.Registry,
		cache:     cfg.Cache,
		policy:    cfg.Policy,
		audit:     cfg.Audit,
		prefs:     cfg.Preferences,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		tracer:    otel.Tracer("github.com/habitatlabs/societycore/pkg/session"),
		device:    cfg.Device,
	}, nil
}

// Initialize resolves the authenticated identity, loads the user's society
// grants, and restores the previously persisted mode best-effort. A
// metadata fetch failure with a usable cached society list is logged and
// tolerated; with no cached list the FetchError is returned so the caller
// can retry.
func (m *Manager) Initialize(ctx context.Context) error {
	ctx, span := m.tracer.Start(ctx, "session.initialize")
	defer span.End()

	m.mu.Lock()
	defer m.mu.Unlock()

	userID, err := m.authn.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve current user: %w", err)
	}

	user, err := m.directory.ResolveAdminUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to resolve admin record for %s: %w", userID, err)
	}

	m.user = user
	m.initialized = true

	if user == nil || !user.CanAdminister() {
		return nil
	}

	tenants, err := m.registry.Load(ctx, user)
	if err != nil {
		if len(tenants) == 0 {
			return err
		}
		m.logger.WithError(err).Warn("using cached society list after metadata fetch failure")
	}

	// Best-effort restore of the prior admin mode; failure leaves the
	// user in resident mode, which is always safe.
	if pref := m.loadPreference(ctx); pref.Mode == ModeAdmin {
		if err := m.enterAdminModeLocked(ctx, pref.TenantID); err != nil {
			m.logger.WithError(err).Info("previous admin mode not restored")
		}
	}

	return nil
}

// CanEnterAdminMode reports whether the user holds at least one active
// society grant.
func (m *Manager) CanEnterAdminMode() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user.CanAdminister()
}

// EnterAdminMode transitions Resident -> AdminActive: selects a default
// society, loads its data, creates the session and audits the switch.
// Returns ErrNotAuthorized when the user has no usable society. Calling it
// while already in admin mode is a no-op.
func (m *Manager) EnterAdminMode(ctx context.Context) error {
	ctx, span := m.tracer.Start(ctx, "session.enter_admin_mode")
	defer span.End()

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return ErrNotInitialized
	}
	if m.current.Load() != nil {
		return nil
	}

	pref := m.loadPreference(ctx)
	return m.enterAdminModeLocked(ctx, pref.TenantID)
}

// enterAdminModeLocked performs the Resident -> AdminActive transition.
// Caller holds m.mu.
func (m *Manager) enterAdminModeLocked(ctx context.Context, lastSelectedID string) error {
	if !m.user.CanAdminister() {
		return ErrNotAuthorized
	}

	selected, ok := m.registry.DefaultTenant(m.user, lastSelectedID)
	if !ok {
		return ErrNotAuthorized
	}
	access, ok := m.user.AccessFor(selected.ID)
	if !ok {
		return ErrNotAuthorized
	}

	if err := m.cache.Load(ctx, selected.ID); err != nil && !isFetchError(err) {
		return err
	}

	now := time.Now().UTC()
	sess := &Session{
		ID:             uuid.NewString(),
		UserID:         m.user.ID,
		Mode:           ModeAdmin,
		ActiveTenantID: selected.ID,
		Role:           access.Role,
		Permissions:    m.permissionSnapshot(access.Role),
		StartTime:      now,
		LastActivity:   now,
		Device:         m.device,
	}
	m.current.Store(sess)
	m.persistPreference(ctx, preference{Mode: ModeAdmin, TenantID: selected.ID})

	// Audit strictly after the state commit: the trail must never show a
	// transition that did not happen.
	m.appendAudit(audit.EventTypeModeSwitched, sess.UserID, sess.ActiveTenantID, map[string]any{
		"from": string(ModeResident),
		"to":   string(ModeAdmin),
	})

	if m.metrics != nil {
		m.metrics.ModeSwitchesTotal.WithLabelValues(string(ModeAdmin)).Inc()
		m.metrics.ActiveAdminSessions.Set(1)
	}
	m.notifyModeChanged(ModeAdmin)
	return nil
}

// ExitAdminMode transitions AdminActive -> Resident. Always allowed; a
// no-op in resident mode. Cancels any in-flight society switch.
func (m *Manager) ExitAdminMode(ctx context.Context) error {
	ctx, span := m.tracer.Start(ctx, "session.exit_admin_mode")
	defer span.End()

	m.mu.Lock()
	defer m.mu.Unlock()

	sess := m.current.Load()
	if sess == nil {
		return nil
	}

	m.cancelSwitchLocked()
	m.current.Store(nil)
	m.persistPreference(ctx, preference{Mode: ModeResident})

	m.appendAudit(audit.EventTypeModeSwitched, sess.UserID, sess.ActiveTenantID, map[string]any{
		"from": string(ModeAdmin),
		"to":   string(ModeResident),
	})

	if m.metrics != nil {
		m.metrics.ModeSwitchesTotal.WithLabelValues(string(ModeResident)).Inc()
		m.metrics.ActiveAdminSessions.Set(0)
	}
	m.notifyModeChanged(ModeResident)
	return nil
}

// SwitchTenant moves the session to another society. Only one switch may be
// in flight: a concurrent call fails fast with ErrSwitchInProgress instead
// of queuing. The session snapshot is replaced only after the cache load
// completes, so readers never observe a partially switched session. A
// failed switch leaves the prior society fully intact.
//
// Calling SwitchTenant in resident mode is a programmer error and panics.
func (m *Manager) SwitchTenant(ctx context.Context, tenantID string) error {
	ctx, span := m.tracer.Start(ctx, "session.switch_tenant",
		trace.WithAttributes(attribute.String("tenant_id", tenantID)))
	defer span.End()

	m.mu.Lock()

	sess := m.current.Load()
	if sess == nil {
		m.mu.Unlock()
		panic("session: SwitchTenant called outside admin mode")
	}
	if m.switching {
		m.mu.Unlock()
		if m.metrics != nil {
			m.metrics.TenantSwitchesTotal.WithLabelValues("in_progress").Inc()
		}
		return ErrSwitchInProgress
	}

	if tenantID == sess.ActiveTenantID {
		// Idempotent refresh of the already-active society, deduplicated
		// by the cache. Tracked like a real switch so Logout and
		// ExitAdminMode cancel it the same way, but the session is only
		// touched, never replaced, and nothing is audited.
		swctx, cancel := context.WithCancel(ctx)
		m.switching = true
		m.switchCancel = cancel
		m.mu.Unlock()

		loadErr := m.cache.Load(swctx, tenantID)

		m.mu.Lock()
		defer m.mu.Unlock()
		m.switching = false
		m.switchCancel = nil
		supersededErr := swctx.Err()
		cancel()

		cur := m.current.Load()
		if cur == nil || cur.ID != sess.ID {
			return errSuperseded
		}
		if supersededErr != nil {
			return supersededErr
		}
		if loadErr != nil && !isFetchError(loadErr) {
			return loadErr
		}
		m.touchLocked(cur)
		return nil
	}

	if !m.registry.ValidateAccess(m.user, tenantID) {
		m.mu.Unlock()
		if m.metrics != nil {
			m.metrics.TenantSwitchesTotal.WithLabelValues("denied").Inc()
		}
		return &AccessDeniedError{TenantID: tenantID}
	}

	swctx, cancel := context.WithCancel(ctx)
	m.switching = true
	m.switchCancel = cancel
	m.mu.Unlock()

	loadErr := m.cache.Load(swctx, tenantID)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.switching = false
	m.switchCancel = nil
	supersededErr := swctx.Err()
	cancel()

	cur := m.current.Load()
	if cur == nil || cur.ID != sess.ID {
		// Logout or mode exit overtook the switch; do not resurrect the
		// admin session with a stale society.
		return errSuperseded
	}
	if supersededErr != nil {
		return supersededErr
	}
	if loadErr != nil && !isFetchError(loadErr) {
		return loadErr
	}

	access, ok := m.user.AccessFor(tenantID)
	if !ok {
		return &AccessDeniedError{TenantID: tenantID}
	}

	next := *cur
	next.ActiveTenantID = tenantID
	next.Role = access.Role
	next.Permissions = m.permissionSnapshot(access.Role)
	next.LastActivity = time.Now().UTC()
	m.current.Store(&next)
	m.persistPreference(ctx, preference{Mode: ModeAdmin, TenantID: tenantID})

	m.appendAudit(audit.EventTypeTenantSwitched, next.UserID, tenantID, map[string]any{
		"from": cur.ActiveTenantID,
		"to":   tenantID,
	})

	if m.metrics != nil {
		m.metrics.TenantSwitchesTotal.WithLabelValues("ok").Inc()
	}
	m.notifyTenantChanged(tenantID)
	return nil
}

// CheckPermission evaluates a permission against the current session
// snapshot. Resident-mode checks always deny and never panic. Denials in
// admin mode are audited; allows are not, to keep audit volume down.
//
// Lock-free: reads the atomic snapshot only, so checks never wait on a
// concurrent society switch.
func (m *Manager) CheckPermission(resource, action string) bool {
	sess := m.current.Load()
	if sess == nil {
		if m.metrics != nil {
			m.metrics.PermissionChecksTotal.WithLabelValues("denied").Inc()
		}
		return false
	}

	if rbac.Check(sess.Permissions, resource, action, sess.ActiveTenantID, sess.Role) {
		if m.metrics != nil {
			m.metrics.PermissionChecksTotal.WithLabelValues("allowed").Inc()
		}
		return true
	}

	if m.metrics != nil {
		m.metrics.PermissionChecksTotal.WithLabelValues("denied").Inc()
		m.metrics.PermissionDenialsTotal.WithLabelValues(resource, action).Inc()
	}
	m.appendAudit(audit.EventTypePermissionDenied, sess.UserID, sess.ActiveTenantID, map[string]any{
		"resource": resource,
		"action":   action,
	})
	return false
}

// GetEscalationPath returns the escalation chain for the session's role,
// or nil in resident mode.
func (m *Manager) GetEscalationPath() []rbac.Role {
	sess := m.current.Load()
	if sess == nil {
		return nil
	}
	return rbac.EscalationPath(sess.Role)
}

// Logout clears the session and the persisted mode preference from any
// state. The identity is forgotten; Initialize must run again before the
// next admin entry.
func (m *Manager) Logout(ctx context.Context) error {
	ctx, span := m.tracer.Start(ctx, "session.logout")
	defer span.End()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.cancelSwitchLocked()
	sess := m.current.Load()
	m.current.Store(nil)
	m.user = nil
	m.initialized = false
	m.deletePreference(ctx)

	if sess != nil {
		duration := time.Since(sess.StartTime)
		m.appendAudit(audit.EventTypeAdminLogout, sess.UserID, sess.ActiveTenantID, map[string]any{
			"session_duration_ms": duration.Milliseconds(),
		})
		if m.metrics != nil {
			m.metrics.SessionDuration.Observe(duration.Seconds())
			m.metrics.ActiveAdminSessions.Set(0)
		}
		m.notifyModeChanged(ModeResident)
	}
	return nil
}

// ClearTenantData removes a society's cached data and persisted snapshot,
// auditing the removal. Used when a grant is revoked or on explicit refresh.
func (m *Manager) ClearTenantData(ctx context.Context, tenantID string) error {
	if err := m.cache.Clear(ctx, tenantID); err != nil {
		return err
	}

	var userID string
	if sess := m.current.Load(); sess != nil {
		userID = sess.UserID
	} else {
		m.mu.Lock()
		if m.user != nil {
			userID = m.user.ID
		}
		m.mu.Unlock()
	}
	m.appendAudit(audit.EventTypeTenantCacheCleared, userID, tenantID, nil)
	return nil
}

// CurrentMode reports resident or admin. Lock-free.
func (m *Manager) CurrentMode() Mode {
	if m.current.Load() != nil {
		return ModeAdmin
	}
	return ModeResident
}

// CurrentSession returns a copy of the active session, or nil in resident
// mode.
func (m *Manager) CurrentSession() *Session {
	sess := m.current.Load()
	if sess == nil {
		return nil
	}
	cp := *sess
	return &cp
}

// ActiveTenant returns the society the session is acting in
func (m *Manager) ActiveTenant() (tenant.Tenant, bool) {
	sess := m.current.Load()
	if sess == nil {
		return tenant.Tenant{}, false
	}
	return m.registry.Tenant(sess.ActiveTenantID)
}

// AvailableTenants returns the societies the user may switch to
func (m *Manager) AvailableTenants() []tenant.Tenant {
	m.mu.Lock()
	user := m.user
	m.mu.Unlock()

	var out []tenant.Tenant
	for _, t := range m.registry.Tenants() {
		if _, ok := user.AccessFor(t.ID); ok {
			out = append(out, t)
		}
	}
	return out
}

// AuditDegraded reports whether audit persistence is in degraded mode
func (m *Manager) AuditDegraded() bool {
	return m.audit.Degraded()
}

// Subscribe registers an observer for mode and society changes
func (m *Manager) Subscribe(o Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, o)
}

// touchLocked republishes the session with a fresh LastActivity.
// Caller holds m.mu.
func (m *Manager) touchLocked(sess *Session) {
	next := *sess
	next.LastActivity = time.Now().UTC()
	m.current.Store(&next)
}

// cancelSwitchLocked aborts an in-flight society switch. Caller holds m.mu.
func (m *Manager) cancelSwitchLocked() {
	if m.switchCancel != nil {
		m.switchCancel()
		m.switchCancel = nil
	}
}

// permissionSnapshot copies the role's grants out of the policy store so a
// later policy reload cannot mutate a live session.
func (m *Manager) permissionSnapshot(role rbac.Role) []rbac.Permission {
	perms := m.policy.PermissionsFor(role)
	out := make([]rbac.Permission, len(perms))
	copy(out, perms)
	return out
}

// appendAudit writes an entry detached from the caller's context: the
// transition has already committed, so a cancelled request must not
// suppress its audit record. Persistence failures are handled inside the
// audit log (retry, buffer, degraded flag).
func (m *Manager) appendAudit(eventType audit.EventType, userID, tenantID string, details map[string]any) {
	_ = m.audit.Append(context.Background(), audit.NewEntry(eventType, userID, tenantID, details))
}

// loadPreference reads the persisted mode preference; absent or unreadable
// preferences yield the zero value.
func (m *Manager) loadPreference(ctx context.Context) preference {
	raw, found, err := m.prefs.Get(ctx, preferenceKey)
	if err != nil || !found {
		return preference{}
	}
	var pref preference
	if err := json.Unmarshal(raw, &pref); err != nil {
		return preference{}
	}
	return pref
}

// persistPreference stores the mode preference best-effort: one retry, then
// the failure is logged and dropped. Preference restore is convenience, not
// security, so it never blocks a transition.
func (m *Manager) persistPreference(ctx context.Context, pref preference) {
	raw, err := json.Marshal(pref)
	if err != nil {
		return
	}
	if err := m.prefs.Set(ctx, preferenceKey, raw); err != nil {
		if err := m.prefs.Set(ctx, preferenceKey, raw); err != nil {
			m.logger.WithError(err).Warn("mode preference persist failed, dropping")
		}
	}
}

// deletePreference removes the persisted preference best-effort
func (m *Manager) deletePreference(ctx context.Context) {
	if err := m.prefs.Delete(ctx, preferenceKey); err != nil {
		if err := m.prefs.Delete(ctx, preferenceKey); err != nil {
			m.logger.WithError(err).Warn("mode preference delete failed, dropping")
		}
	}
}

func (m *Manager) notifyModeChanged(mode Mode) {
	for _, o := range m.observers {
		o.OnModeChanged(mode)
	}
}

func (m *Manager) notifyTenantChanged(tenantID string) {
	for _, o := range m.observers {
		o.OnTenantChanged(tenantID)
	}
}

func isFetchError(err error) bool {
	var ferr *tenant.FetchError
	return errors.As(err, &ferr)
}
