package rbac

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/habitatlabs/societycore/pkg/observability"
)

// policyFile is the on-disk YAML shape of a policy table
type policyFile struct {
	Roles map[string][]Permission `yaml:"roles"`
}

// LoadPolicyFile reads a role-to-permission table from a YAML file.
// Unknown role names and invalid scopes are rejected so a bad deploy cannot
// silently widen or narrow grants.
func LoadPolicyFile(path string) (PolicyTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}

	var pf policyFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("failed to parse policy file: %w", err)
	}

	table := make(PolicyTable, len(pf.Roles))
	for name, perms := range pf.Roles {
		role := Role(name)
		if !IsAdminRole(role) {
			return nil, fmt.Errorf("unknown role %q in policy file", name)
		}
		for _, p := range perms {
			if p.Resource == "" || p.Action == "" {
				return nil, fmt.Errorf("role %q has a permission with empty resource or action", name)
			}
			if p.Scope != ScopeGlobal && p.Scope != ScopeSociety {
				return nil, fmt.Errorf("role %q has invalid scope %q", name, p.Scope)
			}
		}
		table[role] = perms
	}

	return table, nil
}

// PolicyStore holds the active policy table and supports atomic replacement,
// so permission snapshots taken by sessions never observe a half-loaded
// table. Hot reload via Watch keeps the evaluator free of role-specific
// logic while letting operators ship policy changes without a release.
type PolicyStore struct {
	table   atomic.Value // PolicyTable
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewPolicyStore creates a policy store seeded with the given table
func NewPolicyStore(table PolicyTable) *PolicyStore {
	s := &PolicyStore{}
	if table == nil {
		table = DefaultPolicy()
	}
	s.table.Store(table)
	return s
}

// Table returns the current policy table. The table is replaced wholesale on
// reload and must be treated as read-only.
func (s *PolicyStore) Table() PolicyTable {
	return s.table.Load().(PolicyTable)
}

// PermissionsFor returns the permissions granted to a role
func (s *PolicyStore) PermissionsFor(role Role) []Permission {
	return s.Table()[role]
}

// Replace swaps in a new policy table atomically
func (s *PolicyStore) Replace(table PolicyTable) {
	s.table.Store(table)
}

// Watch reloads the policy table whenever the file at path changes.
// A reload that fails validation keeps the previous table in place.
func (s *PolicyStore) Watch(path string, logger *observability.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create policy watcher: %w", err)
	}

	// Watch the directory rather than the file: editors and config rollouts
	// typically replace the file via rename, which drops a file-level watch.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch policy directory: %w", err)
	}

	s.watcher = watcher
	s.done = make(chan struct{})

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(path) {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				table, err := LoadPolicyFile(path)
				if err != nil {
					logger.WithError(err).WithField("path", path).Warn("policy reload failed, keeping previous table")
					continue
				}
				s.Replace(table)
				logger.WithField("path", path).Info("policy table reloaded")
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.WithError(err).Warn("policy watcher error")
			case <-s.done:
				return
			}
		}
	}()

	return nil
}

// Close stops the policy watcher if one is running
func (s *PolicyStore) Close() error {
	if s.watcher == nil {
		return nil
	}
	close(s.done)
	err := s.watcher.Close()
	s.watcher = nil
	return err
}
