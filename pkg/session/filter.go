package session

// Scoped is implemented by items that may be tagged with a society.
// An empty society ID means the item is shared across societies.
type Scoped interface {
	ScopeTenantID() string
}

// FilterForTenant scopes shared data to one society: items tagged for other
// societies are excluded, untagged items pass through. Notification and
// analytics surfaces use this to avoid showing one society's data inside
// another's admin view.
func FilterForTenant[T Scoped](items []T, tenantID string) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		scope := item.ScopeTenantID()
		if scope == "" || scope == tenantID {
			out = append(out, item)
		}
	}
	return out
}
