package tenants

// Tenant represents an organizational namespace the user belongs to. Exactly
// one tenant is "current" at a time; the full set a user belongs to is
// mirrored between durable storage and the shared parent-domain cookie.
type Tenant struct {
	Key         string `json:"key"`                   // Unique tenant key, e.g. "acme"
	OrgID       string `json:"org_id,omitempty"`      // Backend organization identifier
	Name        string `json:"name,omitempty"`        // Display name
	Admin       bool   `json:"is_admin,omitempty"`    // Current user administers this tenant
	Advertising bool   `json:"advertising,omitempty"` // User is visiting but has not formally joined
}

// Set is the collection of tenants a user belongs to. Order carries no
// meaning; all membership checks go through keys.
type Set []Tenant

// Contains reports whether a tenant with the given key is in the set.
func (s Set) Contains(key string) bool {
	_, ok := s.Get(key)
	return ok
}

// Get returns the tenant with the given key.
func (s Set) Get(key string) (Tenant, bool) {
	for _, t := range s {
		if t.Key == key {
			return t, true
		}
	}
	return Tenant{}, false
}

// SameKeys reports whether two sets hold the same tenant keys, ignoring
// order and every non-key field. This is the equality used for sync
// diffing: two mirrors that differ only in annotations or ordering must not
// trigger a refresh.
func (s Set) SameKeys(other Set) bool {
	if len(s) != len(other) {
		return false
	}
	for _, t := range s {
		if !other.Contains(t.Key) {
			return false
		}
	}
	return true
}

// Metadata is the per-tenant configuration bag fetched fresh whenever the
// resolved tenant changes. It is never persisted.
type Metadata struct {
	DefaultMentor *MentorRef     `json:"default_mentor,omitempty"` // Structured default-mentor override
	Advertising   bool           `json:"advertising,omitempty"`    // Tenant explicitly flagged as advertising
	ActiveApp     string         `json:"active_app,omitempty"`     // Sub-application domain that owns this tenant, if any
	Extra         map[string]any `json:"extra,omitempty"`
}

// MentorRef names a mentor inside tenant metadata without carrying the full
// mentor record.
type MentorRef struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}
