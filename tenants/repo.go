package tenants

import "context"

// Service is the backend surface tenant resolution consumes.
type Service interface {
	// Metadata fetches the tenant configuration bag. Always re-fetched,
	// never cached by callers.
	Metadata(ctx context.Context, tenantKey string) (*Metadata, error)
	// Join silently enrolls the current user into a tenant.
	Join(ctx context.Context, tenantKey string) error
	// Subscriptions lists the user's formal per-tenant subscription records.
	Subscriptions(ctx context.Context) ([]Subscription, error)
}

// Subscription is a formal membership record; tenants present in the user's
// set without one are advertising.
type Subscription struct {
	TenantKey string `json:"tenant_key"`
	Active    bool   `json:"active"`
}

// DomainResolver maps a custom hostname to the tenant key it serves, or ""
// when the host carries no mapping.
type DomainResolver interface {
	TenantForHost(ctx context.Context, host string) (string, error)
}
