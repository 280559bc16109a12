package nav

// Route describes the navigation target being resolved.
type Route struct {
	Path        string // Application path, matched against the rule table
	Host        string // Browser hostname, used for custom-domain tenant mapping
	InlineToken string // Credential carried directly on the route; bypasses the auth requirement check
	TenantKey   string // Explicitly requested tenant, if any
	MentorID    string // Explicitly requested mentor (deep link), if any
}
