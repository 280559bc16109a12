package mentors

// Mentor is an AI-assistant entity scoped to a tenant. The public ID is used
// in URLs and lookups; the internal numeric ID keys the RBAC permission
// tables.
type Mentor struct {
	ID         string `json:"id"`
	InternalID int64  `json:"internal_id,omitempty"`
	Name       string `json:"name,omitempty"`
	Default    bool   `json:"default,omitempty"`  // Promoted as the tenant's default mentor
	Featured   bool   `json:"featured,omitempty"` // Listed in the tenant's featured catalog
}
