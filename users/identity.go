package users

// Identity is the persisted record of who is signed in: a stable user
// identifier plus a display name. It is mirrored between durable storage and
// the shared parent-domain cookie so every application on the domain agrees
// on the signed-in user.
type Identity struct {
	UserID string `json:"user_id,omitempty"` // Stable subject identifier, matches the credential's sub claim
	Name   string `json:"name,omitempty"`    // Display name, informational only
}

// Empty reports whether no user is recorded.
func (i Identity) Empty() bool {
	return i.UserID == ""
}

// Same reports whether two records describe the same user. Comparison is by
// identifier only: extra or differing display fields must not count as a
// change, otherwise the cookie/storage mirror would thrash on every pass.
func (i Identity) Same(other Identity) bool {
	return i.UserID == other.UserID
}
