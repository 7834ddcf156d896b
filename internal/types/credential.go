package types

import "time"

// EphemeralCredential is an opaque, short-lived token scoped to a single
// upstream session. It is never persisted; its lifetime is strictly shorter
// than the session it authorizes.
type EphemeralCredential struct {
	Value     string
	ExpiresAt time.Time
}

// Expired reports whether the credential can no longer be used to open a
// new upstream connection.
func (c EphemeralCredential) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}
