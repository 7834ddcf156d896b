// Package auth implements the Credential Store (A): authenticates incoming
// clients and looks up their quota tier.
package auth

import (
	"context"
	"fmt"

	"github.com/rapidaai/relay/internal/types"
)

// Store is the Credential Store contract.
type Store interface {
	// Authenticate verifies either a bearer token or a username/password
	// pair. Any malformed, unknown, expired, or disabled credential returns
	// ErrUnauthenticated with no distinguishing detail.
	Authenticate(ctx context.Context, creds types.Credentials) (*types.Principal, error)
	// QuotaFor is a pure lookup of a principal's tier quotas.
	QuotaFor(ctx context.Context, principalID string) (types.Quotas, error)
}

// ErrUnauthenticated is returned for any credential the store cannot
// positively verify. It carries no distinguishing detail.
var ErrUnauthenticated = &types.AuthError{Reason: "unauthenticated"}

// ErrBackendUnavailable is a retriable error distinct from
// ErrUnauthenticated; the Frontend translates it to a 5xx-equivalent close.
type ErrBackendUnavailable struct {
	Cause error
}

func (e *ErrBackendUnavailable) Error() string {
	return fmt.Sprintf("credential store backend unavailable: %v", e.Cause)
}
func (e *ErrBackendUnavailable) Unwrap() error { return e.Cause }
