package types

import "fmt"

// The relay's error taxonomy: seven kinds, not type names. Each kind is
// a distinct Go type so the Frontend's top-level close logic can classify
// with errors.As instead of string matching.

// AuthError covers Unauthenticated, QuotaExceeded, and AccountDisabled.
// Closed to the client with a distinct code; never retried.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string { return fmt.Sprintf("auth error: %s", e.Reason) }

// ProtocolError covers InvalidJson, InvalidEvent, and InvalidInit.
// Surfaced as a synthetic error event; the connection continues except for
// InvalidInit, which closes it.
type ProtocolError struct {
	Code  string
	Param string
}

func (e *ProtocolError) Error() string { return fmt.Sprintf("protocol error: %s", e.Code) }

// RateLimited produces a synthetic error event per offending frame; the
// connection is never closed for this alone.
type RateLimited struct {
	PrincipalID string
}

func (e *RateLimited) Error() string { return fmt.Sprintf("rate limited: %s", e.PrincipalID) }

// MintFailed occurs during connection setup only; closes with
// relay_init_failed.
type MintFailed struct {
	Reason string
}

func (e *MintFailed) Error() string { return fmt.Sprintf("mint failed: %s", e.Reason) }

// UpstreamTransient covers heartbeat timeout, network blips, and 5xx
// responses from upstream. Triggers the reconnect ladder; the client is not
// informed unless the ladder is exhausted.
type UpstreamTransient struct {
	Reason string
}

func (e *UpstreamTransient) Error() string { return fmt.Sprintf("upstream transient: %s", e.Reason) }

// UpstreamFatal covers upstream authentication rejection and unrecoverable
// error events. Closes the client with upstream_failed.
type UpstreamFatal struct {
	Reason string
}

func (e *UpstreamFatal) Error() string { return fmt.Sprintf("upstream fatal: %s", e.Reason) }

// InternalError covers any unexpected failure in a pump. Logged, closes the
// client with relay_internal.
type InternalError struct {
	Cause error
}

func (e *InternalError) Error() string { return fmt.Sprintf("internal error: %v", e.Cause) }
func (e *InternalError) Unwrap() error { return e.Cause }
