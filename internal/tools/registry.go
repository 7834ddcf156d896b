// Package tools implements the optional Tool Registry collaborator used by
// the Event Router's function.call interception path, disabled by default.
package tools

import "context"

// Registry is the fixed interface the Router consumes; timeouts are the
// caller's responsibility.
type Registry interface {
	// ListTools returns the names of tools this registry can call.
	ListTools(ctx context.Context) ([]string, error)
	// Call invokes a named tool with the given parameters and returns its
	// result, or an error if the call failed.
	Call(ctx context.Context, name string, params map[string]interface{}) (interface{}, error)
}

// Known reports whether name is one of the registry's currently listed
// tools. The Router uses this to decide between intercepting a function.call
// locally and forwarding it upstream unchanged.
func Known(ctx context.Context, r Registry, name string) bool {
	if r == nil {
		return false
	}
	names, err := r.ListTools(ctx)
	if err != nil {
		return false
	}
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
