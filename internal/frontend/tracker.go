package frontend

import (
	"sync"
	"time"
)

// connectionInfo is the minimal per-connection bookkeeping the /health
// surface reports on.
type connectionInfo struct {
	PrincipalID  string
	AcceptedAt   time.Time
	LastActivity time.Time
}

// connectionTracker is the process-wide registry of live ClientConnections.
// It feeds the /health and /metrics connection counts and the per-principal
// concurrent-session check in handleUpgrade.
type connectionTracker struct {
	mu   sync.Mutex
	byID map[string]*connectionInfo
}

func newConnectionTracker() connectionTracker {
	return connectionTracker{byID: make(map[string]*connectionInfo)}
}

func (t *connectionTracker) add(id, principalID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byID[id] = &connectionInfo{PrincipalID: principalID, AcceptedAt: time.Now(), LastActivity: time.Now()}
}

func (t *connectionTracker) remove(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.byID, id)
}

func (t *connectionTracker) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byID)
}

// countForPrincipal reports how many live connections currently belong to
// principalID, used to enforce the principal's concurrent-session quota.
func (t *connectionTracker) countForPrincipal(principalID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, info := range t.byID {
		if info.PrincipalID == principalID {
			n++
		}
	}
	return n
}
