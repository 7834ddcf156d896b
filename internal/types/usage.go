package types

import "time"

// UsageCounter is the per-principal, in-memory, additive usage ledger.
// Derived values (cost, tier-overage) are computed from snapshots of this
// struct and never stored back into it.
type UsageCounter struct {
	InputTokens       int64
	OutputTokens      int64
	CachedInputTokens int64
	AudioInputTokens  int64
	AudioOutputTokens int64
	RequestCount      int64
	ErrorCount        int64
	LastActivity      time.Time
}

// Snapshot returns a copy safe to read without holding the Accountant's
// shard lock any longer than the copy itself.
func (u UsageCounter) Snapshot() UsageCounter { return u }
