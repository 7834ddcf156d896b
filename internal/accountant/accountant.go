// Package accountant implements the Rate & Usage Accountant: a per-principal
// token-bucket rate limiter and a cumulative usage ledger, both sharded to
// bound lock contention on hot principals.
package accountant

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/rapidaai/relay/internal/logging"
	"github.com/rapidaai/relay/internal/types"
)

const defaultShardCount = 16

type shard struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	usage    map[string]*types.UsageCounter
}

// Config parameterizes the default token bucket; per-principal tiers may
// override capacity/refill via SetTierLimiter or ApplyTier.
type Config struct {
	Capacity     int
	RefillPerMin int
	Shards       int
}

// Accountant is the process-wide singleton tracking rate limits and usage,
// keyed by principal id (never by connection).
type Accountant struct {
	logger logging.Logger
	cfg    Config
	shards []*shard
	mirror Mirror
}

// Mirror is an optional cross-process usage-ledger mirror (e.g. Redis). It
// is pull-only: the Accountant never reads rate-limit state back from it,
// since rate limiting remains strictly in-process.
type Mirror interface {
	PublishUsage(ctx context.Context, principalID string, snapshot types.UsageCounter) error
}

// New builds an Accountant. mirror may be nil to disable the optional
// cross-process usage mirror.
func New(logger logging.Logger, cfg Config, mirror Mirror) *Accountant {
	if cfg.Shards <= 0 {
		cfg.Shards = defaultShardCount
	}
	a := &Accountant{logger: logger, cfg: cfg, mirror: mirror}
	a.shards = make([]*shard, cfg.Shards)
	for i := range a.shards {
		a.shards[i] = &shard{
			limiters: make(map[string]*rate.Limiter),
			usage:    make(map[string]*types.UsageCounter),
		}
	}
	return a
}

func (a *Accountant) shardFor(principalID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(principalID))
	return a.shards[h.Sum32()%uint32(len(a.shards))]
}

// CheckAndConsume reports whether principalID has capacity to send one more
// event under its token bucket, consuming one token if so.
func (a *Accountant) CheckAndConsume(principalID string) bool {
	sh := a.shardFor(principalID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	lim, ok := sh.limiters[principalID]
	if !ok {
		lim = a.newLimiter(a.cfg.Capacity, a.cfg.RefillPerMin)
		sh.limiters[principalID] = lim
	}
	return lim.Allow()
}

// SetTierLimiter overrides the token bucket for principalID to a tier-
// specific capacity/refill rate.
func (a *Accountant) SetTierLimiter(principalID string, capacity, refillPerMin int) {
	sh := a.shardFor(principalID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.limiters[principalID] = a.newLimiter(capacity, refillPerMin)
}

// tierMultiplier scales the Accountant's configured default bucket per
// subscription tier, proportioned off the relative daily-token allowances
// in the tier vocabulary (free:standard:pro:enterprise).
func tierMultiplier(tier types.Tier) int {
	switch tier {
	case types.TierStandard:
		return 2
	case types.TierPro:
		return 4
	case types.TierEnterprise:
		return 20
	default:
		return 1
	}
}

// ApplyTier resizes principalID's token bucket to its subscription tier,
// scaling the Accountant's configured default capacity/refill rate.
func (a *Accountant) ApplyTier(principalID string, tier types.Tier) {
	m := tierMultiplier(tier)
	a.SetTierLimiter(principalID, a.cfg.Capacity*m, a.cfg.RefillPerMin*m)
}

func (a *Accountant) newLimiter(capacity, refillPerMin int) *rate.Limiter {
	perSecond := float64(refillPerMin) / 60.0
	return rate.NewLimiter(rate.Limit(perSecond), capacity)
}

// RecordResponseDone adds the token counts from a completed response into
// the principal's usage ledger.
func (a *Accountant) RecordResponseDone(ctx context.Context, principalID string, input, output, cached int64) {
	a.mutate(ctx, principalID, func(u *types.UsageCounter) {
		u.InputTokens += input
		u.OutputTokens += output
		u.CachedInputTokens += cached
		u.RequestCount++
		u.LastActivity = time.Now()
	})
}

// RecordAudioInput adds audio-input "tokens" (PCM16 20ms ticks) to
// the principal's usage ledger.
func (a *Accountant) RecordAudioInput(ctx context.Context, principalID string, ticks int64) {
	a.mutate(ctx, principalID, func(u *types.UsageCounter) {
		u.AudioInputTokens += ticks
		u.LastActivity = time.Now()
	})
}

// RecordAudioOutput adds audio-output ticks to the principal's usage ledger.
func (a *Accountant) RecordAudioOutput(ctx context.Context, principalID string, ticks int64) {
	a.mutate(ctx, principalID, func(u *types.UsageCounter) {
		u.AudioOutputTokens += ticks
		u.LastActivity = time.Now()
	})
}

// RecordError increments the principal's error counter.
func (a *Accountant) RecordError(ctx context.Context, principalID string) {
	a.mutate(ctx, principalID, func(u *types.UsageCounter) {
		u.ErrorCount++
	})
}

func (a *Accountant) mutate(ctx context.Context, principalID string, f func(*types.UsageCounter)) {
	sh := a.shardFor(principalID)
	sh.mu.Lock()
	u, ok := sh.usage[principalID]
	if !ok {
		u = &types.UsageCounter{}
		sh.usage[principalID] = u
	}
	f(u)
	snapshot := u.Snapshot()
	sh.mu.Unlock()

	if a.mirror != nil {
		if err := a.mirror.PublishUsage(ctx, principalID, snapshot); err != nil {
			a.logger.Warnw("accountant: usage mirror publish failed", "principal", principalID, "error", err)
		}
	}
}

// Snapshot returns a copy of principalID's current usage counters.
func (a *Accountant) Snapshot(principalID string) types.UsageCounter {
	sh := a.shardFor(principalID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	u, ok := sh.usage[principalID]
	if !ok {
		return types.UsageCounter{}
	}
	return u.Snapshot()
}
