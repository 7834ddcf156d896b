// Package pool implements the Session Pool: a bounded, fingerprint-keyed
// free list of reusable Upstream Sessions.
package pool

import (
	"context"
	"fmt"
	"sync"

	"github.com/rapidaai/relay/internal/logging"
	"github.com/rapidaai/relay/internal/minter"
	"github.com/rapidaai/relay/internal/types"
	"github.com/rapidaai/relay/internal/upstream"
)

// Pool hands out Upstream Sessions keyed by session-config fingerprint,
// bounded by a total capacity shared across all fingerprints.
type Pool struct {
	logger logging.Logger
	minter minter.Minter

	wsURL           string
	protocolVersion string
	capacity        int

	mu       sync.Mutex
	free     map[string][]*upstream.Session // fingerprint -> idle healthy sessions
	inUse    int
	waiters  []chan struct{}
}

// New builds a Pool bounded at capacity concurrently open sessions.
func New(logger logging.Logger, m minter.Minter, wsURL, protocolVersion string, capacity int) *Pool {
	return &Pool{
		logger:          logger,
		minter:          m,
		wsURL:           wsURL,
		protocolVersion: protocolVersion,
		capacity:        capacity,
		free:            make(map[string][]*upstream.Session),
	}
}

// Acquire returns a Healthy session matching cfg's fingerprint if one is
// idle, otherwise mints a credential and opens a new one, up to the pool's
// capacity. Beyond capacity, Acquire blocks until a session is released or
// ctx is cancelled.
func (p *Pool) Acquire(ctx context.Context, cfg types.SessionConfig) (*upstream.Session, error) {
	fp := cfg.Fingerprint()

	for {
		p.mu.Lock()
		if sessions := p.free[fp]; len(sessions) > 0 {
			sess := sessions[len(sessions)-1]
			p.free[fp] = sessions[:len(sessions)-1]
			if sess.State() == upstream.Healthy {
				p.inUse++
				p.mu.Unlock()
				return sess, nil
			}
			// Stale/unhealthy idle session: drop it and keep looking.
			_ = sess.Close()
			p.mu.Unlock()
			continue
		}

		if p.inUse < p.capacity {
			p.inUse++
			p.mu.Unlock()

			sess, err := p.open(ctx, cfg, fp)
			if err != nil {
				p.mu.Lock()
				p.inUse--
				p.wakeOne()
				p.mu.Unlock()
				return nil, err
			}
			return sess, nil
		}

		wait := make(chan struct{})
		p.waiters = append(p.waiters, wait)
		p.mu.Unlock()

		select {
		case <-wait:
			continue
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (p *Pool) open(ctx context.Context, cfg types.SessionConfig, fingerprint string) (*upstream.Session, error) {
	cred, err := p.minter.Mint(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pool: mint: %w", err)
	}

	sess, err := upstream.New(ctx, p.logger, upstream.Options{
		WebSocketURL:    p.wsURL,
		ProtocolVersion: p.protocolVersion,
		Credential:      cred,
		SessionConfig:   cfg,
		Fingerprint:     fingerprint,
	})
	if err != nil {
		return nil, fmt.Errorf("pool: open upstream session: %w", err)
	}
	return sess, nil
}

// Release returns a Healthy session to the pool's free list for its
// fingerprint; an Unhealthy or Closed session is closed instead.
func (p *Pool) Release(sess *upstream.Session) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.inUse--
	if sess.State() == upstream.Healthy {
		p.free[sess.Fingerprint()] = append(p.free[sess.Fingerprint()], sess)
	} else {
		_ = sess.Close()
	}
	p.wakeOne()
}

// wakeOne notifies a single blocked Acquire call, if any. Must be called
// with p.mu held.
func (p *Pool) wakeOne() {
	if len(p.waiters) == 0 {
		return
	}
	w := p.waiters[0]
	p.waiters = p.waiters[1:]
	close(w)
}

// Stats reports pool occupancy for the /health and /metrics surfaces.
type Stats struct {
	Capacity int
	InUse    int
	Idle     int
	Waiting  int
}

// Stats returns a snapshot of pool occupancy.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	idle := 0
	for _, sessions := range p.free {
		idle += len(sessions)
	}
	return Stats{
		Capacity: p.capacity,
		InUse:    p.inUse,
		Idle:     idle,
		Waiting:  len(p.waiters),
	}
}
