// Package retry bounds connection attempts per wallet identity.
package retry

import (
	"sync"
	"time"
)

// DefaultMaxAttempts is the hard ceiling on connection attempts per wallet.
// Wallet rejections are typically user-driven (a dismissed popup), not
// transient network errors, so there is no backoff — only a cap.
const DefaultMaxAttempts = 3

// Record tracks attempts for one wallet id.
type Record struct {
	WalletID      string
	Attempts      int
	LastAttemptAt time.Time
}

// Policy is a per-identity bounded attempt counter. It computes no delays;
// pacing belongs to the caller.
type Policy struct {
	mu      sync.Mutex
	max     int
	records map[string]*Record
	now     func() time.Time
}

// New creates a policy with the given cap; maxAttempts <= 0 uses the default.
func New(maxAttempts int) *Policy {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Policy{
		max:     maxAttempts,
		records: make(map[string]*Record),
		now:     time.Now,
	}
}

// CanAttempt reports whether a new attempt for id may proceed.
func (p *Policy) CanAttempt(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	r, ok := p.records[id]
	return !ok || r.Attempts < p.max
}

// RecordFailure increments the attempt count for id and returns the new
// count. At the cap it is an idempotent no-op returning the cap.
func (p *Policy) RecordFailure(id string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	r, ok := p.records[id]
	if !ok {
		r = &Record{WalletID: id}
		p.records[id] = r
	}
	if r.Attempts < p.max {
		r.Attempts++
	}
	r.LastAttemptAt = p.now()
	return r.Attempts
}

// RecordSuccess resets the counter for id to zero.
func (p *Policy) RecordSuccess(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if r, ok := p.records[id]; ok {
		r.Attempts = 0
	}
}

// Remaining returns how many attempts are left for id.
func (p *Policy) Remaining(id string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	r, ok := p.records[id]
	if !ok {
		return p.max
	}
	return p.max - r.Attempts
}

// Attempts returns the current attempt count for id.
func (p *Policy) Attempts(id string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	r, ok := p.records[id]
	if !ok {
		return 0
	}
	return r.Attempts
}

// Reset clears the record for id entirely (explicit external reset).
func (p *Policy) Reset(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.records, id)
}

// Max returns the configured attempt cap.
func (p *Policy) Max() int {
	return p.max
}
