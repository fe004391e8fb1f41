// Package ratelimit implements in-process sliding-window admission control.
// Requests are tracked in two independent buckets, one keyed by client IP
// and one by bearer token, each holding the timestamps of requests inside
// the trailing window. State is process-local; replicas do not coordinate.
package ratelimit

import (
	"sync"
	"time"
)

// sweepEvery is the number of accepted admission checks between full purges
// of both maps. Per-key pruning happens lazily on every check; the sweep
// bounds memory held by keys that stopped sending traffic.
const sweepEvery = 100

type Config struct {
	// AnonLimit caps requests per window for a client IP without a token.
	AnonLimit int
	// AuthLimit caps requests per window for a bearer token.
	AuthLimit int
	// Window is the trailing interval requests are counted over.
	Window time.Duration
	// CountAuthAgainstIP also charges authenticated requests to the IP
	// bucket, so a burst of tokens behind one address still drains it.
	CountAuthAgainstIP bool
}

// Decision is the admission outcome plus the header metadata every
// rate-limited response carries.
type Decision struct {
	Limited   bool
	Limit     int
	Remaining int
	// Reset is the unix timestamp at which the governing window frees up.
	Reset int64
}

// Limiter is safe for concurrent use. The purge-compare-append sequence for
// a request runs under one lock, so admission can never exceed the limit
// through interleaving.
type Limiter struct {
	mu           sync.Mutex
	ipBucket     map[string][]time.Time
	tokenBucket  map[string][]time.Time
	sweepCounter int
	cfg          Config

	now func() time.Time // overridable in tests
}

func New(cfg Config) *Limiter {
	return &Limiter{
		ipBucket:    make(map[string][]time.Time),
		tokenBucket: make(map[string][]time.Time),
		cfg:         cfg,
		now:         time.Now,
	}
}

// Allow runs one admission check for a request from ip carrying an optional
// bearer token (empty string for anonymous). Rejection is terminal: no
// queueing, no delay.
func (l *Limiter) Allow(ip, token string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.cfg.Window)

	l.sweepCounter++
	if l.sweepCounter > sweepEvery {
		l.sweep(cutoff)
		l.sweepCounter = 0
	}

	ipRequests := prune(l.ipBucket[ip], cutoff)
	l.ipBucket[ip] = ipRequests

	var tokenRequests []time.Time
	if token != "" {
		tokenRequests = prune(l.tokenBucket[token], cutoff)
		l.tokenBucket[token] = tokenRequests
	}

	var (
		limit     int
		governing []time.Time
	)
	if token != "" {
		limit = l.cfg.AuthLimit
		governing = tokenRequests
	} else {
		limit = l.cfg.AnonLimit
		governing = ipRequests
	}

	if len(governing) >= limit {
		return Decision{
			Limited:   true,
			Limit:     limit,
			Remaining: 0,
			Reset:     resetAt(governing, now, l.cfg.Window),
		}
	}

	remaining := limit - len(governing) - 1
	if remaining < 0 {
		remaining = 0
	}

	if token != "" {
		l.tokenBucket[token] = append(tokenRequests, now)
		if l.cfg.CountAuthAgainstIP {
			l.ipBucket[ip] = append(ipRequests, now)
		}
	} else {
		l.ipBucket[ip] = append(ipRequests, now)
	}

	return Decision{
		Limited:   false,
		Limit:     limit,
		Remaining: remaining,
		Reset:     resetAt(l.governingBucket(ip, token), now, l.cfg.Window),
	}
}

func (l *Limiter) governingBucket(ip, token string) []time.Time {
	if token != "" {
		return l.tokenBucket[token]
	}
	return l.ipBucket[ip]
}

// sweep drops expired timestamps for every key in both maps and deletes
// keys whose windows emptied out entirely.
func (l *Limiter) sweep(cutoff time.Time) {
	for _, bucket := range []map[string][]time.Time{l.ipBucket, l.tokenBucket} {
		for key, timestamps := range bucket {
			surviving := prune(timestamps, cutoff)
			if len(surviving) == 0 {
				delete(bucket, key)
				continue
			}
			bucket[key] = surviving
		}
	}
}

func prune(timestamps []time.Time, cutoff time.Time) []time.Time {
	// Timestamps are appended in order, so find the first survivor and
	// reslice instead of filtering one by one.
	for i, ts := range timestamps {
		if ts.After(cutoff) {
			return timestamps[i:]
		}
	}
	return nil
}

// resetAt reports when the governing window frees its oldest slot; with an
// empty bucket the window is all headroom and resets a full window from now.
func resetAt(governing []time.Time, now time.Time, window time.Duration) int64 {
	if len(governing) == 0 {
		return now.Add(window).Unix()
	}
	return governing[0].Add(window).Unix()
}
