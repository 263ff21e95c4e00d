// Package ratelimit provides per-client, per-endpoint request limiting on
// top of token buckets from golang.org/x/time/rate.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// bucketIdleTTL is how long an unused bucket is kept.
const bucketIdleTTL = time.Hour

// TokenBucket is one client's allowance for one endpoint.
type TokenBucket struct {
	limiter  *rate.Limiter
	capacity int
	mu       sync.Mutex
	lastSeen time.Time
}

// newTokenBucket creates a full bucket refilling at refillRate tokens per second.
func newTokenBucket(capacity int, refillRate float64) *TokenBucket {
	return &TokenBucket{
		limiter:  rate.NewLimiter(rate.Limit(refillRate), capacity),
		capacity: capacity,
		lastSeen: time.Now(),
	}
}

// allow consumes a token if one is available.
func (tb *TokenBucket) allow() bool {
	tb.touch()
	return tb.limiter.Allow()
}

// getStatus returns the whole tokens left and when the bucket will be full.
func (tb *TokenBucket) getStatus() (remaining int, resetTime time.Time) {
	now := time.Now()
	tokens := tb.limiter.TokensAt(now)
	if tokens < 0 {
		tokens = 0
	}
	remaining = int(tokens)

	resetTime = now
	if missing := float64(tb.capacity) - tokens; missing > 0 && tb.limiter.Limit() > 0 {
		secondsUntilFull := missing / float64(tb.limiter.Limit())
		resetTime = now.Add(time.Duration(secondsUntilFull * float64(time.Second)))
	}
	return remaining, resetTime
}

// retryAfter returns how long until the next token is available.
func (tb *TokenBucket) retryAfter() time.Duration {
	tokens := tb.limiter.TokensAt(time.Now())
	if tokens >= 1 || tb.limiter.Limit() <= 0 {
		return 0
	}
	seconds := (1 - tokens) / float64(tb.limiter.Limit())
	return time.Duration(seconds * float64(time.Second))
}

func (tb *TokenBucket) touch() {
	tb.mu.Lock()
	tb.lastSeen = time.Now()
	tb.mu.Unlock()
}

func (tb *TokenBucket) idleSince(cutoff time.Time) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.lastSeen.Before(cutoff)
}

// Info contains information about rate limit status.
type Info struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

// Limiter manages rate limiting for multiple clients.
type Limiter struct {
	buckets       map[string]*TokenBucket // client:endpoint:method -> bucket
	mu            sync.RWMutex
	config        *Config
	cleanupTicker *time.Ticker
	cleanupStop   chan struct{}
	stopOnce      sync.Once
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	Whitelist       map[string]bool
	Blacklist       map[string]bool
	EndpointConfigs []EndpointConfig
}

// NewLimiter creates a new rate limiter with the given configuration.
func NewLimiter(config *Config) *Limiter {
	if config == nil {
		config = &Config{
			Enabled:         true,
			DefaultLimit:    1000,
			DefaultWindow:   time.Minute,
			CleanupInterval: 5 * time.Minute,
			Whitelist:       make(map[string]bool),
			Blacklist:       make(map[string]bool),
		}
	}

	limiter := &Limiter{
		buckets: make(map[string]*TokenBucket),
		config:  config,
	}

	// Start cleanup goroutine if enabled
	if config.Enabled && config.CleanupInterval > 0 {
		limiter.cleanupTicker = time.NewTicker(config.CleanupInterval)
		limiter.cleanupStop = make(chan struct{})
		go limiter.cleanup()
	}

	return limiter
}

// Allow checks if a request from the given client is allowed for the specified endpoint.
// Returns true if allowed, false if rate limited, along with rate limit information.
func (l *Limiter) Allow(clientID string, endpoint string, method string) (bool, Info) {
	if !l.config.Enabled || l.config.Whitelist[clientID] {
		return true, Info{Allowed: true}
	}
	if l.config.Blacklist[clientID] {
		return false, Info{Allowed: false}
	}

	// Find matching endpoint configuration
	endpointConfig := MatchEndpoint(endpoint, method, l.config.EndpointConfigs)
	bucketPath := endpoint
	if endpointConfig == nil {
		endpointConfig = &EndpointConfig{
			Limit:  l.config.DefaultLimit,
			Window: l.config.DefaultWindow,
			Burst:  l.config.DefaultLimit,
		}
	} else if endpointConfig.Path != "" {
		// Every CV shares one allowance per pattern
		bucketPath = endpointConfig.Path
	}

	// Unlimited endpoint (e.g., health check)
	if endpointConfig.Limit <= 0 {
		return true, Info{Allowed: true}
	}

	bucketKey := clientID + ":" + bucketPath + ":" + method
	bucket := l.getBucket(bucketKey, endpointConfig.Limit, endpointConfig.Window, endpointConfig.Burst)

	allowed := bucket.allow()
	remaining, resetTime := bucket.getStatus()

	var retryAfter time.Duration
	if !allowed {
		retryAfter = bucket.retryAfter()
		if retryAfter <= 0 {
			retryAfter = time.Until(resetTime)
		}
	}

	return allowed, Info{
		Allowed:    allowed,
		Limit:      endpointConfig.Limit,
		Remaining:  remaining,
		ResetTime:  resetTime,
		RetryAfter: retryAfter,
	}
}

// getBucket gets or creates a token bucket for the given key.
func (l *Limiter) getBucket(key string, limit int, window time.Duration, burst int) *TokenBucket {
	l.mu.RLock()
	bucket, exists := l.buckets[key]
	l.mu.RUnlock()

	if exists {
		return bucket
	}

	if window <= 0 {
		window = time.Minute
	}
	// Refill rate = limit / window duration in seconds
	refillRate := float64(limit) / window.Seconds()
	capacity := burst
	if capacity <= 0 {
		capacity = limit
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	// Double-check after acquiring write lock
	if existing, exists := l.buckets[key]; exists {
		return existing
	}
	bucket = newTokenBucket(capacity, refillRate)
	l.buckets[key] = bucket
	return bucket
}

// cleanup removes old unused buckets to prevent memory leaks.
func (l *Limiter) cleanup() {
	for {
		select {
		case <-l.cleanupTicker.C:
			l.cleanupBuckets(time.Now().Add(-bucketIdleTTL))
		case <-l.cleanupStop:
			return
		}
	}
}

// cleanupBuckets removes buckets not used since cutoff.
func (l *Limiter) cleanupBuckets(cutoff time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, bucket := range l.buckets {
		if bucket.idleSince(cutoff) {
			delete(l.buckets, key)
		}
	}
}

// bucketCount returns the number of live buckets.
func (l *Limiter) bucketCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.buckets)
}

// Stop stops the cleanup goroutine. Calling it more than once is safe.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() {
		if l.cleanupTicker != nil {
			l.cleanupTicker.Stop()
		}
		if l.cleanupStop != nil {
			close(l.cleanupStop)
		}
	})
}
