package udp

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// AddrLimiterConfig configures the per-source-address packet limiter.
type AddrLimiterConfig struct {
	PacketsPerSecond float64       // Sustained packets allowed per address
	Burst            int           // Maximum burst size
	CleanupInterval  time.Duration // How often stale limiters are dropped
}

// DefaultAddrLimiterConfig returns production-safe defaults.
var DefaultAddrLimiterConfig = AddrLimiterConfig{
	PacketsPerSecond: 100,
	Burst:            100,
	CleanupInterval:  5 * time.Minute,
}

type addrLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nanos
}

// AddrRateLimiter drops packet floods per source address before parsing, so
// a noisy sender cannot fill any lobby's command queue.
type AddrRateLimiter struct {
	limiters sync.Map // map[string]*addrLimiterEntry, keyed by addr.String()
	config   AddrLimiterConfig
	stopChan chan struct{}
	stopOnce sync.Once

	allowedCount  atomic.Uint64
	rejectedCount atomic.Uint64
}

// NewAddrRateLimiter creates a limiter and starts its cleanup goroutine.
func NewAddrRateLimiter(cfg AddrLimiterConfig) *AddrRateLimiter {
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultAddrLimiterConfig.CleanupInterval
	}
	rl := &AddrRateLimiter{
		config:   cfg,
		stopChan: make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Stop stops the cleanup goroutine.
func (rl *AddrRateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopChan)
	})
}

// Allow reports whether a packet from the given address should be admitted.
func (rl *AddrRateLimiter) Allow(addr string) bool {
	entry := rl.entry(addr)
	entry.lastSeen.Store(time.Now().UnixNano())

	if entry.limiter.Allow() {
		rl.allowedCount.Add(1)
		return true
	}
	rl.rejectedCount.Add(1)
	return false
}

func (rl *AddrRateLimiter) entry(addr string) *addrLimiterEntry {
	if v, ok := rl.limiters.Load(addr); ok {
		return v.(*addrLimiterEntry)
	}
	entry := &addrLimiterEntry{
		limiter: rate.NewLimiter(rate.Limit(rl.config.PacketsPerSecond), rl.config.Burst),
	}
	actual, _ := rl.limiters.LoadOrStore(addr, entry)
	return actual.(*addrLimiterEntry)
}

func (rl *AddrRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopChan:
			return
		case <-ticker.C:
			rl.cleanup()
		}
	}
}

// cleanup drops limiters for addresses that went quiet, bounding memory under
// source-address churn.
func (rl *AddrRateLimiter) cleanup() {
	cutoff := time.Now().Add(-rl.config.CleanupInterval * 2).UnixNano()

	rl.limiters.Range(func(key, value any) bool {
		entry := value.(*addrLimiterEntry)
		if entry.lastSeen.Load() < cutoff {
			rl.limiters.Delete(key)
		}
		return true
	})
}

// Stats returns the admitted/rejected counters.
func (rl *AddrRateLimiter) Stats() (allowed, rejected uint64) {
	return rl.allowedCount.Load(), rl.rejectedCount.Load()
}
