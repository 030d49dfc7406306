package server

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// maxTrackedClients bounds the limiter map. When it is full, idle entries are
// pruned and, failing that, the least recently seen client is evicted.
const (
	maxTrackedClients = 4096
	clientIdleTTL     = 10 * time.Minute
)

// RateLimiter keeps one token bucket per client.
type RateLimiter struct {
	mu sync.Mutex

	limit   rate.Limit
	burst   int
	clients map[string]*clientLimiter
	now     func() time.Time
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a limiter allowing requestsPerSecond with the given
// burst per client.
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limit:   rate.Limit(requestsPerSecond),
		burst:   burst,
		clients: make(map[string]*clientLimiter),
		now:     time.Now,
	}
}

// Allow consumes one token for clientID or returns a *RateLimitError.
func (rl *RateLimiter) Allow(clientID string) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	c, ok := rl.clients[clientID]
	if !ok {
		if len(rl.clients) >= maxTrackedClients {
			rl.prune(now)
		}
		if len(rl.clients) >= maxTrackedClients {
			rl.evictOldest()
		}
		c = &clientLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[clientID] = c
	}
	c.lastSeen = now

	res := c.limiter.ReserveN(now, 1)
	if !res.OK() {
		return &RateLimitError{Limit: float64(rl.limit), RetryAfter: time.Second}
	}
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return &RateLimitError{Limit: float64(rl.limit), RetryAfter: delay}
	}
	return nil
}

// Clients returns the number of tracked clients.
func (rl *RateLimiter) Clients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

func (rl *RateLimiter) prune(now time.Time) {
	for id, c := range rl.clients {
		if now.Sub(c.lastSeen) > clientIdleTTL {
			delete(rl.clients, id)
		}
	}
}

func (rl *RateLimiter) evictOldest() {
	var (
		oldestID string
		oldest   time.Time
		found    bool
	)
	for id, c := range rl.clients {
		if !found || c.lastSeen.Before(oldest) {
			oldestID, oldest, found = id, c.lastSeen, true
		}
	}
	if found {
		delete(rl.clients, oldestID)
	}
}

// RateLimitError represents a rate limit violation.
type RateLimitError struct {
	Limit      float64       // requests per second
	RetryAfter time.Duration // how long to wait before retrying
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded (limit: %g/s, retry after: %v)", e.Limit, e.RetryAfter)
}
