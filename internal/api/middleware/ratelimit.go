package middleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/Togather-Foundation/ewm/internal/config"
	"golang.org/x/time/rate"
)

// RateLimitTier selects the budget a route group draws from.
type RateLimitTier string

const (
	TierPublic RateLimitTier = "public"
	TierAdmin  RateLimitTier = "admin"
)

const (
	idleClientTTL = 15 * time.Minute
	sweepInterval = 5 * time.Minute
)

type rateLimitTierKey struct{}

func WithRateLimitTier(ctx context.Context, tier RateLimitTier) context.Context {
	return context.WithValue(ctx, rateLimitTierKey{}, tier)
}

func rateLimitTier(ctx context.Context) RateLimitTier {
	if tier, ok := ctx.Value(rateLimitTierKey{}).(RateLimitTier); ok {
		return tier
	}
	return TierPublic
}

// WithRateLimitTierHandler tags every request of a route group with tier.
// It must run before RateLimiter.Handler.
func WithRateLimitTierHandler(tier RateLimitTier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(WithRateLimitTier(r.Context(), tier)))
		})
	}
}

// RateLimiter keeps one token bucket per client address and tier. A tier
// with a zero budget is unlimited.
type RateLimiter struct {
	tiers map[RateLimitTier]*clientBuckets
	done  chan struct{}
	once  sync.Once
}

func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	l := &RateLimiter{
		tiers: map[RateLimitTier]*clientBuckets{
			TierPublic: newClientBuckets(cfg.PublicPerMinute),
			TierAdmin:  newClientBuckets(cfg.AdminPerMinute),
		},
		done: make(chan struct{}),
	}
	go l.sweepLoop()
	return l
}

// Stop ends the background sweep of idle clients.
func (l *RateLimiter) Stop() {
	l.once.Do(func() { close(l.done) })
}

func (l *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buckets := l.tiers[rateLimitTier(r.Context())]
		if isOpsPath(r.URL.Path) || buckets == nil || buckets.unlimited() {
			next.ServeHTTP(w, r)
			return
		}

		if wait := buckets.take(clientKey(r)); wait > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (l *RateLimiter) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			for _, buckets := range l.tiers {
				buckets.sweep()
			}
		}
	}
}

type clientBuckets struct {
	perMinute int
	now       func() time.Time

	mu      sync.Mutex
	clients map[string]*clientBucket
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newClientBuckets(perMinute int) *clientBuckets {
	return &clientBuckets{
		perMinute: perMinute,
		now:       time.Now,
		clients:   make(map[string]*clientBucket),
	}
}

func (b *clientBuckets) unlimited() bool {
	return b.perMinute <= 0
}

// take spends one token for key. When none is left it returns how long the
// caller has to wait for the next one and spends nothing.
func (b *clientBuckets) take(key string) time.Duration {
	b.mu.Lock()
	now := b.now()
	bucket, ok := b.clients[key]
	if !ok {
		every := rate.Every(time.Minute / time.Duration(b.perMinute))
		bucket = &clientBucket{limiter: rate.NewLimiter(every, b.perMinute)}
		b.clients[key] = bucket
	}
	bucket.lastSeen = now
	b.mu.Unlock()

	reservation := bucket.limiter.ReserveN(now, 1)
	wait := reservation.DelayFrom(now)
	if wait > 0 {
		reservation.CancelAt(now)
	}
	return wait
}

// sweep forgets clients idle for longer than idleClientTTL.
func (b *clientBuckets) sweep() {
	b.mu.Lock()
	defer b.mu.Unlock()

	cutoff := b.now().Add(-idleClientTTL)
	for key, bucket := range b.clients {
		if bucket.lastSeen.Before(cutoff) {
			delete(b.clients, key)
		}
	}
}

// clientKey identifies the caller by address. Forwarded headers are resolved
// upstream by chi's RealIP middleware.
func clientKey(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
