package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/alchemorsel/recipe-form/internal/infrastructure/config"
	"github.com/alchemorsel/recipe-form/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DenyFunc writes the response for a rejected request
type DenyFunc func(w http.ResponseWriter, r *http.Request, err *errors.AppError)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client address
type RateLimiter struct {
	enabled        bool
	requestsPerMin int
	limit          rate.Limit
	burst          int
	idle           time.Duration
	logger         *zap.Logger

	mu      sync.Mutex
	clients map[string]*clientLimiter
	now     func() time.Time
}

// NewRateLimiter creates a limiter from the rate limit configuration
func NewRateLimiter(cfg *config.Config, logger *zap.Logger) *RateLimiter {
	burst := cfg.RateLimit.BurstSize
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		enabled:        cfg.RateLimit.Enable,
		requestsPerMin: cfg.RateLimit.RequestsPerMin,
		limit:          rate.Limit(cfg.RateLimit.RequestsPerMin) / 60,
		burst:          burst,
		idle:           10 * time.Minute,
		logger:         logger,
		clients:        make(map[string]*clientLimiter),
		now:            time.Now,
	}
}

// Allow reports whether the client may submit now
func (l *RateLimiter) Allow(client string) bool {
	if !l.enabled {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	c, ok := l.clients[client]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[client] = c
	}
	c.lastSeen = now

	return c.limiter.AllowN(now, 1)
}

// Middleware rejects requests over the limit through deny
func (l *RateLimiter) Middleware(deny DenyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := clientKey(r)
			if !l.Allow(client) {
				l.logger.Debug("Rate limit exceeded", zap.String("client", client))
				w.Header().Set("Retry-After", strconv.Itoa(l.retryAfterSeconds()))
				deny(w, r, errors.NewTooManyRequestsError(l.requestsPerMin))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Cleanup drops limiters of clients idle for longer than the idle window
func (l *RateLimiter) Cleanup() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for key, c := range l.clients {
		if now.Sub(c.lastSeen) > l.idle {
			delete(l.clients, key)
			removed++
		}
	}
	return removed
}

// Run calls Cleanup every interval until stop is closed
func (l *RateLimiter) Run(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if n := l.Cleanup(); n > 0 {
				l.logger.Debug("Cleaned up idle rate limiters", zap.Int("count", n))
			}
		}
	}
}

func (l *RateLimiter) retryAfterSeconds() int {
	if l.limit <= 0 {
		return 60
	}
	secs := int(1/float64(l.limit)) + 1
	if secs > 60 {
		secs = 60
	}
	return secs
}

// clientKey is the remote host; chi's RealIP has already applied proxy headers
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
