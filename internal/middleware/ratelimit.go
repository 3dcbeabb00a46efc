package middleware

import (
	"net/http"
	"sync"

	"golang.org/x/time/rate"

	"github.com/blade-dance/gateway/pkg/logger"
)

// RateLimiter enforces per-subject request limits. The limit comes from the
// credential's tier snapshot (requests per minute), so a reissued credential
// after a tier change picks up new limits while old credentials keep the
// limits they were issued with.
type RateLimiter struct {
	mu          sync.RWMutex
	limiters    map[string]*subjectLimiter
	defaultRPM  int
	log         *logger.Logger
	maxSubjects int
}

type subjectLimiter struct {
	limiter *rate.Limiter
	rpm     int
}

// NewRateLimiter creates the middleware. defaultRPM applies to requests
// with no authenticated identity (keyed by remote address).
func NewRateLimiter(defaultRPM int, log *logger.Logger) *RateLimiter {
	if defaultRPM <= 0 {
		defaultRPM = 60
	}
	if log == nil {
		log = logger.NewDefault("middleware")
	}
	return &RateLimiter{
		limiters:    make(map[string]*subjectLimiter),
		defaultRPM:  defaultRPM,
		log:         log,
		maxSubjects: 10000,
	}
}

func (rl *RateLimiter) limiterFor(key string, rpm int) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Bound the map; dropping limiters only resets counting for affected
	// subjects.
	if len(rl.limiters) > rl.maxSubjects {
		rl.limiters = make(map[string]*subjectLimiter)
	}

	entry, ok := rl.limiters[key]
	if !ok || entry.rpm != rpm {
		entry = &subjectLimiter{
			limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), rpm),
			rpm:     rpm,
		}
		rl.limiters[key] = entry
	}
	return entry.limiter
}

// Handler returns the rate limiting middleware handler.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.RemoteAddr
		rpm := rl.defaultRPM
		if record, ok := IdentityFrom(r.Context()); ok {
			key = record.WalletAddress
			if record.TierDetails.Limits.RequestsPerMinute > 0 {
				rpm = record.TierDetails.Limits.RequestsPerMinute
			}
		}

		if !rl.limiterFor(key, rpm).Allow() {
			rl.log.WithField("key", key).
				WithField("path", r.URL.Path).
				Warn("rate limit exceeded")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate limit exceeded"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}
