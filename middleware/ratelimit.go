package middleware

import (
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

// ScoreRateLimiter caps score submissions per authenticated user. A judge
// tapping through a rubric is bursty; the burst allowance covers that
// while the sustained rate stays low.
type ScoreRateLimiter struct {
	mu       sync.Mutex
	limiters map[int]*rate.Limiter
	rate     rate.Limit
	burst    int
}

func NewScoreRateLimiter(perSecond float64, burst int) *ScoreRateLimiter {
	return &ScoreRateLimiter{
		limiters: make(map[int]*rate.Limiter),
		rate:     rate.Limit(perSecond),
		burst:    burst,
	}
}

func (l *ScoreRateLimiter) limiterFor(userID int) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	limiter, ok := l.limiters[userID]
	if !ok {
		limiter = rate.NewLimiter(l.rate, l.burst)
		l.limiters[userID] = limiter
	}
	return limiter
}

func (l *ScoreRateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := GetUserIDFromContext(r.Context())
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if !l.limiterFor(userID).Allow() {
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
