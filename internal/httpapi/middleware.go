package httpapi

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"ai-meal-coach/internal/apperror"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Logger logs one line per request.
func Logger(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info("api request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", chimiddleware.GetReqID(r.Context())),
			)
		})
	}
}

// UserRateLimiter keeps one token bucket per user.
type UserRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewUserRateLimiter allows perMinute requests per user per minute, all of
// which may arrive at once.
func NewUserRateLimiter(perMinute int) *UserRateLimiter {
	if perMinute < 1 {
		perMinute = 1
	}
	return &UserRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
	}
}

func (l *UserRateLimiter) limiter(userID string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[userID]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[userID] = lim
	}
	return lim
}

// Allow reports whether userID may make another request now.
func (l *UserRateLimiter) Allow(userID string) bool {
	return l.limiter(userID).Allow()
}

// Middleware rejects requests over the limit with 429. It must run after Authenticate.
func (l *UserRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(UserID(r.Context())) {
			retryAfter := int(time.Duration(float64(time.Second) / float64(l.limit)).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			writeJSON(w, http.StatusTooManyRequests, envelope{
				Code:      string(apperror.CodeTooManyRequests),
				Message:   "too many generation requests, slow down",
				Retryable: true,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
