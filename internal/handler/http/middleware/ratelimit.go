package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cmlabs-hris/taskflow-backend-go/internal/handler/http/response"
	"golang.org/x/time/rate"
)

// KeyFunc picks the bucket a request is counted against. An empty key skips limiting.
type KeyFunc func(r *http.Request) string

// ClientIP returns the host of RemoteAddr. Forwarding headers are only honoured
// when chi's RealIP middleware has rewritten RemoteAddr from them.
func ClientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// maxKeyBody bounds how much of a JSON body JSONFieldKey buffers.
const maxKeyBody = 64 << 10

// JSONFieldKey keys on a string field of a JSON request body, lower-cased and
// trimmed. The body is restored for the handler.
func JSONFieldKey(field string) KeyFunc {
	return func(r *http.Request) string {
		if r.Body == nil {
			return ""
		}
		head, err := io.ReadAll(io.LimitReader(r.Body, maxKeyBody))
		r.Body = struct {
			io.Reader
			io.Closer
		}{io.MultiReader(bytes.NewReader(head), r.Body), r.Body}
		if err != nil {
			return ""
		}

		var fields map[string]any
		if err := json.Unmarshal(head, &fields); err != nil {
			return ""
		}
		value, _ := fields[field].(string)
		value = strings.ToLower(strings.TrimSpace(value))
		if value == "" {
			return ""
		}
		return field + ":" + value
	}
}

type keyLimiter struct {
	limiters    sync.Map // map[string]*rate.Limiter
	rate        rate.Limit
	burst       int
	mu          sync.Mutex
	lastCleanup time.Time
}

func (l *keyLimiter) get(key string) *rate.Limiter {
	if limiter, ok := l.limiters.Load(key); ok {
		return limiter.(*rate.Limiter)
	}
	actual, _ := l.limiters.LoadOrStore(key, rate.NewLimiter(l.rate, l.burst))
	l.maybeCleanup()
	return actual.(*rate.Limiter)
}

// maybeCleanup drops limiters whose bucket has refilled, at most every five minutes.
func (l *keyLimiter) maybeCleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if time.Since(l.lastCleanup) < 5*time.Minute {
		return
	}
	l.lastCleanup = time.Now()
	l.limiters.Range(func(key, value any) bool {
		if value.(*rate.Limiter).Tokens() >= float64(l.burst) {
			l.limiters.Delete(key)
		}
		return true
	})
}

// RateLimitByIP limits each client IP to requestsPerMinute with the given burst.
func RateLimitByIP(requestsPerMinute, burst int) func(http.Handler) http.Handler {
	return RateLimit(requestsPerMinute, burst, ClientIP)
}

// RateLimit limits each key returned by keyFn to requestsPerMinute with the given burst.
func RateLimit(requestsPerMinute, burst int, keyFn KeyFunc) func(http.Handler) http.Handler {
	l := &keyLimiter{
		rate:        rate.Limit(float64(requestsPerMinute) / time.Minute.Seconds()),
		burst:       burst,
		lastCleanup: time.Now(),
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFn(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			limiter := l.get(key)
			if !limiter.Allow() {
				reservation := limiter.Reserve()
				delay := reservation.Delay()
				reservation.Cancel()

				w.Header().Set("Retry-After", fmt.Sprintf("%d", max(int(delay.Seconds()), 1)))
				slog.WarnContext(r.Context(), "rate limit exceeded", "ip", ClientIP(r), "path", r.URL.Path)
				response.TooManyRequests(w, "Too many requests. Please try again later.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
