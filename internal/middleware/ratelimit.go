package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type RateLimitOptions struct {
	// RequestsPerSecond <= 0 desactiva el límite.
	RequestsPerSecond float64
	Burst             int
	// IdleTTL: tras este tiempo sin requests el limiter de una clave se descarta.
	IdleTTL time.Duration
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type limiterSet struct {
	mu       sync.Mutex
	opts     RateLimitOptions
	visitors map[string]*visitor
	lastGC   time.Time
}

func (s *limiterSet) get(key string, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.lastGC) > s.opts.IdleTTL {
		for k, v := range s.visitors {
			if now.Sub(v.lastSeen) > s.opts.IdleTTL {
				delete(s.visitors, k)
			}
		}
		s.lastGC = now
	}

	v, ok := s.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Limit(s.opts.RequestsPerSecond), s.opts.Burst)}
		s.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter
}

// RateLimit limita por usuario autenticado, o por IP si no hay claims.
// Debe ir después de AuthContext y de chimw.RealIP.
func RateLimit(opts RateLimitOptions) func(http.Handler) http.Handler {
	if opts.RequestsPerSecond <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if opts.Burst <= 0 {
		opts.Burst = int(opts.RequestsPerSecond) + 1
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = 10 * time.Minute
	}
	set := &limiterSet{opts: opts, visitors: make(map[string]*visitor)}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			now := time.Now()
			lim := set.get(rateKey(r), now)

			res := lim.ReserveN(now, 1)
			if delay := res.DelayFrom(now); delay > 0 {
				res.CancelAt(now)
				w.Header().Set("Retry-After", strconv.Itoa(int(delay.Seconds())+1))
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func rateKey(r *http.Request) string {
	if c, ok := GetClaims(r.Context()); ok {
		return "user:" + c.UserID
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}
	return "ip:" + ip
}
