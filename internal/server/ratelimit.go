package server

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/54b3r/tealab-go/internal/logging"
)

const (
	// defaultRateLimit is the sustained requests per second per client IP.
	defaultRateLimit     = 10
	// defaultRateBurst is the burst allowed per client IP on write routes.
	defaultRateBurst     = 20
	// defaultGenerateBurst is the smaller burst on routes that call the
	// language model, where every request holds a generation slot.
	defaultGenerateBurst = 5
)

// Route classes. Each class keeps its own bucket per client IP, so a burst
// of ingestion does not use up a client's generation allowance.
const (
	classGenerate = "generate"
	classIngest   = "ingest"
)

const (
	evictEvery = time.Minute
	idleTTL    = 5 * time.Minute
)

type bucketKey struct {
	class string
	ip    string
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter hands out token buckets keyed by route class and client IP.
// Buckets idle for idleTTL are swept by a background goroutine.
type rateLimiter struct {
	mu      sync.Mutex
	buckets map[bucketKey]*bucket
	rps     rate.Limit
	log     *slog.Logger

	// onReject is called with the route class of every rejected request.
	onReject func(class string)
}

// newRateLimiter starts a limiter refilling at rps per bucket. The returned
// function stops the eviction goroutine.
func newRateLimiter(rps float64, log *slog.Logger, onReject func(class string)) (*rateLimiter, func()) {
	if onReject == nil {
		onReject = func(string) {}
	}
	rl := &rateLimiter{
		buckets:  make(map[bucketKey]*bucket),
		rps:      rate.Limit(rps),
		log:      log,
		onReject: onReject,
	}

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(evictEvery)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case now := <-ticker.C:
				rl.evict(now.Add(-idleTTL))
			}
		}
	}()
	return rl, func() { close(done) }
}

// allow takes a token from the bucket of (class, ip), creating it with the
// given burst on first use.
func (rl *rateLimiter) allow(class, ip string, burst int) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	k := bucketKey{class: class, ip: ip}
	b, ok := rl.buckets[k]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rl.rps, burst)}
		rl.buckets[k] = b
	}
	b.lastSeen = time.Now()
	return b.limiter.Allow()
}

// evict drops buckets last seen before cutoff.
func (rl *rateLimiter) evict(cutoff time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for k, b := range rl.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(rl.buckets, k)
		}
	}
}

// limit wraps next with the bucket of the given class. Rejected requests
// get 429 with Retry-After and a JSON error body.
func (rl *rateLimiter) limit(class string, burst int, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if rl.allow(class, ip, burst) {
			next.ServeHTTP(w, r)
			return
		}

		rl.onReject(class)
		logging.FromContext(r.Context()).Warn("rate limit exceeded",
			slog.String("ip", ip),
			slog.String("class", class),
			slog.String("path", r.URL.Path),
		)
		w.Header().Set("Retry-After", "1")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(errorResponse{Error: "rate limit exceeded"})
	})
}

// clientIP is the request's remote address without its port. Proxy headers
// are not trusted.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
