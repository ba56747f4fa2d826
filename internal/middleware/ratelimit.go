// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimiter throttles expensive admin endpoints such as template
// previews. Each client may make limit requests per sliding window.
// Clients are the forwarded actor when one is present, else the IP.
type RateLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu   sync.Mutex
	hits map[string][]time.Time // oldest first

	stop     chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter creates a limiter and starts its sweeper, which drops idle
// clients once per window (at least every minute).
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		limit:  limit,
		window: window,
		now:    time.Now,
		hits:   make(map[string][]time.Time),
		stop:   make(chan struct{}),
	}
	go rl.sweepLoop(min(window, time.Minute))
	return rl
}

// Stop ends the sweeper. It is safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) sweepLoop(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			rl.sweep()
		case <-rl.stop:
			return
		}
	}
}

// take records a request for client. It reports how many requests remain
// in the window or, when the client is over the limit, how long until the
// oldest request expires.
func (rl *RateLimiter) take(client string) (ok bool, remaining int, retry time.Duration) {
	now := rl.now()
	cutoff := now.Add(-rl.window)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	hits := dropBefore(rl.hits[client], cutoff)
	if len(hits) >= rl.limit {
		rl.hits[client] = hits
		return false, 0, hits[0].Sub(cutoff)
	}
	hits = append(hits, now)
	rl.hits[client] = hits
	return true, rl.limit - len(hits), 0
}

// sweep forgets clients without requests in the current window.
func (rl *RateLimiter) sweep() {
	cutoff := rl.now().Add(-rl.window)

	rl.mu.Lock()
	defer rl.mu.Unlock()
	for client, hits := range rl.hits {
		if hits = dropBefore(hits, cutoff); len(hits) == 0 {
			delete(rl.hits, client)
		} else {
			rl.hits[client] = hits
		}
	}
}

func dropBefore(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	return hits[i:]
}

// Middleware rejects requests over the limit with 429 and a JSON error
// body, and reports the remaining budget on every response.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, remaining, retry := rl.take(clientKey(r))
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !ok {
			secs := max(int(math.Ceil(retry.Seconds())), 1)
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"too many requests"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	if actor := ActorFromCtx(r.Context()); actor != nil {
		return "actor:" + actor.String()
	}
	return "ip:" + clientIP(r)
}

// clientIP returns the original client address: the leftmost
// X-Forwarded-For entry, then X-Real-IP, then the connection address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
