package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// SessionLimiter caps how many map sessions one IP may open per window.
type SessionLimiter struct {
	mu        sync.Mutex
	windows   map[string]*window
	limit     int
	period    time.Duration
	whitelist map[string]struct{}
	now       func() time.Time
	logger    *slog.Logger
}

type window struct {
	opened  int
	started time.Time
}

func NewSessionLimiter(limit int, period time.Duration, whitelist []string, logger *slog.Logger) *SessionLimiter {
	wl := make(map[string]struct{}, len(whitelist))
	for _, ip := range whitelist {
		ip = strings.TrimSpace(ip)
		if ip != "" {
			wl[ip] = struct{}{}
		}
	}

	return &SessionLimiter{
		windows:   make(map[string]*window),
		limit:     limit,
		period:    period,
		whitelist: wl,
		now:       time.Now,
		logger:    logger.With("component", "session_limiter"),
	}
}

// Run drops expired windows until ctx is done.
func (l *SessionLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(l.period * 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.prune()
		}
	}
}

// Admit records a session attempt from ip and reports whether it may proceed.
func (l *SessionLimiter) Admit(ip string) bool {
	if _, ok := l.whitelist[ip]; ok {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[ip]
	if !ok || now.Sub(w.started) > l.period {
		l.windows[ip] = &window{opened: 1, started: now}
		return true
	}
	if w.opened >= l.limit {
		return false
	}
	w.opened++
	return true
}

func (l *SessionLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !l.Admit(ip) {
			l.logger.Warn("session limit exceeded", "ip", ip, "path", r.URL.Path)
			w.Header().Set("Retry-After", strconv.Itoa(int(l.period.Seconds())))
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (l *SessionLimiter) prune() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for ip, w := range l.windows {
		if now.Sub(w.started) > l.period {
			delete(l.windows, ip)
		}
	}
}

func clientIP(r *http.Request) string {
	// X-Forwarded-For: "client, proxy1, proxy2"
	if xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if host, _, err := net.SplitHostPort(first); err == nil {
			return host
		}
		return first
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
