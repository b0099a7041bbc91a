package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/tradeflow-backend/api/responses"
	pkgerrors "github.com/angelmondragon/tradeflow-backend/pkg/errors"
	"github.com/angelmondragon/tradeflow-backend/pkg/logger"
)

// RateLimiterStore counts requests in fixed windows.
type RateLimiterStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// RateLimitPolicy bounds how many writes a caller or address may issue per window.
type RateLimitPolicy struct {
	Name        string
	Window      time.Duration
	CallerLimit int
	IPLimit     int
}

func (p RateLimitPolicy) enabled() bool {
	return p.Window > 0 && (p.CallerLimit > 0 || p.IPLimit > 0)
}

func (p RateLimitPolicy) name() string {
	if n := strings.ToLower(strings.TrimSpace(p.Name)); n != "" {
		return n
	}
	return "writes"
}

// RateLimit throttles requests per authenticated caller and per client IP.
// It must run after Auth so the caller id is known.
func RateLimit(policy RateLimitPolicy, store RateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			checks := []struct {
				scope string
				value string
				limit int
			}{
				{"caller", UserIDFromContext(ctx), policy.CallerLimit},
				{"ip", clientIP(r), policy.IPLimit},
			}
			for _, check := range checks {
				if check.limit <= 0 || check.value == "" {
					continue
				}
				scope := policy.name() + ":" + check.scope + ":" + check.value
				allowed, count, err := store.FixedWindowAllow(ctx, scope, int64(check.limit), policy.Window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if !allowed {
					if logg != nil {
						logCtx := logg.WithFields(ctx, map[string]any{
							"scope":          check.scope,
							"policy":         policy.name(),
							"attempts":       count,
							"limit":          check.limit,
							"window_seconds": int(policy.Window.Seconds()),
						})
						logg.Warn(logCtx, "rate_limit.blocked")
					}
					w.Header().Set("Retry-After", strconv.Itoa(int(policy.Window.Round(time.Second)/time.Second)))
					responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		for _, part := range strings.Split(header, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				return ip
			}
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
