package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bomanihosts/backend/internal/api/problem"
	"github.com/bomanihosts/backend/internal/auth"
	"github.com/bomanihosts/backend/internal/metrics"
	"github.com/bomanihosts/backend/internal/ratelimit"
	"golang.org/x/time/rate"
)

type RateLimitTier string

const (
	TierPublic  RateLimitTier = "public"
	TierContact RateLimitTier = "contact"
)

const unavailableLogInterval = 10 * time.Second

// RateLimiter applies per-caller budgets in front of individual routes.
type RateLimiter struct {
	limiter           ratelimit.Limiter
	trustedProxyCIDRs []*net.IPNet
	env               string
	unavailableLog    rate.Sometimes
}

// NewRateLimiter builds a RateLimiter. Invalid CIDRs are ignored.
func NewRateLimiter(limiter ratelimit.Limiter, trustedProxyCIDRs []string, env string) *RateLimiter {
	return &RateLimiter{
		limiter:           limiter,
		trustedProxyCIDRs: parseCIDRs(trustedProxyCIDRs),
		env:               env,
		unavailableLog:    rate.Sometimes{Interval: unavailableLogInterval},
	}
}

// Limit rejects callers that exceed rule within tier with 429 and Retry-After.
// Limiter backend failures let the request through; the warning for them is
// logged at most once per unavailableLogInterval.
func (rl *RateLimiter) Limit(tier RateLimitTier, rule ratelimit.Rule) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if rule.Disabled() || rl.limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := string(tier) + ":" + rl.callerKey(r)

			decision, err := rl.limiter.Allow(r.Context(), key, rule)
			if err != nil {
				metrics.RateLimitErrorsTotal.WithLabelValues(string(tier)).Inc()
				rl.unavailableLog.Do(func() {
					LoggerFromContext(r.Context()).Warn().
						Err(err).
						Str("tier", string(tier)).
						Msg("rate limiter unavailable, allowing request")
				})
				next.ServeHTTP(w, r)
				return
			}

			if !decision.Allowed {
				metrics.RateLimitRejectionsTotal.WithLabelValues(string(tier)).Inc()
				w.Header().Set("Retry-After", retryAfterSeconds(decision.RetryAfter))
				problem.Write(w, r, http.StatusTooManyRequests, problem.TypeRateLimited, "Too many requests", nil, rl.env,
					problem.WithDetail("Request was throttled. Try again later."))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// callerKey identifies the caller: the account id when an earlier middleware
// attached a Principal, the client IP otherwise.
func (rl *RateLimiter) callerKey(r *http.Request) string {
	if p, ok := auth.PrincipalFromContext(r.Context()); ok {
		return "user:" + strconv.FormatInt(p.UserID, 10)
	}
	return "ip:" + clientIP(r, rl.trustedProxyCIDRs)
}

func retryAfterSeconds(d time.Duration) string {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

// clientIP returns the connecting address. When the connection comes from a
// trusted proxy, X-Forwarded-For is read right to left and the first hop
// outside the trusted ranges wins, since entries left of it are whatever the
// client chose to send. X-Real-IP is the fallback.
func clientIP(r *http.Request, trusted []*net.IPNet) string {
	if r == nil {
		return ""
	}

	remoteIP := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		remoteIP = host
	}

	if isTrustedProxy(remoteIP, trusted) {
		if ip := forwardedClient(r.Header.Values("X-Forwarded-For"), trusted); ip != "" {
			return ip
		}
		if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(realIP) != nil {
			return realIP
		}
	}

	return remoteIP
}

// forwardedClient walks the X-Forwarded-For chain from the nearest hop
// outward. Unparsable entries are skipped. When every hop is trusted the
// farthest one is returned.
func forwardedClient(headers []string, trusted []*net.IPNet) string {
	var hops []string
	for _, h := range headers {
		hops = append(hops, strings.Split(h, ",")...)
	}

	farthest := ""
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if net.ParseIP(hop) == nil {
			continue
		}
		if !isTrustedProxy(hop, trusted) {
			return hop
		}
		farthest = hop
	}
	return farthest
}

func isTrustedProxy(ip string, trusted []*net.IPNet) bool {
	if len(trusted) == 0 {
		return false
	}
	parsedIP := net.ParseIP(ip)
	if parsedIP == nil {
		return false
	}
	for _, cidr := range trusted {
		if cidr.Contains(parsedIP) {
			return true
		}
	}
	return false
}

func parseCIDRs(values []string) []*net.IPNet {
	out := make([]*net.IPNet, 0, len(values))
	for _, v := range values {
		_, cidr, err := net.ParseCIDR(strings.TrimSpace(v))
		if err != nil {
			continue
		}
		out = append(out, cidr)
	}
	return out
}
