package api

import (
	"crypto/subtle"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"

	"studiobook/internal/config"
	"studiobook/internal/models"

	"golang.org/x/time/rate"
)

var errPermissionDenied = fmt.Errorf("permission denied")

// HTTPAuth gates admin endpoints behind API keys with per-key permissions
// and per-key rate limiting. Public endpoints (checkout, slots, webhook)
// pass through without a key.
type HTTPAuth struct {
	cfg      config.AuthConfig
	clients  map[string]config.APIKey
	limiters sync.Map // map[string]*rate.Limiter
}

func NewHTTPAuth(cfg config.AuthConfig) *HTTPAuth {
	m := make(map[string]config.APIKey, len(cfg.APIKeys))
	for _, k := range cfg.APIKeys {
		m[k.Key] = k
	}
	return &HTTPAuth{cfg: cfg, clients: m}
}

func (a *HTTPAuth) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		required := requiredPermission(r)

		if a.cfg.Enabled && required != "" {
			if err := a.checkAuth(r, required); err != nil {
				statusCode := http.StatusUnauthorized
				if err == errPermissionDenied {
					statusCode = http.StatusForbidden
				}
				writeError(w, statusCode, err.Error())
				return
			}
		}

		// The processor ingress is never throttled; a 429 would only
		// delay the retry it triggers.
		if !strings.HasPrefix(r.URL.Path, "/api/v1/webhooks/") {
			if err := a.checkRateLimit(r); err != nil {
				writeError(w, http.StatusTooManyRequests, err.Error())
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

func (a *HTTPAuth) headerName() string {
	header := strings.TrimSpace(strings.ToLower(a.cfg.HeaderAPIKey))
	if header == "" {
		header = "x-api-key"
	}
	return header
}

func (a *HTTPAuth) checkAuth(r *http.Request, required string) error {
	apiKey := strings.TrimSpace(r.Header.Get(a.headerName()))
	if apiKey == "" {
		return fmt.Errorf("missing api key header")
	}

	client, ok := a.lookupKey(apiKey)
	if !ok {
		return fmt.Errorf("invalid api key")
	}

	for _, p := range client.Permissions {
		if strings.TrimSpace(p) == required {
			return nil
		}
	}
	return errPermissionDenied
}

// lookupKey compares in constant time so a map miss and a near-match cost
// the same.
func (a *HTTPAuth) lookupKey(apiKey string) (config.APIKey, bool) {
	for key, client := range a.clients {
		if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) == 1 {
			return client, true
		}
	}
	return config.APIKey{}, false
}

func requiredPermission(r *http.Request) string {
	path := r.URL.Path
	switch {
	case strings.HasPrefix(path, "/api/v1/admin/bookings"):
		return "admin:bookings"
	case strings.HasPrefix(path, "/api/v1/admin/payments"):
		return "admin:payments"
	case strings.HasPrefix(path, "/api/v1/admin/customers"):
		return "admin:customers"
	case strings.HasPrefix(path, "/api/v1/admin/slot-templates"):
		return "admin:slots"
	default:
		return ""
	}
}

func (a *HTTPAuth) checkRateLimit(r *http.Request) error {
	rps := a.cfg.RateLimit.RPS
	if rps <= 0 {
		rps = models.RateLimitRPSDefault
	}

	lim := a.getLimiter(a.clientKey(r), rps)
	if !lim.Allow() {
		return fmt.Errorf("rate limit exceeded")
	}
	return nil
}

func (a *HTTPAuth) clientKey(r *http.Request) string {
	if apiKey := strings.TrimSpace(r.Header.Get(a.headerName())); apiKey != "" {
		return apiKey
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return "unknown"
}

func (a *HTTPAuth) getLimiter(key string, rps float64) *rate.Limiter {
	if v, ok := a.limiters.Load(key); ok {
		return v.(*rate.Limiter)
	}

	burst := a.cfg.RateLimit.Burst
	if burst <= 0 {
		burst = 5
	}

	lim := rate.NewLimiter(rate.Limit(rps), burst)
	actual, loaded := a.limiters.LoadOrStore(key, lim)
	if loaded {
		return actual.(*rate.Limiter)
	}
	return lim
}
