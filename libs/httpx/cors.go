package httpx

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CORSPolicy defines the CORS headers to emit for matching origins.
type CORSPolicy struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool
	MaxAge           time.Duration
}

type corsHeaders struct {
	origins     []string
	methods     string
	headers     string
	maxAge      string
	credentials bool
}

// WithCORS answers preflight requests and decorates responses for allowed origins.
// An empty AllowedOrigins list disables the middleware.
func WithCORS(cfg CORSPolicy) Middleware {
	if len(cfg.AllowedOrigins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	ch := corsHeaders{
		origins:     trimAll(cfg.AllowedOrigins),
		methods:     strings.Join(trimAll(cfg.AllowedMethods), ", "),
		headers:     strings.Join(trimAll(cfg.AllowedHeaders), ", "),
		credentials: cfg.AllowCredentials,
	}
	if secs := int(cfg.MaxAge.Seconds()); secs > 0 {
		ch.maxAge = strconv.Itoa(secs)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			allow, ok := ch.allowOrigin(origin)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			ch.write(w.Header(), allow)
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (c corsHeaders) allowOrigin(origin string) (string, bool) {
	if origin == "" {
		return "", false
	}
	for _, candidate := range c.origins {
		if candidate == "*" {
			// Credentialed requests may not use the wildcard.
			if c.credentials {
				return origin, true
			}
			return "*", true
		}
		if strings.EqualFold(candidate, origin) {
			return origin, true
		}
	}
	return "", false
}

func (c corsHeaders) write(h http.Header, allowOrigin string) {
	h.Set("Access-Control-Allow-Origin", allowOrigin)
	if c.credentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
	if c.methods != "" {
		h.Set("Access-Control-Allow-Methods", c.methods)
	}
	if c.headers != "" {
		h.Set("Access-Control-Allow-Headers", c.headers)
	}
	if c.maxAge != "" {
		h.Set("Access-Control-Max-Age", c.maxAge)
	}
	h.Add("Vary", "Origin")
	h.Add("Vary", "Access-Control-Request-Method")
	h.Add("Vary", "Access-Control-Request-Headers")
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
