package security

import (
	"fmt"
	"net/http"
	"strings"
)

// HeadersConfig holds the response headers applied to every API response.
type HeadersConfig struct {
	CSP                   string
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool
	FrameOptions          string
	ReferrerPolicy        string
	PermissionsPolicy     string
	CrossOriginResource   string
}

// DefaultHeadersConfig returns defaults for a JSON API that also serves
// uploaded receipts as same-origin images and PDFs.
func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		CSP: strings.Join([]string{
			"default-src 'none'",
			"img-src 'self' data:",
			"frame-ancestors 'none'",
			"base-uri 'none'",
		}, "; "),
		HSTSMaxAge:            31536000,
		HSTSIncludeSubdomains: true,
		FrameOptions:          "DENY",
		ReferrerPolicy:        "no-referrer",
		PermissionsPolicy:     "geolocation=(), microphone=(), camera=(), payment=()",
		CrossOriginResource:   "same-origin",
	}
}

type HeadersMiddleware struct {
	config HeadersConfig
}

func NewHeadersMiddleware(config HeadersConfig) *HeadersMiddleware {
	return &HeadersMiddleware{config: config}
}

func (h *HeadersMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.apply(w.Header(), r)
		next.ServeHTTP(w, r)
	})
}

func (h *HeadersMiddleware) apply(headers http.Header, r *http.Request) {
	headers.Set("X-Content-Type-Options", "nosniff")
	if h.config.FrameOptions != "" {
		headers.Set("X-Frame-Options", h.config.FrameOptions)
	}
	if h.config.CSP != "" {
		headers.Set("Content-Security-Policy", h.config.CSP)
	}
	if h.config.ReferrerPolicy != "" {
		headers.Set("Referrer-Policy", h.config.ReferrerPolicy)
	}
	if h.config.PermissionsPolicy != "" {
		headers.Set("Permissions-Policy", h.config.PermissionsPolicy)
	}
	if h.config.CrossOriginResource != "" {
		headers.Set("Cross-Origin-Resource-Policy", h.config.CrossOriginResource)
	}

	// HSTS only over TLS
	if r.TLS != nil && h.config.HSTSMaxAge > 0 {
		value := fmt.Sprintf("max-age=%d", h.config.HSTSMaxAge)
		if h.config.HSTSIncludeSubdomains {
			value += "; includeSubDomains"
		}
		headers.Set("Strict-Transport-Security", value)
	}
}

// CacheControl sets a public max-age on responses for immutable content such
// as uploaded attachments, whose names are never reused.
func CacheControl(maxAge int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if maxAge > 0 {
				w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d, immutable", maxAge))
			}
			next.ServeHTTP(w, r)
		})
	}
}
