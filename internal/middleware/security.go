package middleware

import (
	"fmt"
	"net/http"
	"strings"
)

// SecureHeaders provides configurable security headers
type SecureHeaders struct {
	// HSTS settings
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool

	// Empty means the JSON API default policy.
	ContentSecurityPolicy string

	XFrameOptions       string
	XContentTypeOptions string
	ReferrerPolicy      string
	PermissionsPolicy   string

	// DevMode skips HSTS and the CSP.
	DevMode bool
}

// DefaultSecureHeaders returns secure headers with default settings
func DefaultSecureHeaders() *SecureHeaders {
	return &SecureHeaders{
		HSTSMaxAge:            63072000, // 2 years
		HSTSIncludeSubdomains: true,
		XFrameOptions:         "DENY",
		XContentTypeOptions:   "nosniff",
		ReferrerPolicy:        "no-referrer",
	}
}

// Handler returns the middleware handler
func (sh *SecureHeaders) Handler(next http.Handler) http.Handler {
	csp := sh.ContentSecurityPolicy
	if csp == "" {
		csp = defaultCSP
	}
	permissions := sh.PermissionsPolicy
	if permissions == "" {
		permissions = defaultPermissionsPolicy
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()

		if sh.HSTSMaxAge > 0 && r.TLS != nil && !sh.DevMode {
			hsts := fmt.Sprintf("max-age=%d", sh.HSTSMaxAge)
			if sh.HSTSIncludeSubdomains {
				hsts += "; includeSubDomains"
			}
			h.Set("Strict-Transport-Security", hsts)
		}

		if !sh.DevMode {
			h.Set("Content-Security-Policy", csp)
		}
		if sh.XFrameOptions != "" {
			h.Set("X-Frame-Options", sh.XFrameOptions)
		}
		if sh.XContentTypeOptions != "" {
			h.Set("X-Content-Type-Options", sh.XContentTypeOptions)
		}
		if sh.ReferrerPolicy != "" {
			h.Set("Referrer-Policy", sh.ReferrerPolicy)
		}
		h.Set("Permissions-Policy", permissions)

		next.ServeHTTP(w, r)
	})
}

// The server only answers JSON and CSV, so nothing may be loaded or framed.
var defaultCSP = strings.Join([]string{
	"default-src 'none'",
	"frame-ancestors 'none'",
	"base-uri 'none'",
	"form-action 'none'",
}, "; ")

var defaultPermissionsPolicy = strings.Join([]string{
	"accelerometer=()",
	"camera=()",
	"geolocation=()",
	"gyroscope=()",
	"magnetometer=()",
	"microphone=()",
	"payment=()",
	"usb=()",
}, ", ")
