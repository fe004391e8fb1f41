package middleware

import (
	"net/http"

	"github.com/unrolled/secure"
)

// SecureHeaders applies baseline hardening headers. Kept permissive enough
// for the Swagger UI, which loads its own assets.
func SecureHeaders(isDevelopment bool) func(http.Handler) http.Handler {
	sec := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'self'; img-src 'self' data:; style-src 'self' 'unsafe-inline'; script-src 'self' 'unsafe-inline'",
		IsDevelopment:         isDevelopment,
	})
	return sec.Handler
}
