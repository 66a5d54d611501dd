// Package http exposes the storefront API over chi. Handlers stay thin:
// decode, validate, delegate, encode through the shared response envelope.
package http

import (
	"net/http"
	"strings"
)

// bearerToken returns the raw bearer token from the Authorization header.
// The auth middleware has already validated it; services pass it through to
// the backend, which enforces its own authorization.
func bearerToken(r *http.Request) string {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}
