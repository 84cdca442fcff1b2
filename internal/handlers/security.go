package handlers

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// validateCronSecret checks "Authorization: Bearer <secret>". An empty secret
// disables the check.
func validateCronSecret(r *http.Request, secret string) bool {
	if secret == "" {
		return true
	}
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(strings.TrimSpace(token)), []byte(secret)) == 1
}
