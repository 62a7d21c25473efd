package handlers

import (
	"crypto/subtle"
	"net/http"
)

// admissionKeyHeader carries the shared connection key for clients that cannot set query parameters.
const admissionKeyHeader = "X-Bang-Key"

// extractAdmissionKey returns the key from the "key" query parameter, falling
// back to the X-Bang-Key header, or "" if neither is set.
func extractAdmissionKey(r *http.Request) string {
	if key := r.URL.Query().Get("key"); key != "" {
		return key
	}
	return r.Header.Get(admissionKeyHeader)
}

// keyMatches compares keys in constant time.
func keyMatches(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
