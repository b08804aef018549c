package http

import (
	"net/http"
	"strings"

	"fintrack/internal/middleware/auth"
)

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// ownerOf returns the authenticated owner. Routes under the API prefix are
// always wrapped by the auth middleware, so a missing owner is a wiring bug.
func ownerOf(r *http.Request) (string, error) {
	owner, ok := auth.OwnerFrom(r.Context())
	if !ok {
		return "", auth.ErrMissingIdentity
	}
	return owner, nil
}

// ownerHandler adapts a handler that needs the request owner.
func ownerHandler(fn func(w http.ResponseWriter, r *http.Request, owner string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := ownerOf(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		fn(w, r, owner)
	}
}
