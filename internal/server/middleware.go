package server

import (
	"context"
	"net/http"
	"strings"
)

// AccountHeader carries the caller's account id, set by the auth gateway in front of the API.
const AccountHeader = "X-Account-ID"

type accountKey struct{}

// requireAccount rejects requests without an account id
func requireAccount(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(AccountHeader))
		if id == "" {
			writeError(w, http.StatusUnauthorized, "Missing "+AccountHeader+" header")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), accountKey{}, id)))
	})
}

func accountID(r *http.Request) string {
	id, _ := r.Context().Value(accountKey{}).(string)
	return id
}
