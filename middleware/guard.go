// Package middleware provides a net/http guard that authenticates requests
// with the engine before passing them on.
package middleware

import (
	"context"
	"net/http"
	"strings"

	authcore "github.com/nebulaclass/authcore"
)

type authResultContextKey struct{}

// AuthResultFromContext returns the result the guard stored for the current
// request.
func AuthResultFromContext(ctx context.Context) (*authcore.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*authcore.AuthResult)
	return res, ok
}

// Verifier is the slice of the engine the guard needs.
type Verifier interface {
	Verify(ctx context.Context, accessToken string) (*authcore.AuthResult, error)
}

// Guard rejects requests without a valid bearer access token and injects
// the verified AuthResult into the request context.
func Guard(verifier Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if verifier == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			res, err := verifier.Verify(r.Context(), token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), authResultContextKey{}, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
