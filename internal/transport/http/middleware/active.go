package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/horizons-hq/horizons-api/internal/domain"
)

// ProfileGetter is the profile lookup RequireActive needs.
type ProfileGetter interface {
	Get(ctx context.Context, userID string) (*domain.Profile, error)
}

// RequireActive re-checks the caller's profile on every request so that a
// deactivation takes effect before the JWT expires.
func RequireActive(profiles ProfileGetter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
			p, err := profiles.Get(r.Context(), claims.UserID)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
					return
				}
				http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
				return
			}
			if !p.Active {
				http.Error(w, `{"error":"account deactivated"}`, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
