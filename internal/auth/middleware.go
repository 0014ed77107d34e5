package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/hcip-drill/internal/auth/jwt"
	httperrors "github.com/gokatarajesh/hcip-drill/pkg/http/errors"
)

type claimsKey struct{}

// ClaimsFromContext returns the session claims injected by RequireSession.
func ClaimsFromContext(ctx context.Context) (*jwt.Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*jwt.Claims)
	return claims, ok && claims != nil
}

// BearerToken extracts the token from "Authorization: Bearer <token>", falling
// back to the token query parameter used by WebSocket clients.
func BearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.Split(header, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

// RequireSession validates the session token and ensures it was issued for the
// session named by the {id} path value.
func RequireSession(tokens *jwt.Manager, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				httperrors.RespondUnauthorized(w, httperrors.ErrCodeUnauthorized, "Session token required")
				return
			}

			claims, err := tokens.Validate(token)
			if err != nil {
				logger.Warn().Err(err).Msg("token validation failed")
				code := httperrors.ErrCodeInvalidToken
				if err == jwt.ErrExpiredToken {
					code = httperrors.ErrCodeTokenExpired
				}
				httperrors.RespondUnauthorized(w, code, "Invalid or expired token")
				return
			}

			if id := r.PathValue("id"); id != "" && id != claims.SessionID {
				httperrors.RespondForbidden(w, httperrors.ErrCodeSessionMismatch, "Token was issued for another session")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
