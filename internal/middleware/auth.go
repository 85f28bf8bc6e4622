package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"partnerledger/internal/auth"
	"partnerledger/internal/models"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const actorKey contextKey = "actor"

// GetActor extracts the authenticated actor from the context. The zero
// Actor (unauthenticated) is returned when none is set.
func GetActor(ctx context.Context) models.Actor {
	actor, _ := ctx.Value(actorKey).(models.Actor)
	return actor
}

// WithActor returns a context carrying the given actor. Exported for
// handler tests.
func WithActor(ctx context.Context, actor models.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// RequireAuth validates the Bearer token and stores the resolved actor in
// the request context. Requests without a valid token are rejected with
// 401 before reaching the handler.
func RequireAuth(jwtManager *auth.JWTManager, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := claimsFromRequest(jwtManager, r)
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
			return
		}

		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), claims.Actor())))
	})
}

func claimsFromRequest(jwtManager *auth.JWTManager, r *http.Request) (*auth.Claims, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, auth.ErrMissingToken
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, auth.ErrInvalidToken
	}
	return jwtManager.Validate(parts[1])
}
