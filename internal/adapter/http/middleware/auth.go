package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/Temutjin2k/ride-hail-client/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-client/internal/domain/types"
	wrap "github.com/Temutjin2k/ride-hail-client/pkg/logger/wrapper"
)

// Auth validates the bearer token and injects the actor into context.
// Requests without a token pass through anonymously; protected routes reject
// them in RequireRoles.
func (h *Middleware) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		token, err := tokenFrom(r)
		if err != nil {
			errorResponse(w, http.StatusUnauthorized, err.Error())
			return
		}
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		actor, err := h.auth.Resolve(ctx, token)
		if err != nil {
			h.log.Warn(ctx, "failed to authenticate actor", "error", err.Error())
			errorResponse(w, http.StatusUnauthorized, "invalid credentials")
			return
		}

		ctx = models.WithActor(ctx, actor)
		ctx = context.WithValue(ctx, tokenCtxKey{}, token)
		ctx = wrap.WithUser(ctx, actor.ID.String(), actor.Role.String())

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRoles allows only actors with one of the given roles.
// With no roles any authenticated actor is allowed.
func (h *Middleware) RequireRoles(next http.HandlerFunc, allowedRoles ...types.Role) http.Handler {
	allowed := make(map[types.Role]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := models.ActorFromContext(r.Context())
		if actor.IsZero() {
			errorResponse(w, http.StatusUnauthorized, "authorization required")
			return
		}
		if len(allowed) > 0 {
			if _, ok := allowed[actor.Role]; !ok {
				errorResponse(w, http.StatusForbidden, "forbidden: insufficient role")
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// tokenFrom reads the Authorization header. Browsers cannot set headers on a
// websocket handshake, so upgrade requests may pass ?access_token= instead.
func tokenFrom(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		if isUpgrade(r) {
			return r.URL.Query().Get("access_token"), nil
		}
		return "", nil
	}
	return extractBearerToken(header)
}

func isUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

func extractBearerToken(header string) (string, error) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", fmt.Errorf("invalid Authorization header format")
	}
	return parts[1], nil
}
