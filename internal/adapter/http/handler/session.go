package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/Temutjin2k/ride-hail-client/internal/adapter/http/middleware"
	"github.com/Temutjin2k/ride-hail-client/internal/adapter/identity"
	"github.com/Temutjin2k/ride-hail-client/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-client/pkg/logger"
	wrap "github.com/Temutjin2k/ride-hail-client/pkg/logger/wrapper"
)

type (
	TokenParser interface {
		Parse(token string) (*identity.Claims, error)
	}

	Revoker interface {
		Revoke(ctx context.Context, token string, expiresAt time.Time) error
	}
)

type Session struct {
	sessions Sessions
	tokens   TokenParser
	revoker  Revoker // nil when no session registry is configured
	l        logger.Logger
}

func NewSession(sessions Sessions, tokens TokenParser, revoker Revoker, l logger.Logger) *Session {
	return &Session{
		sessions: sessions,
		tokens:   tokens,
		revoker:  revoker,
		l:        l,
	}
}

// SignOut godoc
// @Summary      Sign out
// @Description  Revokes the bearer token and stops the caller's live ride view
// @Tags         Session
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Router       /session [delete]
func (h *Session) SignOut(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "sign_out")
	actor := models.ActorFromContext(ctx)

	if h.revoker != nil {
		token := middleware.TokenFromContext(ctx)
		claims, err := h.tokens.Parse(token)
		if err != nil {
			h.l.Warn(ctx, "failed to parse token on sign out", "error", err.Error())
			errorResponse(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		if err := h.revoker.Revoke(ctx, token, claims.ExpiresAt); err != nil {
			h.l.Error(wrap.ErrorCtx(ctx, err), "failed to revoke token", err)
			internalErrorResponse(w, "failed to revoke token")
			return
		}
	}

	h.sessions.End(actor.ID)

	if err := writeJSON(w, http.StatusOK, envelope{"message": "signed out"}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
		return
	}

	h.l.Info(ctx, "actor signed out")
}
