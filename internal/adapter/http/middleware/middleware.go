package middleware

import (
	"context"

	"github.com/Temutjin2k/ride-hail-client/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-client/pkg/logger"
)

type (
	Authenticator interface {
		Resolve(ctx context.Context, token string) (models.Actor, error)
	}

	Middleware struct {
		auth Authenticator
		log  logger.Logger
	}
)

func NewMiddleware(auth Authenticator, log logger.Logger) *Middleware {
	return &Middleware{
		auth: auth,
		log:  log,
	}
}

type tokenCtxKey struct{}

// TokenFromContext returns the bearer token the request was authenticated with.
func TokenFromContext(ctx context.Context) string {
	t, _ := ctx.Value(tokenCtxKey{}).(string)
	return t
}
