package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Temutjin2k/ride-hail-client/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-client/internal/domain/types"
	wrap "github.com/Temutjin2k/ride-hail-client/pkg/logger/wrapper"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("expired token")
	ErrRevokedToken = errors.New("revoked token")
)

// Revocations reports whether a token was revoked before its expiry.
type Revocations interface {
	Revoked(ctx context.Context, token string) (bool, error)
}

// JWT resolves HS256 access tokens issued by the auth service into actors.
// Sign is only used by tests and the demo seeding tool.
type JWT struct {
	secret  []byte
	revoked Revocations
	now     func() time.Time
}

// NewJWT creates a resolver. revoked may be nil.
func NewJWT(secret string, revoked Revocations) *JWT {
	return &JWT{
		secret:  []byte(secret),
		revoked: revoked,
		now:     time.Now,
	}
}

// Claims is what the gateway reads from a token.
type Claims struct {
	UserID    uuid.UUID
	Role      types.Role
	ExpiresAt time.Time
}

// Resolve validates token and returns its actor.
// Every failure wraps types.ErrUnauthenticated.
func (j *JWT) Resolve(ctx context.Context, token string) (models.Actor, error) {
	ctx = wrap.WithAction(ctx, "resolve_token")

	claims, err := j.Parse(token)
	if err != nil {
		return models.Actor{}, wrap.Error(ctx, fmt.Errorf("%w: %w", types.ErrUnauthenticated, err))
	}

	if j.revoked != nil {
		revoked, err := j.revoked.Revoked(ctx, token)
		if err != nil {
			return models.Actor{}, wrap.Error(ctx, fmt.Errorf("check token revocation: %w", err))
		}
		if revoked {
			return models.Actor{}, wrap.Error(ctx, fmt.Errorf("%w: %w", types.ErrUnauthenticated, ErrRevokedToken))
		}
	}

	return models.Actor{ID: claims.UserID, Role: claims.Role}, nil
}

// Parse checks the signature and the required claims of token.
func (j *JWT) Parse(token string) (*Claims, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return j.secret, nil
	}, jwt.WithTimeFunc(j.now), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	mc, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	userIDStr, _ := mc["user_id"].(string)
	userID, err := uuid.Parse(userIDStr)
	if err != nil || userID == uuid.Nil {
		return nil, fmt.Errorf("%w: invalid or missing 'user_id'", ErrInvalidToken)
	}

	roleStr, _ := mc["role"].(string)
	role := types.Role(roleStr)
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unsupported role %q", ErrInvalidToken, roleStr)
	}

	exp, err := mc.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, fmt.Errorf("%w: invalid or missing 'exp'", ErrInvalidToken)
	}

	return &Claims{UserID: userID, Role: role, ExpiresAt: exp.Time}, nil
}

// Sign issues a token for actor valid for ttl.
func (j *JWT) Sign(actor models.Actor, ttl time.Duration) (string, error) {
	now := j.now()
	claims := jwt.MapClaims{
		"user_id": actor.ID.String(),
		"role":    actor.Role.String(),
		"iat":     now.Unix(),
		"exp":     now.Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
}
