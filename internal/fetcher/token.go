package fetcher

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jwalitptl/clinic-ops/pkg/errors"
)

// TokenSource supplies the bearer token attached to every upstream
// request. Authentication itself is the upstream's concern; this layer
// only carries the caller's token through.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

type tokenCtxKey struct{}

// WithToken stashes the caller's bearer token on the context for the
// passthrough source.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenCtxKey{}, token)
}

type passthroughSource struct{}

// PassthroughTokens forwards the caller's own token. Expired or
// garbled tokens fail fast as auth errors instead of burning an
// upstream round trip on a guaranteed 401.
func PassthroughTokens() TokenSource {
	return passthroughSource{}
}

func (passthroughSource) Token(ctx context.Context) (string, error) {
	token, _ := ctx.Value(tokenCtxKey{}).(string)
	if token == "" {
		return "", errors.Unauthorized(fmt.Errorf("no bearer token on request"))
	}

	claims := jwt.MapClaims{}
	// Signature verification belongs to the upstream; only the expiry
	// is checked locally.
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", errors.Unauthorized(fmt.Errorf("malformed bearer token: %w", err))
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return "", errors.Unauthorized(fmt.Errorf("bearer token has no readable expiry: %w", err))
	}
	if exp != nil && exp.Before(time.Now()) {
		return "", errors.Unauthorized(fmt.Errorf("bearer token expired at %s", exp.Time.Format(time.RFC3339)))
	}
	return token, nil
}

type staticSource struct {
	token string
}

// StaticToken returns a fixed token source, used by tests and
// service-account setups.
func StaticToken(token string) TokenSource {
	return staticSource{token: token}
}

func (s staticSource) Token(context.Context) (string, error) {
	return s.token, nil
}
