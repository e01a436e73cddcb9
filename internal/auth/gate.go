package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/geocoder89/homeops/internal/domain/user"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// Keep these small so tests can fake them easily.
type TokenVerifier interface {
	Verify(token string) (*Claims, error)
}

type UserLookup interface {
	FindByID(ctx context.Context, id string) (user.User, error)
}

// Gate turns a bearer token into a user.Context for a single request.
type Gate struct {
	tokens TokenVerifier
	users  UserLookup
}

func NewGate(tokens TokenVerifier, users UserLookup) *Gate {
	return &Gate{tokens: tokens, users: users}
}

// Authorize verifies the token, re-reads the subject from the store and, when roles are given,
// requires the subject's current role to be one of them.
//
// The role check uses the stored role rather than the claim, so a demotion applies on the next
// request. A subject that no longer exists is ErrUnauthorized even though the signature is valid.
func (g *Gate) Authorize(ctx context.Context, token string, roles ...user.Role) (user.Context, error) {
	if token == "" {
		return user.Context{}, ErrUnauthorized
	}

	claims, err := g.tokens.Verify(token)
	if err != nil {
		return user.Context{}, ErrUnauthorized
	}

	u, err := g.users.FindByID(ctx, claims.UserID())
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.Context{}, ErrUnauthorized
		}
		return user.Context{}, fmt.Errorf("resolve session subject: %w", err)
	}

	if len(roles) > 0 && !slices.Contains(roles, u.Role) {
		return user.Context{}, ErrForbidden
	}

	return u.Context(), nil
}
