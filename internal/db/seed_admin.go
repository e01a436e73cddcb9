package db

import (
	"context"
	"errors"
	"strings"

	"github.com/geocoder89/homeops/internal/config"
	"github.com/geocoder89/homeops/internal/domain/user"
	"github.com/geocoder89/homeops/internal/security"
)

var ErrInvalidAdminPassword = errors.New("ADMIN_PASSWORD must be 6 to 72 bytes")

type AdminStore interface {
	FindByEmail(ctx context.Context, email string) (user.User, error)
	Create(ctx context.Context, u user.User) (user.User, error)
}

// EnsureAdminUser creates the bootstrap ADMIN from config when ADMIN_EMAIL and
// ADMIN_PASSWORD are set and no account with that email exists yet.
func EnsureAdminUser(ctx context.Context, store AdminStore, cfg config.Config) (bool, error) {
	email := strings.ToLower(strings.TrimSpace(cfg.AdminEmail))
	if email == "" || cfg.AdminPassword == "" {
		return false, nil
	}

	_, err := store.FindByEmail(ctx, email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, user.ErrNotFound) {
		return false, err
	}

	if !security.ValidPassword(cfg.AdminPassword) {
		return false, ErrInvalidAdminPassword
	}

	hash, err := security.HashSecret(cfg.AdminPassword)
	if err != nil {
		return false, err
	}

	_, err = store.Create(ctx, user.User{
		Email:        email,
		PasswordHash: hash,
		Name:         cfg.AdminName,
		Role:         user.RoleAdmin,
		Language:     "en",
	})
	if errors.Is(err, user.ErrEmailTaken) {
		// another replica won the race
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}
