// Package users administers household accounts: listing, profile edits, creation and removal.
package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/geocoder89/homeops/internal/cache"
	"github.com/geocoder89/homeops/internal/domain/user"
	"github.com/geocoder89/homeops/internal/live"
	"github.com/geocoder89/homeops/internal/security"
)

const staffCacheKey = "staff"

type Repo interface {
	FindByID(ctx context.Context, id string) (user.User, error)
	List(ctx context.Context) ([]user.User, error)
	ListByRoles(ctx context.Context, roles []user.Role) ([]user.User, error)
	Create(ctx context.Context, u user.User) (user.User, error)
	Update(ctx context.Context, id string, req user.UpdateUserRequest) (user.User, error)
	Delete(ctx context.Context, id string) error
}

type Hasher interface {
	Hash(plain string) (string, error)
}

var ErrWeakPassword = errors.New("password must be 6 to 72 bytes")

type Service struct {
	repo   Repo
	hasher Hasher
	events *live.Publisher
	staff  *cache.Cache[[]user.StaffEntry]
	log    *slog.Logger
}

func NewService(repo Repo, hasher Hasher, events *live.Publisher, log *slog.Logger) *Service {
	if hasher == nil {
		hasher = security.Bcrypt{}
	}
	if log == nil {
		log = slog.Default()
	}

	return &Service{
		repo:   repo,
		hasher: hasher,
		events: events,
		staff:  cache.New[[]user.StaffEntry](5 * time.Second),
		log:    log,
	}
}

func (s *Service) List(ctx context.Context) ([]user.User, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (user.User, error) {
	return s.repo.FindByID(ctx, id)
}

// ListStaff returns the PIN-terminal roster: every user whose role IsStaff, sorted by name.
func (s *Service) ListStaff(ctx context.Context) ([]user.StaffEntry, error) {
	if cached, ok := s.staff.Get(staffCacheKey); ok {
		return cached, nil
	}

	us, err := s.repo.ListByRoles(ctx, user.StaffRoles())
	if err != nil {
		return nil, err
	}

	out := make([]user.StaffEntry, 0, len(us))
	for _, u := range us {
		out = append(out, user.StaffEntry{
			ID:       u.ID,
			Name:     u.Name,
			Role:     u.Role,
			Language: u.Language,
			PINSetAt: u.PINSetAt,
		})
	}

	s.staff.Set(staffCacheKey, out)
	return out, nil
}

func (s *Service) Create(ctx context.Context, req user.CreateUserRequest) (user.User, error) {
	role, err := user.ParseRole(string(req.Role))
	if err != nil {
		return user.User{}, err
	}
	if !security.ValidPassword(req.Password) {
		return user.User{}, ErrWeakPassword
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return user.User{}, fmt.Errorf("hash password: %w", err)
	}

	lang := req.Language
	if lang == "" {
		lang = "en"
	}

	u, err := s.repo.Create(ctx, user.User{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Name:         strings.TrimSpace(req.Name),
		Phone:        req.Phone,
		Role:         role,
		PasswordHash: hash,
		Language:     lang,
	})
	if err != nil {
		return user.User{}, err
	}

	s.log.InfoContext(ctx, "users.create", "user_id", u.ID, "role", u.Role)
	s.changed(ctx, live.TypeUserCreated, u.ID)
	return u, nil
}

func (s *Service) Update(ctx context.Context, id string, req user.UpdateUserRequest) (user.User, error) {
	u, err := s.repo.Update(ctx, id, req)
	if err != nil {
		return user.User{}, err
	}

	s.changed(ctx, live.TypeUserUpdated, u.ID)
	return u, nil
}

func (s *Service) UpdateLanguage(ctx context.Context, id, language string) (user.User, error) {
	return s.Update(ctx, id, user.UpdateUserRequest{Language: &language})
}

// Delete removes a non-ADMIN account.
func (s *Service) Delete(ctx context.Context, id string) error {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if u.Role == user.RoleAdmin {
		return user.ErrAdminProtected
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.log.InfoContext(ctx, "users.delete", "user_id", id, "role", u.Role)
	s.changed(ctx, live.TypeUserDeleted, id)
	return nil
}

// Changed invalidates cached rosters and tells live subscribers about the change.
// Credential handlers call it after PIN and password writes.
func (s *Service) Changed(ctx context.Context, typ, id string) {
	s.changed(ctx, typ, id)
}

func (s *Service) changed(ctx context.Context, typ, id string) {
	s.staff.Clear()
	s.events.Publish(ctx, typ, id)
}
