package users_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/homeops/internal/domain/user"
	"github.com/geocoder89/homeops/internal/live"
	"github.com/geocoder89/homeops/internal/repo/memory"
	"github.com/geocoder89/homeops/internal/security"
	"github.com/geocoder89/homeops/internal/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc    *users.Service
	repo   *memory.UsersRepo
	events <-chan live.Event
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	repo := memory.NewUsersRepo()
	broker := live.NewMemoryBroker(32)

	ch, cancel, err := broker.Subscribe(context.Background())
	require.NoError(t, err)
	t.Cleanup(cancel)

	svc := users.NewService(repo, security.Bcrypt{Cost: 4}, live.NewPublisher(broker, nil), nil)
	return fixture{svc: svc, repo: repo, events: ch}
}

func nextEvent(t *testing.T, ch <-chan live.Event) live.Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no live event")
	}
	return live.Event{}
}

func TestCreate_HashesAndNormalizes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.svc.Create(ctx, user.CreateUserRequest{
		Name:     " Saleem ",
		Email:    "Saleem@Example.com",
		Password: "driver1",
		Role:     user.RoleDriver,
	})
	require.NoError(t, err)

	assert.Equal(t, "saleem@example.com", u.Email)
	assert.Equal(t, "Saleem", u.Name)
	assert.Equal(t, "en", u.Language)
	assert.NotEqual(t, "driver1", u.PasswordHash)
	assert.NoError(t, security.CheckSecret(u.PasswordHash, "driver1"))

	ev := nextEvent(t, f.events)
	assert.Equal(t, live.TypeUserCreated, ev.Type)
	assert.Equal(t, u.ID, ev.EntityID)
}

func TestCreate_Rejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, user.CreateUserRequest{Name: "x", Email: "x@example.com", Password: "12345", Role: user.RoleMaid})
	assert.ErrorIs(t, err, users.ErrWeakPassword)

	_, err = f.svc.Create(ctx, user.CreateUserRequest{Name: "x", Email: "x@example.com", Password: strings.Repeat("a", 80), Role: user.RoleMaid})
	assert.ErrorIs(t, err, users.ErrWeakPassword)

	_, err = f.svc.Create(ctx, user.CreateUserRequest{Name: "x", Email: "x@example.com", Password: "123456", Role: "CHEF"})
	assert.ErrorIs(t, err, user.ErrInvalidRole)

	_, err = f.svc.Create(ctx, user.CreateUserRequest{Name: "x", Email: "x@example.com", Password: "123456", Role: user.RoleMaid})
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, user.CreateUserRequest{Name: "y", Email: "X@example.com", Password: "123456", Role: user.RoleMaid})
	assert.ErrorIs(t, err, user.ErrEmailTaken)
}

func TestListStaff_OnlyStaffRolesAndRefreshesAfterChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	setAt := time.Date(2026, 10, 16, 7, 0, 0, 0, time.UTC)
	f.repo.Put(user.User{ID: "a", Name: "Admin", Role: user.RoleAdmin})
	f.repo.Put(user.User{ID: "m", Name: "Elsy", Role: user.RoleManager})
	f.repo.Put(user.User{ID: "d", Name: "Saleem", Role: user.RoleDriver, Language: "ur"})
	f.repo.Put(user.User{ID: "n", Name: "Karen", Role: user.RoleNanny, Language: "tl", PINSetAt: &setAt})

	staff, err := f.svc.ListStaff(ctx)
	require.NoError(t, err)
	require.Len(t, staff, 2)
	assert.Equal(t, "Karen", staff[0].Name)
	assert.Equal(t, &setAt, staff[0].PINSetAt)
	assert.Equal(t, "Saleem", staff[1].Name)

	_, err = f.svc.Create(ctx, user.CreateUserRequest{Name: "Maria", Email: "maria@example.com", Password: "123456", Role: user.RoleMaid})
	require.NoError(t, err)

	staff, err = f.svc.ListStaff(ctx)
	require.NoError(t, err)
	assert.Len(t, staff, 3)
}

func TestUpdateLanguage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.repo.Put(user.User{ID: "d", Name: "Saleem", Role: user.RoleDriver, Language: "en"})

	u, err := f.svc.UpdateLanguage(ctx, "d", "ur")
	require.NoError(t, err)
	assert.Equal(t, "ur", u.Language)
	assert.Equal(t, live.TypeUserUpdated, nextEvent(t, f.events).Type)

	_, err = f.svc.UpdateLanguage(ctx, "missing", "ur")
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.repo.Put(user.User{ID: "a", Role: user.RoleAdmin})
	f.repo.Put(user.User{ID: "d", Role: user.RoleDriver})

	assert.ErrorIs(t, f.svc.Delete(ctx, "a"), user.ErrAdminProtected)
	assert.ErrorIs(t, f.svc.Delete(ctx, "missing"), user.ErrNotFound)

	require.NoError(t, f.svc.Delete(ctx, "d"))
	_, err := f.svc.Get(ctx, "d")
	assert.ErrorIs(t, err, user.ErrNotFound)
	assert.Equal(t, live.TypeUserDeleted, nextEvent(t, f.events).Type)

	_, err = f.svc.Get(ctx, "a")
	assert.NoError(t, err)
}
