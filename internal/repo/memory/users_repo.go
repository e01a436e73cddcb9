package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/geocoder89/homeops/internal/domain/user"
	"github.com/google/uuid"
)

// UsersRepo is a map-backed user store. Each method holds the lock for the whole
// read-modify-write, which gives the per-row atomicity the credential code relies on.
type UsersRepo struct {
	mu    sync.RWMutex
	items map[string]user.User
	now   func() time.Time
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		items: make(map[string]user.User),
		now:   time.Now,
	}
}

// Put inserts or replaces a record as-is. Used for seeding.
func (r *UsersRepo) Put(u user.User) {
	r.mu.Lock()
	r.items[u.ID] = u
	r.mu.Unlock()
}

func (r *UsersRepo) FindByID(ctx context.Context, id string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.items[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func (r *UsersRepo) FindByEmail(ctx context.Context, email string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.items {
		if email != "" && u.Email == email {
			return u, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (r *UsersRepo) UpdatePIN(ctx context.Context, id, pinHash string, setAt time.Time) error {
	return r.mutate(id, func(u *user.User) {
		t := setAt
		u.PINHash = pinHash
		u.PINSetAt = &t
	})
}

func (r *UsersRepo) ClearPIN(ctx context.Context, id string) error {
	return r.mutate(id, func(u *user.User) {
		u.PINHash = ""
		u.PINSetAt = nil
	})
}

func (r *UsersRepo) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	return r.mutate(id, func(u *user.User) {
		u.PasswordHash = passwordHash
	})
}

func (r *UsersRepo) List(ctx context.Context) ([]user.User, error) {
	r.mu.RLock()
	out := make([]user.User, 0, len(r.items))
	for _, u := range r.items {
		out = append(out, u)
	}
	r.mu.RUnlock()

	sortByName(out)
	return out, nil
}

func (r *UsersRepo) ListByRoles(ctx context.Context, roles []user.Role) ([]user.User, error) {
	r.mu.RLock()
	out := make([]user.User, 0)
	for _, u := range r.items {
		if slices.Contains(roles, u.Role) {
			out = append(out, u)
		}
	}
	r.mu.RUnlock()

	sortByName(out)
	return out, nil
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.items {
		if existing.Email == u.Email {
			return user.User{}, user.ErrEmailTaken
		}
	}

	now := r.now().UTC()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt = now
	u.UpdatedAt = now

	r.items[u.ID] = u
	return u, nil
}

func (r *UsersRepo) Update(ctx context.Context, id string, req user.UpdateUserRequest) (user.User, error) {
	err := r.mutate(id, func(u *user.User) {
		if req.Name != nil {
			u.Name = *req.Name
		}
		if req.Phone != nil {
			u.Phone = *req.Phone
		}
		if req.Language != nil {
			u.Language = *req.Language
		}
	})
	if err != nil {
		return user.User{}, err
	}
	return r.FindByID(ctx, id)
}

func (r *UsersRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return user.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *UsersRepo) mutate(id string, fn func(u *user.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[id]
	if !ok {
		return user.ErrNotFound
	}

	fn(&u)
	u.UpdatedAt = r.now().UTC()
	r.items[id] = u
	return nil
}

func sortByName(us []user.User) {
	sort.Slice(us, func(i, j int) bool {
		if us[i].Name == us[j].Name {
			return us[i].ID < us[j].ID
		}
		return us[i].Name < us[j].Name
	})
}
