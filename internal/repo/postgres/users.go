package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/geocoder89/homeops/internal/domain/user"
	"github.com/geocoder89/homeops/internal/observability"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, email, name, phone, role,
	COALESCE(password_hash, ''), COALESCE(pin_hash, ''), pin_set_at,
	language, alt_language, created_at, updated_at`

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

// IsUniqueViolation reports whether err is a Postgres unique_violation (23505).
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// validID filters ids that cannot match the uuid column, so they read as a miss
// rather than a cast error.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&u.Phone,
		&u.Role,
		&u.PasswordHash,
		&u.PINHash,
		&u.PINSetAt,
		&u.Language,
		&u.AltLanguage,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) FindByID(ctx context.Context, id string) (user.User, error) {
	if !validID(id) {
		return user.User{}, user.ErrNotFound
	}

	var u user.User
	err := r.observe("users.find_by_id", func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
		return err
	})
	return u, err
}

func (r *UsersRepo) FindByEmail(ctx context.Context, email string) (user.User, error) {
	if email == "" {
		return user.User{}, user.ErrNotFound
	}

	var u user.User
	err := r.observe("users.find_by_email", func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
		return err
	})
	return u, err
}

func (r *UsersRepo) UpdatePIN(ctx context.Context, id, pinHash string, setAt time.Time) error {
	return r.execOne(ctx, "users.update_pin",
		`UPDATE users SET pin_hash = $2, pin_set_at = $3, updated_at = NOW() WHERE id = $1`,
		id, pinHash, setAt.UTC())
}

func (r *UsersRepo) ClearPIN(ctx context.Context, id string) error {
	return r.execOne(ctx, "users.clear_pin",
		`UPDATE users SET pin_hash = NULL, pin_set_at = NULL, updated_at = NOW() WHERE id = $1`,
		id)
}

func (r *UsersRepo) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	return r.execOne(ctx, "users.update_password",
		`UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`,
		id, passwordHash)
}

func (r *UsersRepo) List(ctx context.Context) ([]user.User, error) {
	return r.query(ctx, "users.list",
		`SELECT `+userColumns+` FROM users ORDER BY name ASC, id ASC`)
}

func (r *UsersRepo) ListByRoles(ctx context.Context, roles []user.Role) ([]user.User, error) {
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, string(role))
	}

	return r.query(ctx, "users.list_by_roles",
		`SELECT `+userColumns+` FROM users WHERE role = ANY($1) ORDER BY name ASC, id ASC`, names)
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	now := time.Now().UTC()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt = now
	u.UpdatedAt = now

	err := r.observe("users.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO users (id, email, name, phone, role, password_hash, language, alt_language, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9, $10)`,
			u.ID, u.Email, u.Name, u.Phone, string(u.Role), u.PasswordHash, u.Language, u.AltLanguage, u.CreatedAt, u.UpdatedAt,
		)
		return err
	})
	if err != nil {
		if IsUniqueViolation(err) {
			return user.User{}, user.ErrEmailTaken
		}
		return user.User{}, err
	}

	return u, nil
}

// Update applies only the non-nil fields of req.
func (r *UsersRepo) Update(ctx context.Context, id string, req user.UpdateUserRequest) (user.User, error) {
	if !validID(id) {
		return user.User{}, user.ErrNotFound
	}

	var (
		sets []string
		args = []any{id}
	)

	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if req.Name != nil {
		add("name", *req.Name)
	}
	if req.Phone != nil {
		add("phone", *req.Phone)
	}
	if req.Language != nil {
		add("language", *req.Language)
	}

	if len(sets) == 0 {
		return r.FindByID(ctx, id)
	}

	sets = append(sets, "updated_at = NOW()")

	var u user.User
	err := r.observe("users.update", func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx,
			`UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = $1 RETURNING `+userColumns, args...))
		return err
	})
	return u, err
}

func (r *UsersRepo) Delete(ctx context.Context, id string) error {
	return r.execOne(ctx, "users.delete", `DELETE FROM users WHERE id = $1`, id)
}

// execOne runs a single-row write keyed by id ($1) and reports a miss as user.ErrNotFound.
func (r *UsersRepo) execOne(ctx context.Context, op, sql, id string, args ...any) error {
	if !validID(id) {
		return user.ErrNotFound
	}
	args = append([]any{id}, args...)

	var tag pgconn.CommandTag
	err := r.observe(op, func() error {
		var err error
		tag, err = r.pool.Exec(ctx, sql, args...)
		return err
	})
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (r *UsersRepo) query(ctx context.Context, op, sql string, args ...any) ([]user.User, error) {
	out := make([]user.User, 0)

	err := r.observe(op, func() error {
		rows, err := r.pool.Query(ctx, sql, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			u, err := scanUser(rows)
			if err != nil {
				return err
			}
			out = append(out, u)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
