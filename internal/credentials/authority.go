// Package credentials issues sessions from passwords and daily PINs and administers both secrets.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/geocoder89/homeops/internal/domain/user"
	"github.com/geocoder89/homeops/internal/notifications"
	"github.com/geocoder89/homeops/internal/security"
)

// Store is the credential store adapter. Misses are reported as user.ErrNotFound.
type Store interface {
	FindByID(ctx context.Context, id string) (user.User, error)
	FindByEmail(ctx context.Context, email string) (user.User, error)
	UpdatePIN(ctx context.Context, id, pinHash string, setAt time.Time) error
	ClearPIN(ctx context.Context, id string) error
	UpdatePasswordHash(ctx context.Context, id, passwordHash string) error
}

type Hasher interface {
	Hash(plain string) (string, error)
	Check(hash, plain string) error
}

type SessionMinter interface {
	Mint(u user.User) (token string, expiresAt time.Time, err error)
}

// Recorder receives one observation per credential operation.
type Recorder interface {
	AuthOutcome(op, result string)
}

type Session struct {
	AccessToken string       `json:"access_token"`
	ExpiresAt   time.Time    `json:"expiresAt"`
	User        user.Context `json:"user"`
}

type VerifyPINInput struct {
	UserID string
	Email  string
	PIN    string
}

type Deps struct {
	Store    Store
	Sessions SessionMinter
	Notifier notifications.Notifier

	// Optional.
	Hasher      Hasher
	Logger      *slog.Logger
	Recorder    Recorder
	Now         func() time.Time
	Location    *time.Location
	GeneratePIN func() (string, error)
}

type Authority struct {
	store       Store
	sessions    SessionMinter
	notifier    notifications.Notifier
	hasher      Hasher
	log         *slog.Logger
	recorder    Recorder
	now         func() time.Time
	loc         *time.Location
	generatePIN func() (string, error)

	decoyOnce sync.Once
	decoyHash string
}

func NewAuthority(d Deps) *Authority {
	a := &Authority{
		store:       d.Store,
		sessions:    d.Sessions,
		notifier:    d.Notifier,
		hasher:      d.Hasher,
		log:         d.Logger,
		recorder:    d.Recorder,
		now:         d.Now,
		loc:         d.Location,
		generatePIN: d.GeneratePIN,
	}

	if a.hasher == nil {
		a.hasher = security.Bcrypt{}
	}
	if a.log == nil {
		a.log = slog.Default()
	}
	if a.recorder == nil {
		a.recorder = nopRecorder{}
	}
	if a.now == nil {
		a.now = time.Now
	}
	if a.loc == nil {
		a.loc = time.Local
	}
	if a.generatePIN == nil {
		a.generatePIN = security.GeneratePIN
	}

	return a
}

// Login authenticates a password-capable account by email.
func (a *Authority) Login(ctx context.Context, email, password string) (Session, error) {
	const op = "login"

	u, err := a.store.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			a.decoyCheck(password)
			return Session{}, a.reject(ctx, op, ErrInvalidCredentials, "email", email)
		}
		return Session{}, a.fail(op, fmt.Errorf("find user by email: %w", err))
	}

	if !u.HasPassword() {
		a.decoyCheck(password)
		return Session{}, a.reject(ctx, op, ErrInvalidCredentials, "user_id", u.ID)
	}

	if err := a.hasher.Check(u.PasswordHash, password); err != nil {
		return Session{}, a.reject(ctx, op, ErrInvalidCredentials, "user_id", u.ID)
	}

	return a.issue(ctx, op, u)
}

// RequestPIN issues a fresh 6-digit PIN to an ADMIN or MANAGER and hands it to the notifier.
// The PIN is never returned to the caller.
func (a *Authority) RequestPIN(ctx context.Context, email string) error {
	const op = "pin_request"

	u, err := a.store.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return a.reject(ctx, op, ErrInvalidRequest, "email", email)
		}
		return a.fail(op, fmt.Errorf("find user by email: %w", err))
	}

	if !u.Role.IsPrivileged() {
		return a.reject(ctx, op, ErrInvalidRequest, "user_id", u.ID)
	}

	pin, err := a.generatePIN()
	if err != nil {
		return a.fail(op, fmt.Errorf("generate pin: %w", err))
	}

	hash, err := a.hasher.Hash(pin)
	if err != nil {
		return a.fail(op, fmt.Errorf("hash pin: %w", err))
	}

	if err := a.store.UpdatePIN(ctx, u.ID, hash, a.now()); err != nil {
		return a.fail(op, fmt.Errorf("store pin: %w", err))
	}

	// The PIN is already valid at this point; a failed delivery is logged and the manager
	// can simply request again.
	err = a.notifier.SendPIN(ctx, notifications.SendPINInput{Email: u.Email, Name: u.Name, PIN: pin})
	if err != nil {
		a.log.WarnContext(ctx, "auth.pin_request delivery failed", "user_id", u.ID, "err", err)
		a.recorder.AuthOutcome(op, "delivery_failed")
		return nil
	}

	a.log.InfoContext(ctx, "auth.pin_request", "user_id", u.ID, "result", "ok")
	a.recorder.AuthOutcome(op, "ok")
	return nil
}

// SetPIN lets a user establish their PIN for the current server-local calendar day.
// A second set on the same day is refused and leaves the stored PIN untouched.
func (a *Authority) SetPIN(ctx context.Context, userID, pin string) error {
	const op = "pin_set"

	if !security.ValidPIN(pin) {
		return a.reject(ctx, op, ErrInvalidFormat, "user_id", userID)
	}

	u, err := a.store.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return a.reject(ctx, op, ErrNotFound, "user_id", userID)
		}
		return a.fail(op, fmt.Errorf("find user: %w", err))
	}

	now := a.now()

	if u.PINSetAt != nil && a.sameDay(*u.PINSetAt, now) {
		return a.reject(ctx, op, ErrAlreadySetToday, "user_id", u.ID)
	}

	hash, err := a.hasher.Hash(pin)
	if err != nil {
		return a.fail(op, fmt.Errorf("hash pin: %w", err))
	}

	if err := a.store.UpdatePIN(ctx, u.ID, hash, now); err != nil {
		return a.fail(op, fmt.Errorf("store pin: %w", err))
	}

	a.log.InfoContext(ctx, "auth.pin_set", "user_id", u.ID, "result", "ok")
	a.recorder.AuthOutcome(op, "ok")
	return nil
}

// VerifyPIN authenticates by PIN. UserID wins over Email when both are supplied.
// The day a PIN was set is not checked here; a PIN stays usable until it is reset or replaced.
func (a *Authority) VerifyPIN(ctx context.Context, in VerifyPINInput) (Session, error) {
	const op = "pin_verify"

	var (
		u   user.User
		err error
	)

	switch {
	case in.UserID != "":
		u, err = a.store.FindByID(ctx, in.UserID)
	case in.Email != "":
		u, err = a.store.FindByEmail(ctx, normalizeEmail(in.Email))
	default:
		return Session{}, a.reject(ctx, op, ErrInvalidCredentials)
	}

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			a.decoyCheck(in.PIN)
			return Session{}, a.reject(ctx, op, ErrInvalidCredentials, "user_id", in.UserID, "email", in.Email)
		}
		return Session{}, a.fail(op, fmt.Errorf("find user: %w", err))
	}

	if !u.HasPIN() {
		a.decoyCheck(in.PIN)
		return Session{}, a.reject(ctx, op, ErrInvalidCredentials, "user_id", u.ID)
	}

	if err := a.hasher.Check(u.PINHash, in.PIN); err != nil {
		return Session{}, a.reject(ctx, op, ErrInvalidCredentials, "user_id", u.ID)
	}

	return a.issue(ctx, op, u)
}

// ResetPIN clears a user's PIN so they must set a new one. Callers must already hold ADMIN.
func (a *Authority) ResetPIN(ctx context.Context, userID string) error {
	const op = "pin_reset"

	if err := a.store.ClearPIN(ctx, userID); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return a.reject(ctx, op, ErrNotFound, "user_id", userID)
		}
		return a.fail(op, fmt.Errorf("clear pin: %w", err))
	}

	a.log.InfoContext(ctx, "auth.pin_reset", "user_id", userID, "result", "ok")
	a.recorder.AuthOutcome(op, "ok")
	return nil
}

// ResetPassword replaces a user's password. Callers must already hold ADMIN.
func (a *Authority) ResetPassword(ctx context.Context, userID, password string) error {
	const op = "password_reset"

	if !security.ValidPassword(password) {
		return a.reject(ctx, op, ErrInvalidFormat, "user_id", userID)
	}

	hash, err := a.hasher.Hash(password)
	if err != nil {
		return a.fail(op, fmt.Errorf("hash password: %w", err))
	}

	if err := a.store.UpdatePasswordHash(ctx, userID, hash); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return a.reject(ctx, op, ErrNotFound, "user_id", userID)
		}
		return a.fail(op, fmt.Errorf("store password: %w", err))
	}

	a.log.InfoContext(ctx, "auth.password_reset", "user_id", userID, "result", "ok")
	a.recorder.AuthOutcome(op, "ok")
	return nil
}

// decoyCheck runs one bcrypt comparison against a throwaway hash so that a miss costs
// the same as a wrong secret. The decoy is hashed with the configured hasher to match its cost.
func (a *Authority) decoyCheck(secret string) {
	a.decoyOnce.Do(func() {
		a.decoyHash, _ = a.hasher.Hash("homeops-decoy-credential")
	})
	_ = a.hasher.Check(a.decoyHash, secret)
}

func (a *Authority) issue(ctx context.Context, op string, u user.User) (Session, error) {
	token, expiresAt, err := a.sessions.Mint(u)
	if err != nil {
		return Session{}, a.fail(op, fmt.Errorf("mint session: %w", err))
	}

	a.log.InfoContext(ctx, "auth."+op, "user_id", u.ID, "role", u.Role, "result", "ok")
	a.recorder.AuthOutcome(op, "ok")

	return Session{AccessToken: token, ExpiresAt: expiresAt, User: u.Context()}, nil
}

func (a *Authority) reject(ctx context.Context, op string, err error, attrs ...any) error {
	result := resultLabel(err)
	a.log.InfoContext(ctx, "auth."+op, append(attrs, "result", result)...)
	a.recorder.AuthOutcome(op, result)
	return err
}

func (a *Authority) fail(op string, err error) error {
	a.recorder.AuthOutcome(op, "error")
	return err
}

// sameDay compares calendar dates in the server's location, midnight-truncated.
func (a *Authority) sameDay(x, y time.Time) bool {
	xy, xm, xd := x.In(a.loc).Date()
	yy, ym, yd := y.In(a.loc).Date()
	return xy == yy && xm == ym && xd == yd
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, ErrInvalidFormat):
		return "invalid_format"
	case errors.Is(err, ErrAlreadySetToday):
		return "already_set_today"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

type nopRecorder struct{}

func (nopRecorder) AuthOutcome(string, string) {}
