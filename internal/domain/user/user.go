package user

import (
	"errors"
	"slices"
	"time"
)

type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleManager Role = "MANAGER"
	RoleDriver  Role = "DRIVER"
	RoleNanny   Role = "NANNY"
	RoleMaid    Role = "MAID"
)

var AllRoles = []Role{RoleAdmin, RoleManager, RoleDriver, RoleNanny, RoleMaid}

// StaffRoles is the subset of AllRoles that uses the shared PIN terminal.
func StaffRoles() []Role {
	out := make([]Role, 0, len(AllRoles))
	for _, r := range AllRoles {
		if r.IsStaff() {
			out = append(out, r)
		}
	}
	return out
}

var (
	ErrNotFound       = errors.New("user not found")
	ErrEmailTaken     = errors.New("email already in use")
	ErrInvalidRole    = errors.New("invalid role")
	ErrAdminProtected = errors.New("admin accounts cannot be deleted")
)

func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.IsValid() {
		return "", ErrInvalidRole
	}
	return r, nil
}

func (r Role) IsValid() bool {
	return slices.Contains(AllRoles, r)
}

// IsPrivileged reports whether the role may log in with a password and request a PIN by email.
func (r Role) IsPrivileged() bool {
	return r == RoleAdmin || r == RoleManager
}

// IsStaff reports whether the role sets its own PIN at the shared terminal.
func (r Role) IsStaff() bool {
	return r == RoleDriver || r == RoleNanny || r == RoleMaid
}

func (r Role) String() string { return string(r) }

// User is the stored account record. Hash fields never leave the process.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	Phone        string     `json:"phone,omitempty"`
	Role         Role       `json:"role"`
	PasswordHash string     `json:"-"`
	PINHash      string     `json:"-"`
	PINSetAt     *time.Time `json:"pinSetAt,omitempty"`
	Language     string     `json:"language"`
	AltLanguage  string     `json:"altLanguage,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func (u User) HasPassword() bool { return u.PasswordHash != "" }

func (u User) HasPIN() bool { return u.PINHash != "" }

// Context returns the lightweight identity handed to resource handlers.
func (u User) Context() Context {
	return Context{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Role:        u.Role,
		Language:    u.Language,
		AltLanguage: u.AltLanguage,
	}
}

// Context is the per-request identity reconstructed by the authorization gate.
type Context struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	Role        Role   `json:"role"`
	Language    string `json:"language"`
	AltLanguage string `json:"altLanguage,omitempty"`
}

// StaffEntry is what the shared terminal needs to offer a PIN login.
type StaffEntry struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Role     Role       `json:"role"`
	Language string     `json:"language"`
	PINSetAt *time.Time `json:"pinSetAt"`
}
