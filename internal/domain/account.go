package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Admin account roles.
const (
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

var validRoles = map[string]bool{
	RoleAdmin:      true,
	RoleSuperAdmin: true,
}

func IsValidRole(role string) bool {
	return validRoles[role]
}

type Account struct {
	ID                int64      `json:"id"`
	Email             string     `json:"email"`
	PasswordHash      string     `json:"-"`
	Name              string     `json:"name"`
	Role              string     `json:"role"`
	IsActive          bool       `json:"is_active"`
	FailedAttempts    int        `json:"-"`
	LockUntil         *time.Time `json:"-"`
	LastLoginAt       *time.Time `json:"last_login_at,omitempty"`
	PasswordChangedAt time.Time  `json:"-"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Locked reports whether the account lockout is still in force.
func (a *Account) Locked(now time.Time) bool {
	return a.LockUntil != nil && now.Before(*a.LockUntil)
}

type LoginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
}

type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresIn int64        `json:"expires_in"`
	User      *AccountInfo `json:"user"`
}

type AccountInfo struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (r *LoginRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

func (r *LoginRequest) Validate() error {
	if r.Email == "" {
		return fmt.Errorf("email is required")
	}
	if !isValidEmail(r.Email) {
		return fmt.Errorf("invalid email format")
	}
	if r.Password == "" {
		return fmt.Errorf("password is required")
	}
	return nil
}

func (r *ChangePasswordRequest) Validate() error {
	if r.CurrentPassword == "" {
		return fmt.Errorf("current password is required")
	}
	if r.NewPassword == "" {
		return fmt.Errorf("new password is required")
	}
	if len(r.NewPassword) < 8 {
		return fmt.Errorf("new password must be at least 8 characters")
	}
	return nil
}

func (a *Account) ToAccountInfo() *AccountInfo {
	return &AccountInfo{
		ID:    a.ID,
		Email: a.Email,
		Name:  a.Name,
		Role:  a.Role,
	}
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func isValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}
