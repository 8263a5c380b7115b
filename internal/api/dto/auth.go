// Package dto defines the request and response shapes of the HTTP API.
package dto

import (
	"time"

	"github.com/veilport/veilport/internal/domain/user"
)

// RegisterRequest is the payload for creating an account
type RegisterRequest struct {
	Username        string `json:"username" validate:"required,alphanum,min=3,max=50"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

// LoginRequest is the payload for the first login step
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Validate2FARequest is the payload for the second login step. Exactly one of
// Token and RecoveryCode is expected; Token wins when both are sent.
type Validate2FARequest struct {
	Username     string `json:"username" validate:"required"`
	Token        string `json:"token" validate:"omitempty,len=6,numeric"`
	RecoveryCode string `json:"recoveryCode" validate:"omitempty,min=8"`
}

// Setup2FARequest starts 2FA enrollment
type Setup2FARequest struct {
	Password string `json:"password" validate:"required"`
}

// Verify2FARequest completes 2FA enrollment
type Verify2FARequest struct {
	Token string `json:"token" validate:"required,len=6,numeric"`
}

// Disable2FARequest turns 2FA off
type Disable2FARequest struct {
	Password string `json:"password" validate:"required"`
	Token    string `json:"token" validate:"omitempty,len=6,numeric"`
}

// UserResponse is the public view of a user
type UserResponse struct {
	ID               int64      `json:"id"`
	Username         string     `json:"username"`
	Email            string     `json:"email"`
	Role             string     `json:"role"`
	TwoFactorEnabled bool       `json:"twoFactorEnabled"`
	IsPremium        bool       `json:"isPremium"`
	PremiumExpiry    *time.Time `json:"premiumExpiry,omitempty"`
	LastLogin        *time.Time `json:"lastLogin,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// NewUserResponse converts a domain user to its public view
func NewUserResponse(u *user.User) *UserResponse {
	return &UserResponse{
		ID:               u.ID,
		Username:         u.Username,
		Email:            u.Email,
		Role:             u.Role,
		TwoFactorEnabled: u.TwoFactorEnabled,
		IsPremium:        u.IsPremium,
		PremiumExpiry:    u.PremiumExpiry,
		LastLogin:        u.LastLogin,
		CreatedAt:        u.CreatedAt,
	}
}

// LoginResponse is the result of a completed login. The token is also set as
// an HttpOnly cookie; the body copy serves non-browser clients.
type LoginResponse struct {
	Token string        `json:"token"`
	User  *UserResponse `json:"user"`
}

// TwoFactorPendingResponse tells the client to collect a second factor. No
// session exists yet at this point.
type TwoFactorPendingResponse struct {
	Requires2FA bool   `json:"requires2FA"`
	Username    string `json:"username"`
}

// TwoFactorSetupResponse carries the enrollment material. The secret and the
// recovery codes are shown exactly once.
type TwoFactorSetupResponse struct {
	Secret          string   `json:"secret"`
	ProvisioningURI string   `json:"provisioningUri"`
	RecoveryCodes   []string `json:"recoveryCodes"`
}

// ListUsersResponse is the admin user listing
type ListUsersResponse struct {
	Users []*UserResponse `json:"users"`
	Total int64           `json:"total"`
}
