package user

import "time"

// User represents an account in the system
type User struct {
	ID               int64      `json:"id"`
	Username         string     `json:"username"`
	Email            string     `json:"email"`
	PasswordHash     string     `json:"-"` // Not exposed in JSON
	Role             string     `json:"role"`
	TwoFactorEnabled bool       `json:"two_factor_enabled"`
	TwoFactorSecret  string     `json:"-"`
	RecoveryCodes    []string   `json:"-"`
	IsPremium        bool       `json:"is_premium"`
	PremiumExpiry    *time.Time `json:"premium_expiry,omitempty"`
	LastLogin        *time.Time `json:"last_login,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// User roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// TwoFactorSetup holds the material handed to a user starting 2FA enrollment.
// The secret is stored immediately but 2FA stays disabled until the user
// proves possession by submitting a valid code.
type TwoFactorSetup struct {
	Secret          string   `json:"secret"`
	ProvisioningURI string   `json:"provisioning_uri"`
	RecoveryCodes   []string `json:"recovery_codes"`
}

// LoginResult is the outcome of a successful credential check. When the
// account has 2FA enabled, Requires2FA is true and no session may be issued
// until the second factor is validated.
type LoginResult struct {
	User        *User
	Requires2FA bool
}
