package user

import "context"

// Service defines the interface for account and login business logic
type Service interface {
	// Register creates a new user account with role "user"
	Register(ctx context.Context, username, email, password string) (*User, error)

	// Authenticate checks credentials. On success it stamps lastLogin and
	// reports whether a second factor is still required before a session
	// may be issued. Failures are uniform and never disclose which part
	// of the credentials was wrong.
	Authenticate(ctx context.Context, username, password string) (*LoginResult, error)

	// VerifySecondFactor validates a TOTP code or a recovery code for a user
	// mid-login. A consumed recovery code is removed permanently.
	VerifySecondFactor(ctx context.Context, username, totpCode, recoveryCode string) (*User, error)

	// BeginTwoFactorSetup verifies the password, generates a secret,
	// provisioning URI and recovery codes, and stores them without
	// enabling 2FA yet.
	BeginTwoFactorSetup(ctx context.Context, userID int64, password string) (*TwoFactorSetup, error)

	// ConfirmTwoFactor enables 2FA after the user proves possession of the
	// secret by submitting a valid code.
	ConfirmTwoFactor(ctx context.Context, userID int64, code string) error

	// DisableTwoFactor turns 2FA off. The password is always required; a
	// valid TOTP code is additionally required while 2FA is enabled.
	DisableTwoFactor(ctx context.Context, userID int64, password, code string) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id int64) (*User, error)

	// GetByUsername retrieves a user by username
	GetByUsername(ctx context.Context, username string) (*User, error)

	// List retrieves users with pagination
	List(ctx context.Context, limit, offset int) ([]*User, int64, error)

	// EnsureAdmin creates the bootstrap admin account if no user with that
	// username exists. Idempotent.
	EnsureAdmin(ctx context.Context, username, email, password string) (*User, error)
}
