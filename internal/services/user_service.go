package services

import (
	"context"
	"time"

	"github.com/veilport/veilport/internal/auth"
	"github.com/veilport/veilport/internal/domain/user"
	"github.com/veilport/veilport/internal/pkg/errors"
	"github.com/veilport/veilport/internal/pkg/logger"
	"github.com/veilport/veilport/internal/pkg/metrics"
)

// UserService implements user.Service
type UserService struct {
	repo   user.Repository
	hasher *auth.PasswordHasher
	totp   *auth.TOTP
	logger *logger.Logger
}

// NewUserService creates a new user service
func NewUserService(repo user.Repository, hasher *auth.PasswordHasher, totp *auth.TOTP, log *logger.Logger) user.Service {
	return &UserService{
		repo:   repo,
		hasher: hasher,
		totp:   totp,
		logger: log,
	}
}

// Register creates a new user account
func (s *UserService) Register(ctx context.Context, username, email, password string) (*user.User, error) {
	if existing, err := s.repo.GetByUsername(ctx, username); err == nil && existing != nil {
		return nil, errors.Conflict("Username already taken")
	}
	if existing, err := s.repo.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, errors.Conflict("Email already registered")
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.ErrorWithErr(err, "Failed to hash password")
		return nil, errors.Internal("Failed to create user", err)
	}

	u := &user.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         user.RoleUser,
	}

	if err := s.repo.Create(ctx, u); err != nil {
		s.logger.ErrorWithErr(err, "Failed to create user")
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id":  u.ID,
		"username": u.Username,
	}).Info("User registered")

	return u, nil
}

// Authenticate checks username and password. The rejection for an unknown
// username and for a wrong password is the same value, so callers cannot
// probe which usernames exist.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*user.LoginResult, error) {
	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		// A store outage is not a credential failure. Log it in full and
		// report a generic internal error instead of a 401.
		if !errors.IsNotFound(err) {
			s.logger.ErrorWithErr(err, "Failed to look up user")
			return nil, errors.DatabaseError("Failed to authenticate", err)
		}
		metrics.RecordLoginAttempt("failure")
		return nil, errors.InvalidCredentials()
	}

	if !s.hasher.Verify(password, u.PasswordHash) {
		metrics.RecordLoginAttempt("failure")
		return nil, errors.InvalidCredentials()
	}

	s.stampLastLogin(ctx, u)

	if u.TwoFactorEnabled {
		metrics.RecordLoginAttempt("second_factor_required")
		return &user.LoginResult{User: u, Requires2FA: true}, nil
	}

	metrics.RecordLoginAttempt("success")
	return &user.LoginResult{User: u}, nil
}

// VerifySecondFactor validates a TOTP code or a recovery code for a user that
// passed the credential check. TOTP and recovery rejections share one message.
func (s *UserService) VerifySecondFactor(ctx context.Context, username, totpCode, recoveryCode string) (*user.User, error) {
	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil && !errors.IsNotFound(err) {
		s.logger.ErrorWithErr(err, "Failed to look up user")
		return nil, errors.DatabaseError("Failed to validate second factor", err)
	}
	if err != nil || !u.TwoFactorEnabled {
		return nil, errors.New(errors.ErrCodeNotFound, "User not found or 2FA not enabled", 404)
	}

	if totpCode != "" && s.totp.Verify(u.TwoFactorSecret, totpCode, time.Now()) {
		metrics.RecordSecondFactorCheck("totp", "success")
		s.stampLastLogin(ctx, u)
		return u, nil
	}

	if recoveryCode != "" {
		remaining, found := auth.ConsumeRecoveryCode(u.RecoveryCodes, recoveryCode)
		if found {
			u.RecoveryCodes = remaining
			if err := s.repo.Update(ctx, u); err != nil {
				s.logger.ErrorWithErr(err, "Failed to consume recovery code")
				return nil, errors.DatabaseError("Failed to update user", err)
			}
			metrics.RecordSecondFactorCheck("recovery", "success")
			s.stampLastLogin(ctx, u)

			s.logger.WithFields(map[string]interface{}{
				"user_id":   u.ID,
				"remaining": len(remaining),
			}).Info("Recovery code consumed")

			return u, nil
		}
	}

	method := "totp"
	if totpCode == "" && recoveryCode != "" {
		method = "recovery"
	}
	metrics.RecordSecondFactorCheck(method, "failure")
	return nil, errors.InvalidSecondFactor()
}

// BeginTwoFactorSetup stores a fresh secret and recovery codes for the user
// without enabling 2FA. Enabling happens in ConfirmTwoFactor once the user
// submits a valid code from their authenticator.
func (s *UserService) BeginTwoFactorSetup(ctx context.Context, userID int64, password string) (*user.TwoFactorSetup, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !s.hasher.Verify(password, u.PasswordHash) {
		return nil, errors.Unauthorized("Invalid password")
	}

	secret, err := s.totp.GenerateSecret()
	if err != nil {
		s.logger.ErrorWithErr(err, "Failed to generate TOTP secret")
		return nil, errors.Internal("Failed to start 2FA setup", err)
	}

	codes, err := auth.GenerateRecoveryCodes(auth.RecoveryCodeCount)
	if err != nil {
		s.logger.ErrorWithErr(err, "Failed to generate recovery codes")
		return nil, errors.Internal("Failed to start 2FA setup", err)
	}

	u.TwoFactorSecret = secret
	u.RecoveryCodes = codes
	u.TwoFactorEnabled = false

	if err := s.repo.Update(ctx, u); err != nil {
		s.logger.ErrorWithErr(err, "Failed to store 2FA setup")
		return nil, errors.DatabaseError("Failed to update user", err)
	}

	return &user.TwoFactorSetup{
		Secret:          secret,
		ProvisioningURI: s.totp.ProvisioningURI(secret, u.Username),
		RecoveryCodes:   codes,
	}, nil
}

// ConfirmTwoFactor enables 2FA after the user proves possession of the secret.
func (s *UserService) ConfirmTwoFactor(ctx context.Context, userID int64, code string) error {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if u.TwoFactorSecret == "" {
		return errors.BadRequest("2FA setup has not been started")
	}

	if !s.totp.Verify(u.TwoFactorSecret, code, time.Now()) {
		return errors.BadRequest("Invalid 2FA token")
	}

	u.TwoFactorEnabled = true
	if err := s.repo.Update(ctx, u); err != nil {
		s.logger.ErrorWithErr(err, "Failed to enable 2FA")
		return errors.DatabaseError("Failed to update user", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id": u.ID,
	}).Info("Two-factor authentication enabled")

	return nil
}

// DisableTwoFactor turns 2FA off. The password is always checked; while 2FA
// is enabled a valid TOTP code is also required.
func (s *UserService) DisableTwoFactor(ctx context.Context, userID int64, password, code string) error {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if !s.hasher.Verify(password, u.PasswordHash) {
		return errors.Unauthorized("Invalid password")
	}

	if u.TwoFactorEnabled {
		if !s.totp.Verify(u.TwoFactorSecret, code, time.Now()) {
			return errors.BadRequest("Invalid 2FA token")
		}
	}

	u.TwoFactorEnabled = false
	u.TwoFactorSecret = ""
	u.RecoveryCodes = nil

	if err := s.repo.Update(ctx, u); err != nil {
		s.logger.ErrorWithErr(err, "Failed to disable 2FA")
		return errors.DatabaseError("Failed to update user", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id": u.ID,
	}).Info("Two-factor authentication disabled")

	return nil
}

// GetByID retrieves a user by ID
func (s *UserService) GetByID(ctx context.Context, id int64) (*user.User, error) {
	return s.repo.GetByID(ctx, id)
}

// GetByUsername retrieves a user by username
func (s *UserService) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	return s.repo.GetByUsername(ctx, username)
}

// List retrieves users with pagination
func (s *UserService) List(ctx context.Context, limit, offset int) ([]*user.User, int64, error) {
	return s.repo.List(ctx, limit, offset)
}

// EnsureAdmin creates the bootstrap admin account if it does not exist yet.
func (s *UserService) EnsureAdmin(ctx context.Context, username, email, password string) (*user.User, error) {
	if existing, err := s.repo.GetByUsername(ctx, username); err == nil && existing != nil {
		return existing, nil
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, errors.Internal("Failed to create admin", err)
	}

	u := &user.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         user.RoleAdmin,
	}

	if err := s.repo.Create(ctx, u); err != nil {
		s.logger.ErrorWithErr(err, "Failed to create admin")
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id":  u.ID,
		"username": u.Username,
	}).Info("Bootstrap admin created")

	return u, nil
}

// stampLastLogin records the login time. A failure here does not block the
// login decision.
func (s *UserService) stampLastLogin(ctx context.Context, u *user.User) {
	now := time.Now()
	u.LastLogin = &now
	if err := s.repo.Update(ctx, u); err != nil {
		s.logger.ErrorWithErr(err, "Failed to record last login")
	}
}
