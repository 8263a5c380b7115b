package services

import (
	"context"
	"testing"
	"time"

	"github.com/veilport/veilport/internal/auth"
	"github.com/veilport/veilport/internal/domain/user"
	"github.com/veilport/veilport/internal/pkg/errors"
	"github.com/veilport/veilport/internal/pkg/logger"
	"github.com/veilport/veilport/internal/testutil"
)

func newTestUserService() (user.Service, *testutil.MockUserRepository, *auth.TOTP) {
	repo := testutil.NewMockUserRepository()
	totp := auth.NewTOTP("Veilport")
	log := logger.New(logger.Config{Level: "error", Format: "console"})
	svc := NewUserService(repo, auth.NewPasswordHasher(4), totp, log)
	return svc, repo, totp
}

func registerUser(t *testing.T, svc user.Service, username, password string) *user.User {
	t.Helper()
	u, err := svc.Register(context.Background(), username, username+"@example.com", password)
	if err != nil {
		t.Fatalf("Register(%s): %v", username, err)
	}
	return u
}

// enableTwoFactor walks the real enrollment flow and returns the secret.
func enableTwoFactor(t *testing.T, svc user.Service, totp *auth.TOTP, userID int64, password string) string {
	t.Helper()
	setup, err := svc.BeginTwoFactorSetup(context.Background(), userID, password)
	if err != nil {
		t.Fatalf("BeginTwoFactorSetup: %v", err)
	}
	code, err := totp.CodeAt(setup.Secret, time.Now())
	if err != nil {
		t.Fatalf("CodeAt: %v", err)
	}
	if err := svc.ConfirmTwoFactor(context.Background(), userID, code); err != nil {
		t.Fatalf("ConfirmTwoFactor: %v", err)
	}
	return setup.Secret
}

func appErr(t *testing.T, err error) *errors.AppError {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error, got nil")
	}
	ae, ok := err.(*errors.AppError)
	if !ok {
		t.Fatalf("expected *errors.AppError, got %T: %v", err, err)
	}
	return ae
}

func TestRegisterDuplicates(t *testing.T) {
	svc, _, _ := newTestUserService()
	ctx := context.Background()

	registerUser(t, svc, "alice", "password123")

	if _, err := svc.Register(ctx, "alice", "other@example.com", "password123"); err == nil {
		t.Error("duplicate username accepted")
	}
	if _, err := svc.Register(ctx, "alice2", "alice@example.com", "password123"); err == nil {
		t.Error("duplicate email accepted")
	}
}

func TestAuthenticateUniformFailure(t *testing.T) {
	svc, _, _ := newTestUserService()
	ctx := context.Background()

	registerUser(t, svc, "alice", "password123")

	_, errUnknown := svc.Authenticate(ctx, "nobody", "password123")
	_, errWrongPw := svc.Authenticate(ctx, "alice", "wrongpassword")

	aeUnknown := appErr(t, errUnknown)
	aeWrongPw := appErr(t, errWrongPw)

	if aeUnknown.Message != errors.MsgInvalidCredentials {
		t.Errorf("unknown-user message = %q, want %q", aeUnknown.Message, errors.MsgInvalidCredentials)
	}
	if aeUnknown.Message != aeWrongPw.Message || aeUnknown.StatusCode != aeWrongPw.StatusCode {
		t.Error("unknown-user and wrong-password failures are distinguishable")
	}
	if aeUnknown.StatusCode != 401 {
		t.Errorf("status = %d, want 401", aeUnknown.StatusCode)
	}
}

func TestAuthenticateStoreOutageIsNotCredentialFailure(t *testing.T) {
	svc, repo, _ := newTestUserService()
	ctx := context.Background()

	registerUser(t, svc, "alice", "password123")
	repo.GetErr = errors.DatabaseError("connection refused", nil)

	_, err := svc.Authenticate(ctx, "alice", "password123")
	ae := appErr(t, err)
	if ae.Code != errors.ErrCodeDatabase {
		t.Errorf("code = %q, want %q", ae.Code, errors.ErrCodeDatabase)
	}
	if ae.StatusCode != 500 {
		t.Errorf("status = %d, want 500", ae.StatusCode)
	}
	if ae.Message == errors.MsgInvalidCredentials {
		t.Error("store outage reported as a credential failure")
	}
}

func TestAuthenticateStampsLastLogin(t *testing.T) {
	svc, repo, _ := newTestUserService()
	ctx := context.Background()

	u := registerUser(t, svc, "alice", "password123")

	result, err := svc.Authenticate(ctx, "alice", "password123")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if result.Requires2FA {
		t.Error("Requires2FA = true for an account without 2FA")
	}

	stored, err := repo.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.LastLogin == nil {
		t.Error("LastLogin not stamped")
	}
}

func TestAuthenticateRequiresSecondFactor(t *testing.T) {
	svc, _, totp := newTestUserService()
	ctx := context.Background()

	u := registerUser(t, svc, "alice", "password123")
	enableTwoFactor(t, svc, totp, u.ID, "password123")

	result, err := svc.Authenticate(ctx, "alice", "password123")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if !result.Requires2FA {
		t.Error("Requires2FA = false for an account with 2FA enabled")
	}
}

func TestVerifySecondFactorTOTP(t *testing.T) {
	svc, _, totp := newTestUserService()
	ctx := context.Background()

	u := registerUser(t, svc, "alice", "password123")
	secret := enableTwoFactor(t, svc, totp, u.ID, "password123")

	code, _ := totp.CodeAt(secret, time.Now())
	if _, err := svc.VerifySecondFactor(ctx, "alice", code, ""); err != nil {
		t.Errorf("valid TOTP code rejected: %v", err)
	}

	_, err := svc.VerifySecondFactor(ctx, "alice", "000000", "")
	ae := appErr(t, err)
	if ae.Message != errors.MsgInvalidSecondFactor {
		t.Errorf("message = %q, want %q", ae.Message, errors.MsgInvalidSecondFactor)
	}
}

func TestVerifySecondFactorRecoveryCodeSingleUse(t *testing.T) {
	svc, repo, totp := newTestUserService()
	ctx := context.Background()

	u := registerUser(t, svc, "alice", "password123")
	setup, err := svc.BeginTwoFactorSetup(ctx, u.ID, "password123")
	if err != nil {
		t.Fatalf("BeginTwoFactorSetup: %v", err)
	}
	code, _ := totp.CodeAt(setup.Secret, time.Now())
	if err := svc.ConfirmTwoFactor(ctx, u.ID, code); err != nil {
		t.Fatalf("ConfirmTwoFactor: %v", err)
	}

	recovery := setup.RecoveryCodes[0]
	if _, err := svc.VerifySecondFactor(ctx, "alice", "", recovery); err != nil {
		t.Fatalf("valid recovery code rejected: %v", err)
	}

	stored, _ := repo.GetByID(ctx, u.ID)
	if len(stored.RecoveryCodes) != len(setup.RecoveryCodes)-1 {
		t.Errorf("recovery codes remaining = %d, want %d", len(stored.RecoveryCodes), len(setup.RecoveryCodes)-1)
	}

	// Same code again must fail with the uniform message.
	_, err = svc.VerifySecondFactor(ctx, "alice", "", recovery)
	ae := appErr(t, err)
	if ae.Message != errors.MsgInvalidSecondFactor {
		t.Errorf("message = %q, want %q", ae.Message, errors.MsgInvalidSecondFactor)
	}
}

func TestVerifySecondFactorWithout2FA(t *testing.T) {
	svc, _, _ := newTestUserService()
	ctx := context.Background()

	registerUser(t, svc, "alice", "password123")

	_, err := svc.VerifySecondFactor(ctx, "alice", "123456", "")
	if ae := appErr(t, err); ae.StatusCode != 404 {
		t.Errorf("status = %d, want 404", ae.StatusCode)
	}

	_, err = svc.VerifySecondFactor(ctx, "nobody", "123456", "")
	if ae := appErr(t, err); ae.StatusCode != 404 {
		t.Errorf("status = %d, want 404", ae.StatusCode)
	}
}

func TestBeginTwoFactorSetupWrongPassword(t *testing.T) {
	svc, _, _ := newTestUserService()
	ctx := context.Background()

	u := registerUser(t, svc, "alice", "password123")

	_, err := svc.BeginTwoFactorSetup(ctx, u.ID, "wrongpassword")
	if ae := appErr(t, err); ae.StatusCode != 401 {
		t.Errorf("status = %d, want 401", ae.StatusCode)
	}
}

func TestSetupDoesNotEnableUntilConfirmed(t *testing.T) {
	svc, repo, _ := newTestUserService()
	ctx := context.Background()

	u := registerUser(t, svc, "alice", "password123")

	setup, err := svc.BeginTwoFactorSetup(ctx, u.ID, "password123")
	if err != nil {
		t.Fatalf("BeginTwoFactorSetup: %v", err)
	}
	if len(setup.RecoveryCodes) != auth.RecoveryCodeCount {
		t.Errorf("recovery codes = %d, want %d", len(setup.RecoveryCodes), auth.RecoveryCodeCount)
	}

	stored, _ := repo.GetByID(ctx, u.ID)
	if stored.TwoFactorEnabled {
		t.Error("2FA enabled before confirmation")
	}
	if stored.TwoFactorSecret == "" {
		t.Error("secret not stored during setup")
	}

	if err := svc.ConfirmTwoFactor(ctx, u.ID, "000000"); err == nil {
		t.Error("ConfirmTwoFactor accepted a wrong code")
	}
	stored, _ = repo.GetByID(ctx, u.ID)
	if stored.TwoFactorEnabled {
		t.Error("2FA enabled after a failed confirmation")
	}
}

func TestConfirmTwoFactorWithoutSetup(t *testing.T) {
	svc, _, _ := newTestUserService()
	ctx := context.Background()

	u := registerUser(t, svc, "alice", "password123")

	if err := svc.ConfirmTwoFactor(ctx, u.ID, "123456"); err == nil {
		t.Error("ConfirmTwoFactor succeeded with no setup in progress")
	}
}

func TestDisableTwoFactor(t *testing.T) {
	svc, repo, totp := newTestUserService()
	ctx := context.Background()

	u := registerUser(t, svc, "alice", "password123")
	secret := enableTwoFactor(t, svc, totp, u.ID, "password123")

	if err := svc.DisableTwoFactor(ctx, u.ID, "wrongpassword", ""); err == nil {
		t.Error("DisableTwoFactor accepted a wrong password")
	}
	if err := svc.DisableTwoFactor(ctx, u.ID, "password123", "000000"); err == nil {
		t.Error("DisableTwoFactor accepted a wrong TOTP code")
	}

	code, _ := totp.CodeAt(secret, time.Now())
	if err := svc.DisableTwoFactor(ctx, u.ID, "password123", code); err != nil {
		t.Fatalf("DisableTwoFactor: %v", err)
	}

	stored, _ := repo.GetByID(ctx, u.ID)
	if stored.TwoFactorEnabled {
		t.Error("2FA still enabled")
	}
	if stored.TwoFactorSecret != "" {
		t.Error("secret not cleared")
	}
	if len(stored.RecoveryCodes) != 0 {
		t.Error("recovery codes not cleared")
	}
}

func TestEnsureAdminIdempotent(t *testing.T) {
	svc, _, _ := newTestUserService()
	ctx := context.Background()

	first, err := svc.EnsureAdmin(ctx, "admin", "admin@localhost", "adminpassword")
	if err != nil {
		t.Fatalf("EnsureAdmin: %v", err)
	}
	if first.Role != user.RoleAdmin {
		t.Errorf("role = %s, want %s", first.Role, user.RoleAdmin)
	}

	second, err := svc.EnsureAdmin(ctx, "admin", "admin@localhost", "differentpassword")
	if err != nil {
		t.Fatalf("EnsureAdmin (second): %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("second call created a new account: %d != %d", second.ID, first.ID)
	}
}
