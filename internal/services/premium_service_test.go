package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/veilport/veilport/internal/domain/premium"
	"github.com/veilport/veilport/internal/domain/user"
	"github.com/veilport/veilport/internal/pkg/errors"
	"github.com/veilport/veilport/internal/pkg/logger"
	"github.com/veilport/veilport/internal/testutil"
)

func newTestPremiumService() (premium.Service, *testutil.MockCodeRepository, *testutil.MockUserRepository) {
	codes := testutil.NewMockCodeRepository()
	users := testutil.NewMockUserRepository()
	log := logger.New(logger.Config{Level: "error", Format: "console"})
	return NewPremiumService(codes, users, log), codes, users
}

func seedUser(t *testing.T, users *testutil.MockUserRepository, username string) *user.User {
	t.Helper()
	u := &user.User{Username: username, Email: username + "@example.com", PasswordHash: "x"}
	if err := users.Create(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func seedCode(t *testing.T, svc premium.Service, codeStr string, hours int) *premium.Code {
	t.Helper()
	c, err := svc.CreateCode(context.Background(), codeStr, "test", hours, 30*24*time.Hour, "")
	if err != nil {
		t.Fatalf("seed code: %v", err)
	}
	return c
}

func TestStatusNonPremium(t *testing.T) {
	svc, _, users := newTestPremiumService()
	u := seedUser(t, users, "alice")

	status, err := svc.Status(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.IsPremium {
		t.Error("fresh account reported premium")
	}
}

func TestStatusUnlimitedPremium(t *testing.T) {
	svc, _, users := newTestPremiumService()
	u := seedUser(t, users, "alice")

	u.IsPremium = true
	u.PremiumExpiry = nil
	users.Update(context.Background(), u)

	status, err := svc.Status(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.IsPremium || status.ExpiresAt != nil {
		t.Errorf("status = %+v, want unlimited premium", status)
	}
}

func TestStatusLazyExpiryPersists(t *testing.T) {
	svc, _, users := newTestPremiumService()
	ctx := context.Background()
	u := seedUser(t, users, "alice")

	past := time.Now().Add(-time.Hour)
	u.IsPremium = true
	u.PremiumExpiry = &past
	users.Update(ctx, u)

	status, err := svc.Status(ctx, u.ID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.IsPremium {
		t.Error("expired entitlement reported premium")
	}

	// The flag flip must be persisted, not just reported.
	stored, _ := users.GetByID(ctx, u.ID)
	if stored.IsPremium {
		t.Error("expired premium flag not flipped in storage")
	}
}

func TestRedeemUnknownCode(t *testing.T) {
	svc, _, users := newTestPremiumService()
	u := seedUser(t, users, "alice")

	_, err := svc.Redeem(context.Background(), "NOSUCHCODE", u.ID)
	if ae := appErr(t, err); ae.StatusCode != 404 {
		t.Errorf("status = %d, want 404", ae.StatusCode)
	}
}

func TestRedeemUsedCode(t *testing.T) {
	svc, _, users := newTestPremiumService()
	ctx := context.Background()
	alice := seedUser(t, users, "alice")
	bob := seedUser(t, users, "bob")
	seedCode(t, svc, "ONCE", 24)

	if _, err := svc.Redeem(ctx, "ONCE", alice.ID); err != nil {
		t.Fatalf("first redemption: %v", err)
	}

	_, err := svc.Redeem(ctx, "ONCE", bob.ID)
	ae := appErr(t, err)
	if ae.StatusCode != 400 || ae.Message != "Code has already been used" {
		t.Errorf("got %d %q", ae.StatusCode, ae.Message)
	}
}

func TestRedeemExpiredCode(t *testing.T) {
	svc, codes, users := newTestPremiumService()
	ctx := context.Background()
	u := seedUser(t, users, "alice")

	c := &premium.Code{
		Code:          "STALE",
		Duration:      "1 day",
		DurationHours: 24,
		ExpiresAt:     time.Now().Add(-time.Minute),
	}
	if err := codes.Create(ctx, c); err != nil {
		t.Fatalf("create code: %v", err)
	}

	_, err := svc.Redeem(ctx, "STALE", u.ID)
	ae := appErr(t, err)
	if ae.StatusCode != 400 || ae.Message != "Code has expired" {
		t.Errorf("got %d %q", ae.StatusCode, ae.Message)
	}
}

func TestRedeemGrantsPremium(t *testing.T) {
	svc, codes, users := newTestPremiumService()
	ctx := context.Background()
	u := seedUser(t, users, "alice")
	seedCode(t, svc, "FRESH", 48)

	before := time.Now()
	grant, err := svc.Redeem(ctx, "FRESH", u.ID)
	if err != nil {
		t.Fatalf("Redeem: %v", err)
	}

	if grant.DurationHours != 48 {
		t.Errorf("DurationHours = %d, want 48", grant.DurationHours)
	}
	want := before.Add(48 * time.Hour)
	if grant.ExpiresAt.Before(want) || grant.ExpiresAt.After(want.Add(time.Minute)) {
		t.Errorf("ExpiresAt = %v, want ~%v", grant.ExpiresAt, want)
	}

	stored, _ := users.GetByID(ctx, u.ID)
	if !stored.IsPremium || stored.PremiumExpiry == nil {
		t.Error("premium grant not persisted")
	}

	storedCode, _ := codes.GetByCode(ctx, "FRESH")
	if !storedCode.IsUsed || storedCode.UsedBy == nil || *storedCode.UsedBy != u.ID {
		t.Errorf("code claim not recorded: %+v", storedCode)
	}
}

func TestRedeemStacksOnUnexpiredEntitlement(t *testing.T) {
	svc, _, users := newTestPremiumService()
	ctx := context.Background()
	u := seedUser(t, users, "alice")

	current := time.Now().Add(10 * time.Hour)
	u.IsPremium = true
	u.PremiumExpiry = &current
	users.Update(ctx, u)

	seedCode(t, svc, "STACK", 24)
	grant, err := svc.Redeem(ctx, "STACK", u.ID)
	if err != nil {
		t.Fatalf("Redeem: %v", err)
	}

	want := current.Add(24 * time.Hour)
	if !grant.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v (stacked on existing expiry)", grant.ExpiresAt, want)
	}
}

func TestRedeemAfterExpiryExtendsFromNow(t *testing.T) {
	svc, _, users := newTestPremiumService()
	ctx := context.Background()
	u := seedUser(t, users, "alice")

	past := time.Now().Add(-5 * time.Hour)
	u.IsPremium = true
	u.PremiumExpiry = &past
	users.Update(ctx, u)

	seedCode(t, svc, "RENEW", 24)
	before := time.Now()
	grant, err := svc.Redeem(ctx, "RENEW", u.ID)
	if err != nil {
		t.Fatalf("Redeem: %v", err)
	}

	want := before.Add(24 * time.Hour)
	if grant.ExpiresAt.Before(want) || grant.ExpiresAt.After(want.Add(time.Minute)) {
		t.Errorf("ExpiresAt = %v, want ~%v (from now, not the stale expiry)", grant.ExpiresAt, want)
	}
}

func TestRedeemConcurrentExactlyOnce(t *testing.T) {
	svc, _, users := newTestPremiumService()
	ctx := context.Background()
	seedCode(t, svc, "RACE", 24)

	const attempts = 16
	ids := make([]int64, attempts)
	for i := range ids {
		ids[i] = seedUser(t, users, "user"+string(rune('a'+i))).ID
	}

	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for _, id := range ids {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			_, err := svc.Redeem(ctx, "RACE", userID)
			results <- err
		}(id)
	}
	wg.Wait()
	close(results)

	successes := 0
	for err := range results {
		if err == nil {
			successes++
		}
	}
	if successes != 1 {
		t.Errorf("%d concurrent redemptions succeeded, want exactly 1", successes)
	}
}

func TestRedeemReleasesClaimWhenGrantFails(t *testing.T) {
	svc, codes, users := newTestPremiumService()
	ctx := context.Background()
	u := seedUser(t, users, "alice")
	seedCode(t, svc, "RETRY", 24)

	users.UpdateErr = errors.DatabaseError("connection reset", nil)
	if _, err := svc.Redeem(ctx, "RETRY", u.ID); err == nil {
		t.Fatal("Redeem succeeded despite a failing user store")
	}

	// The claim must be rolled back so the code is not burned.
	c, err := codes.GetByCode(ctx, "RETRY")
	if err != nil {
		t.Fatalf("GetByCode: %v", err)
	}
	if c.IsUsed || c.UsedBy != nil {
		t.Fatalf("claim not released after grant failure: %+v", c)
	}

	users.UpdateErr = nil
	grant, err := svc.Redeem(ctx, "RETRY", u.ID)
	if err != nil {
		t.Fatalf("retry after recovery: %v", err)
	}
	if grant.DurationHours != 24 {
		t.Errorf("DurationHours = %d, want 24", grant.DurationHours)
	}
}

func TestRedeemOntoUnlimitedPremium(t *testing.T) {
	svc, codes, users := newTestPremiumService()
	ctx := context.Background()
	u := seedUser(t, users, "alice")

	u.IsPremium = true
	u.PremiumExpiry = nil
	users.Update(ctx, u)

	seedCode(t, svc, "NOOP", 24)
	grant, err := svc.Redeem(ctx, "NOOP", u.ID)
	if err != nil {
		t.Fatalf("Redeem: %v", err)
	}
	if !grant.ExpiresAt.IsZero() {
		t.Errorf("ExpiresAt = %v, want zero for an unlimited account", grant.ExpiresAt)
	}

	stored, _ := users.GetByID(ctx, u.ID)
	if stored.PremiumExpiry != nil {
		t.Error("unlimited premium downgraded to a dated expiry")
	}

	// The code is still consumed.
	c, _ := codes.GetByCode(ctx, "NOOP")
	if !c.IsUsed {
		t.Error("code not consumed")
	}
}

func TestCreateCode(t *testing.T) {
	svc, _, _ := newTestPremiumService()
	ctx := context.Background()

	if _, err := svc.CreateCode(ctx, "X", "bad", 0, time.Hour, ""); err == nil {
		t.Error("zero duration accepted")
	}
	if _, err := svc.CreateCode(ctx, "X", "bad", 24, 0, ""); err == nil {
		t.Error("zero validity accepted")
	}

	c, err := svc.CreateCode(ctx, "", "1 day", 24, time.Hour, "giveaway")
	if err != nil {
		t.Fatalf("CreateCode: %v", err)
	}
	if c.Code == "" {
		t.Error("empty code string not generated")
	}

	if _, err := svc.CreateCode(ctx, c.Code, "1 day", 24, time.Hour, ""); err == nil {
		t.Error("duplicate code accepted")
	}
}
