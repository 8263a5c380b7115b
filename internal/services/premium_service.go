package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/veilport/veilport/internal/domain/premium"
	"github.com/veilport/veilport/internal/domain/user"
	"github.com/veilport/veilport/internal/pkg/errors"
	"github.com/veilport/veilport/internal/pkg/logger"
	"github.com/veilport/veilport/internal/pkg/metrics"
)

// PremiumService implements premium.Service
type PremiumService struct {
	codes  premium.Repository
	users  user.Repository
	logger *logger.Logger
}

// NewPremiumService creates a new premium service
func NewPremiumService(codes premium.Repository, users user.Repository, log *logger.Logger) premium.Service {
	return &PremiumService{
		codes:  codes,
		users:  users,
		logger: log,
	}
}

// Status returns the user's live premium status. When the stored expiry has
// passed, the premium flag is flipped off in storage before answering, so the
// stored state and the answer agree.
func (s *PremiumService) Status(ctx context.Context, userID int64) (*premium.Status, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !u.IsPremium {
		return &premium.Status{IsPremium: false}, nil
	}

	if u.PremiumExpiry == nil {
		return &premium.Status{IsPremium: true}, nil
	}

	if u.PremiumExpiry.After(time.Now()) {
		return &premium.Status{IsPremium: true, ExpiresAt: u.PremiumExpiry}, nil
	}

	u.IsPremium = false
	if err := s.users.Update(ctx, u); err != nil {
		s.logger.ErrorWithErr(err, "Failed to deactivate expired premium")
		return nil, errors.DatabaseError("Failed to update user", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id":    u.ID,
		"expired_at": u.PremiumExpiry,
	}).Info("Premium entitlement expired")

	return &premium.Status{IsPremium: false}, nil
}

// Redeem validates and claims a code for the user, then extends premium.
// The claim is atomic in the repository, so two concurrent redemptions of
// the same code cannot both succeed.
func (s *PremiumService) Redeem(ctx context.Context, codeStr string, userID int64) (*premium.Grant, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	code, err := s.codes.GetByCode(ctx, strings.TrimSpace(codeStr))
	if err != nil || code == nil {
		metrics.RecordRedemption("not_found")
		return nil, errors.NotFound("Premium code")
	}

	if code.IsUsed {
		metrics.RecordRedemption("used")
		return nil, errors.BadRequest("Code has already been used")
	}

	now := time.Now()
	if now.After(code.ExpiresAt) {
		metrics.RecordRedemption("expired")
		return nil, errors.BadRequest("Code has expired")
	}

	claimed, err := s.codes.Claim(ctx, code.ID, userID, now)
	if err != nil {
		s.logger.ErrorWithErr(err, "Failed to claim premium code")
		return nil, errors.DatabaseError("Failed to redeem code", err)
	}
	if !claimed {
		// Lost the race against a concurrent redemption.
		metrics.RecordRedemption("used")
		return nil, errors.BadRequest("Code has already been used")
	}

	// Unlimited premium has nothing to extend; the code is still consumed.
	if u.IsPremium && u.PremiumExpiry == nil {
		metrics.RecordRedemption("success")
		return &premium.Grant{DurationHours: code.DurationHours}, nil
	}

	base := now
	if u.IsPremium && u.PremiumExpiry != nil && u.PremiumExpiry.After(now) {
		base = *u.PremiumExpiry
	}
	expiry := base.Add(time.Duration(code.DurationHours) * time.Hour)

	u.IsPremium = true
	u.PremiumExpiry = &expiry
	if err := s.users.Update(ctx, u); err != nil {
		// The code was consumed but the grant never landed. Release the
		// claim so the code stays redeemable instead of burning it.
		if relErr := s.codes.Release(ctx, code.ID, userID); relErr != nil {
			s.logger.WithFields(map[string]interface{}{
				"code_id": code.ID,
				"user_id": userID,
			}).WithError(relErr).Error("Failed to release claim after grant failure")
		}
		s.logger.ErrorWithErr(err, "Failed to apply premium grant")
		return nil, errors.DatabaseError("Failed to redeem code", err)
	}

	metrics.RecordRedemption("success")
	s.logger.WithFields(map[string]interface{}{
		"user_id":        u.ID,
		"code_id":        code.ID,
		"duration_hours": code.DurationHours,
		"expires_at":     expiry,
	}).Info("Premium code redeemed")

	return &premium.Grant{DurationHours: code.DurationHours, ExpiresAt: expiry}, nil
}

// CreateCode creates a new redeemable code. An empty codeStr gets a random
// code generated.
func (s *PremiumService) CreateCode(ctx context.Context, codeStr, duration string, durationHours int, validFor time.Duration, notes string) (*premium.Code, error) {
	if durationHours <= 0 {
		return nil, errors.BadRequest("Duration must be positive")
	}
	if validFor <= 0 {
		return nil, errors.BadRequest("Code validity must be positive")
	}

	codeStr = strings.TrimSpace(codeStr)
	if codeStr == "" {
		codeStr = strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:16]
	}

	if existing, err := s.codes.GetByCode(ctx, codeStr); err == nil && existing != nil {
		return nil, errors.Conflict("Code already exists")
	}

	code := &premium.Code{
		Code:          codeStr,
		Duration:      duration,
		DurationHours: durationHours,
		ExpiresAt:     time.Now().Add(validFor),
		Notes:         notes,
	}

	if err := s.codes.Create(ctx, code); err != nil {
		s.logger.ErrorWithErr(err, "Failed to create premium code")
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"code_id":        code.ID,
		"duration_hours": code.DurationHours,
	}).Info("Premium code created")

	return code, nil
}

// ListCodes retrieves codes with pagination
func (s *PremiumService) ListCodes(ctx context.Context, limit, offset int) ([]*premium.Code, int64, error) {
	return s.codes.List(ctx, limit, offset)
}
