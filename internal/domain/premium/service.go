package premium

import (
	"context"
	"time"
)

// Service defines the interface for premium entitlement business logic
type Service interface {
	// Status returns the user's live premium status. An expired entitlement
	// is deactivated in storage as a side effect (lazy expiry), so repeated
	// calls are idempotent.
	Status(ctx context.Context, userID int64) (*Status, error)

	// Redeem validates and atomically claims a code for the user, then
	// extends the user's premium expiry by the code's grant. Extension
	// stacks on the later of now and the user's current unexpired expiry.
	Redeem(ctx context.Context, code string, userID int64) (*Grant, error)

	// CreateCode creates a new redeemable code (admin operation). validFor
	// bounds how long the code itself can be redeemed.
	CreateCode(ctx context.Context, codeStr, duration string, durationHours int, validFor time.Duration, notes string) (*Code, error)

	// ListCodes retrieves codes with pagination (admin operation)
	ListCodes(ctx context.Context, limit, offset int) ([]*Code, int64, error)
}
