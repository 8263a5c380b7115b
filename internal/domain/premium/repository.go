package premium

import (
	"context"
	"time"
)

// Repository defines the interface for premium code data access
type Repository interface {
	// Create creates a new premium code
	Create(ctx context.Context, code *Code) error

	// GetByCode retrieves a code by its redemption string
	GetByCode(ctx context.Context, code string) (*Code, error)

	// Claim atomically marks a code as used by the given user. It reports
	// false when the code was already claimed, so at most one concurrent
	// redemption can succeed per code.
	Claim(ctx context.Context, codeID, userID int64, at time.Time) (bool, error)

	// Release undoes a claim held by the given user, making the code
	// redeemable again. Compensation for a grant that failed after Claim;
	// a claim held by another user is left untouched.
	Release(ctx context.Context, codeID, userID int64) error

	// List retrieves all codes with pagination
	List(ctx context.Context, limit, offset int) ([]*Code, int64, error)
}
