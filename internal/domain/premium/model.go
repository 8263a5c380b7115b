package premium

import "time"

// Code represents a redeemable premium code. A code has its own redemption
// deadline (ExpiresAt) independent of the duration it grants.
type Code struct {
	ID            int64      `json:"id"`
	Code          string     `json:"code"`
	Duration      string     `json:"duration"`
	DurationHours int        `json:"duration_hours"`
	ExpiresAt     time.Time  `json:"expires_at"`
	IsUsed        bool       `json:"is_used"`
	UsedBy        *int64     `json:"used_by,omitempty"`
	UsedAt        *time.Time `json:"used_at,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Status is a user's live premium entitlement after lazy expiry is applied.
// A nil ExpiresAt with IsPremium true means unlimited premium.
type Status struct {
	IsPremium bool       `json:"is_premium"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Grant is the outcome of a successful redemption.
type Grant struct {
	DurationHours int       `json:"duration_hours"`
	ExpiresAt     time.Time `json:"expires_at"`
}
