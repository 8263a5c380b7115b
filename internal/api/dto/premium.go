package dto

import (
	"time"

	"github.com/veilport/veilport/internal/domain/premium"
)

// RedeemRequest is the payload for redeeming a premium code
type RedeemRequest struct {
	Code string `json:"code" validate:"required,min=4,max=64"`
}

// RedeemResponse reports the applied grant
type RedeemResponse struct {
	DurationHours int        `json:"durationHours"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
}

// CreateCodeRequest is the admin payload for minting a code
type CreateCodeRequest struct {
	Code          string `json:"code" validate:"omitempty,min=4,max=64"`
	Duration      string `json:"duration" validate:"required"`
	DurationHours int    `json:"durationHours" validate:"required,gt=0"`
	ValidDays     int    `json:"validDays" validate:"omitempty,gt=0"`
	Notes         string `json:"notes" validate:"omitempty,max=500"`
}

// CodeResponse is the admin view of a premium code
type CodeResponse struct {
	ID            int64      `json:"id"`
	Code          string     `json:"code"`
	Duration      string     `json:"duration"`
	DurationHours int        `json:"durationHours"`
	ExpiresAt     time.Time  `json:"expiresAt"`
	IsUsed        bool       `json:"isUsed"`
	UsedBy        *int64     `json:"usedBy,omitempty"`
	UsedAt        *time.Time `json:"usedAt,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// NewCodeResponse converts a domain code to its admin view
func NewCodeResponse(c *premium.Code) *CodeResponse {
	return &CodeResponse{
		ID:            c.ID,
		Code:          c.Code,
		Duration:      c.Duration,
		DurationHours: c.DurationHours,
		ExpiresAt:     c.ExpiresAt,
		IsUsed:        c.IsUsed,
		UsedBy:        c.UsedBy,
		UsedAt:        c.UsedAt,
		Notes:         c.Notes,
		CreatedAt:     c.CreatedAt,
	}
}

// ListCodesResponse is the admin code listing
type ListCodesResponse struct {
	Codes []*CodeResponse `json:"codes"`
	Total int64           `json:"total"`
}
