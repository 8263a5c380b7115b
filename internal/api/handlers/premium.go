package handlers

import (
	"net/http"

	"github.com/veilport/veilport/internal/api/dto"
	"github.com/veilport/veilport/internal/api/middleware"
	"github.com/veilport/veilport/internal/domain/premium"
	"github.com/veilport/veilport/internal/pkg/errors"
	"github.com/veilport/veilport/internal/pkg/logger"
	"github.com/veilport/veilport/internal/pkg/utils"
	"github.com/veilport/veilport/internal/pkg/validator"
)

// PremiumHandler handles premium status and redemption endpoints
type PremiumHandler struct {
	premium  premium.Service
	validate *validator.Validator
	logger   *logger.Logger
}

// NewPremiumHandler creates a new premium handler
func NewPremiumHandler(svc premium.Service, v *validator.Validator, log *logger.Logger) *PremiumHandler {
	return &PremiumHandler{
		premium:  svc,
		validate: v,
		logger:   log,
	}
}

// Status handles GET /api/v1/premium/status
func (h *PremiumHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		utils.WriteError(w, errors.AuthRequired())
		return
	}

	status, err := h.premium.Status(r.Context(), userID)
	if err != nil {
		utils.WriteAnyError(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusOK, status)
}

// Redeem handles POST /api/v1/premium/redeem
func (h *PremiumHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		utils.WriteError(w, errors.AuthRequired())
		return
	}

	var req dto.RedeemRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	grant, err := h.premium.Redeem(r.Context(), req.Code, userID)
	if err != nil {
		utils.WriteAnyError(w, err)
		return
	}

	resp := dto.RedeemResponse{DurationHours: grant.DurationHours}
	if !grant.ExpiresAt.IsZero() {
		resp.ExpiresAt = &grant.ExpiresAt
	}
	utils.WriteSuccess(w, http.StatusOK, resp)
}
