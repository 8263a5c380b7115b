package handlers

import (
	"net/http"
	"time"

	"github.com/veilport/veilport/internal/api/dto"
	"github.com/veilport/veilport/internal/domain/premium"
	"github.com/veilport/veilport/internal/domain/user"
	"github.com/veilport/veilport/internal/pkg/logger"
	"github.com/veilport/veilport/internal/pkg/utils"
	"github.com/veilport/veilport/internal/pkg/validator"
)

// defaultCodeValidity bounds how long a new code can be redeemed when the
// request does not say.
const defaultCodeValidity = 30 * 24 * time.Hour

// AdminHandler handles admin-only endpoints
type AdminHandler struct {
	users    user.Service
	premium  premium.Service
	validate *validator.Validator
	logger   *logger.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(users user.Service, prem premium.Service, v *validator.Validator, log *logger.Logger) *AdminHandler {
	return &AdminHandler{
		users:    users,
		premium:  prem,
		validate: v,
		logger:   log,
	}
}

// CreateCode handles POST /api/v1/admin/premium-codes
func (h *AdminHandler) CreateCode(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateCodeRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	validFor := defaultCodeValidity
	if req.ValidDays > 0 {
		validFor = time.Duration(req.ValidDays) * 24 * time.Hour
	}

	code, err := h.premium.CreateCode(r.Context(), req.Code, req.Duration, req.DurationHours, validFor, req.Notes)
	if err != nil {
		utils.WriteAnyError(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusCreated, dto.NewCodeResponse(code))
}

// ListCodes handles GET /api/v1/admin/premium-codes
func (h *AdminHandler) ListCodes(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	codes, total, err := h.premium.ListCodes(r.Context(), limit, offset)
	if err != nil {
		utils.WriteAnyError(w, err)
		return
	}

	resp := dto.ListCodesResponse{
		Codes: make([]*dto.CodeResponse, 0, len(codes)),
		Total: total,
	}
	for _, c := range codes {
		resp.Codes = append(resp.Codes, dto.NewCodeResponse(c))
	}

	utils.WriteSuccess(w, http.StatusOK, resp)
}

// ListUsers handles GET /api/v1/admin/users
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	users, total, err := h.users.List(r.Context(), limit, offset)
	if err != nil {
		utils.WriteAnyError(w, err)
		return
	}

	resp := dto.ListUsersResponse{
		Users: make([]*dto.UserResponse, 0, len(users)),
		Total: total,
	}
	for _, u := range users {
		resp.Users = append(resp.Users, dto.NewUserResponse(u))
	}

	utils.WriteSuccess(w, http.StatusOK, resp)
}
