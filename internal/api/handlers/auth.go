package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/veilport/veilport/internal/api/dto"
	"github.com/veilport/veilport/internal/api/middleware"
	"github.com/veilport/veilport/internal/auth"
	"github.com/veilport/veilport/internal/domain/premium"
	"github.com/veilport/veilport/internal/domain/user"
	"github.com/veilport/veilport/internal/pkg/errors"
	"github.com/veilport/veilport/internal/pkg/logger"
	"github.com/veilport/veilport/internal/pkg/metrics"
	"github.com/veilport/veilport/internal/pkg/utils"
	"github.com/veilport/veilport/internal/pkg/validator"
)

// AuthHandler handles registration, login and 2FA endpoints
type AuthHandler struct {
	users         user.Service
	premium       premium.Service
	validate      *validator.Validator
	logger        *logger.Logger
	jwtSecret     string
	tokenTTL      time.Duration
	secureCookies bool
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(users user.Service, prem premium.Service, v *validator.Validator, log *logger.Logger, jwtSecret string, tokenTTL time.Duration, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		users:         users,
		premium:       prem,
		validate:      v,
		logger:        log,
		jwtSecret:     jwtSecret,
		tokenTTL:      tokenTTL,
		secureCookies: secureCookies,
	}
}

// Register handles POST /api/v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	u, err := h.users.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		utils.WriteAnyError(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusCreated, dto.NewUserResponse(u))
}

// Login handles POST /api/v1/auth/login. When the account has 2FA enabled,
// no session is issued yet; the client must follow up on /auth/2fa/validate.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	result, err := h.users.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		utils.WriteAnyError(w, err)
		return
	}

	if result.Requires2FA {
		utils.WriteSuccess(w, http.StatusOK, dto.TwoFactorPendingResponse{
			Requires2FA: true,
			Username:    result.User.Username,
		})
		return
	}

	h.issueSession(r.Context(), w, result.User)
}

// Validate2FA handles POST /api/v1/auth/2fa/validate, the second login step
func (h *AuthHandler) Validate2FA(w http.ResponseWriter, r *http.Request) {
	var req dto.Validate2FARequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	if req.Token == "" && req.RecoveryCode == "" {
		utils.WriteError(w, errors.BadRequest("A 2FA token or recovery code is required"))
		return
	}

	u, err := h.users.VerifySecondFactor(r.Context(), req.Username, req.Token, req.RecoveryCode)
	if err != nil {
		utils.WriteAnyError(w, err)
		return
	}

	h.issueSession(r.Context(), w, u)
}

// Setup2FA handles POST /api/v1/auth/2fa/setup
func (h *AuthHandler) Setup2FA(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		utils.WriteError(w, errors.AuthRequired())
		return
	}

	var req dto.Setup2FARequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	setup, err := h.users.BeginTwoFactorSetup(r.Context(), userID, req.Password)
	if err != nil {
		utils.WriteAnyError(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusOK, dto.TwoFactorSetupResponse{
		Secret:          setup.Secret,
		ProvisioningURI: setup.ProvisioningURI,
		RecoveryCodes:   setup.RecoveryCodes,
	})
}

// Verify2FA handles POST /api/v1/auth/2fa/verify, completing enrollment
func (h *AuthHandler) Verify2FA(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		utils.WriteError(w, errors.AuthRequired())
		return
	}

	var req dto.Verify2FARequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	if err := h.users.ConfirmTwoFactor(r.Context(), userID, req.Token); err != nil {
		utils.WriteAnyError(w, err)
		return
	}

	utils.WriteSuccessWithMessage(w, http.StatusOK, "Two-factor authentication enabled", nil)
}

// Disable2FA handles POST /api/v1/auth/2fa/disable
func (h *AuthHandler) Disable2FA(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		utils.WriteError(w, errors.AuthRequired())
		return
	}

	var req dto.Disable2FARequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	if err := h.users.DisableTwoFactor(r.Context(), userID, req.Password, req.Token); err != nil {
		utils.WriteAnyError(w, err)
		return
	}

	utils.WriteSuccessWithMessage(w, http.StatusOK, "Two-factor authentication disabled", nil)
}

// Me handles GET /api/v1/auth/me. The premium fields come from the premium
// service so lazy expiry applies before the profile is reported.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
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

	u, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		utils.WriteAnyError(w, err)
		return
	}

	resp := dto.NewUserResponse(u)
	resp.IsPremium = status.IsPremium
	resp.PremiumExpiry = status.ExpiresAt

	utils.WriteSuccess(w, http.StatusOK, resp)
}

// Logout handles POST /api/v1/auth/logout. Sessions are stateless, so logout
// just clears the cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})
	utils.WriteSuccessWithMessage(w, http.StatusOK, "Logged out", nil)
}

// issueSession mints a token, sets the session cookie and writes the login
// response. This is the single place a session comes into existence.
func (h *AuthHandler) issueSession(ctx context.Context, w http.ResponseWriter, u *user.User) {
	token, err := auth.MintToken(u.ID, u.Username, u.Email, u.Role, h.jwtSecret, h.tokenTTL)
	if err != nil {
		h.logger.ErrorWithErr(err, "Failed to mint session token")
		utils.WriteError(w, errors.Internal("Failed to create session", err))
		return
	}
	metrics.RecordTokenIssued()

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.tokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})

	resp := dto.NewUserResponse(u)
	if status, err := h.premium.Status(ctx, u.ID); err == nil {
		resp.IsPremium = status.IsPremium
		resp.PremiumExpiry = status.ExpiresAt
	}

	utils.WriteSuccess(w, http.StatusOK, dto.LoginResponse{
		Token: token,
		User:  resp,
	})
}
