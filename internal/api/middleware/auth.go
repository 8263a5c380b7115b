package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/veilport/veilport/internal/auth"
	"github.com/veilport/veilport/internal/domain/premium"
	"github.com/veilport/veilport/internal/domain/user"
	"github.com/veilport/veilport/internal/pkg/errors"
	"github.com/veilport/veilport/internal/pkg/utils"
)

type contextKey string

const (
	// UserIDKey is the context key for the authenticated user's ID
	UserIDKey contextKey = "user_id"
	// UsernameKey is the context key for the authenticated user's name
	UsernameKey contextKey = "username"
	// EmailKey is the context key for the authenticated user's email
	EmailKey contextKey = "email"
	// RoleKey is the context key for the authenticated user's role
	RoleKey contextKey = "role"
)

// SessionCookieName is the cookie that carries the session token
const SessionCookieName = "token"

// TokenFromRequest extracts the session token. A Bearer header takes
// precedence over the cookie.
func TokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return token
		}
	}
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// Auth returns a middleware that requires a valid session token. A missing
// token and an invalid token produce distinct errors.
func Auth(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				utils.WriteError(w, errors.AuthRequired())
				return
			}

			claims, err := auth.ParseClaims(token, jwtSecret)
			if err != nil {
				utils.WriteError(w, errors.InvalidToken())
				return
			}

			ctx := r.Context()
			ctx = context.WithValue(ctx, UserIDKey, claims.UserID)
			ctx = context.WithValue(ctx, UsernameKey, claims.Username)
			ctx = context.WithValue(ctx, EmailKey, claims.Email)
			ctx = context.WithValue(ctx, RoleKey, claims.Role)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin returns a middleware that rejects non-admin users. It must be
// mounted inside Auth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, ok := GetRole(r.Context())
		if !ok || role != user.RoleAdmin {
			utils.WriteError(w, errors.Forbidden("Admin access required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequirePremium returns a middleware that rejects users without an active
// premium entitlement. The check goes through the premium service, so lazy
// expiry applies.
func RequirePremium(svc premium.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := GetUserID(r.Context())
			if !ok {
				utils.WriteError(w, errors.AuthRequired())
				return
			}

			status, err := svc.Status(r.Context(), userID)
			if err != nil {
				utils.WriteAnyError(w, err)
				return
			}
			if !status.IsPremium {
				utils.WriteError(w, errors.Forbidden("Premium subscription required"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetUserID extracts the authenticated user's ID from the context
func GetUserID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(UserIDKey).(int64)
	return id, ok
}

// GetUsername extracts the authenticated user's name from the context
func GetUsername(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(UsernameKey).(string)
	return username, ok
}

// GetRole extracts the authenticated user's role from the context
func GetRole(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(RoleKey).(string)
	return role, ok
}
