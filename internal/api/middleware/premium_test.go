package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/veilport/veilport/internal/domain/premium"
)

// fakePremiumService answers Status from a fixed map, standing in for the
// real service behind the premium gate.
type fakePremiumService struct {
	premium map[int64]bool
}

func (f *fakePremiumService) Status(ctx context.Context, userID int64) (*premium.Status, error) {
	return &premium.Status{IsPremium: f.premium[userID]}, nil
}

func (f *fakePremiumService) Redeem(ctx context.Context, code string, userID int64) (*premium.Grant, error) {
	panic("not used")
}

func (f *fakePremiumService) CreateCode(ctx context.Context, codeStr, duration string, durationHours int, validFor time.Duration, notes string) (*premium.Code, error) {
	panic("not used")
}

func (f *fakePremiumService) ListCodes(ctx context.Context, limit, offset int) ([]*premium.Code, int64, error) {
	panic("not used")
}

func TestRequirePremium(t *testing.T) {
	svc := &fakePremiumService{premium: map[int64]bool{1: true, 2: false}}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := Auth(testSecret)(RequirePremium(svc)(next))

	tests := []struct {
		name       string
		userID     int64
		wantStatus int
	}{
		{"premium user", 1, http.StatusOK},
		{"free user", 2, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.Header.Set("Authorization", "Bearer "+mintToken(t, tt.userID, "user"))
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, r)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}

	// Without a session the gate never consults the service.
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d, want 401", w.Code)
	}
}
