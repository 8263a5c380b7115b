package auth

import (
	"strings"
	"testing"
	"time"
)

func TestTOTPVerifyWindow(t *testing.T) {
	totp := NewTOTP("Veilport")
	secret, err := totp.GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret: %v", err)
	}

	now := time.Unix(1700000000, 0)
	code, err := totp.CodeAt(secret, now)
	if err != nil {
		t.Fatalf("CodeAt: %v", err)
	}

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"current step", now, true},
		{"previous step", now.Add(-30 * time.Second), true},
		{"next step", now.Add(30 * time.Second), true},
		{"two steps back", now.Add(-90 * time.Second), false},
		{"two steps forward", now.Add(90 * time.Second), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := totp.Verify(secret, code, tt.at); got != tt.want {
				t.Errorf("Verify at %v = %v, want %v", tt.at, got, tt.want)
			}
		})
	}
}

func TestTOTPVerifyRejectsMalformedCodes(t *testing.T) {
	totp := NewTOTP("Veilport")
	secret, _ := totp.GenerateSecret()
	now := time.Now()

	for _, code := range []string{"", "12345", "1234567", "12345a", "abcdef"} {
		if totp.Verify(secret, code, now) {
			t.Errorf("Verify accepted malformed code %q", code)
		}
	}
}

func TestTOTPVerifyWrongSecret(t *testing.T) {
	totp := NewTOTP("Veilport")
	secret, _ := totp.GenerateSecret()
	other, _ := totp.GenerateSecret()

	now := time.Now()
	code, _ := totp.CodeAt(secret, now)

	if totp.Verify(other, code, now) {
		t.Error("Verify accepted a code generated from a different secret")
	}
	if totp.Verify("not-base32!!", code, now) {
		t.Error("Verify accepted an undecodable secret")
	}
}

func TestTOTPKnownVectors(t *testing.T) {
	// RFC 6238 appendix B vectors, truncated to 6 digits. The reference
	// secret is ASCII "12345678901234567890".
	totp := NewTOTP("Veilport")
	secret := "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

	tests := []struct {
		unix int64
		want string
	}{
		{59, "287082"},
		{1111111109, "081804"},
		{1234567890, "005924"},
		{2000000000, "279037"},
	}

	for _, tt := range tests {
		got, err := totp.CodeAt(secret, time.Unix(tt.unix, 0))
		if err != nil {
			t.Fatalf("CodeAt(%d): %v", tt.unix, err)
		}
		if got != tt.want {
			t.Errorf("CodeAt(%d) = %s, want %s", tt.unix, got, tt.want)
		}
	}
}

func TestProvisioningURI(t *testing.T) {
	totp := NewTOTP("Veilport")
	uri := totp.ProvisioningURI("SECRETBASE32", "alice")

	if !strings.HasPrefix(uri, "otpauth://totp/Veilport:alice?") {
		t.Errorf("unexpected URI prefix: %s", uri)
	}
	for _, part := range []string{"secret=SECRETBASE32", "issuer=Veilport", "period=30", "digits=6", "algorithm=SHA1"} {
		if !strings.Contains(uri, part) {
			t.Errorf("URI missing %q: %s", part, uri)
		}
	}
}

func TestGenerateSecretLength(t *testing.T) {
	totp := NewTOTP("Veilport")
	secret, err := totp.GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret: %v", err)
	}
	// 20 bytes base32 without padding is 32 characters.
	if len(secret) != 32 {
		t.Errorf("secret length = %d, want 32", len(secret))
	}
	if strings.Contains(secret, "=") {
		t.Errorf("secret contains padding: %s", secret)
	}
}
