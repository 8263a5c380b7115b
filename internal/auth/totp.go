package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

const totpSecretBytes = 20

// TOTP implements RFC 6238 time-based one-time passwords (HMAC-SHA1,
// 6 digits, 30-second steps).
type TOTP struct {
	Issuer string
	Period int
	Digits int
	Skew   int // accepted time steps before/after the current one
}

// NewTOTP creates a TOTP engine with the standard authenticator-app defaults.
func NewTOTP(issuer string) *TOTP {
	return &TOTP{
		Issuer: issuer,
		Period: 30,
		Digits: 6,
		Skew:   1,
	}
}

// GenerateSecret produces a random base32-encoded shared secret.
func (t *TOTP) GenerateSecret() (string, error) {
	raw := make([]byte, totpSecretBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(raw), nil
}

// ProvisioningURI returns an otpauth:// URI for the secret and account,
// suitable for encoding into a QR code.
func (t *TOTP) ProvisioningURI(secret, account string) string {
	label := url.PathEscape(t.Issuer + ":" + account)

	v := url.Values{}
	v.Set("secret", secret)
	v.Set("issuer", t.Issuer)
	v.Set("period", strconv.Itoa(t.Period))
	v.Set("digits", strconv.Itoa(t.Digits))
	v.Set("algorithm", "SHA1")

	return "otpauth://totp/" + label + "?" + v.Encode()
}

// Verify checks a submitted code against the secret at time now, accepting
// codes from Skew time steps before and after the current one. Any mismatch
// (wrong code, wrong secret, outside the window, malformed input) returns
// false; it never reports why.
func (t *TOTP) Verify(secret, code string, now time.Time) bool {
	if len(code) != t.Digits || !isDigits(code) {
		return false
	}

	key, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(secret)
	if err != nil || len(key) == 0 {
		return false
	}

	baseCounter := now.Unix() / int64(t.Period)
	for step := -t.Skew; step <= t.Skew; step++ {
		counter := baseCounter + int64(step)
		if counter < 0 {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(hotpCode(key, counter, t.Digits)), []byte(code)) == 1 {
			return true
		}
	}

	return false
}

// CodeAt computes the valid code for a secret at the given time. Used by the
// setup flow in tests and by the CLI to display a current code.
func (t *TOTP) CodeAt(secret string, at time.Time) (string, error) {
	key, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(secret)
	if err != nil {
		return "", err
	}
	return hotpCode(key, at.Unix()/int64(t.Period), t.Digits), nil
}

func hotpCode(key []byte, counter int64, digits int) string {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(counter))

	mac := hmac.New(sha1.New, key)
	_, _ = mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	bin := (int(sum[offset])&0x7f)<<24 |
		(int(sum[offset+1])&0xff)<<16 |
		(int(sum[offset+2])&0xff)<<8 |
		(int(sum[offset+3]) & 0xff)

	mod := 1
	for i := 0; i < digits; i++ {
		mod *= 10
	}

	return fmt.Sprintf("%0*d", digits, bin%mod)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
