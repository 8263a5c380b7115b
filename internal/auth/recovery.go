package auth

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

const (
	// RecoveryCodeCount is the number of one-time backup codes issued when
	// two-factor authentication is enabled.
	RecoveryCodeCount = 8

	recoveryCodeBytes = 5 // 10 hex characters per code
)

// GenerateRecoveryCodes issues count one-time backup codes, each an uppercase
// hex string. Codes are scoped per user, so collisions across users are not
// checked.
func GenerateRecoveryCodes(count int) ([]string, error) {
	codes := make([]string, 0, count)
	for i := 0; i < count; i++ {
		raw := make([]byte, recoveryCodeBytes)
		if _, err := rand.Read(raw); err != nil {
			return nil, err
		}
		codes = append(codes, strings.ToUpper(hex.EncodeToString(raw)))
	}
	return codes, nil
}

// ConsumeRecoveryCode looks for submitted among codes. On a match it returns
// the list with that single entry removed and true; otherwise the original
// list and false.
func ConsumeRecoveryCode(codes []string, submitted string) ([]string, bool) {
	for i, c := range codes {
		if c == submitted {
			remaining := make([]string, 0, len(codes)-1)
			remaining = append(remaining, codes[:i]...)
			remaining = append(remaining, codes[i+1:]...)
			return remaining, true
		}
	}
	return codes, false
}
