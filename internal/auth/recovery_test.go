package auth

import "testing"

func TestGenerateRecoveryCodes(t *testing.T) {
	codes, err := GenerateRecoveryCodes(RecoveryCodeCount)
	if err != nil {
		t.Fatalf("GenerateRecoveryCodes: %v", err)
	}

	if len(codes) != RecoveryCodeCount {
		t.Fatalf("got %d codes, want %d", len(codes), RecoveryCodeCount)
	}

	seen := make(map[string]bool)
	for _, c := range codes {
		if len(c) != 10 {
			t.Errorf("code %q has length %d, want 10", c, len(c))
		}
		if seen[c] {
			t.Errorf("duplicate code %q in one batch", c)
		}
		seen[c] = true
	}
}

func TestConsumeRecoveryCode(t *testing.T) {
	codes := []string{"AAAA", "BBBB", "CCCC"}

	remaining, found := ConsumeRecoveryCode(codes, "BBBB")
	if !found {
		t.Fatal("existing code not found")
	}
	if len(remaining) != 2 {
		t.Fatalf("remaining = %v, want 2 entries", remaining)
	}

	// The consumed code must not match again.
	if _, found := ConsumeRecoveryCode(remaining, "BBBB"); found {
		t.Error("consumed code matched a second time")
	}

	// A miss leaves the list untouched.
	same, found := ConsumeRecoveryCode(codes, "ZZZZ")
	if found {
		t.Error("unknown code reported as found")
	}
	if len(same) != 3 {
		t.Errorf("miss changed the list: %v", same)
	}
}
