package auth

import "testing"

func TestPasswordHashRoundTrip(t *testing.T) {
	h := NewPasswordHasher(4) // low cost keeps the test fast

	hash, err := h.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	if !h.Verify("correct horse battery staple", hash) {
		t.Error("Verify rejected the original password")
	}
	if h.Verify("wrong password", hash) {
		t.Error("Verify accepted a wrong password")
	}
	if h.Verify("correct horse battery staple", "not-a-bcrypt-hash") {
		t.Error("Verify accepted a malformed hash")
	}
}

func TestNewPasswordHasherClampsCost(t *testing.T) {
	for _, cost := range []int{-1, 0, 100} {
		h := NewPasswordHasher(cost)
		if _, err := h.Hash("x"); err != nil {
			t.Errorf("Hash with clamped cost %d: %v", cost, err)
		}
	}
}
