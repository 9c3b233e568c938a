package auth

import "testing"

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken(42)
	if err != nil {
		t.Fatalf("GenerateToken returned error: %v", err)
	}

	userID, err := ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken returned error: %v", err)
	}
	if userID != 42 {
		t.Fatalf("user ID mismatch: got %d want 42", userID)
	}
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	if _, err := ValidateToken("not.a.token"); err == nil {
		t.Fatal("expected error for malformed token")
	}
}

func TestValidateTokenRejectsTampering(t *testing.T) {
	token, err := GenerateToken(7)
	if err != nil {
		t.Fatalf("GenerateToken returned error: %v", err)
	}

	tampered := token[:len(token)-4] + "AAAA"
	if _, err := ValidateToken(tampered); err == nil {
		t.Fatal("expected error for tampered signature")
	}
}
