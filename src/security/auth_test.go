package security

import (
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestHashAndComparePIN(t *testing.T) {
	a := NewAuthService(testSecret, time.Hour)
	hash, err := a.HashPIN("2468")
	if err != nil {
		t.Fatalf("HashPIN() unexpected error = %v", err)
	}
	if hash == "2468" {
		t.Fatal("HashPIN() returned the pin itself")
	}
	if err := a.ComparePIN(hash, "2468"); err != nil {
		t.Errorf("ComparePIN() with the right pin error = %v", err)
	}
	if err := a.ComparePIN(hash, "1357"); err == nil {
		t.Error("ComparePIN() accepted the wrong pin")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	a := NewAuthService(testSecret, time.Hour)
	token, err := a.GenerateToken(OperatorSubject)
	if err != nil {
		t.Fatalf("GenerateToken() unexpected error = %v", err)
	}
	sub, err := a.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() unexpected error = %v", err)
	}
	if sub != OperatorSubject {
		t.Errorf("subject = %q, want %q", sub, OperatorSubject)
	}

	other := NewAuthService("fedcba9876543210fedcba9876543210", time.Hour)
	if _, err := other.ValidateToken(token); err == nil {
		t.Error("ValidateToken() accepted a token signed with another secret")
	}
}

func TestExpiredToken(t *testing.T) {
	a := NewAuthService(testSecret, -time.Minute)
	if _, err := a.GenerateToken(OperatorSubject); err == nil {
		t.Error("GenerateToken() without a positive expiry expected an error")
	}

	a.TokenExpiry = time.Nanosecond
	token, err := a.GenerateToken(OperatorSubject)
	if err != nil {
		t.Fatalf("GenerateToken() unexpected error = %v", err)
	}
	time.Sleep(1100 * time.Millisecond)
	if _, err := a.ValidateToken(token); err == nil {
		t.Error("ValidateToken() accepted an expired token")
	}
}
