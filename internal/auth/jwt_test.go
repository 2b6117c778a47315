package auth

import (
	"errors"
	"testing"
	"time"
)

func TestJWT_RoundTrip(t *testing.T) {
	secret := []byte("unit-test-secret")
	tok, err := GenerateJWT(secret, "user-42", time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	sub, err := VerifyJWT(secret, tok)
	if err != nil {
		t.Fatalf("VerifyJWT: %v", err)
	}
	if sub != "user-42" {
		t.Fatalf("subject = %q, want user-42", sub)
	}
}

func TestJWT_WrongSecret(t *testing.T) {
	tok, err := GenerateJWT([]byte("secret-a"), "user-42", time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	if _, err := VerifyJWT([]byte("secret-b"), tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestJWT_Expired(t *testing.T) {
	secret := []byte("unit-test-secret")
	tok, err := GenerateJWT(secret, "user-42", -time.Minute)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	if _, err := VerifyJWT(secret, tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestJWT_Garbage(t *testing.T) {
	if _, err := VerifyJWT([]byte("secret"), "not.a.token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
