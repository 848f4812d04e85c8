package auth

import (
	"errors"
	"testing"
	"time"
)

const testSecret = "test-secret"

func TestNewTokenAndParse(t *testing.T) {
	token, err := NewToken(7, "admin@salonmarlowe.com", "admin", "Marlowe Admin", testSecret, time.Hour)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	claims, err := Parse(token, testSecret)
	if err != nil {
		t.Fatalf("failed to parse token: %v", err)
	}
	if claims.Sub != 7 || claims.Email != "admin@salonmarlowe.com" || claims.Role != "admin" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.ExpiresAt == nil || !claims.ExpiresAt.After(time.Now().Add(59*time.Minute)) {
		t.Fatal("expected expiry about an hour out")
	}
}

func TestParse_Expired(t *testing.T) {
	token, err := NewToken(7, "admin@salonmarlowe.com", "admin", "Marlowe Admin", testSecret, -time.Minute)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	_, err = Parse(token, testSecret)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected expired error, got %v", err)
	}
}

func TestParse_WrongSecret(t *testing.T) {
	token, err := NewToken(7, "admin@salonmarlowe.com", "admin", "Marlowe Admin", testSecret, time.Hour)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	_, err = Parse(token, "other-secret")
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token error, got %v", err)
	}
}

func TestParse_Garbage(t *testing.T) {
	if _, err := Parse("not.a.token", testSecret); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token error, got %v", err)
	}
}
