package authjwt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestVerifierVerifyValidToken(t *testing.T) {
	v := New(Config{SecretKey: "test-secret"})
	token := signToken(t, "test-secret", Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		TenantID: "tenant-a",
		IsAdmin:  true,
	})

	result, err := v.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if result.UserID != "user-1" {
		t.Fatalf("UserID: want=user-1 got=%q", result.UserID)
	}
	if result.TenantID != "tenant-a" {
		t.Fatalf("TenantID: want=tenant-a got=%q", result.TenantID)
	}
	if !result.IsAdmin {
		t.Fatalf("IsAdmin: want=true got=false")
	}
}

func TestVerifierVerifyWrongSecretRejected(t *testing.T) {
	v := New(Config{SecretKey: "correct-secret"})
	token := signToken(t, "wrong-secret", Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"},
		TenantID:         "tenant-a",
	})

	if _, err := v.Verify(token); err == nil {
		t.Fatalf("expected error for token signed with wrong secret")
	}
}

func TestVerifierVerifyExpiredTokenRejected(t *testing.T) {
	v := New(Config{SecretKey: "test-secret"})
	token := signToken(t, "test-secret", Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
		TenantID: "tenant-a",
	})

	if _, err := v.Verify(token); err == nil {
		t.Fatalf("expected error for expired token")
	}
}

func TestVerifierVerifyMalformedTokenRejected(t *testing.T) {
	v := New(Config{SecretKey: "test-secret"})
	if _, err := v.Verify("not-a-jwt"); err == nil {
		t.Fatalf("expected error for malformed token")
	}
}

func TestVerifierVerifyEmptyTokenRejected(t *testing.T) {
	v := New(Config{SecretKey: "test-secret"})
	if _, err := v.Verify(""); err == nil {
		t.Fatalf("expected error for empty token")
	}
}
