package api

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const testSecret = "unit-test-secret"

func testAuth(t *testing.T) *Auth {
	t.Helper()
	t.Setenv(envAuthTestMode, "1")
	t.Setenv(envTestJWTSecret, testSecret)
	return NewAuth(nil, "boardsync", "https://issuer.test/")
}

func signTestToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestUserIDFromAuthHeader(t *testing.T) {
	a := testAuth(t)
	token := signTestToken(t, jwt.MapClaims{
		"sub": "user-1",
		"aud": "boardsync",
		"iss": "https://issuer.test/",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	sub, err := a.UserIDFromAuthHeader("Bearer " + token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sub != "user-1" {
		t.Fatalf("expected user-1, got %q", sub)
	}
}

func TestUserIDFromAuthHeaderExpired(t *testing.T) {
	a := testAuth(t)
	token := signTestToken(t, jwt.MapClaims{
		"sub": "user-1",
		"aud": "boardsync",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	if _, err := a.UserIDFromAuthHeader("Bearer " + token); err == nil {
		t.Fatal("expected error for expired token")
	}
}

func TestUserIDFromAuthHeaderBadAudience(t *testing.T) {
	a := testAuth(t)
	token := signTestToken(t, jwt.MapClaims{
		"sub": "user-1",
		"aud": "someone-else",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	if _, err := a.UserIDFromAuthHeader("Bearer " + token); err == nil {
		t.Fatal("expected error for wrong audience")
	}
}

func TestUserIDFromAuthHeaderMissingSub(t *testing.T) {
	a := testAuth(t)
	token := signTestToken(t, jwt.MapClaims{
		"aud": "boardsync",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	if _, err := a.UserIDFromAuthHeader("Bearer " + token); err == nil {
		t.Fatal("expected error for missing sub")
	}
}

func TestBearerToken(t *testing.T) {
	a := testAuth(t)

	if _, err := a.UserIDFromAuthHeader(""); !errors.Is(err, errMissingAuthorization) {
		t.Fatalf("expected errMissingAuthorization, got %v", err)
	}
	if _, err := a.UserIDFromAuthHeader("Token abc.def.ghi"); !errors.Is(err, errBadAuthorization) {
		t.Fatalf("expected errBadAuthorization, got %v", err)
	}
	if _, err := a.UserIDFromAuthHeader("Bearer not-a-jwt"); !errors.Is(err, errBadAuthorization) {
		t.Fatalf("expected errBadAuthorization, got %v", err)
	}
}
