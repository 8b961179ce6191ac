package auth

import (
	"testing"
	"time"
)

func testManager(secret string) *JWTManager {
	return NewJWTManager(JWTConfig{
		Secret:        secret,
		Expiry:        time.Hour,
		RefreshExpiry: 24 * time.Hour,
		Issuer:        "gurukul-test",
	})
}

func TestAccessTokenRoundTrip(t *testing.T) {
	m := testManager("test-secret")

	token, err := m.GenerateAccessToken(42, "student@example.com", "student", 3)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.IdentityID != 42 {
		t.Errorf("IdentityID = %d, want 42", claims.IdentityID)
	}
	if claims.Role != "student" {
		t.Errorf("Role = %q, want student", claims.Role)
	}
	if claims.TokenType != "access" {
		t.Errorf("TokenType = %q, want access", claims.TokenType)
	}
	if claims.TokenVersion != 3 {
		t.Errorf("TokenVersion = %d, want 3", claims.TokenVersion)
	}
}

func TestRefreshTokenType(t *testing.T) {
	m := testManager("test-secret")

	token, err := m.GenerateRefreshToken(1, "a@b.com", "admin", 0)
	if err != nil {
		t.Fatalf("GenerateRefreshToken: %v", err)
	}

	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.TokenType != "refresh" {
		t.Errorf("TokenType = %q, want refresh", claims.TokenType)
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, err := testManager("secret-a").GenerateAccessToken(1, "a@b.com", "admin", 0)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := testManager("secret-b").ValidateToken(token); err == nil {
		t.Fatal("expected validation to fail with wrong secret")
	}
}

func TestValidateTokenGarbage(t *testing.T) {
	if _, err := testManager("s").ValidateToken("not.a.token"); err == nil {
		t.Fatal("expected validation to fail for malformed token")
	}
}
