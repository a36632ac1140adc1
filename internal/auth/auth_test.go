package auth

import (
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("admin123", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "admin123" {
		t.Fatal("password stored in plaintext")
	}
	if !CheckPassword(hash, "admin123") {
		t.Fatal("correct password rejected")
	}
	if CheckPassword(hash, "wrong") {
		t.Fatal("wrong password accepted")
	}
	if CheckPassword("", "") {
		t.Fatal("empty hash must never match")
	}
}

func TestAddress(t *testing.T) {
	if got := Address("bob", "venom.local"); got != "bob@venom.local" {
		t.Fatalf("Address = %q", got)
	}
}

func TestTokensRoundTrip(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)

	signed, exp, err := tokens.Issue("u1", "bob", true)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if time.Until(exp) <= 0 {
		t.Fatal("expiry must be in the future")
	}

	claims, err := tokens.Parse(signed)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.UserID != "u1" || claims.Username != "bob" || !claims.IsAdmin {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestTokensRejectForeignSecret(t *testing.T) {
	signed, _, err := NewTokens("one", time.Hour).Issue("u1", "bob", false)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewTokens("two", time.Hour).Parse(signed); err == nil {
		t.Fatal("token signed with another secret accepted")
	}
}

func TestTokensRejectExpired(t *testing.T) {
	tokens := NewTokens("secret", -time.Minute)
	signed, _, err := tokens.Issue("u1", "bob", false)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tokens.Parse(signed); err == nil {
		t.Fatal("expired token accepted")
	}
}
