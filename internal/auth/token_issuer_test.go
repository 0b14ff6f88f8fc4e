package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestTokenIssuerIssuesSessionTokens(t *testing.T) {
	issuer, err := NewTokenIssuer(TokenIssuerConfig{
		SigningSecret: []byte("super-secret"),
		Issuer:        "books-auth",
		Audience:      "books-api",
		TokenTTL:      30 * time.Minute,
	})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	tokenString, expiresIn, err := issuer.IssueToken(context.Background(), SessionClaims{
		Subject: "member-123",
		Role:    "admin",
		Email:   "admin@example.com",
	})
	if err != nil {
		t.Fatalf("expected successful issuance: %v", err)
	}

	if expiresIn != int64((30 * time.Minute).Seconds()) {
		t.Fatalf("unexpected expiry seconds %d", expiresIn)
	}

	parser := jwt.Parser{}
	claims := &sessionTokenClaims{}

	_, err = parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte("super-secret"), nil
	})
	if err != nil {
		t.Fatalf("failed to parse generated token: %v", err)
	}

	if claims.Subject != "member-123" || claims.Role != "admin" || claims.Email != "admin@example.com" {
		t.Fatalf("unexpected claims %#v", claims)
	}
	if claims.Issuer != "books-auth" {
		t.Fatalf("unexpected issuer %s", claims.Issuer)
	}
	if len(claims.Audience) == 0 || claims.Audience[0] != "books-api" {
		t.Fatalf("unexpected audience %#v", claims.Audience)
	}
}

func TestTokenIssuerRejectsMissingClaims(t *testing.T) {
	issuer, err := NewTokenIssuer(TokenIssuerConfig{
		SigningSecret: []byte("super-secret"),
		Issuer:        "books-auth",
		Audience:      "books-api",
		TokenTTL:      time.Minute,
	})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}
	if _, _, err := issuer.IssueToken(context.Background(), SessionClaims{Role: "member"}); err == nil {
		t.Fatalf("expected error for missing subject")
	}
	if _, _, err := issuer.IssueToken(context.Background(), SessionClaims{Subject: "member-1"}); err == nil {
		t.Fatalf("expected error for missing role")
	}
}

func TestTokenIssuerValidatesIssuedTokens(t *testing.T) {
	issuer, err := NewTokenIssuer(TokenIssuerConfig{
		SigningSecret: []byte("another-secret"),
		Issuer:        "books-auth",
		Audience:      "books-api",
		TokenTTL:      15 * time.Minute,
	})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	tokenString, _, err := issuer.IssueToken(context.Background(), SessionClaims{Subject: "member-321", Role: "member"})
	if err != nil {
		t.Fatalf("unexpected error issuing token: %v", err)
	}

	claims, err := issuer.ValidateToken(tokenString)
	if err != nil {
		t.Fatalf("expected validation success: %v", err)
	}
	if claims.Subject != "member-321" || claims.Role != "member" {
		t.Fatalf("unexpected claims %#v", claims)
	}

	if _, err := issuer.ValidateToken("invalid.token"); err == nil {
		t.Fatalf("expected validation to fail for malformed token")
	}
}

func TestTokenIssuerRejectsForeignAndExpiredTokens(t *testing.T) {
	now := time.Date(2025, time.January, 1, 12, 0, 0, 0, time.UTC)
	current := now
	clock := func() time.Time { return current }

	issuer, err := NewTokenIssuer(TokenIssuerConfig{
		SigningSecret: []byte("secret-one"),
		Issuer:        "books-auth",
		Audience:      "books-api",
		TokenTTL:      10 * time.Minute,
		Clock:         clock,
	})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}
	other, err := NewTokenIssuer(TokenIssuerConfig{
		SigningSecret: []byte("secret-two"),
		Issuer:        "books-auth",
		Audience:      "books-api",
		TokenTTL:      10 * time.Minute,
		Clock:         clock,
	})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}
	wrongAudience, err := NewTokenIssuer(TokenIssuerConfig{
		SigningSecret: []byte("secret-one"),
		Issuer:        "books-auth",
		Audience:      "other-api",
		TokenTTL:      10 * time.Minute,
		Clock:         clock,
	})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	tokenString, _, err := issuer.IssueToken(context.Background(), SessionClaims{Subject: "member-1", Role: "member"})
	if err != nil {
		t.Fatalf("unexpected error issuing token: %v", err)
	}

	if _, err := other.ValidateToken(tokenString); err == nil {
		t.Fatalf("expected signature mismatch to fail")
	}
	if _, err := wrongAudience.ValidateToken(tokenString); err == nil {
		t.Fatalf("expected audience mismatch to fail")
	}

	current = now.Add(11 * time.Minute)
	if _, err := issuer.ValidateToken(tokenString); err == nil {
		t.Fatalf("expected expired token to fail")
	}
}

func TestNewTokenIssuerValidatesConfig(t *testing.T) {
	testCases := []struct {
		name   string
		config TokenIssuerConfig
	}{
		{name: "missing-secret", config: TokenIssuerConfig{Issuer: "books-auth", Audience: "books-api", TokenTTL: time.Minute}},
		{name: "missing-issuer", config: TokenIssuerConfig{SigningSecret: []byte("secret"), Audience: "books-api", TokenTTL: time.Minute}},
		{name: "blank-audience", config: TokenIssuerConfig{SigningSecret: []byte("secret"), Issuer: "books-auth", Audience: " ", TokenTTL: time.Minute}},
		{name: "zero-ttl", config: TokenIssuerConfig{SigningSecret: []byte("secret"), Issuer: "books-auth", Audience: "books-api"}},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if _, err := NewTokenIssuer(testCase.config); err == nil {
				t.Fatalf("expected constructor error")
			}
		})
	}
}
