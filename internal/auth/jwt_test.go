package auth

import (
	"errors"
	"testing"
	"time"
)

func TestJWTGenerateValidate(t *testing.T) {
	manager := NewJWTManager("secret", time.Hour, 24*time.Hour, "issuer")
	pair, err := manager.GeneratePair(42, "amina")
	if err != nil {
		t.Fatalf("generate pair: %v", err)
	}

	claims, err := manager.Validate(pair.Access, TokenAccess)
	if err != nil {
		t.Fatalf("validate access: %v", err)
	}
	id, err := claims.UserID()
	if err != nil || id != 42 || claims.Username != "amina" {
		t.Fatalf("unexpected claims: %#v (id %d, err %v)", claims, id, err)
	}

	if _, err := manager.Validate(pair.Refresh, TokenRefresh); err != nil {
		t.Fatalf("validate refresh: %v", err)
	}
}

func TestJWTValidateWrongType(t *testing.T) {
	manager := NewJWTManager("secret", time.Hour, 24*time.Hour, "issuer")
	pair, err := manager.GeneratePair(1, "u")
	if err != nil {
		t.Fatalf("generate pair: %v", err)
	}
	if _, err := manager.Validate(pair.Refresh, TokenAccess); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("refresh token accepted as access: %v", err)
	}
	if _, err := manager.Validate(pair.Access, TokenRefresh); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("access token accepted as refresh: %v", err)
	}
}

func TestJWTValidateExpired(t *testing.T) {
	manager := NewJWTManager("secret", time.Minute, time.Hour, "issuer")
	issued := time.Now().Add(-2 * time.Hour)
	manager.now = func() time.Time { return issued }

	token, err := manager.Generate(7, "u", TokenAccess)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	manager.now = time.Now
	if _, err := manager.Validate(token, TokenAccess); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token for expired access, got %v", err)
	}
}

func TestJWTValidateWrongSecretOrIssuer(t *testing.T) {
	signer := NewJWTManager("secret", time.Hour, time.Hour, "issuer")
	token, err := signer.Generate(7, "u", TokenAccess)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	other := NewJWTManager("other-secret", time.Hour, time.Hour, "issuer")
	if _, err := other.Validate(token, TokenAccess); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token for wrong secret, got %v", err)
	}

	otherIssuer := NewJWTManager("secret", time.Hour, time.Hour, "someone-else")
	if _, err := otherIssuer.Validate(token, TokenAccess); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token for wrong issuer, got %v", err)
	}
}

func TestJWTGenerateInvalid(t *testing.T) {
	manager := NewJWTManager("secret", time.Hour, time.Hour, "issuer")
	if _, err := manager.Generate(0, "u", TokenAccess); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token error, got %v", err)
	}
	if _, err := manager.Generate(1, "u", TokenType("bogus")); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token error, got %v", err)
	}
}

func TestJWTValidateMissing(t *testing.T) {
	manager := NewJWTManager("secret", time.Hour, time.Hour, "issuer")
	if _, err := manager.Validate("", TokenAccess); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected missing token error, got %v", err)
	}
}

func TestTokenFromHeader(t *testing.T) {
	if _, err := TokenFromHeader("nope"); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected missing token error, got %v", err)
	}
	if token, err := TokenFromHeader("Bearer token"); err != nil || token != "token" {
		t.Fatalf("expected token, got %s err %v", token, err)
	}
	if token, err := TokenFromHeader("bearer token"); err != nil || token != "token" {
		t.Fatalf("expected case-insensitive scheme, got %s err %v", token, err)
	}
}
