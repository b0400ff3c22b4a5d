package service

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/readyluo/lasercalcpro-sub004/internal/model"
)

const testSecret = "test-secret-key-for-jwt"

var testIdentity = model.Identity{ID: 7, Username: "alice", Email: "alice@example.com", Role: model.RoleAdmin}

func TestTokenRoundTrip(t *testing.T) {
	tokens := NewTokenService(testSecret)

	token, err := tokens.Issue(testIdentity)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	got, err := tokens.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if *got != testIdentity {
		t.Errorf("Verify() = %+v, want %+v", *got, testIdentity)
	}
}

func TestTokenExpiry(t *testing.T) {
	issued := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := issued
	tokens := NewTokenService(testSecret, WithClock(func() time.Time { return now }))

	token, err := tokens.Issue(testIdentity)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	now = issued.Add(6*24*time.Hour + 23*time.Hour)
	if _, err := tokens.Verify(token); err != nil {
		t.Errorf("token should be valid just before expiry: %v", err)
	}

	now = issued.Add(7 * 24 * time.Hour)
	if _, err := tokens.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("token at +7d: err = %v, want ErrInvalidToken", err)
	}

	if _, err := tokens.Refresh(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Refresh of expired token: err = %v, want ErrInvalidToken", err)
	}
}

func TestTokenTamperedSignature(t *testing.T) {
	tokens := NewTokenService(testSecret)
	token, _ := tokens.Issue(testIdentity)

	// Replace the first character of the signature segment. The last
	// character carries padding bits and may decode identically.
	sig := strings.LastIndex(token, ".") + 1
	repl := byte('A')
	if token[sig] == 'A' {
		repl = 'B'
	}
	tampered := token[:sig] + string(repl) + token[sig+1:]

	if _, err := tokens.Verify(tampered); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("tampered token: err = %v, want ErrInvalidToken", err)
	}

	other := NewTokenService("a-different-secret")
	if _, err := other.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("foreign secret: err = %v, want ErrInvalidToken", err)
	}
}

func TestTokenRejectsOtherAlgorithms(t *testing.T) {
	tokens := NewTokenService(testSecret)

	claims := jwt.MapClaims{
		"id": 7, "username": "alice", "email": "alice@example.com", "role": "admin",
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign HS512: %v", err)
	}
	if _, err := tokens.Verify(hs512); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("HS512 token: err = %v, want ErrInvalidToken", err)
	}

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := tokens.Verify(none); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("alg=none token: err = %v, want ErrInvalidToken", err)
	}
}

func TestTokenMissingClaims(t *testing.T) {
	tokens := NewTokenService(testSecret)

	tests := []struct {
		name   string
		claims jwt.MapClaims
	}{
		{"no role", jwt.MapClaims{"id": 7, "username": "alice", "email": "a@example.com"}},
		{"no username", jwt.MapClaims{"id": 7, "email": "a@example.com", "role": "admin"}},
		{"no id", jwt.MapClaims{"username": "alice", "email": "a@example.com", "role": "admin"}},
		{"empty email", jwt.MapClaims{"id": 7, "username": "alice", "email": "", "role": "admin"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.claims["exp"] = time.Now().Add(time.Hour).Unix()
			token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tt.claims).SignedString([]byte(testSecret))
			if err != nil {
				t.Fatalf("sign: %v", err)
			}
			if _, err := tokens.Verify(token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("err = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestTokenMalformed(t *testing.T) {
	tokens := NewTokenService(testSecret)
	for _, s := range []string{"", "garbage", "garbage.token.here", strings.Repeat(".", 5)} {
		if _, err := tokens.Verify(s); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Verify(%q): err = %v, want ErrInvalidToken", s, err)
		}
	}
}

func TestIssueIncompleteIdentity(t *testing.T) {
	tokens := NewTokenService(testSecret)
	id := testIdentity
	id.Email = ""
	if _, err := tokens.Issue(id); !errors.Is(err, ErrIncompleteIdentity) {
		t.Errorf("err = %v, want ErrIncompleteIdentity", err)
	}
}

func TestTokenRefreshExtendsExpiry(t *testing.T) {
	issued := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := issued
	tokens := NewTokenService(testSecret, WithClock(func() time.Time { return now }))

	token, _ := tokens.Issue(testIdentity)

	now = issued.Add(5 * 24 * time.Hour)
	refreshed, err := tokens.Refresh(token)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	now = issued.Add(8 * 24 * time.Hour)
	if _, err := tokens.Verify(token); err == nil {
		t.Error("original token should have expired")
	}
	got, err := tokens.Verify(refreshed)
	if err != nil {
		t.Fatalf("refreshed token should still be valid: %v", err)
	}
	if *got != testIdentity {
		t.Errorf("refreshed identity = %+v", *got)
	}
}
