package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestIssueAndVerify(t *testing.T) {
	v := NewJWTVerifier("secret", []string{"Boss@Example.com"})

	tests := []struct {
		name      string
		email     string
		admin     bool
		wantEmail string
		wantAdmin bool
	}{
		{"plain user", "Ana@Example.com", false, "ana@example.com", false},
		{"admin role", "ops@example.com", true, "ops@example.com", true},
		{"listed admin", "boss@example.com", false, "boss@example.com", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok, err := v.Issue(tt.email, tt.admin, time.Hour)
			if err != nil {
				t.Fatalf("issue: %v", err)
			}
			p, err := v.Verify(context.Background(), tok)
			if err != nil {
				t.Fatalf("verify: %v", err)
			}
			if p.Email != tt.wantEmail || p.IsAdmin != tt.wantAdmin {
				t.Fatalf("got %+v, want email=%s admin=%v", p, tt.wantEmail, tt.wantAdmin)
			}
		})
	}
}

func TestVerifyRejects(t *testing.T) {
	v := NewJWTVerifier("secret", nil)
	other := NewJWTVerifier("other-secret", nil)

	expired, err := v.Issue("ana@example.com", false, -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	wrongKey, err := other.Issue("ana@example.com", false, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"email": "ana@example.com"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}

	for name, tok := range map[string]string{
		"empty":     "",
		"garbage":   "not-a-token",
		"expired":   expired,
		"wrong key": wrongKey,
		"alg none":  none,
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := v.Verify(context.Background(), tok); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	if tok, ok := BearerToken("Bearer abc"); !ok || tok != "abc" {
		t.Fatalf("got %q %v", tok, ok)
	}
	if _, ok := BearerToken("Basic abc"); ok {
		t.Fatal("basic auth accepted as bearer")
	}
	if _, ok := BearerToken("Bearer"); ok {
		t.Fatal("missing token accepted")
	}
}
