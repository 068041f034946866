// Package identity verifies bearer tokens and yields the caller's principal.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Shivanand-hulikatti/room-booking/internal/model"
)

// ErrInvalidToken is returned for any token that does not verify.
var ErrInvalidToken = errors.New("invalid token")

// Verifier resolves a bearer token to a verified principal.
type Verifier interface {
	Verify(ctx context.Context, token string) (model.Principal, error)
}

// RoleAdmin is the role claim value granting admin capability.
const RoleAdmin = "admin"

type claims struct {
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// JWTVerifier verifies HS256 tokens signed with a shared secret. A caller is
// an admin when the token carries the admin role or its email is listed in
// admins.
type JWTVerifier struct {
	secret []byte
	admins map[string]bool
	now    func() time.Time
}

// NewJWTVerifier constructs a JWTVerifier.
func NewJWTVerifier(secret string, admins []string) *JWTVerifier {
	m := make(map[string]bool, len(admins))
	for _, a := range admins {
		if a = strings.ToLower(strings.TrimSpace(a)); a != "" {
			m[a] = true
		}
	}
	return &JWTVerifier{secret: []byte(secret), admins: m, now: time.Now}
}

func (v *JWTVerifier) Verify(_ context.Context, token string) (model.Principal, error) {
	if len(v.secret) == 0 || strings.TrimSpace(token) == "" {
		return model.Principal{}, ErrInvalidToken
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.now),
	)
	c := &claims{}
	parsed, err := parser.ParseWithClaims(token, c, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return model.Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	email := c.Email
	if email == "" {
		email = c.Subject
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return model.Principal{}, fmt.Errorf("%w: email claim required", ErrInvalidToken)
	}
	return model.Principal{
		Email:   email,
		IsAdmin: c.Role == RoleAdmin || v.admins[email],
	}, nil
}

// Issue signs a token for email, valid for ttl. It backs the token command
// used in development and tests.
func (v *JWTVerifier) Issue(email string, admin bool, ttl time.Duration) (string, error) {
	if len(v.secret) == 0 {
		return "", errors.New("jwt secret not configured")
	}
	now := v.now()
	c := claims{
		Email: strings.ToLower(strings.TrimSpace(email)),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strings.ToLower(strings.TrimSpace(email)),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if admin {
		c.Role = RoleAdmin
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(v.secret)
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}
