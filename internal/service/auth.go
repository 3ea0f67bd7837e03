// Package service implements the JengaTrack use cases: projects and their
// children, daily ledgers and cash deposits, supplier credit lines and the
// project dashboard.
package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jengatrack/jengatrack-api/internal/domain"
)

// AccountClaims are the claims carried by the bearer tokens the dashboard
// sends. Supabase access tokens have this shape: sub is the account ID.
type AccountClaims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// AccountID returns the account the token was issued to.
func (c *AccountClaims) AccountID() string {
	return c.Subject
}

// TokenVerifier validates HS256 bearer tokens signed with the project's JWT
// secret and can mint tokens for local development and tests.
type TokenVerifier struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewTokenVerifier creates a verifier. An empty issuer disables the issuer check.
func NewTokenVerifier(secret, issuer string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret), issuer: issuer, now: time.Now}
}

// Verify parses and validates a token, returning its claims.
func (v *TokenVerifier) Verify(tokenString string) (*AccountClaims, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, &domain.ErrUnauthorized{Message: "missing bearer token"}
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.now),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &AccountClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, &domain.ErrUnauthorized{Message: "invalid or expired token"}
	}

	claims, ok := token.Claims.(*AccountClaims)
	if !ok || !token.Valid {
		return nil, &domain.ErrUnauthorized{Message: "invalid token"}
	}
	if claims.Subject == "" {
		return nil, &domain.ErrUnauthorized{Message: "token has no subject"}
	}
	return claims, nil
}

// Sign issues a token for accountID valid for ttl.
func (v *TokenVerifier) Sign(accountID, email string, ttl time.Duration) (string, error) {
	now := v.now()
	claims := AccountClaims{
		Email: email,
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    v.issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}
