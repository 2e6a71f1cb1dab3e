package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"bloodlink/internal/platform/middleware"
	"bloodlink/pkg/clock"
	"bloodlink/pkg/domain"
)

// TokenIssuer signs and validates the HMAC session tokens handed out at
// login. It satisfies middleware.TokenValidator.
type TokenIssuer struct {
	signingKey []byte
	ttl        time.Duration
	clock      clock.Clock
}

func NewTokenIssuer(signingKey string, ttl time.Duration, clk clock.Clock) (*TokenIssuer, error) {
	if signingKey == "" {
		return nil, fmt.Errorf("signing key is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive")
	}
	if clk == nil {
		clk = clock.Real()
	}
	return &TokenIssuer{signingKey: []byte(signingKey), ttl: ttl, clock: clk}, nil
}

type sessionClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Issue creates a signed token for the account.
func (t *TokenIssuer) Issue(accountID domain.AccountID, role domain.Role) (string, error) {
	now := t.clock.Now()
	claims := sessionClaims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and verifies a token string.
func (t *TokenIssuer) ValidateToken(tokenString string) (*middleware.TokenClaims, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.signingKey, nil
	}, jwt.WithTimeFunc(t.clock.Now), jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, fmt.Errorf("parse session token: %w", err)
	}
	if claims.Subject == "" || claims.Role == "" {
		return nil, fmt.Errorf("session token missing identity claims")
	}
	return &middleware.TokenClaims{AccountID: claims.Subject, Role: claims.Role}, nil
}
