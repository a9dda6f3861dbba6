package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

type AuthClaims struct {
	UID string `json:"id"`
	// PasswordVersion is the user's password version at signing time.
	PasswordVersion int `json:"pwv"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies HS256 session tokens that bind a user id for
// a fixed window.
type TokenManager struct {
	secret    []byte
	expiresIn time.Duration
	now       func() time.Time
}

func NewTokenManager(secret string, expiresIn time.Duration, now func() time.Time) *TokenManager {
	if now == nil {
		now = time.Now
	}
	return &TokenManager{
		secret:    []byte(secret),
		expiresIn: expiresIn,
		now:       now,
	}
}

func (m *TokenManager) ExpiresIn() time.Duration {
	return m.expiresIn
}

func (m *TokenManager) Sign(uid string, passwordVersion int) (string, error) {
	now := m.now()
	claims := AuthClaims{
		UID:             uid,
		PasswordVersion: passwordVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiresIn)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", errors.Join(err, errors.New("failed to generate token"))
	}
	return token, nil
}

// Verify checks signature and expiry. Every failure is reported as
// ErrInvalidToken so callers cannot tell the reasons apart.
func (m *TokenManager) Verify(authToken string) (*AuthClaims, error) {
	claims := &AuthClaims{}
	token, err := jwt.ParseWithClaims(authToken, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if token == nil || !token.Valid || claims.UID == "" || claims.IssuedAt == nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
