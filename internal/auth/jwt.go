package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrTokenExpired means the token was well formed and correctly
	// signed but its expiry has passed.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid covers tampered signatures, wrong signing keys
	// and structurally malformed tokens.
	ErrTokenInvalid = errors.New("invalid token")
)

type Claims struct {
	UserID string `json:"sub"`
	JTI    string `json:"jti"`
	jwt.RegisteredClaims
}

// Manager issues and verifies the identity tokens handed out on
// registration and login. The secret is explicit construction-time
// configuration so tests can run with their own keys.
type Manager struct {
	secret   []byte
	tokenTTL time.Duration
}

func NewManager(secret string, tokenTTL time.Duration) *Manager {
	return &Manager{
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
	}
}

func (m *Manager) GenerateToken(userID string) (string, error) {
	now := time.Now().UTC()

	claims := Claims{
		UserID: userID,
		JTI:    uuid.NewString(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenTTL)),
			Subject:   userID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// VerifyToken resolves the user id a token was issued for. Expiry and
// everything else fail as two distinct kinds because they produce
// different user-visible messages.
func (m *Manager) VerifyToken(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		// Enforce HS256

		_, ok := t.Method.(*jwt.SigningMethodHMAC)

		if !ok {
			return nil, ErrTokenInvalid
		}
		return m.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}

		return "", ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)

	if !ok || !token.Valid || claims.UserID == "" {
		return "", ErrTokenInvalid
	}

	return claims.UserID, nil
}
