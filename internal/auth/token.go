package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// TokenManager verifies session tokens issued by the external identity
// service. Issuance lives there; GenerateToken exists for tests and local
// development.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: time.Hour}
}

// SessionClaims describes the JWT payload: the caller's identity plus the
// active tenant the session is scoped to. ActiveTenantID may be empty when
// the user has not selected an organization.
type SessionClaims struct {
	Name           string `json:"name"`
	ActiveTenantID string `json:"active_tenant_id"`
	jwt.RegisteredClaims
}

// GenerateToken builds and signs a session JWT.
func (tm *TokenManager) GenerateToken(subjectID, name, activeTenantID string) (string, time.Time, error) {
	expiresAt := time.Now().Add(tm.ttl)
	claims := &SessionClaims{
		Name:           name,
		ActiveTenantID: activeTenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseToken validates and returns claims.
func (tm *TokenManager) ParseToken(tokenStr string) (*SessionClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*SessionClaims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
