package services

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	SessionCookieName = "ampy.sid"
	SessionTTL        = 30 * 24 * time.Hour
)

// SessionClaims identifies a visitor by participant id (sub) and
// canonical email.
type SessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// SessionManager signs and verifies HS256 session tokens.
type SessionManager struct {
	Secret []byte
	TTL    time.Duration
	Now    Clock
}

func NewSessionManager(secret string) *SessionManager {
	return &SessionManager{Secret: []byte(secret), TTL: SessionTTL}
}

func (m *SessionManager) Issue(participantID, email string) (string, error) {
	now := m.Now.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{
		Email: canonicalEmail(email),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   participantID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.TTL)),
		},
	})
	return token.SignedString(m.Secret)
}

func (m *SessionManager) Parse(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return m.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(m.Now.now))
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Email == "" {
		return nil, errors.New("invalid session token")
	}
	return claims, nil
}
