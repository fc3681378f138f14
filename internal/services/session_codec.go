package services

import (
	"crypto/rand"
	"errors"
	"fmt"

	"gemstore/internal/models"

	"github.com/dgrijalva/jwt-go"
	"github.com/sirupsen/logrus"
)

// ErrInvalidCredential is returned for envelopes that fail signature or
// expiry checks.
var ErrInvalidCredential = errors.New("invalid session credential")

// sessionClaims wraps a registry token. The registry stays authoritative; the
// signature only lets forged or stale credentials be dropped early.
type sessionClaims struct {
	SessionID string `json:"sid"`
	UserID    uint   `json:"uid"`
	jwt.StandardClaims
}

// SessionCodec signs and parses the credential handed to clients.
type SessionCodec struct {
	secret []byte
}

// NewSessionCodec builds a codec. An empty secret is replaced with a random
// one, which invalidates credentials on every restart.
func NewSessionCodec(secret string, logger logrus.FieldLogger) (*SessionCodec, error) {
	if secret == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("failed to generate session secret: %w", err)
		}
		logger.Warn("SESSION_SECRET is not set; using a random secret, sessions will not survive a restart")
		return &SessionCodec{secret: buf}, nil
	}
	return &SessionCodec{secret: []byte(secret)}, nil
}

// Encode signs session into an HS256 token.
func (c *SessionCodec) Encode(session *models.Session) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		SessionID: session.Token,
		UserID:    session.UserID,
		StandardClaims: jwt.StandardClaims{
			IssuedAt:  session.CreatedAt.Unix(),
			ExpiresAt: session.ExpiresAt.Unix(),
		},
	})
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session: %w", err)
	}
	return signed, nil
}

// Decode verifies credential and returns the registry token it carries.
func (c *SessionCodec) Decode(credential string) (string, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(credential, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidCredential
	}
	if claims.SessionID == "" {
		return "", ErrInvalidCredential
	}
	return claims.SessionID, nil
}
