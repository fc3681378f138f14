package services

import (
	"errors"
	"fmt"

	"gemstore/internal/apperrors"
	"gemstore/internal/models"
	"gemstore/internal/repositories"

	"github.com/sirupsen/logrus"
)

// Principal is the identity behind a request. A nil User means anonymous.
type Principal struct {
	User         *models.UserView
	SessionToken string
}

// IsAuthenticated reports whether the request carried a live session.
func (p Principal) IsAuthenticated() bool {
	return p.User != nil
}

// IsAdmin reports whether the caller is the admin account.
func (p Principal) IsAdmin() bool {
	return p.User != nil && p.User.IsAdmin
}

// Guard turns client credentials into principals and issues new ones.
type Guard struct {
	codec    *SessionCodec
	sessions *SessionService
	users    repositories.UserRepository
	logger   logrus.FieldLogger
}

// NewGuard creates a new Guard.
func NewGuard(codec *SessionCodec, sessions *SessionService, users repositories.UserRepository, logger logrus.FieldLogger) *Guard {
	return &Guard{codec: codec, sessions: sessions, users: users, logger: logger}
}

// Issue opens a session for userID and returns the signed credential.
func (g *Guard) Issue(userID uint) (string, *models.Session, error) {
	session, err := g.sessions.Create(userID)
	if err != nil {
		return "", nil, err
	}
	credential, err := g.codec.Encode(session)
	if err != nil {
		return "", nil, err
	}
	return credential, session, nil
}

// Revoke destroys the session behind credential. Invalid credentials are
// ignored.
func (g *Guard) Revoke(credential string) error {
	if credential == "" {
		return nil
	}
	token, err := g.codec.Decode(credential)
	if err != nil {
		return nil
	}
	return g.sessions.Destroy(token)
}

// Authenticate resolves credential. Missing, forged, expired and revoked
// credentials all yield the anonymous principal; only storage failures are
// returned as errors. The admin flag is read from the user row each time.
func (g *Guard) Authenticate(credential string) (Principal, error) {
	if credential == "" {
		return Principal{}, nil
	}
	token, err := g.codec.Decode(credential)
	if err != nil {
		g.logger.WithError(err).Debug("rejected session credential")
		return Principal{}, nil
	}

	userID, ok, err := g.sessions.Resolve(token)
	if err != nil {
		return Principal{}, fmt.Errorf("failed to resolve session: %w", err)
	}
	if !ok {
		return Principal{}, nil
	}

	user, err := g.users.GetByID(userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return Principal{}, nil
		}
		return Principal{}, fmt.Errorf("failed to load session user: %w", err)
	}
	return Principal{User: user.View(), SessionToken: token}, nil
}

// RequireUser fails for anonymous principals.
func RequireUser(p Principal) error {
	if !p.IsAuthenticated() {
		return apperrors.Unauthenticated("Not authenticated")
	}
	return nil
}

// RequireAdmin fails for anonymous principals and for non-admin users.
func RequireAdmin(p Principal) error {
	if err := RequireUser(p); err != nil {
		return err
	}
	if !p.IsAdmin() {
		return apperrors.Forbidden("Admin access required")
	}
	return nil
}

// RevokeOthers signs out every session of userID except keep.
func (g *Guard) RevokeOthers(userID uint, keep string) error {
	return g.sessions.DestroyAllForUser(userID, keep)
}
