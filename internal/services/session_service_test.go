package services_test

import (
	"encoding/hex"
	"testing"
	"time"

	"gemstore/internal/logging"
	"gemstore/internal/models"
	"gemstore/internal/repositories"
	"gemstore/internal/services"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionService_RoundTrip(t *testing.T) {
	sessions := services.NewSessionService(repositories.NewMockSessionRepository(), time.Hour)

	session, err := sessions.Create(42)
	require.NoError(t, err)
	raw, err := hex.DecodeString(session.Token)
	require.NoError(t, err)
	assert.Len(t, raw, 24)
	assert.WithinDuration(t, time.Now().Add(time.Hour), session.ExpiresAt, time.Minute)

	userID, ok, err := sessions.Resolve(session.Token)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint(42), userID)

	require.NoError(t, sessions.Destroy(session.Token))
	_, ok, err = sessions.Resolve(session.Token)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, sessions.Destroy(session.Token))
	assert.NoError(t, sessions.Destroy(""))
}

func TestSessionService_TokensAreUnique(t *testing.T) {
	sessions := services.NewSessionService(repositories.NewMockSessionRepository(), time.Hour)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		session, err := sessions.Create(1)
		require.NoError(t, err)
		assert.False(t, seen[session.Token])
		seen[session.Token] = true
	}
}

func TestSessionService_Expiry(t *testing.T) {
	repo := repositories.NewMockSessionRepository()
	sessions := services.NewSessionService(repo, time.Minute)

	session, err := sessions.Create(1)
	require.NoError(t, err)

	repo.SetClock(func() time.Time { return time.Now().Add(2 * time.Minute) })
	_, ok, err := sessions.Resolve(session.Token)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSessionService_DestroyAllForUser(t *testing.T) {
	sessions := services.NewSessionService(repositories.NewMockSessionRepository(), time.Hour)
	current, err := sessions.Create(5)
	require.NoError(t, err)
	other, err := sessions.Create(5)
	require.NoError(t, err)

	require.NoError(t, sessions.DestroyAllForUser(5, current.Token))

	_, ok, _ := sessions.Resolve(current.Token)
	assert.True(t, ok)
	_, ok, _ = sessions.Resolve(other.Token)
	assert.False(t, ok)
}

func TestSessionCodec(t *testing.T) {
	codec, err := services.NewSessionCodec("test-secret", logging.Discard())
	require.NoError(t, err)

	now := time.Now()
	session := &models.Session{Token: "abc123", UserID: 9, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	credential, err := codec.Encode(session)
	require.NoError(t, err)

	token, err := codec.Decode(credential)
	require.NoError(t, err)
	assert.Equal(t, "abc123", token)

	// Signed with another secret.
	other, err := services.NewSessionCodec("other-secret", logging.Discard())
	require.NoError(t, err)
	_, err = other.Decode(credential)
	assert.ErrorIs(t, err, services.ErrInvalidCredential)

	// Expired envelope.
	session.ExpiresAt = now.Add(-time.Minute)
	stale, err := codec.Encode(session)
	require.NoError(t, err)
	_, err = codec.Decode(stale)
	assert.ErrorIs(t, err, services.ErrInvalidCredential)

	// alg=none is refused.
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sid": "abc123", "uid": 9})
	forged, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = codec.Decode(forged)
	assert.ErrorIs(t, err, services.ErrInvalidCredential)

	_, err = codec.Decode("garbage")
	assert.ErrorIs(t, err, services.ErrInvalidCredential)
}

func TestSessionCodec_RandomSecretWhenUnset(t *testing.T) {
	a, err := services.NewSessionCodec("", logging.Discard())
	require.NoError(t, err)
	b, err := services.NewSessionCodec("", logging.Discard())
	require.NoError(t, err)

	now := time.Now()
	credential, err := a.Encode(&models.Session{Token: "t", UserID: 1, CreatedAt: now, ExpiresAt: now.Add(time.Hour)})
	require.NoError(t, err)
	_, err = b.Decode(credential)
	assert.Error(t, err)
}
