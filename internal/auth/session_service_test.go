package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/trustweave/portal/internal/database/testutil"
	"github.com/trustweave/portal/internal/models"
)

func newSessionFixture(t *testing.T, clock func() time.Time) (*gorm.DB, *SessionService, *models.User) {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	jwtSvc, err := NewJWTService(JWTConfig{Secret: "test-secret", Issuer: "trustweave-portal", Clock: clock})
	require.NoError(t, err)

	sessions, err := NewSessionService(db, jwtSvc, SessionConfig{
		RefreshTokenTTL: time.Hour,
		Clock:           clock,
	})
	require.NoError(t, err)

	user := &models.User{Email: "jane@example.com", Password: "x", IsActive: true}
	require.NoError(t, db.Create(user).Error)

	return db, sessions, user
}

func TestCreateSessionIssuesTokenPair(t *testing.T) {
	_, sessions, user := newSessionFixture(t, nil)

	pair, session, err := sessions.CreateSession(user, SessionMetadata{IPAddress: "127.0.0.1", UserAgent: "test"})
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	require.Equal(t, user.ID, session.UserID)
	require.Equal(t, "127.0.0.1", session.IPAddress)
}

func TestRefreshSessionRotatesToken(t *testing.T) {
	_, sessions, user := newSessionFixture(t, nil)

	pair, session, err := sessions.CreateSession(user, SessionMetadata{})
	require.NoError(t, err)

	rotated, refreshed, err := sessions.RefreshSession(pair.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, session.ID, refreshed.ID)
	require.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	// The old refresh token no longer resolves to a session.
	_, _, err = sessions.RefreshSession(pair.RefreshToken)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRefreshSessionRejectsRevoked(t *testing.T) {
	_, sessions, user := newSessionFixture(t, nil)

	pair, session, err := sessions.CreateSession(user, SessionMetadata{})
	require.NoError(t, err)

	require.NoError(t, sessions.RevokeSession(session.ID))

	_, _, err = sessions.RefreshSession(pair.RefreshToken)
	require.ErrorIs(t, err, ErrSessionRevoked)
}

func TestRefreshSessionRejectsExpired(t *testing.T) {
	current := time.Now()
	_, sessions, user := newSessionFixture(t, func() time.Time { return current })

	pair, _, err := sessions.CreateSession(user, SessionMetadata{})
	require.NoError(t, err)

	current = current.Add(2 * time.Hour)
	_, _, err = sessions.RefreshSession(pair.RefreshToken)
	require.ErrorIs(t, err, ErrSessionExpired)
}

func TestRevokeSessionIsSingleShot(t *testing.T) {
	_, sessions, user := newSessionFixture(t, nil)

	_, session, err := sessions.CreateSession(user, SessionMetadata{})
	require.NoError(t, err)

	require.NoError(t, sessions.RevokeSession(session.ID))
	require.ErrorIs(t, sessions.RevokeSession(session.ID), ErrSessionNotFound)
}

func TestRevokeUserSessions(t *testing.T) {
	db, sessions, user := newSessionFixture(t, nil)

	_, _, err := sessions.CreateSession(user, SessionMetadata{})
	require.NoError(t, err)
	pair, _, err := sessions.CreateSession(user, SessionMetadata{})
	require.NoError(t, err)

	require.NoError(t, sessions.RevokeUserSessions(user.ID))

	_, _, err = sessions.RefreshSession(pair.RefreshToken)
	require.ErrorIs(t, err, ErrSessionRevoked)

	var revoked int64
	require.NoError(t, db.Model(&models.Session{}).
		Where("user_id = ? AND revoked_at IS NOT NULL", user.ID).
		Count(&revoked).Error)
	require.EqualValues(t, 2, revoked)
}

func TestCleanupExpiredRemovesDeadSessions(t *testing.T) {
	current := time.Now()
	db, sessions, user := newSessionFixture(t, func() time.Time { return current })

	_, stale, err := sessions.CreateSession(user, SessionMetadata{})
	require.NoError(t, err)
	require.NoError(t, sessions.RevokeSession(stale.ID))

	_, _, err = sessions.CreateSession(user, SessionMetadata{})
	require.NoError(t, err)

	// Only the revoked session qualifies while the other is still live.
	removed, err := sessions.CleanupExpired(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	// Advance past the refresh TTL so the survivor expires too.
	current = current.Add(2 * time.Hour)
	removed, err = sessions.CleanupExpired(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	var remaining int64
	require.NoError(t, db.Model(&models.Session{}).Count(&remaining).Error)
	require.EqualValues(t, 0, remaining)
}
