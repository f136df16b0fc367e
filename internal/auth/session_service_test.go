package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/canopyhq/canopy/internal/database/testutil"
	"github.com/canopyhq/canopy/internal/models"
)

func newTestSessionService(t *testing.T, clock *time.Time) (*SessionService, *gorm.DB) {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	jwtSvc, err := NewJWTService(JWTConfig{Secret: "test-secret"})
	require.NoError(t, err)

	cfg := SessionConfig{RefreshTokenTTL: time.Hour}
	if clock != nil {
		cfg.Clock = func() time.Time { return *clock }
	}

	svc, err := NewSessionService(db, jwtSvc, cfg)
	require.NoError(t, err)

	return svc, db
}

func createTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	hash, err := HashPassword("secret123")
	require.NoError(t, err)

	user := &models.User{
		Username: "admin",
		Email:    "admin@example.com",
		Password: hash,
		IsAdmin:  true,
		IsActive: true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestCreateSessionIssuesTokenPair(t *testing.T) {
	svc, db := newTestSessionService(t, nil)
	user := createTestUser(t, db)

	pair, session, err := svc.CreateSession(user.ID, SessionMetadata{IPAddress: "127.0.0.1"})
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	require.Equal(t, user.ID, session.UserID)
	require.Equal(t, "127.0.0.1", session.IPAddress)

	_, _, err = svc.CreateSession("", SessionMetadata{})
	require.Error(t, err)
}

func TestRefreshSessionRotatesToken(t *testing.T) {
	svc, db := newTestSessionService(t, nil)
	user := createTestUser(t, db)

	pair, session, err := svc.CreateSession(user.ID, SessionMetadata{})
	require.NoError(t, err)

	rotated, refreshed, err := svc.RefreshSession(pair.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, session.ID, refreshed.ID)
	require.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	// The old token is unusable after rotation.
	_, _, err = svc.RefreshSession(pair.RefreshToken)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRefreshSessionRejectsRevokedAndExpired(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc, db := newTestSessionService(t, &now)
	user := createTestUser(t, db)

	pair, session, err := svc.CreateSession(user.ID, SessionMetadata{})
	require.NoError(t, err)

	require.NoError(t, svc.RevokeSession(session.ID))
	_, _, err = svc.RefreshSession(pair.RefreshToken)
	require.ErrorIs(t, err, ErrSessionRevoked)

	// A second revoke reports not found.
	require.ErrorIs(t, svc.RevokeSession(session.ID), ErrSessionNotFound)

	pair2, _, err := svc.CreateSession(user.ID, SessionMetadata{})
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	_, _, err = svc.RefreshSession(pair2.RefreshToken)
	require.ErrorIs(t, err, ErrSessionExpired)

	_, _, err = svc.RefreshSession("")
	require.ErrorIs(t, err, ErrSessionInvalidToken)
}

func TestCleanupExpiredRemovesStaleSessions(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc, db := newTestSessionService(t, &now)
	user := createTestUser(t, db)

	_, stale, err := svc.CreateSession(user.ID, SessionMetadata{})
	require.NoError(t, err)
	require.NoError(t, svc.RevokeSession(stale.ID))

	_, _, err = svc.CreateSession(user.ID, SessionMetadata{})
	require.NoError(t, err)

	removed, err := svc.CleanupExpired(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	var count int64
	require.NoError(t, db.Model(&models.Session{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("secret123")
	require.NoError(t, err)
	require.NotEqual(t, "secret123", hash)

	require.True(t, CheckPassword(hash, "secret123"))
	require.False(t, CheckPassword(hash, "wrong"))

	_, err = HashPassword("")
	require.Error(t, err)
}

func TestGenerateTokenLengthAndUniqueness(t *testing.T) {
	a, err := GenerateToken(48)
	require.NoError(t, err)
	require.Len(t, a, 48)

	b, err := GenerateToken(48)
	require.NoError(t, err)
	require.NotEqual(t, a, b)

	c, err := GenerateToken(0)
	require.NoError(t, err)
	require.Len(t, c, 48)
}
