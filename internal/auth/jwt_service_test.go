package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	svc, err := NewJWTService(JWTConfig{
		Secret: "test-secret",
		Issuer: "canopy",
	})
	require.NoError(t, err)

	token, err := svc.GenerateAccessToken(AccessTokenInput{
		UserID:    "user-1",
		SessionID: "session-1",
	})
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.UserID)
	require.Equal(t, "session-1", claims.SessionID)
	require.Equal(t, "canopy", claims.Issuer)
}

func TestJWTRequiresSecretAndUser(t *testing.T) {
	_, err := NewJWTService(JWTConfig{})
	require.Error(t, err)

	svc, err := NewJWTService(JWTConfig{Secret: "s"})
	require.NoError(t, err)

	_, err = svc.GenerateAccessToken(AccessTokenInput{})
	require.Error(t, err)
}

func TestJWTExpiry(t *testing.T) {
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc, err := NewJWTService(JWTConfig{
		Secret:         "test-secret",
		AccessTokenTTL: time.Minute,
		Clock:          func() time.Time { return current },
	})
	require.NoError(t, err)

	token, err := svc.GenerateAccessToken(AccessTokenInput{UserID: "user-1"})
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(token)
	require.NoError(t, err)

	current = current.Add(2 * time.Minute)
	_, err = svc.ValidateAccessToken(token)
	require.Error(t, err)
}

func TestJWTRejectsWrongIssuerAndGarbage(t *testing.T) {
	issuerA, err := NewJWTService(JWTConfig{Secret: "test-secret", Issuer: "a"})
	require.NoError(t, err)
	issuerB, err := NewJWTService(JWTConfig{Secret: "test-secret", Issuer: "b"})
	require.NoError(t, err)

	token, err := issuerA.GenerateAccessToken(AccessTokenInput{UserID: "user-1"})
	require.NoError(t, err)

	_, err = issuerB.ValidateAccessToken(token)
	require.Error(t, err)

	_, err = issuerA.ValidateAccessToken("not.a.token")
	require.Error(t, err)

	_, err = issuerA.ValidateAccessToken("")
	require.Error(t, err)
}
