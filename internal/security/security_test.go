package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homecare/portal/internal/models"
)

func testKeys(t *testing.T) Keys {
	t.Helper()
	keys, err := DeriveKeys("unit-test-secret")
	require.NoError(t, err)
	return keys
}

func TestDeriveKeys_DistinctPerPurpose(t *testing.T) {
	keys := testKeys(t)
	assert.Len(t, keys.Session, 32)
	assert.NotEqual(t, keys.Session, keys.MFA)

	_, err := DeriveKeys("")
	assert.Error(t, err)
}

func TestSessionToken_RoundTripKeepsFields(t *testing.T) {
	keys := testKeys(t)
	issued := time.Date(2026, 10, 14, 8, 0, 0, 123_000_000, time.UTC)
	in := models.Session{
		UserID:      "u-1",
		Email:       "margaret@example.com",
		Role:        models.RoleClient,
		MFAComplete: true,
		IssuedAt:    issued,
		ExpiresAt:   issued.Add(24 * time.Hour),
	}

	token, err := EncodeSession(keys.Session, in)
	require.NoError(t, err)

	out, err := DecodeSession(keys.Session, token)
	require.NoError(t, err)
	assert.Equal(t, in.UserID, out.UserID)
	assert.Equal(t, in.Role, out.Role)
	assert.True(t, out.MFAComplete)
	assert.True(t, in.IssuedAt.Equal(out.IssuedAt))
	assert.True(t, in.ExpiresAt.Equal(out.ExpiresAt))
}

func TestSessionToken_ExpiredStillDecodes(t *testing.T) {
	keys := testKeys(t)
	past := time.Now().Add(-48 * time.Hour)
	token, err := EncodeSession(keys.Session, models.Session{
		UserID:    "u-1",
		Role:      models.RoleAdmin,
		IssuedAt:  past,
		ExpiresAt: past.Add(time.Hour),
	})
	require.NoError(t, err)

	out, err := DecodeSession(keys.Session, token)
	require.NoError(t, err)
	assert.True(t, out.IsExpired(time.Now()))
}

func TestSessionToken_RejectsForgery(t *testing.T) {
	keys := testKeys(t)
	other, err := DeriveKeys("another-secret")
	require.NoError(t, err)

	token, err := EncodeSession(other.Session, models.Session{
		UserID:    "u-1",
		Role:      models.RoleAdmin,
		IssuedAt:  time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	_, err = DecodeSession(keys.Session, token)
	assert.ErrorIs(t, err, ErrInvalidSessionToken)

	_, err = DecodeSession(keys.Session, `{"userId":"u-1","role":"admin"}`)
	assert.ErrorIs(t, err, ErrInvalidSessionToken)
}

func TestCodes(t *testing.T) {
	keys := testKeys(t)

	code, err := GenerateCode(6)
	require.NoError(t, err)
	assert.True(t, IsNumericCode(code, 6))

	hash := HashCode(keys.MFA, "ch-1", code)
	assert.True(t, VerifyCode(keys.MFA, "ch-1", code, hash))
	assert.False(t, VerifyCode(keys.MFA, "ch-2", code, hash))

	assert.False(t, IsNumericCode("12a456", 6))
	assert.False(t, IsNumericCode("12345", 6))
}
