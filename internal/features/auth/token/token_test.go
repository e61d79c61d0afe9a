package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_IssueAndParse(t *testing.T) {
	now := time.Unix(1700000000, 0)
	m := NewManager("secret", 30*24*time.Hour).WithClock(func() time.Time { return now })

	raw, expiresAt, err := m.Issue(7, 279058397, "customer")
	require.NoError(t, err)
	assert.Equal(t, now.Add(30*24*time.Hour), expiresAt)

	claims, err := m.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, int64(279058397), claims.TelegramID)
	assert.Equal(t, "customer", claims.Role)
	assert.Equal(t, "7", claims.Subject)
}

func TestManager_Expired(t *testing.T) {
	now := time.Unix(1700000000, 0)
	m := NewManager("secret", time.Hour).WithClock(func() time.Time { return now })

	raw, _, err := m.Issue(1, 1, "customer")
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	_, err = m.Parse(raw)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestManager_RejectsForeignTokens(t *testing.T) {
	m := NewManager("secret", time.Hour)

	raw, _, err := NewManager("other", time.Hour).Issue(1, 1, "customer")
	require.NoError(t, err)
	_, err = m.Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// none-алгоритм не принимается
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 1}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = m.Parse(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.Parse("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
