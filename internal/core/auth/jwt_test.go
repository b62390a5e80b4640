package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueParseRoundTrip(t *testing.T) {
	j := New("secret", "idea-board", time.Hour)
	tok, err := j.Issue(42, "admin")
	require.NoError(t, err)

	c, err := j.Parse(tok)
	require.NoError(t, err)
	id, err := c.UserID()
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)
	assert.Equal(t, "admin", c.Role)
}

func TestParseRejectsWrongSecretAndIssuer(t *testing.T) {
	tok, err := New("secret", "idea-board", time.Hour).Issue(1, "user")
	require.NoError(t, err)

	_, err = New("other", "idea-board", time.Hour).Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = New("secret", "someone-else", time.Hour).Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsExpired(t *testing.T) {
	j := New("secret", "idea-board", -2*time.Minute) // 超出 60s leeway
	tok, err := j.Issue(1, "user")
	require.NoError(t, err)
	_, err = j.Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestClaimsUserIDRejectsGarbage(t *testing.T) {
	_, err := (&Claims{UID: "abc"}).UserID()
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = (&Claims{UID: "0"}).UserID()
	assert.ErrorIs(t, err, ErrInvalidToken)
}
