// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/taibuivan/tikkun/internal/platform/sec"
)

func TestHashPassword(t *testing.T) {
	hash, err := sec.HashPassword("shalom")
	require.NoError(t, err)

	assert.True(t, sec.CheckPasswordHash("shalom", hash))
	assert.False(t, sec.CheckPasswordHash("wrong", hash))
}

func TestSessionTokens_RoundTrip(t *testing.T) {
	tokens, err := sec.NewSessionTokens("s3cret", "tikkun.test")
	require.NoError(t, err)

	signed, expiresAt, err := tokens.Issue("admin", time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	claims, err := tokens.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Subject)
}

/*
TestSessionTokens_Rejects covers tokens signed elsewhere, expired, or for another issuer.
*/
func TestSessionTokens_Rejects(t *testing.T) {
	tokens, err := sec.NewSessionTokens("s3cret", "tikkun.test")
	require.NoError(t, err)

	other, err := sec.NewSessionTokens("different", "tikkun.test")
	require.NoError(t, err)
	foreign, _, err := other.Issue("admin", time.Hour)
	require.NoError(t, err)

	otherIssuer, err := sec.NewSessionTokens("s3cret", "elsewhere")
	require.NoError(t, err)
	wrongIssuer, _, err := otherIssuer.Issue("admin", time.Hour)
	require.NoError(t, err)

	expired, _, err := tokens.Issue("admin", -time.Minute)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"foreign_secret": foreign,
		"wrong_issuer":   wrongIssuer,
		"expired":        expired,
		"garbage":        "not.a.token",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := tokens.Verify(token)
			assert.Error(t, err)
		})
	}

	_, err = sec.NewSessionTokens("", "x")
	assert.Error(t, err)
}

func TestAdminAuthenticator(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("open-sesame"), bcrypt.MinCost)
	require.NoError(t, err)

	tokens, err := sec.NewSessionTokens("s3cret", "tikkun.test")
	require.NoError(t, err)

	auth := sec.NewAdminAuthenticator("static-token", string(hash), tokens, "admin", time.Hour)

	// 1. Static token
	assert.True(t, auth.Verify("static-token"))
	assert.False(t, auth.Verify("static-tokenX"))
	assert.False(t, auth.Verify(""))

	// 2. Password login issues a usable session
	_, _, err = auth.Login("wrong")
	assert.ErrorIs(t, err, sec.ErrInvalidCredential)

	session, _, err := auth.Login("open-sesame")
	require.NoError(t, err)
	assert.True(t, auth.Verify(session))

	// 3. A valid token for a different subject is not an admin session
	other, _, err := tokens.Issue("reader", time.Hour)
	require.NoError(t, err)
	assert.False(t, auth.Verify(other))
}

func TestAdminAuthenticator_StaticOnly(t *testing.T) {
	auth := sec.NewAdminAuthenticator("static-token", "", nil, "admin", time.Hour)

	assert.True(t, auth.Verify("static-token"))
	_, _, err := auth.Login("anything")
	assert.ErrorIs(t, err, sec.ErrInvalidCredential)
}
