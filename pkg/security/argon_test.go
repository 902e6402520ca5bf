package security

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateAndVerifyPassword(t *testing.T) {
	a := New()

	hash, err := a.GenerateFromPassword("correct horse battery staple")
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	require.Contains(t, hash, "$argon2id$")

	ok, err := a.VerifyPasswd("correct horse battery staple", hash)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = a.VerifyPasswd("wrong password", hash)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHashesUseUniqueSalts(t *testing.T) {
	a := New()

	h1, err := a.GenerateFromPassword("same password")
	require.NoError(t, err)

	h2, err := a.GenerateFromPassword("same password")
	require.NoError(t, err)

	require.NotEqual(t, h1, h2)
}

// Accounts created through Google sign-in carry no password hash at all.
// Verifying against one must fail cleanly instead of erroring.
func TestVerifyEmptyHash(t *testing.T) {
	a := New()

	ok, err := a.VerifyPasswd("anything", "")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestVerifyMalformedHash(t *testing.T) {
	a := New()

	_, err := a.VerifyPasswd("anything", "not-a-phc-string")
	require.Error(t, err)
}
