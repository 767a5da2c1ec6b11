package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/inkpress/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testUser = types.User{ID: "7c4d5f1e-0d6a-4c1b-9d55-3f3c2f1b2a10", Email: "alice@example.com"}

func newTestCodec(now time.Time) *TokenCodec {
	codec := NewTokenCodec("test-secret", time.Hour)
	codec.now = func() time.Time { return now }
	return codec
}

func TestIssueThenVerify(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	codec := newTestCodec(now)

	token, expires, err := codec.Issue(testUser)
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), expires)

	claims, err := codec.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, testUser.ID, claims.Subject)
	assert.Equal(t, testUser.Email, claims.Email)
	assert.NotEmpty(t, claims.ID)
}

func TestVerifyRejectsExpired(t *testing.T) {
	issuedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	codec := newTestCodec(issuedAt)

	token, _, err := codec.Issue(testUser)
	require.NoError(t, err)

	codec.now = func() time.Time { return issuedAt.Add(time.Hour + time.Minute) }
	_, err = codec.Verify(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerifyRejectsFlippedByte(t *testing.T) {
	codec := newTestCodec(time.Now())
	token, _, err := codec.Issue(testUser)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)

	// One position inside each segment; middle characters carry full
	// base64 bits so a change always alters the decoded bytes.
	positions := []int{
		len(parts[0]) / 2,
		len(parts[0]) + 1 + len(parts[1])/2,
		len(parts[0]) + 1 + len(parts[1]) + 1 + len(parts[2])/2,
	}
	for _, pos := range positions {
		tampered := []byte(token)
		if tampered[pos] == 'A' {
			tampered[pos] = 'B'
		} else {
			tampered[pos] = 'A'
		}
		_, err := codec.Verify(string(tampered))
		assert.ErrorIs(t, err, ErrTokenInvalid, "position %d", pos)
	}
}

func TestVerifyRejectsOtherSecret(t *testing.T) {
	token, _, err := NewTokenCodec("secret-a", time.Hour).Issue(testUser)
	require.NoError(t, err)

	_, err = NewTokenCodec("secret-b", time.Hour).Verify(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerifyRejectsNoneAlgorithm(t *testing.T) {
	claims := Claims{
		Email: testUser.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   testUser.ID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokenCodec("test-secret", time.Hour).Verify(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerifyRejectsMalformed(t *testing.T) {
	codec := NewTokenCodec("test-secret", time.Hour)
	for _, input := range []string{"", "   ", "not-a-token", "a.b.c", "...", "eyJ.eyJ.sig"} {
		_, err := codec.Verify(input)
		assert.ErrorIs(t, err, ErrTokenInvalid, "input %q", input)
	}
}

func TestVerifyRejectsMissingSubject(t *testing.T) {
	codec := newTestCodec(time.Now())
	token, _, err := codec.Issue(types.User{Email: "nobody@example.com"})
	require.NoError(t, err)

	_, err = codec.Verify(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
