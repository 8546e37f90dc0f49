package auth

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret   = "test-signing-secret"
	testIssuer   = "identity-service"
	testAudience = "identity-service-clients"
)

func testManager(ttl time.Duration) *TokenManager {
	return NewTokenManager(testSecret, testIssuer, testAudience, ttl)
}

func TestTokenRoundTrip(t *testing.T) {
	tm := testManager(300 * time.Second)

	token, expiresAt, err := tm.Sign("alice")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(300*time.Second), expiresAt, 2*time.Second)

	claims, err := tm.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, testIssuer, claims.Issuer)
	assert.Contains(t, []string(claims.Audience), testAudience)
}

func TestTokenIsCompactThreePartString(t *testing.T) {
	tm := testManager(0)

	token, _, err := tm.Sign("alice")
	require.NoError(t, err)
	assert.Len(t, strings.Split(token, "."), 3)
}

func TestTokenExpiryBoundary(t *testing.T) {
	tm := testManager(300 * time.Second)
	base := time.Now().Truncate(time.Second)
	tm.now = func() time.Time { return base }

	token, expiresAt, err := tm.Sign("alice")
	require.NoError(t, err)
	assert.Equal(t, base.Add(300*time.Second), expiresAt)

	// one second before expiry the token is still good
	tm.now = func() time.Time { return expiresAt.Add(-time.Second) }
	_, err = tm.Validate(token)
	assert.NoError(t, err)

	// exactly at expiry it is already expired
	tm.now = func() time.Time { return expiresAt }
	_, err = tm.Validate(token)
	assert.ErrorIs(t, err, ErrTokenExpired)

	tm.now = func() time.Time { return expiresAt.Add(time.Hour) }
	_, err = tm.Validate(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenTamperedPayload(t *testing.T) {
	tm := testManager(300 * time.Second)

	token, _, err := tm.Sign("alice")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	forged := strings.Replace(string(payload), "alice", "admin", 1)
	parts[1] = base64.RawURLEncoding.EncodeToString([]byte(forged))

	_, err = tm.Validate(strings.Join(parts, "."))
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestTokenTamperedSignature(t *testing.T) {
	tm := testManager(300 * time.Second)

	token, _, err := tm.Sign("alice")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)

	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	parts[2] = string(sig)

	_, err = tm.Validate(strings.Join(parts, "."))
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestTokenWrongSecret(t *testing.T) {
	tm := testManager(300 * time.Second)
	other := NewTokenManager("another-secret", testIssuer, testAudience, 300*time.Second)

	token, _, err := other.Sign("alice")
	require.NoError(t, err)

	_, err = tm.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestTokenMalformed(t *testing.T) {
	tm := testManager(300 * time.Second)

	for _, token := range []string{"", "garbage", "a.b.c", "a.b"} {
		_, err := tm.Validate(token)
		assert.ErrorIs(t, err, ErrInvalidSignature, "token %q", token)
	}
}

func TestTokenIssuerMismatch(t *testing.T) {
	signer := NewTokenManager(testSecret, "someone-else", testAudience, 300*time.Second)

	token, _, err := signer.Sign("alice")
	require.NoError(t, err)

	_, err = testManager(300 * time.Second).Validate(token)
	assert.ErrorIs(t, err, ErrIssuerMismatch)
}

func TestTokenAudienceMismatch(t *testing.T) {
	signer := NewTokenManager(testSecret, testIssuer, "other-clients", 300*time.Second)

	token, _, err := signer.Sign("alice")
	require.NoError(t, err)

	_, err = testManager(300 * time.Second).Validate(token)
	assert.ErrorIs(t, err, ErrAudienceMismatch)
}

func TestTokenCheckOrder(t *testing.T) {
	// expired token with a wrong issuer and wrong audience: expiry is the
	// first failing check after signature, so expiry must be reported
	signer := NewTokenManager(testSecret, "someone-else", "other-clients", time.Second)
	base := time.Now().Truncate(time.Second)
	signer.now = func() time.Time { return base }

	token, _, err := signer.Sign("alice")
	require.NoError(t, err)

	tm := testManager(300 * time.Second)
	tm.now = func() time.Time { return base.Add(time.Hour) }
	_, err = tm.Validate(token)
	assert.ErrorIs(t, err, ErrTokenExpired)

	// tampering outranks every other failure
	_, err = tm.Validate(token + "x")
	assert.ErrorIs(t, err, ErrInvalidSignature)
}
