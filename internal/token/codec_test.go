package token

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/admission-core/internal/config"
	"github.com/spec-kit/admission-core/internal/domain"
)

func testCodec() *Codec {
	return NewCodec(config.AuthConfig{
		JWTSecret:              "test-secret",
		Issuer:                 "admission-core",
		Audience:               "platform-api",
		AccessTokenTTLMinutes:  15,
		RefreshTokenTTLMinutes: 60,
	})
}

func TestVerifyPaths_AcceptSameToken(t *testing.T) {
	codec := testCodec()

	signed, _, err := codec.Issue(domain.TokenKindAccess, 42, "amir@example.com", []string{"admin", "teacher"}, "sess-1")
	require.NoError(t, err)

	full, err := codec.VerifyFull(signed)
	require.NoError(t, err)

	restricted := codec.VerifyRestricted(signed)
	require.NotNil(t, restricted)

	assert.Equal(t, full.UserID, restricted.UserID)
	assert.Equal(t, full.Email, restricted.Email)
	assert.Equal(t, full.Roles, restricted.Roles)
	assert.Equal(t, full.Kind, restricted.Kind)
	assert.Equal(t, full.SessionID, restricted.SessionID)
	assert.Equal(t, int64(42), full.UserID)
	assert.Equal(t, domain.TokenKindAccess, full.Kind)
}

func TestVerifyPaths_RejectExpired(t *testing.T) {
	codec := testCodec()

	signed, _, err := codec.Issue(domain.TokenKindAccess, 7, "a@b.com", nil, "")
	require.NoError(t, err)

	codec.now = func() time.Time { return time.Now().Add(16 * time.Minute) }

	_, err = codec.VerifyFull(signed)
	require.ErrorIs(t, err, ErrInvalidToken)
	assert.Nil(t, codec.VerifyRestricted(signed))
}

func TestVerifyPaths_RejectWrongSecret(t *testing.T) {
	issuer := testCodec()
	verifier := NewCodec(config.AuthConfig{
		JWTSecret:              "other-secret",
		Issuer:                 "admission-core",
		Audience:               "platform-api",
		AccessTokenTTLMinutes:  15,
		RefreshTokenTTLMinutes: 60,
	})

	signed, _, err := issuer.Issue(domain.TokenKindAccess, 1, "a@b.com", nil, "")
	require.NoError(t, err)

	_, err = verifier.VerifyFull(signed)
	require.ErrorIs(t, err, ErrInvalidToken)
	assert.Nil(t, verifier.VerifyRestricted(signed))
}

func TestVerifyPaths_RejectWrongIssuerAndAudience(t *testing.T) {
	codec := testCodec()
	other := NewCodec(config.AuthConfig{
		JWTSecret:              "test-secret",
		Issuer:                 "someone-else",
		Audience:               "other-api",
		AccessTokenTTLMinutes:  15,
		RefreshTokenTTLMinutes: 60,
	})

	signed, _, err := other.Issue(domain.TokenKindAccess, 1, "a@b.com", nil, "")
	require.NoError(t, err)

	_, err = codec.VerifyFull(signed)
	require.ErrorIs(t, err, ErrInvalidToken)
	assert.Nil(t, codec.VerifyRestricted(signed))
}

func TestVerifyPaths_RejectTampered(t *testing.T) {
	codec := testCodec()

	signed, _, err := codec.Issue(domain.TokenKindAccess, 5, "a@b.com", nil, "")
	require.NoError(t, err)

	parts := strings.Split(signed, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	_, err = codec.VerifyFull(tampered)
	require.ErrorIs(t, err, ErrInvalidToken)
	assert.Nil(t, codec.VerifyRestricted(tampered))

	for _, garbage := range []string{"", "not-a-token", "a.b", "a.b.c.d"} {
		_, err = codec.VerifyFull(garbage)
		assert.Error(t, err, garbage)
		assert.Nil(t, codec.VerifyRestricted(garbage), garbage)
	}
}

func TestRequireKind(t *testing.T) {
	codec := testCodec()

	refresh, _, err := codec.Issue(domain.TokenKindRefresh, 9, "a@b.com", nil, "sess")
	require.NoError(t, err)

	payload, err := codec.VerifyFull(refresh)
	require.NoError(t, err)

	require.NoError(t, RequireKind(payload, domain.TokenKindRefresh))
	require.ErrorIs(t, RequireKind(payload, domain.TokenKindAccess), ErrWrongKind)
	require.ErrorIs(t, RequireKind(nil, domain.TokenKindAccess), ErrWrongKind)
}

func TestExtractFromHeader(t *testing.T) {
	valid := "abc.def.ghi"

	cases := []struct {
		name   string
		header string
		want   string
		ok     bool
	}{
		{"bearer", "Bearer " + valid, valid, true},
		{"lowercase scheme", "bearer " + valid, valid, true},
		{"empty", "", "", false},
		{"wrong scheme", "Basic " + valid, "", false},
		{"scheme only", "Bearer", "", false},
		{"scheme with empty token", "Bearer ", "", false},
		{"extra segment", "Bearer " + valid + " extra", "", false},
		{"token only", valid, "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ExtractFromHeader(tc.header)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestExpiryOf_DoesNotVerify(t *testing.T) {
	codec := testCodec()

	signed, expiresAt, err := codec.Issue(domain.TokenKindAccess, 3, "a@b.com", nil, "")
	require.NoError(t, err)

	got, ok := codec.ExpiryOf(signed)
	require.True(t, ok)
	assert.WithinDuration(t, expiresAt, got, time.Second)
	assert.False(t, codec.IsExpired(signed))

	// Tampered signature still decodes; expiry inspection is diagnostic only.
	tampered := signed[:len(signed)-2] + "xx"
	_, ok = codec.ExpiryOf(tampered)
	assert.True(t, ok)

	_, ok = codec.ExpiryOf("garbage")
	assert.False(t, ok)
	assert.True(t, codec.IsExpired("garbage"))
}
