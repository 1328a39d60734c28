package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"github.com/spec-kit/admission-core/internal/domain"
)

// restrictedHeader is the decoded JOSE header of a compact token.
type restrictedHeader struct {
	Alg string `json:"alg"`
	Typ string `json:"typ"`
}

// restrictedClaims mirrors Claims for the hand-rolled decode path. Audience
// may be serialized as a string or an array, so it gets its own type.
type restrictedClaims struct {
	UserID    int64            `json:"uid"`
	Email     string           `json:"email"`
	Roles     []string         `json:"roles"`
	Kind      domain.TokenKind `json:"kind"`
	SessionID string           `json:"sid"`
	Issuer    string           `json:"iss"`
	Audience  audienceClaim    `json:"aud"`
	Exp       int64            `json:"exp"`
}

type audienceClaim []string

func (a *audienceClaim) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*a = audienceClaim{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*a = audienceClaim(many)
	return nil
}

func (a audienceClaim) contains(audience string) bool {
	for _, aud := range a {
		if aud == audience {
			return true
		}
	}
	return false
}

// VerifyRestricted validates a token using only HMAC-SHA256, base64 and JSON
// decoding, for runtimes that cannot carry the full JWT stack or afford
// error-based control flow. It returns nil on any failure and must agree with
// VerifyFull on every input: same signature, issuer, audience and expiry
// checks over the same secret material.
func (c *Codec) VerifyRestricted(tokenStr string) *Payload {
	parts := strings.Split(tokenStr, ".")
	if len(parts) != 3 {
		return nil
	}

	headerRaw, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil
	}
	var header restrictedHeader
	if err := json.Unmarshal(headerRaw, &header); err != nil || header.Alg != "HS256" {
		return nil
	}

	signature, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return nil
	}
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(parts[0] + "." + parts[1]))
	if !hmac.Equal(signature, mac.Sum(nil)) {
		return nil
	}

	claimsRaw, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil
	}
	var claims restrictedClaims
	if err := json.Unmarshal(claimsRaw, &claims); err != nil {
		return nil
	}

	if claims.Issuer != c.issuer || !claims.Audience.contains(c.audience) {
		return nil
	}
	if claims.Exp == 0 || !time.Unix(claims.Exp, 0).After(c.now()) {
		return nil
	}
	if !claims.Kind.Valid() {
		return nil
	}

	return &Payload{
		UserID:    claims.UserID,
		Email:     claims.Email,
		Roles:     claims.Roles,
		Kind:      claims.Kind,
		SessionID: claims.SessionID,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}
}

// decodeUnverified extracts claims without any signature check.
func decodeUnverified(tokenStr string) (*restrictedClaims, error) {
	parts := strings.Split(tokenStr, ".")
	if len(parts) != 3 {
		return nil, ErrInvalidToken
	}
	claimsRaw, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, ErrInvalidToken
	}
	var claims restrictedClaims
	if err := json.Unmarshal(claimsRaw, &claims); err != nil {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}
