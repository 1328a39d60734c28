package token

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/admission-core/internal/config"
	"github.com/spec-kit/admission-core/internal/domain"
)

// ErrInvalidToken marks any verification failure: bad signature, wrong
// issuer/audience, expiry, malformed input. Callers map it to the structured
// rejection contract; raw jwt errors never cross this boundary.
var ErrInvalidToken = errors.New("invalid token")

// ErrWrongKind marks a kind mismatch, e.g. a refresh token presented where an
// access token is required.
var ErrWrongKind = errors.New("wrong token kind")

// Payload is the identity carried by a verified token. Both verification
// paths recover the same payload for the same token.
type Payload struct {
	UserID    int64
	Email     string
	Roles     []string
	Kind      domain.TokenKind
	SessionID string
	ExpiresAt time.Time
}

// Claims describes the JWT payload.
type Claims struct {
	UserID    int64            `json:"uid"`
	Email     string           `json:"email"`
	Roles     []string         `json:"roles"`
	Kind      domain.TokenKind `json:"kind"`
	SessionID string           `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

// Codec issues and verifies bearer tokens. It offers two verification entry
// points over the same secret material: VerifyFull uses the complete JWT
// stack, VerifyRestricted uses only primitive HMAC/base64/JSON operations for
// constrained runtimes. Both accept and reject the same token universe.
type Codec struct {
	secret     []byte
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewCodec builds a codec from auth configuration.
func NewCodec(cfg config.AuthConfig) *Codec {
	accessTTL := time.Duration(cfg.AccessTokenTTLMinutes) * time.Minute
	if accessTTL <= 0 {
		accessTTL = time.Hour
	}
	refreshTTL := time.Duration(cfg.RefreshTokenTTLMinutes) * time.Minute
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &Codec{
		secret:     []byte(cfg.JWTSecret),
		issuer:     cfg.Issuer,
		audience:   cfg.Audience,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// Issue encodes and signs a token of the given kind. Access tokens are
// short-lived, refresh tokens long-lived. No I/O happens here.
func (c *Codec) Issue(kind domain.TokenKind, userID int64, email string, roles []string, sessionID string) (string, time.Time, error) {
	if !kind.Valid() {
		return "", time.Time{}, fmt.Errorf("issue: unknown token kind %q", kind)
	}

	ttl := c.accessTTL
	if kind == domain.TokenKindRefresh {
		ttl = c.refreshTTL
	}

	issuedAt := c.now()
	expiresAt := issuedAt.Add(ttl)
	claims := &Claims{
		UserID:    userID,
		Email:     email,
		Roles:     roles,
		Kind:      kind,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    c.issuer,
			Audience:  jwt.ClaimStrings{c.audience},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// VerifyFull validates signature, issuer, audience and expiry using the full
// JWT stack. Every failure collapses into ErrInvalidToken.
func (c *Codec) VerifyFull(tokenStr string) (*Payload, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %v", t.Method.Alg())
		}
		return c.secret, nil
	},
		jwt.WithIssuer(c.issuer),
		jwt.WithAudience(c.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return c.now() }),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if !claims.Kind.Valid() {
		return nil, ErrInvalidToken
	}
	return payloadFromClaims(claims), nil
}

// RequireKind enforces the access/refresh separation on a verified payload.
func RequireKind(p *Payload, kind domain.TokenKind) error {
	if p == nil || p.Kind != kind {
		return fmt.Errorf("%w: want %s", ErrWrongKind, kind)
	}
	return nil
}

// ExtractFromHeader parses an `Authorization: Bearer <token>` value. Any
// other scheme, a missing token or extra segments yield ok=false.
func ExtractFromHeader(header string) (string, bool) {
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := parts[1]
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}

// IsExpired reports whether the token's exp claim is in the past. The
// signature is NOT checked; never use this to gate a security decision.
func (c *Codec) IsExpired(tokenStr string) bool {
	exp, ok := c.ExpiryOf(tokenStr)
	if !ok {
		return true
	}
	return !exp.After(c.now())
}

// ExpiryOf decodes the exp claim without verifying the signature. Diagnostic
// use only.
func (c *Codec) ExpiryOf(tokenStr string) (time.Time, bool) {
	claims, err := decodeUnverified(tokenStr)
	if err != nil || claims.Exp == 0 {
		return time.Time{}, false
	}
	return time.Unix(claims.Exp, 0), true
}

func payloadFromClaims(claims *Claims) *Payload {
	payload := &Payload{
		UserID:    claims.UserID,
		Email:     claims.Email,
		Roles:     claims.Roles,
		Kind:      claims.Kind,
		SessionID: claims.SessionID,
	}
	if claims.ExpiresAt != nil {
		payload.ExpiresAt = claims.ExpiresAt.Time
	}
	return payload
}
