package domain

// TokenKind differentiates access and refresh tokens.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// Valid reports whether the kind is one of the two issued variants.
func (k TokenKind) Valid() bool {
	return k == TokenKindAccess || k == TokenKindRefresh
}

// Identity is the verified caller attached to a request after token
// verification. Downstream handlers read it instead of re-parsing the token.
type Identity struct {
	UserID    int64
	Email     string
	Roles     []string
	SessionID string
}

// HasRole reports whether the identity carries the named role.
func (i Identity) HasRole(name string) bool {
	for _, r := range i.Roles {
		if r == name {
			return true
		}
	}
	return false
}
