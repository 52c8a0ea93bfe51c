package auth

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Role is the authorisation role carried in the token.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// Identity describes the caller of a request. Anonymous callers carry only a
// session key; authenticated callers carry a user ID and role.
type Identity struct {
	UserID     uuid.UUID
	Role       Role
	SessionKey string
	Anonymous  bool
}

// IsAdmin reports whether the caller holds the admin role.
func (i *Identity) IsAdmin() bool {
	return !i.Anonymous && i.Role == RoleAdmin
}

// Claims is the JWT claim set issued by the external identity provider.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Verifier validates bearer tokens. Token issuance happens elsewhere; this
// service only verifies signatures and extracts the identity.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a token verifier for the shared HMAC secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses and validates a bearer token, returning the caller identity.
func (v *Verifier) Verify(tokenString string) (*Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("invalid subject claim: %w", err)
	}

	role := RoleCustomer
	if Role(claims.Role) == RoleAdmin {
		role = RoleAdmin
	}

	return &Identity{UserID: userID, Role: role}, nil
}

type contextKey struct{}

// WithIdentity returns a context carrying the caller identity.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext extracts the caller identity set by the auth middleware.
// A missing identity is treated as anonymous with no session.
func FromContext(ctx context.Context) *Identity {
	if id, ok := ctx.Value(contextKey{}).(*Identity); ok {
		return id
	}
	return &Identity{Anonymous: true}
}
