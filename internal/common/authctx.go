package common

import (
	"context"
	"fmt"
	"strings"
)

// Role is the closed set of principal roles known to the API.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole maps a raw claim value onto a known role. Anything outside the
// closed set is rejected rather than defaulting to a privilege level.
func ParseRole(value string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(value))) {
	case RoleUser:
		return RoleUser, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("unknown role %q", value)
	}
}

// Valid reports whether the role belongs to the closed set.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Session carries the authenticated principal through a request. It is
// attached to the context by the auth middleware after token validation and
// lives no longer than the request itself.
type Session struct {
	UserID string
	Role   Role
}

type sessionKey struct{}

// WithSession stores the session on the provided context.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFrom extracts the session from the context if present.
func SessionFrom(ctx context.Context) (Session, bool) {
	v := ctx.Value(sessionKey{})
	if v == nil {
		return Session{}, false
	}
	s, ok := v.(Session)
	return s, ok
}
