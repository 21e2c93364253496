package authz

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
)

const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

// AuthUser is the caller identity asserted by the upstream gateway.
type AuthUser struct {
	ID   int64
	Role string
}

type userContextKey struct{}

func ContextWithUser(ctx context.Context, user *AuthUser) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext retrieves the AuthUser stored in ctx.
// It returns nil if ctx is nil, if no user is stored, or if the stored value has a different type.
func UserFromContext(ctx context.Context) *AuthUser {
	if ctx == nil {
		return nil
	}

	user, ok := ctx.Value(userContextKey{}).(*AuthUser)
	if !ok {
		return nil
	}

	return user
}

// NormalizeRole maps a header value onto a known role. Unknown roles are
// treated as members.
func NormalizeRole(role string) string {
	if strings.EqualFold(strings.TrimSpace(role), RoleAdmin) {
		return RoleAdmin
	}
	return RoleMember
}

// IsAdmin reports whether user is non-nil and holds the admin role.
func IsAdmin(user *AuthUser) bool {
	return user != nil && user.Role == RoleAdmin
}

func RequireUser(ctx context.Context) (*AuthUser, error) {
	user := UserFromContext(ctx)
	if user == nil {
		return nil, ErrUnauthenticated
	}
	return user, nil
}

func RequireAdmin(ctx context.Context) (*AuthUser, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	if !IsAdmin(user) {
		return nil, ErrForbidden
	}
	return user, nil
}

// RequireSelfOrAdmin allows admins and the user identified by userID.
func RequireSelfOrAdmin(ctx context.Context, userID int64) (*AuthUser, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	if user.ID != userID && !IsAdmin(user) {
		return nil, ErrForbidden
	}
	return user, nil
}
