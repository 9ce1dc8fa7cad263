package httpapi

import (
	"context"

	"github.com/google/uuid"

	"github.com/settlement-hub/settlement-hub/internal/domain/user"
)

type authContextKey string

const authUserKey authContextKey = "authUser"

// AuthUser represents the authenticated account in context. Username is the
// ledger account identifier.
type AuthUser struct {
	UserID   uuid.UUID
	Username string
	Role     user.Role
	TokenID  uuid.UUID
}

func (u AuthUser) IsAdmin() bool {
	return u.Role == user.RoleAdmin
}

func withAuthUser(ctx context.Context, u *AuthUser) context.Context {
	if u == nil {
		return ctx
	}
	return context.WithValue(ctx, authUserKey, u)
}

func authUserFromContext(ctx context.Context) *AuthUser {
	val := ctx.Value(authUserKey)
	if v, ok := val.(*AuthUser); ok {
		return v
	}
	return nil
}
