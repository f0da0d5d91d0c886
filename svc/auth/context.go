package auth

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/smartfolio/smartfolio/handler"
	"github.com/smartfolio/smartfolio/pkg/logger"
)

type userContextKey struct{}

// SetUserToContext stores the authenticated user for the rest of the chain.
func SetUserToContext(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// GetUserFromContext returns nil when no user was stored.
func GetUserFromContext(ctx context.Context) *User {
	user, _ := ctx.Value(userContextKey{}).(*User)
	return user
}

// RequireUser returns the authenticated user or handler.ErrUnauthorized.
func RequireUser(ctx context.Context) (*User, error) {
	user := GetUserFromContext(ctx)
	if user == nil || user.ID == uuid.Nil {
		return nil, handler.ErrUnauthorized
	}
	return user, nil
}

// LogExtractor adds the user id to log records.
func LogExtractor() logger.ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		user := GetUserFromContext(ctx)
		if user == nil {
			return slog.Attr{}, false
		}
		return logger.UserID(user.ID), true
	}
}
