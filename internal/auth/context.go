// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"context"
)

type contextKey string

const (
	userIDKey   contextKey = "user_id"
	usernameKey contextKey = "username"
	rolKey      contextKey = "rol"
)

// SetUserID sets the user ID in the context
func SetUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// GetUserID retrieves the user ID from the context
func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey).(string)
	return userID, ok
}

// SetUsername sets the username in the context
func SetUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, usernameKey, username)
}

// GetUsername retrieves the username from the context
func GetUsername(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(usernameKey).(string)
	return username, ok
}

// SetRol sets the role name in the context
func SetRol(ctx context.Context, rol string) context.Context {
	return context.WithValue(ctx, rolKey, rol)
}

// GetRol retrieves the role name from the context
func GetRol(ctx context.Context) (string, bool) {
	rol, ok := ctx.Value(rolKey).(string)
	return rol, ok
}

// SetAuthContext sets the full authenticated identity in the context
func SetAuthContext(ctx context.Context, userID, username, rol string) context.Context {
	ctx = SetUserID(ctx, userID)
	ctx = SetUsername(ctx, username)
	if rol != "" {
		ctx = SetRol(ctx, rol)
	}
	return ctx
}
