// Package common defines shared constants and sentinel errors used across
// the service and worker layers. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal    = errors.New("internal error")
	ErrorPersistence = errors.New("persistence failure")

	// Auth errors.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrUserCreateFailed   = errors.New("user creation failed")
	ErrUserNotFound       = errors.New("user not found")

	// Token lifecycle errors.
	ErrInvalidToken        = errors.New("invalid token")
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")

	// External collaborator errors.
	ErrQueueUnavailable       = errors.New("queue unavailable")
	ErrObjectStoreUnavailable = errors.New("object store unavailable")
)
