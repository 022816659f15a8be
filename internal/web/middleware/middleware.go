package middleware

import "context"

// Authenticator validates bearer headers for the two principal kinds
type Authenticator interface {
	ValidateUserToken(ctx context.Context, header string) (string, error)
	ValidateDeviceToken(ctx context.Context, header string) (string, error)
}

type MiddlewareManager struct {
	auth Authenticator
}

func NewMiddlewareManager(auth Authenticator) *MiddlewareManager {
	return &MiddlewareManager{auth: auth}
}
