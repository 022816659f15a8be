package api

import (
	"context"
	"errors"

	"plantcare/internal/web/middleware"

	"github.com/gin-gonic/gin"
)

type stubAuth struct {
	userID   string
	deviceID string
}

func (s *stubAuth) ValidateUserToken(ctx context.Context, header string) (string, error) {
	if s.userID == "" {
		return "", errors.New("no user session")
	}
	return s.userID, nil
}

func (s *stubAuth) ValidateDeviceToken(ctx context.Context, header string) (string, error) {
	if s.deviceID == "" {
		return "", errors.New("no device session")
	}
	return s.deviceID, nil
}

func testRouter(auth *stubAuth) (*gin.Engine, *middleware.MiddlewareManager) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	return r, middleware.NewMiddlewareManager(auth)
}
