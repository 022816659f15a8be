// Package auth validates bearer credentials for the two principal kinds the
// API serves. Users present HS256 JWTs minted by the external identity
// service; devices present opaque session tokens the provisioning service
// stores in Redis. This package only verifies - it never issues credentials.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
)

const (
	deviceSessionPrefix = "device_session:"
	deviceSessionTTL    = 24 * time.Hour
	refreshBelow        = 20 * time.Hour
)

type AuthModule struct {
	redis     *redis.Client
	JWTSecret string
}

func NewAuthModule(redisClient *redis.Client, JWTSecret string) *AuthModule {
	return &AuthModule{
		redis:     redisClient,
		JWTSecret: JWTSecret,
	}
}

func bearerToken(header string) string {
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return after
	}
	return header
}

// ValidateUserToken verifies a user JWT and returns the user ID
func (a *AuthModule) ValidateUserToken(ctx context.Context, header string) (string, error) {
	token := bearerToken(header)
	parsedToken, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(a.JWTSecret), nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := parsedToken.Claims.(jwt.MapClaims)
	if !ok || !parsedToken.Valid {
		return "", errors.New("invalid token")
	}
	if userID, ok := claims["user_id"].(string); ok && userID != "" {
		return userID, nil
	}
	if sub, ok := claims["sub"].(string); ok && sub != "" {
		return sub, nil
	}
	return "", errors.New("token carries no user identity")
}

// ValidateDeviceToken resolves a device session token to a device ID. The
// session TTL slides forward, but only once it has burned down far enough to
// avoid rewriting Redis on every poll.
func (a *AuthModule) ValidateDeviceToken(ctx context.Context, header string) (string, error) {
	token := bearerToken(header)
	if token == "" {
		return "", errors.New("missing token")
	}

	key := deviceSessionPrefix + token
	deviceID, err := a.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", errors.New("invalid token")
	} else if err != nil {
		return "", err
	}

	ttl, err := a.redis.TTL(ctx, key).Result()
	if err != nil && err != redis.Nil {
		return "", err
	}
	if ttl < refreshBelow {
		if err := a.redis.Expire(ctx, key, deviceSessionTTL).Err(); err != nil {
			return "", err
		}
	}
	return deviceID, nil
}
