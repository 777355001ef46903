package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/postr/internal/auth"
	"github.com/d60-Lab/postr/pkg/logger"
	"github.com/d60-Lab/postr/pkg/response"
)

const claimsKey = "auth.claims"

var (
	ErrMissingAuthHeader = errors.New("missing Authorization header")
	ErrMalformedHeader   = errors.New("authorization header must be 'Bearer <token>'")
)

// TokenVerifier 由 *auth.TokenManager 实现
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// Auth 校验 Bearer token，通过后把 claims 放入上下文；失败一律 401
func Auth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := extractToken(c)
		if err != nil {
			logger.Debug("auth: reject request", zap.String("path", c.Request.URL.Path), zap.Error(err))
			response.Unauthorized(c, "invalid or missing token")
			return
		}

		claims, err := verifier.Verify(token)
		if err != nil {
			logger.Debug("auth: invalid token", zap.String("path", c.Request.URL.Path), zap.Error(err))
			response.Unauthorized(c, "invalid or missing token")
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// ClaimsFrom 取出 Auth 放入的 claims；未经过 Auth 时 ok 为 false
func ClaimsFrom(c *gin.Context) (*auth.Claims, bool) {
	v, exists := c.Get(claimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*auth.Claims)
	return claims, ok
}

func extractToken(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", ErrMissingAuthHeader
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", ErrMalformedHeader
	}
	return strings.TrimSpace(parts[1]), nil
}
