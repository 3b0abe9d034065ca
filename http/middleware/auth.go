package middlewares

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/tnqbao/gau-media-gateway/config"
	"github.com/tnqbao/gau-media-gateway/utils"
)

// TokenChecker is implemented by infra.AuthorizationService.
type TokenChecker interface {
	CheckAccessToken(ctx context.Context, token string) error
}

var (
	errMissingToken  = errors.New("authorization token is required")
	errRejectedToken = errors.New("invalid or expired token")
	errInvalidToken  = errors.New("invalid token")
	errInvalidClaims = errors.New("invalid claims")
)

func authenticate(c *gin.Context, authService TokenChecker, config *config.EnvConfig) error {
	tokenStr := utils.ExtractToken(c)
	if tokenStr == "" {
		tokenStr = c.Query("access_token")
	}
	if tokenStr == "" {
		return errMissingToken
	}

	if err := authService.CheckAccessToken(c.Request.Context(), tokenStr); err != nil {
		return errRejectedToken
	}

	parsedToken, err := utils.ParseToken(tokenStr, config)
	if err != nil || !parsedToken.Valid {
		return errInvalidToken
	}

	claims, ok := parsedToken.Claims.(jwt.MapClaims)
	if !ok {
		return errInvalidClaims
	}
	if err := utils.InjectClaimsToContext(c, claims); err != nil {
		return errInvalidClaims
	}
	return nil
}

func AuthMiddleware(authService TokenChecker, config *config.EnvConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := authenticate(c, authService, config); err != nil {
			utils.JSON401(c, err.Error())
			return
		}
		c.Next()
	}
}

// OptionalAuthMiddleware attaches an identity when a valid token is present
// and lets anonymous requests through untouched.
func OptionalAuthMiddleware(authService TokenChecker, config *config.EnvConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		_ = authenticate(c, authService, config)
		c.Next()
	}
}
