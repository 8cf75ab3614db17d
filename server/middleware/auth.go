package middleware

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/hrygo/agentcache/internal/errors"
	"github.com/hrygo/agentcache/internal/observability"
)

const clientIDKey = "client_id"

// ClientID returns the authenticated client of c, or "" when unauthenticated.
func ClientID(c echo.Context) string {
	id, _ := c.Get(clientIDKey).(string)
	return id
}

// JWTAuth requires an HS256 bearer token signed with secret. The token
// subject becomes the client id used for rate limiting and logging.
func JWTAuth(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			tokenString, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(tokenString) == "" {
				return errors.Unauthorized("missing bearer token")
			}

			claims := jwt.RegisteredClaims{}
			token, err := jwt.ParseWithClaims(strings.TrimSpace(tokenString), &claims, func(*jwt.Token) (any, error) {
				return secret, nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !token.Valid {
				return errors.Wrap(err, errors.ErrCodeUnauthorized, "invalid token")
			}
			if claims.Subject == "" {
				return errors.Unauthorized("token has no subject")
			}

			c.Set(clientIDKey, claims.Subject)
			if rc, ok := observability.FromContext(c.Request().Context()); ok {
				rc.ClientID = claims.Subject
			}
			return next(c)
		}
	}
}
