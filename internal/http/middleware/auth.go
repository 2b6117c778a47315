// Bearer-token authentication middleware.
//
// This file provides RequireAuth, which validates the Authorization header
// on protected routes and stores the authenticated user id in the Gin
// context under "userID" for downstream handlers.
//
// Design notes:
//   - Tokens are HMAC-signed JWTs; validation is stateless.
//   - The response for every failure mode is a uniform 401 so callers
//     learn nothing about token structure.
//   - The X-User-ID header is honored only when AllowHeaderFallback is set
//     (local development and tests run without issuing tokens).
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nkoutro/go-connect-backend/internal/auth"
)

// AuthOptions configures RequireAuth.
//
// Secret is the HMAC key used to verify tokens. AllowHeaderFallback permits
// the X-User-ID header to stand in for a token; it must stay disabled in
// production deployments.
type AuthOptions struct {
	Secret              []byte
	AllowHeaderFallback bool
}

// RequireAuth returns a Gin middleware that authenticates requests via a
// "Bearer <token>" Authorization header. On success it sets "userID" in the
// context and calls the next handler; on failure it aborts with 401 and a
// JSON error envelope.
func RequireAuth(opts AuthOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		if opts.AllowHeaderFallback {
			if uid := strings.TrimSpace(c.GetHeader("X-User-ID")); uid != "" {
				c.Set("userID", uid)
				c.Next()
				return
			}
		}

		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(token) == "" {
			unauthorized(c)
			return
		}

		uid, err := auth.VerifyJWT(opts.Secret, strings.TrimSpace(token))
		if err != nil {
			unauthorized(c)
			return
		}

		c.Set("userID", uid)
		c.Next()
	}
}

// unauthorized aborts the request with a uniform 401 envelope. The shape
// mirrors handlers.ErrorResponse without importing the handlers package.
func unauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"request_id": c.Writer.Header().Get("X-Request-ID"),
		"code":       "unauthorized",
		"message":    "missing or invalid bearer token",
	})
}
