// File: internal/middleware/auth.go
package middleware

import (
	"context"

	"prepwise_auth/internal/common"

	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SessionCookieVerifier checks a session cookie issued by the session endpoint.
type SessionCookieVerifier interface {
	VerifySessionCookie(ctx context.Context, cookie string) (*auth.Token, error)
}

// SessionAuth creates a Gin middleware that requires a valid session cookie
// and stores the account UID in the context.
func SessionAuth(verifier SessionCookieVerifier, cookieName string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		cookie, err := c.Cookie(cookieName)
		if err != nil || cookie == "" {
			logger.Debug("Session cookie missing")
			common.RespondSessionRejected(c, common.ErrUnauthorized.WithDetails("You need to sign in first."))
			return
		}

		token, err := verifier.VerifySessionCookie(c.Request.Context(), cookie)
		if err != nil {
			logger.Debug("Session cookie rejected", zap.Error(err))
			common.RespondSessionRejected(c, common.ErrUnauthorized.WithDetails("Your session has expired. Please sign in again."))
			return
		}

		c.Set(common.AccountUIDKey, token.UID)
		logger.Debug("Session authenticated", zap.String("uid", token.UID))
		c.Next()
	}
}
