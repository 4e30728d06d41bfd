// File: internal/common/response.go
package common

import (
	"net/http"

	"prepwise_auth/internal/shared"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RespondSession sends a session endpoint answer. Rejections are still
// delivered as a SessionResult so the caller can show the message.
func RespondSession(c *gin.Context, statusCode int, result shared.SessionResult, account *shared.AccountResponse) {
	c.JSON(statusCode, shared.SessionResponse{SessionResult: result, User: account})
}

// RespondSessionOK sends a successful session answer.
func RespondSessionOK(c *gin.Context, message string, account *shared.AccountResponse) {
	RespondSession(c, http.StatusOK, shared.Succeeded(message), account)
}

// RespondSessionRejected aborts with a failed SessionResult built from err.
// APIErrors keep their status and message; anything else becomes a 500.
func RespondSessionRejected(c *gin.Context, err error) {
	apiErr, ok := IsAPIError(err)
	if !ok {
		if l, exists := c.Get(LoggerKey); exists {
			if logger, ok := l.(*zap.Logger); ok {
				logger.Error("Unhandled session error", zap.Error(err))
			}
		}
		apiErr = ErrInternalServer
	}
	message := apiErr.Message
	if s, ok := apiErr.Details.(string); ok && s != "" {
		message = s
	}
	c.AbortWithStatusJSON(apiErr.StatusCode, shared.SessionResponse{SessionResult: shared.Rejected(message)})
}
