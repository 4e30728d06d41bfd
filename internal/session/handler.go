// File: internal/session/handler.go
package session

import (
	"errors"
	"net/http"
	"time"

	"prepwise_auth/internal/common"
	"prepwise_auth/internal/config"
	"prepwise_auth/internal/shared"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Handler handles the session endpoint's HTTP requests.
type Handler struct {
	service      Service
	logger       *zap.Logger
	cookieName   string
	cookieDomain string
	cookieSecure bool
}

// NewHandler creates a new session handler.
func NewHandler(service Service, cfg *config.Config, logger *zap.Logger) *Handler {
	return &Handler{
		service:      service,
		logger:       logger.Named("SessionHandler"),
		cookieName:   cfg.SessionCookieName,
		cookieDomain: cfg.SessionCookieDomain,
		cookieSecure: cfg.SessionCookieSecure,
	}
}

// RegisterRoutes sets up the routes for the session endpoint. requireSession
// guards the routes that need an existing session.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, requireSession gin.HandlerFunc) {
	authGroup := rg.Group("/auth")
	{
		authGroup.POST("/register", h.register)
		authGroup.POST("/sign-in", h.signIn)
		authGroup.POST("/oauth", h.oauth)
		authGroup.GET("/session", requireSession, h.currentSession)
		authGroup.POST("/sign-out", requireSession, h.signOut)
	}
}

// bind decodes the JSON body and answers a validation failure itself.
func (h *Handler) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			common.RespondSessionRejected(c, common.NewValidationAPIError(common.FormatValidationErrors(ve)))
			return false
		}
		common.RespondSessionRejected(c, common.ErrBadRequest.WithDetails("Invalid request body."))
		return false
	}
	return true
}

func (h *Handler) register(c *gin.Context) {
	var req shared.RegisterRequest
	if !h.bind(c, &req) {
		return
	}

	account, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		common.LoggerFromContext(c, h.logger).Info("Registration rejected", zap.String("uid", req.UID), zap.Error(err))
		common.RespondSessionRejected(c, err)
		return
	}
	common.RespondSession(c, http.StatusCreated, shared.Succeeded(MsgAccountCreated), ToAccountResponse(account))
}

func (h *Handler) signIn(c *gin.Context) {
	var req shared.AuthenticateRequest
	if !h.bind(c, &req) {
		return
	}

	issued, err := h.service.SignIn(c.Request.Context(), req)
	if err != nil {
		common.LoggerFromContext(c, h.logger).Info("Sign-in rejected", zap.Error(err))
		common.RespondSessionRejected(c, err)
		return
	}
	h.setSessionCookie(c, issued)
	common.RespondSessionOK(c, MsgSignedIn, ToAccountResponse(issued.Account))
}

func (h *Handler) oauth(c *gin.Context) {
	var req shared.OAuthAuthenticateRequest
	if !h.bind(c, &req) {
		return
	}

	issued, err := h.service.OAuth(c.Request.Context(), req)
	if err != nil {
		common.LoggerFromContext(c, h.logger).Info("OAuth sign-in rejected", zap.String("provider", req.Provider), zap.Error(err))
		common.RespondSessionRejected(c, err)
		return
	}
	h.setSessionCookie(c, issued)
	common.RespondSessionOK(c, MsgSignedIn, ToAccountResponse(issued.Account))
}

func (h *Handler) currentSession(c *gin.Context) {
	account, err := h.service.AccountByUID(c.Request.Context(), common.GetAccountUIDFromContext(c))
	if err != nil {
		common.RespondSessionRejected(c, err)
		return
	}
	common.RespondSessionOK(c, "", ToAccountResponse(account))
}

func (h *Handler) signOut(c *gin.Context) {
	if err := h.service.SignOut(c.Request.Context(), common.GetAccountUIDFromContext(c)); err != nil {
		common.RespondSessionRejected(c, err)
		return
	}
	h.clearSessionCookie(c)
	common.RespondSessionOK(c, MsgSignedOut, nil)
}

func (h *Handler) setSessionCookie(c *gin.Context, issued *Issued) {
	maxAge := int(time.Until(issued.ExpiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookieName, issued.Cookie, maxAge, "/", h.cookieDomain, h.cookieSecure, true)
}

func (h *Handler) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookieName, "", -1, "/", h.cookieDomain, h.cookieSecure, true)
}
