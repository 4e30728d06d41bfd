// File: internal/firebase/service.go
package firebase

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"prepwise_auth/internal/common"
	"prepwise_auth/internal/config"
)

// adminAuth is the part of *auth.Client the session endpoint uses.
type adminAuth interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
	SessionCookie(ctx context.Context, idToken string, expiresIn time.Duration) (string, error)
	VerifySessionCookieAndCheckRevoked(ctx context.Context, cookie string) (*auth.Token, error)
	RevokeRefreshTokens(ctx context.Context, uid string) error
	GetUser(ctx context.Context, uid string) (*auth.UserRecord, error)
}

var _ adminAuth = (*auth.Client)(nil)

// FirebaseService wraps the Admin SDK auth client for the session endpoint:
// ID token verification, user lookup, session cookies and token revocation.
type FirebaseService struct {
	authClient adminAuth
	cookies    *cookieCache
	logger     *zap.Logger
}

// NewFirebaseService initializes the Firebase Admin SDK from the service account key.
func NewFirebaseService(cfg *config.Config, logger *zap.Logger) (*FirebaseService, error) {
	logger = logger.Named("FirebaseService")
	if cfg.FirebaseServiceAccountKeyPath == "" {
		logger.Error("Firebase service account key path is not configured.")
		return nil, fmt.Errorf("firebase service account key path is required")
	}

	cleanPath := filepath.Clean(cfg.FirebaseServiceAccountKeyPath)
	opt := option.WithCredentialsFile(cleanPath)

	var conf *firebase.Config
	if cfg.FirebaseProjectID != "" {
		conf = &firebase.Config{ProjectID: cfg.FirebaseProjectID}
	}
	app, err := firebase.NewApp(context.Background(), conf, opt)
	if err != nil {
		logger.Error("Failed to initialize Firebase Admin SDK app", zap.Error(err), zap.String("keyPath", cleanPath))
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	authClient, err := app.Auth(context.Background())
	if err != nil {
		logger.Error("Failed to get Firebase Auth client", zap.Error(err))
		return nil, fmt.Errorf("error getting Firebase Auth client: %w", err)
	}

	logger.Info("Firebase Admin SDK initialized successfully.")
	return &FirebaseService{
		authClient: authClient,
		cookies:    newCookieCache(verifiedCookieTTL, verifiedCookieCleanup),
		logger:     logger,
	}, nil
}

// VerifyIDToken verifies a Firebase ID token and returns its claims.
func (s *FirebaseService) VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error) {
	if idToken == "" {
		return nil, fmt.Errorf("ID token must not be empty")
	}

	token, err := s.authClient.VerifyIDToken(ctx, idToken)
	if err != nil {
		s.logger.Warn("Firebase ID token verification failed", zap.Error(err))
		return nil, fmt.Errorf("failed to verify Firebase ID token: %w", err)
	}

	s.logger.Debug("Firebase ID token verified successfully", zap.String("uid", token.UID))
	return token, nil
}

// SessionCookie mints a session cookie from a recently issued ID token.
func (s *FirebaseService) SessionCookie(ctx context.Context, idToken string, expiresIn time.Duration) (string, error) {
	cookie, err := s.authClient.SessionCookie(ctx, idToken, expiresIn)
	if err != nil {
		s.logger.Warn("Failed to create session cookie", zap.Error(err))
		return "", fmt.Errorf("failed to create session cookie: %w", err)
	}
	return cookie, nil
}

// VerifySessionCookie checks a session cookie, including revocation.
// Recently verified cookies are served from memory.
func (s *FirebaseService) VerifySessionCookie(ctx context.Context, cookie string) (*auth.Token, error) {
	if token, ok := s.cookies.get(cookie); ok {
		return token, nil
	}
	token, err := s.authClient.VerifySessionCookieAndCheckRevoked(ctx, cookie)
	if err != nil {
		s.logger.Debug("Session cookie verification failed", zap.Error(err))
		return nil, fmt.Errorf("failed to verify session cookie: %w", err)
	}
	s.cookies.put(cookie, token)
	return token, nil
}

// GetUser looks up a user record by UID. An unknown UID is reported as
// common.ErrNotFound.
func (s *FirebaseService) GetUser(ctx context.Context, uid string) (*auth.UserRecord, error) {
	if uid == "" {
		return nil, common.ErrNotFound
	}
	user, err := s.authClient.GetUser(ctx, uid)
	if err != nil {
		if auth.IsUserNotFound(err) {
			return nil, fmt.Errorf("firebase user %q: %w", uid, common.ErrNotFound)
		}
		s.logger.Error("Failed to look up Firebase user", zap.Error(err), zap.String("uid", uid))
		return nil, fmt.Errorf("failed to get Firebase user: %w", err)
	}
	return user, nil
}

// RevokeRefreshTokens revokes all refresh tokens for a given user and
// forgets any of their cookies verified so far. Eviction follows revocation
// so a cookie verified in between is not left cached.
func (s *FirebaseService) RevokeRefreshTokens(ctx context.Context, uid string) error {
	err := s.authClient.RevokeRefreshTokens(ctx, uid)
	s.cookies.evictUID(uid)
	if err != nil {
		s.logger.Error("Failed to revoke refresh tokens", zap.Error(err), zap.String("uid", uid))
		return fmt.Errorf("failed to revoke refresh tokens: %w", err)
	}
	s.logger.Info("Successfully revoked refresh tokens for user", zap.String("uid", uid))
	return nil
}
