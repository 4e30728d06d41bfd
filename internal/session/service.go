// File: internal/session/service.go
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"prepwise_auth/internal/common"
	"prepwise_auth/internal/config"
	"prepwise_auth/internal/shared"

	"firebase.google.com/go/v4/auth"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
)

// Messages returned to the workflow client.
const (
	MsgAccountExists   = "User already exists. Please sign in instead."
	MsgAccountMissing  = "User does not exist. Create an account instead."
	MsgAccountCreated  = "Account created successfully. Please sign in."
	MsgSignedIn        = "Signed in successfully."
	MsgSignedOut       = "Signed out successfully."
	MsgInvalidToken    = "Invalid or expired credentials."
	MsgSessionRequired = "You need to sign in first."
	MsgSessionFailed   = "Failed to create a session. Please try again."
	MsgUnverified      = "Account could not be verified with the identity provider."
)

// TokenVerifier is the server-side view of the identity provider.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
	SessionCookie(ctx context.Context, idToken string, expiresIn time.Duration) (string, error)
	VerifySessionCookie(ctx context.Context, cookie string) (*auth.Token, error)
	RevokeRefreshTokens(ctx context.Context, uid string) error
	// GetUser returns common.ErrNotFound (possibly wrapped) for an unknown UID.
	GetUser(ctx context.Context, uid string) (*auth.UserRecord, error)
}

// Service implements the session endpoint's operations.
type Service interface {
	Register(ctx context.Context, req shared.RegisterRequest) (*Account, error)
	SignIn(ctx context.Context, req shared.AuthenticateRequest) (*Issued, error)
	OAuth(ctx context.Context, req shared.OAuthAuthenticateRequest) (*Issued, error)
	AccountByUID(ctx context.Context, uid string) (*Account, error)
	SignOut(ctx context.Context, uid string) error
	PruneExpired(ctx context.Context) (int64, error)
}

type serviceImpl struct {
	repo     Repository
	verifier TokenVerifier
	expiry   time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

var _ Service = (*serviceImpl)(nil)

// NewService creates a new session service.
func NewService(repo Repository, verifier TokenVerifier, cfg *config.Config, logger *zap.Logger) Service {
	return &serviceImpl{
		repo:     repo,
		verifier: verifier,
		expiry:   cfg.SessionCookieExpiry,
		logger:   logger.Named("SessionService"),
		now:      time.Now,
	}
}

// Register records an account the identity provider has just created.
// The UID must exist at the provider with the same email. The password in
// req is ignored.
func (s *serviceImpl) Register(ctx context.Context, req shared.RegisterRequest) (*Account, error) {
	if err := s.verifyProviderUser(ctx, req.UID, req.Email); err != nil {
		return nil, err
	}
	if _, err := s.repo.FindAccountByUID(ctx, req.UID); err == nil {
		return nil, common.ErrConflict.WithDetails(MsgAccountExists)
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}
	if _, err := s.repo.FindAccountByEmail(ctx, req.Email); err == nil {
		return nil, common.ErrConflict.WithDetails(MsgAccountExists)
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	handle, err := s.uniqueHandle(ctx, req.Name, req.UID)
	if err != nil {
		return nil, err
	}
	account := &Account{
		UID:          req.UID,
		Name:         strings.TrimSpace(req.Name),
		Handle:       handle,
		Email:        req.Email,
		AuthProvider: ProviderPassword,
	}
	if err := s.repo.CreateAccount(ctx, account); err != nil {
		s.logger.Error("Failed to create account", zap.String("uid", req.UID), zap.Error(err))
		return nil, err
	}
	s.logger.Info("Account registered", zap.String("uid", account.UID), zap.String("handle", account.Handle))
	return account, nil
}

func (s *serviceImpl) verifyProviderUser(ctx context.Context, uid, email string) error {
	user, err := s.verifier.GetUser(ctx, uid)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.logger.Warn("Registration for unknown provider user", zap.String("uid", uid))
			return common.ErrUnauthorized.WithDetails(MsgUnverified)
		}
		return err
	}
	if user == nil || user.UserInfo == nil || user.Disabled {
		s.logger.Warn("Registration for unusable provider user", zap.String("uid", uid))
		return common.ErrUnauthorized.WithDetails(MsgUnverified)
	}
	if normalizeEmail(user.Email) != normalizeEmail(email) {
		s.logger.Warn("Registration email does not match provider user", zap.String("uid", uid))
		return common.ErrUnauthorized.WithDetails(MsgUnverified)
	}
	return nil
}

// SignIn issues a session for an existing account.
func (s *serviceImpl) SignIn(ctx context.Context, req shared.AuthenticateRequest) (*Issued, error) {
	account, err := s.repo.FindAccountByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	token, err := s.verifier.VerifyIDToken(ctx, req.IDToken)
	if err != nil {
		return nil, common.ErrUnauthorized.WithDetails(MsgInvalidToken)
	}
	if token.UID != account.UID {
		s.logger.Warn("ID token does not belong to account", zap.String("tokenUID", token.UID), zap.String("accountUID", account.UID))
		return nil, common.ErrUnauthorized.WithDetails(MsgInvalidToken)
	}
	return s.issue(ctx, account, req.IDToken)
}

// OAuth issues a session for an OAuth login, creating the account the first
// time the provider account is seen.
func (s *serviceImpl) OAuth(ctx context.Context, req shared.OAuthAuthenticateRequest) (*Issued, error) {
	token, err := s.verifier.VerifyIDToken(ctx, req.IDToken)
	if err != nil {
		return nil, common.ErrUnauthorized.WithDetails(MsgInvalidToken)
	}
	if token.UID != req.UID {
		return nil, common.ErrUnauthorized.WithDetails(MsgInvalidToken)
	}

	account, err := s.repo.FindAccountByUID(ctx, req.UID)
	switch {
	case err == nil:
		if req.PhotoURL != "" && (account.PhotoURL == nil || *account.PhotoURL != req.PhotoURL) {
			photo := req.PhotoURL
			account.PhotoURL = &photo
		}
	case errors.Is(err, common.ErrNotFound):
		handle, herr := s.uniqueHandle(ctx, req.Name, req.UID)
		if herr != nil {
			return nil, herr
		}
		account = &Account{
			UID:          req.UID,
			Name:         strings.TrimSpace(req.Name),
			Handle:       handle,
			Email:        req.Email,
			AuthProvider: req.Provider,
		}
		if req.PhotoURL != "" {
			photo := req.PhotoURL
			account.PhotoURL = &photo
		}
		if err := s.repo.CreateAccount(ctx, account); err != nil {
			return nil, err
		}
		s.logger.Info("Account created from OAuth login", zap.String("uid", account.UID), zap.String("provider", req.Provider))
	default:
		return nil, err
	}
	return s.issue(ctx, account, req.IDToken)
}

// AccountByUID returns the account behind an authenticated session.
func (s *serviceImpl) AccountByUID(ctx context.Context, uid string) (*Account, error) {
	if uid == "" {
		return nil, common.ErrUnauthorized.WithDetails(MsgSessionRequired)
	}
	return s.repo.FindAccountByUID(ctx, uid)
}

// SignOut revokes the account's refresh tokens and forgets its sessions.
func (s *serviceImpl) SignOut(ctx context.Context, uid string) error {
	if uid == "" {
		return common.ErrUnauthorized.WithDetails(MsgSessionRequired)
	}
	if err := s.verifier.RevokeRefreshTokens(ctx, uid); err != nil {
		return err
	}
	n, err := s.repo.DeleteRecordsForUID(ctx, uid)
	if err != nil {
		return err
	}
	s.logger.Info("Signed out", zap.String("uid", uid), zap.Int64("sessions_removed", n))
	return nil
}

// PruneExpired removes session records past their expiry.
func (s *serviceImpl) PruneExpired(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpiredRecords(ctx, s.now())
}

func (s *serviceImpl) issue(ctx context.Context, account *Account, idToken string) (*Issued, error) {
	cookie, err := s.verifier.SessionCookie(ctx, idToken, s.expiry)
	if err != nil {
		return nil, common.ErrInternalServer.WithDetails(MsgSessionFailed)
	}

	now := s.now()
	record := &Record{UID: account.UID, ExpiresAt: now.Add(s.expiry)}
	if err := s.repo.CreateRecord(ctx, record); err != nil {
		return nil, fmt.Errorf("recording session: %w", err)
	}

	account.LastLoginAt = &now
	if err := s.repo.UpdateAccount(ctx, account); err != nil {
		return nil, err
	}

	s.logger.Debug("Session issued", zap.String("uid", account.UID), zap.Stringer("session", record.ID))
	return &Issued{Account: account, Cookie: cookie, ExpiresAt: record.ExpiresAt}, nil
}

// uniqueHandle derives a URL-safe handle from name, disambiguating with the
// UID when the plain slug is taken.
func (s *serviceImpl) uniqueHandle(ctx context.Context, name, uid string) (string, error) {
	base := slug.Make(name)
	if base == "" {
		base = "user"
	}
	suffix := strings.ToLower(uid)
	if len(suffix) > 6 {
		suffix = suffix[:6]
	}
	candidates := []string{base, base + "-" + suffix, base + "-" + uuid.NewString()[:8]}
	for _, candidate := range candidates {
		taken, err := s.repo.HandleExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", common.ErrConflict.WithDetails("Could not allocate a handle for this account.")
}
