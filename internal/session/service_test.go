package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"prepwise_auth/internal/common"
	"prepwise_auth/internal/config"
	"prepwise_auth/internal/platform/database"
	"prepwise_auth/internal/shared"

	"firebase.google.com/go/v4/auth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MockVerifier is a testify mock of TokenVerifier.
type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error) {
	args := m.Called(ctx, idToken)
	tok, _ := args.Get(0).(*auth.Token)
	return tok, args.Error(1)
}

func (m *MockVerifier) SessionCookie(ctx context.Context, idToken string, expiresIn time.Duration) (string, error) {
	args := m.Called(ctx, idToken, expiresIn)
	return args.String(0), args.Error(1)
}

func (m *MockVerifier) VerifySessionCookie(ctx context.Context, cookie string) (*auth.Token, error) {
	args := m.Called(ctx, cookie)
	tok, _ := args.Get(0).(*auth.Token)
	return tok, args.Error(1)
}

func (m *MockVerifier) RevokeRefreshTokens(ctx context.Context, uid string) error {
	return m.Called(ctx, uid).Error(0)
}

func (m *MockVerifier) GetUser(ctx context.Context, uid string) (*auth.UserRecord, error) {
	args := m.Called(ctx, uid)
	user, _ := args.Get(0).(*auth.UserRecord)
	return user, args.Error(1)
}

// knowsUser makes the mock provider report uid as an account with email.
func (m *MockVerifier) knowsUser(uid, email string) {
	m.On("GetUser", mock.Anything, uid).
		Return(&auth.UserRecord{UserInfo: &auth.UserInfo{UID: uid, Email: email}}, nil)
}

// openTestDB opens a private in-memory SQLite database with the session schema.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	cfg := &config.Config{
		DBDriver:     "sqlite",
		DBSQLitePath: "file:" + uuid.NewString() + "?mode=memory&cache=shared",
		LogLevel:     "silent",
	}
	db, err := database.NewGORM(cfg, zap.NewNop(), Models()...)
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { database.CloseGORMDB(db, zap.NewNop()) })
	return db
}

type ServiceSuite struct {
	suite.Suite
	ctx      context.Context
	repo     Repository
	verifier *MockVerifier
	svc      *serviceImpl
	now      time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.repo = NewGORMRepository(openTestDB(s.T()))
	s.verifier = new(MockVerifier)
	cfg := &config.Config{SessionCookieExpiry: 5 * 24 * time.Hour}
	s.svc = NewService(s.repo, s.verifier, cfg, zap.NewNop()).(*serviceImpl)
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.svc.now = func() time.Time { return s.now }
}

func (s *ServiceSuite) TearDownTest() {
	s.verifier.AssertExpectations(s.T())
}

func (s *ServiceSuite) register(uid, name, email string) *Account {
	s.verifier.knowsUser(uid, email)
	account, err := s.svc.Register(s.ctx, shared.RegisterRequest{UID: uid, Name: name, Email: email, Password: "hunter22"})
	s.Require().NoError(err)
	return account
}

func (s *ServiceSuite) TestRegisterCreatesAccountWithHandle() {
	account := s.register("uid-1", "Jane Doe", "Jane@Example.com")

	s.Equal("jane-doe", account.Handle)
	s.Equal("jane@example.com", account.Email)
	s.Equal(ProviderPassword, account.AuthProvider)

	stored, err := s.repo.FindAccountByUID(s.ctx, "uid-1")
	s.Require().NoError(err)
	s.Equal("Jane Doe", stored.Name)
}

func (s *ServiceSuite) TestRegisterRejectsExistingAccount() {
	s.register("uid-1", "Jane Doe", "jane@example.com")

	_, err := s.svc.Register(s.ctx, shared.RegisterRequest{UID: "uid-1", Name: "Jane Doe", Email: "jane@example.com"})
	s.Require().Error(err)
	apiErr, ok := common.IsAPIError(err)
	s.Require().True(ok)
	s.Equal(MsgAccountExists, apiErr.Details)

	s.verifier.knowsUser("uid-2", "jane@example.com")
	_, err = s.svc.Register(s.ctx, shared.RegisterRequest{UID: "uid-2", Name: "Jane Again", Email: "JANE@example.com"})
	s.ErrorIs(err, common.ErrConflict)
}

func (s *ServiceSuite) TestRegisterCannotClaimAnotherUsersEmail() {
	s.verifier.knowsUser("attacker-uid", "attacker@example.com")
	s.verifier.On("GetUser", mock.Anything, "made-up-uid").
		Return(nil, fmt.Errorf("firebase user: %w", common.ErrNotFound))

	for _, uid := range []string{"attacker-uid", "made-up-uid"} {
		_, err := s.svc.Register(s.ctx, shared.RegisterRequest{UID: uid, Name: "Mallory", Email: "victim@example.com"})
		s.Require().ErrorIs(err, common.ErrUnauthorized, uid)
		apiErr, _ := common.IsAPIError(err)
		s.Equal(MsgUnverified, apiErr.Details)
	}

	_, err := s.repo.FindAccountByEmail(s.ctx, "victim@example.com")
	s.ErrorIs(err, common.ErrNotFound)

	// The real owner can still sign up and sign in.
	s.register("victim-uid", "Victim", "Victim@Example.com")
	s.verifier.On("VerifyIDToken", mock.Anything, "victim-token").Return(&auth.Token{UID: "victim-uid"}, nil)
	s.verifier.On("SessionCookie", mock.Anything, "victim-token", 5*24*time.Hour).Return("victim-cookie", nil)

	issued, err := s.svc.SignIn(s.ctx, shared.AuthenticateRequest{Email: "victim@example.com", IDToken: "victim-token"})
	s.Require().NoError(err)
	s.Equal("victim-uid", issued.Account.UID)
}

func (s *ServiceSuite) TestRegisterRejectsDisabledProviderUser() {
	s.verifier.On("GetUser", mock.Anything, "uid-1").Return(&auth.UserRecord{
		UserInfo: &auth.UserInfo{UID: "uid-1", Email: "jane@example.com"},
		Disabled: true,
	}, nil)

	_, err := s.svc.Register(s.ctx, shared.RegisterRequest{UID: "uid-1", Name: "Jane Doe", Email: "jane@example.com"})
	s.ErrorIs(err, common.ErrUnauthorized)
}

func (s *ServiceSuite) TestRegisterPropagatesProviderOutage() {
	outage := errors.New("identity provider unavailable")
	s.verifier.On("GetUser", mock.Anything, "uid-1").Return(nil, outage)

	_, err := s.svc.Register(s.ctx, shared.RegisterRequest{UID: "uid-1", Name: "Jane Doe", Email: "jane@example.com"})
	s.ErrorIs(err, outage)
	s.False(errors.Is(err, common.ErrUnauthorized))
}

func (s *ServiceSuite) TestRegisterDisambiguatesHandles() {
	s.register("uid-1", "Jane Doe", "jane1@example.com")
	second := s.register("AbCdEfGh", "Jane Doe", "jane2@example.com")

	s.Equal("jane-doe-abcdef", second.Handle)
}

func (s *ServiceSuite) TestSignInIssuesSession() {
	s.register("uid-1", "Jane Doe", "jane@example.com")
	s.verifier.On("VerifyIDToken", mock.Anything, "id-token").Return(&auth.Token{UID: "uid-1"}, nil)
	s.verifier.On("SessionCookie", mock.Anything, "id-token", 5*24*time.Hour).Return("cookie-value", nil)

	issued, err := s.svc.SignIn(s.ctx, shared.AuthenticateRequest{Email: "jane@example.com", IDToken: "id-token"})
	s.Require().NoError(err)

	s.Equal("cookie-value", issued.Cookie)
	s.Equal(s.now.Add(5*24*time.Hour), issued.ExpiresAt)
	s.Require().NotNil(issued.Account.LastLoginAt)
	s.True(s.now.Equal(*issued.Account.LastLoginAt))
}

func (s *ServiceSuite) TestSignInUnknownAccount() {
	_, err := s.svc.SignIn(s.ctx, shared.AuthenticateRequest{Email: "nobody@example.com", IDToken: "t"})

	apiErr, ok := common.IsAPIError(err)
	s.Require().True(ok)
	s.Equal(MsgAccountMissing, apiErr.Details)
}

func (s *ServiceSuite) TestSignInRejectsForeignToken() {
	s.register("uid-1", "Jane Doe", "jane@example.com")
	s.verifier.On("VerifyIDToken", mock.Anything, "t").Return(&auth.Token{UID: "someone-else"}, nil)

	_, err := s.svc.SignIn(s.ctx, shared.AuthenticateRequest{Email: "jane@example.com", IDToken: "t"})
	s.ErrorIs(err, common.ErrUnauthorized)
}

func (s *ServiceSuite) TestSignInRejectsInvalidToken() {
	s.register("uid-1", "Jane Doe", "jane@example.com")
	s.verifier.On("VerifyIDToken", mock.Anything, "t").Return(nil, errors.New("expired"))

	_, err := s.svc.SignIn(s.ctx, shared.AuthenticateRequest{Email: "jane@example.com", IDToken: "t"})
	s.ErrorIs(err, common.ErrUnauthorized)
}

func (s *ServiceSuite) TestOAuthCreatesAccountOnFirstLogin() {
	s.verifier.On("VerifyIDToken", mock.Anything, "gh-token").Return(&auth.Token{UID: "gh-1"}, nil)
	s.verifier.On("SessionCookie", mock.Anything, "gh-token", mock.Anything).Return("c", nil)

	issued, err := s.svc.OAuth(s.ctx, shared.OAuthAuthenticateRequest{
		UID: "gh-1", Name: "octo", Email: "octo@example.com", PhotoURL: "http://p/o.png", Provider: "github", IDToken: "gh-token",
	})
	s.Require().NoError(err)
	s.Equal(ProviderGitHub, issued.Account.AuthProvider)
	s.Equal("octo", issued.Account.Handle)
	s.Require().NotNil(issued.Account.PhotoURL)
	s.Equal("http://p/o.png", *issued.Account.PhotoURL)
}

func (s *ServiceSuite) TestOAuthReusesExistingAccount() {
	s.register("uid-1", "Jane Doe", "jane@example.com")
	s.verifier.On("VerifyIDToken", mock.Anything, "g").Return(&auth.Token{UID: "uid-1"}, nil)
	s.verifier.On("SessionCookie", mock.Anything, "g", mock.Anything).Return("c", nil)

	issued, err := s.svc.OAuth(s.ctx, shared.OAuthAuthenticateRequest{
		UID: "uid-1", Name: "Jane D", Email: "jane@example.com", Provider: "google", IDToken: "g",
	})
	s.Require().NoError(err)
	s.Equal("Jane Doe", issued.Account.Name)
	s.Equal(ProviderPassword, issued.Account.AuthProvider)
}

func (s *ServiceSuite) TestSignOutRevokesAndForgetsSessions() {
	s.register("uid-1", "Jane Doe", "jane@example.com")
	s.verifier.On("VerifyIDToken", mock.Anything, "t").Return(&auth.Token{UID: "uid-1"}, nil)
	s.verifier.On("SessionCookie", mock.Anything, "t", mock.Anything).Return("c", nil)
	s.verifier.On("RevokeRefreshTokens", mock.Anything, "uid-1").Return(nil)

	_, err := s.svc.SignIn(s.ctx, shared.AuthenticateRequest{Email: "jane@example.com", IDToken: "t"})
	s.Require().NoError(err)

	s.Require().NoError(s.svc.SignOut(s.ctx, "uid-1"))
	n, err := s.repo.DeleteRecordsForUID(s.ctx, "uid-1")
	s.Require().NoError(err)
	s.Zero(n)
}

func (s *ServiceSuite) TestSignOutRequiresSession() {
	s.ErrorIs(s.svc.SignOut(s.ctx, ""), common.ErrUnauthorized)
}

func (s *ServiceSuite) TestPruneExpired() {
	s.Require().NoError(s.repo.CreateRecord(s.ctx, &Record{UID: "a", ExpiresAt: s.now.Add(-time.Hour)}))
	s.Require().NoError(s.repo.CreateRecord(s.ctx, &Record{UID: "b", ExpiresAt: s.now.Add(time.Hour)}))

	removed, err := s.svc.PruneExpired(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(1), removed)

	remaining, err := s.repo.DeleteRecordsForUID(s.ctx, "b")
	s.Require().NoError(err)
	s.Equal(int64(1), remaining)
}

func (s *ServiceSuite) TestAccountByUID() {
	s.register("uid-1", "Jane Doe", "jane@example.com")

	account, err := s.svc.AccountByUID(s.ctx, "uid-1")
	s.Require().NoError(err)
	s.Equal("jane@example.com", account.Email)

	_, err = s.svc.AccountByUID(s.ctx, "")
	s.ErrorIs(err, common.ErrUnauthorized)
	_, err = s.svc.AccountByUID(s.ctx, "missing")
	s.ErrorIs(err, common.ErrNotFound)
}
