// File: internal/workflow/errors.go
package workflow

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ProviderCode is an identity-provider error code such as "auth/wrong-password".
type ProviderCode string

const (
	CodeUserNotFound       ProviderCode = "auth/user-not-found"
	CodeWrongPassword      ProviderCode = "auth/wrong-password"
	CodeEmailAlreadyInUse  ProviderCode = "auth/email-already-in-use"
	CodeInvalidCredential  ProviderCode = "auth/invalid-credential"
	CodeTooManyRequests    ProviderCode = "auth/too-many-requests"
	CodePopupClosedByUser  ProviderCode = "auth/popup-closed-by-user"
	CodeInvalidEmail       ProviderCode = "auth/invalid-email"
	CodeWeakPassword       ProviderCode = "auth/weak-password"
	CodeUserDisabled       ProviderCode = "auth/user-disabled"
	CodeNetworkRequestFail ProviderCode = "auth/network-request-failed"
	CodeInternalError      ProviderCode = "auth/internal-error"

	CodeAccountExistsWithDifferentCredential ProviderCode = "auth/account-exists-with-different-credential"
)

// User-facing messages. These strings are part of the caller contract.
const (
	MsgInvalidEmailOrPassword = "Invalid email or password"
	MsgEmailInUse             = "This email is already in use"
	MsgInvalidCredential      = "Invalid Credential"
	MsgTooManyAttempts        = "Too many attempts. Please try again later"
	MsgAuthenticationError    = "An error occurred during authentication"

	MsgSignUpFailed        = "Error creating the user"
	MsgSignInFailed        = "Error signing in the user"
	MsgTokenNotFound       = "Error signing in the user, Token not found"
	MsgOAuthFailed         = "Error signing in"
	MsgUnsupportedProvider = "Unsupported provider"
	MsgEmailUnavailable    = "Failed to retrieve email from your account"
	MsgCancelled           = "Authentication was cancelled"
	MsgOAuthFailurePrefix  = "Authentication failed: "

	MsgAccountCreated = "Account created successfully"
	MsgLoggedIn       = "Logged in successfully, redirecting to dashboard"
)

// Message maps a provider code to its user-facing text. Unknown codes fall
// through to the generic message so raw provider text never reaches the user.
func (c ProviderCode) Message() string {
	switch c {
	case CodeUserNotFound, CodeWrongPassword:
		return MsgInvalidEmailOrPassword
	case CodeEmailAlreadyInUse:
		return MsgEmailInUse
	case CodeInvalidCredential:
		return MsgInvalidCredential
	case CodeTooManyRequests:
		return MsgTooManyAttempts
	default:
		return MsgAuthenticationError
	}
}

// ProviderError is returned by a ProviderClient when the identity provider
// rejects a request. Detail holds the provider's own text for logs only.
type ProviderError struct {
	Code   ProviderCode
	Detail string
	Err    error
}

func (e *ProviderError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("identity provider: %s (%s)", e.Code, e.Detail)
	}
	return fmt.Sprintf("identity provider: %s", e.Code)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// NewProviderError builds a ProviderError for code.
func NewProviderError(code ProviderCode, detail string) *ProviderError {
	return &ProviderError{Code: code, Detail: detail}
}

// ValidationError lists per-field problems found before any network call.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Message()
}

// Message joins the field messages in a stable order.
func (e *ValidationError) Message() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, e.Fields[k])
	}
	return strings.Join(msgs, " ")
}

// BackendRejection is a session endpoint answer with success=false.
type BackendRejection struct {
	Message string
}

func (e *BackendRejection) Error() string {
	return fmt.Sprintf("session endpoint rejected request: %s", e.Message)
}

var (
	// ErrCancelled is the cancellation notice for a user-closed popup.
	ErrCancelled = errors.New("authentication cancelled by user")
	// ErrUnsupportedProvider is returned before any network call for unknown OAuth providers.
	ErrUnsupportedProvider = errors.New("unsupported provider")
	// ErrEmailUnavailable means the OAuth provider did not disclose an email address.
	ErrEmailUnavailable = errors.New("cannot retrieve email")
	// ErrTokenNotFound means the provider authenticated the user but issued no token.
	ErrTokenNotFound = errors.New("identity token not found")
	// ErrSubmissionInFlight is returned by Guard while another submission runs.
	ErrSubmissionInFlight = errors.New("a submission is already in progress")
)

// IsCancellation reports whether err is the user closing the provider popup.
func IsCancellation(err error) bool {
	if errors.Is(err, ErrCancelled) {
		return true
	}
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Code == CodePopupClosedByUser
}

// classifyProviderError turns any provider failure into user-facing text.
func classifyProviderError(err error) (FailureKind, string) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return FailureProvider, pe.Code.Message()
	}
	return FailureUnknown, MsgAuthenticationError
}
