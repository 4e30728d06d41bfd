package shared

// SessionResult is the terminal outcome of a session endpoint call.
type SessionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Succeeded is a convenience constructor for a successful result.
func Succeeded(message string) SessionResult {
	return SessionResult{Success: true, Message: message}
}

// Rejected is a convenience constructor for a failed result.
func Rejected(message string) SessionResult {
	return SessionResult{Success: false, Message: message}
}

// RegisterRequest is sent after the identity provider has created the account.
// Password is part of the wire contract only; the session endpoint never stores it.
type RegisterRequest struct {
	UID      string `json:"uid" binding:"required"`
	Name     string `json:"name" binding:"required,min=3"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password,omitempty"`
}

// AuthenticateRequest exchanges a fresh ID token for a session.
type AuthenticateRequest struct {
	Email   string `json:"email" binding:"required,email"`
	IDToken string `json:"idToken" binding:"required"`
}

// OAuthAuthenticateRequest exchanges an OAuth-obtained ID token for a session,
// creating the account on first login.
type OAuthAuthenticateRequest struct {
	UID      string `json:"uid" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	PhotoURL string `json:"photoURL"`
	Provider string `json:"provider" binding:"required,oneof=google github"`
	IDToken  string `json:"idToken" binding:"required"`
}

// SessionResponse is the body every session endpoint returns.
type SessionResponse struct {
	SessionResult
	User *AccountResponse `json:"user,omitempty"`
}
