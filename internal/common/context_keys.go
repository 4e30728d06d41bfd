// File: internal/common/context_keys.go
package common

const (
	// LoggerKey is the context key for the request-scoped logger
	LoggerKey = "logger"
	// RequestIDKey is the context key for the request ID
	RequestIDKey = "requestID"
	// AccountUIDKey is the context key for the authenticated account's identity-provider UID
	AccountUIDKey = "accountUID"
)
