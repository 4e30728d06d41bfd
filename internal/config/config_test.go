package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SESSION_COOKIE_EXPIRY_DAYS", "5")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test,,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, 30*time.Second, cfg.ServerTimeout)
	assert.Equal(t, 5*24*time.Hour, cfg.SessionCookieExpiry)
	assert.Equal(t, 15*time.Second, cfg.HTTPClientTimeout)
	assert.Equal(t, "/dashboard", cfg.DashboardPath)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
}

func TestValidate(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "sa.json")
	require.NoError(t, os.WriteFile(keyPath, []byte("{}"), 0o600))

	base := Config{
		FirebaseServiceAccountKeyPath: keyPath,
		DBDriver:                      "sqlite",
		SessionCookieExpiry:           24 * time.Hour,
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing key path", mutate: func(c *Config) { c.FirebaseServiceAccountKeyPath = " " }, wantErr: "FIREBASE_SERVICE_ACCOUNT_KEY_PATH"},
		{name: "key file absent", mutate: func(c *Config) { c.FirebaseServiceAccountKeyPath = keyPath + ".gone" }, wantErr: "not found"},
		{name: "bad driver", mutate: func(c *Config) { c.DBDriver = "mysql" }, wantErr: "DB_DRIVER"},
		{name: "cookie too long", mutate: func(c *Config) { c.SessionCookieExpiry = 15 * 24 * time.Hour }, wantErr: "SESSION_COOKIE_EXPIRY_DAYS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateClient(t *testing.T) {
	c := Config{BackendBaseURL: "http://localhost:8080"}
	assert.Error(t, c.ValidateClient())

	c.FirebaseAPIKey = "key"
	assert.NoError(t, c.ValidateClient())
}
