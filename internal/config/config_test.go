package config

import (
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		BrokerSubdomain:    "acme",
		BrokerClientID:     "urn:my:application:identifier:1",
		BrokerClientSecret: "secret",
		BrokerRedirectURI:  "https://app.example.com/auth/callback",
		BrokerACRValues:    "urn:grn:authn:no:bankid:substantial",
		BrokerTimeout:      10 * time.Second,
		HandshakeStore:     "cookie",
		AccountStore:       "memory",
		SessionStore:       "memory",
	}
}

func TestBrokerBaseURL(t *testing.T) {
	tests := []struct {
		name      string
		subdomain string
		want      string
	}{
		{"bare subdomain", "acme", "https://acme.idura.broker"},
		{"full host", "login.acme.no", "https://login.acme.no"},
		{"scheme and slash", "https://acme.criipto.id/", "https://acme.criipto.id"},
		{"plain http kept", "http://localhost:8443/", "http://localhost:8443"},
		{"host with port", "localhost:8443", "https://localhost:8443"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{BrokerSubdomain: tt.subdomain}
			assert.Equal(t, tt.want, cfg.BrokerBaseURL())
		})
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	cfg := validConfig()
	cfg.BrokerClientID = ""
	cfg.BrokerACRValues = " "
	cfg.AccountStore = "postgres"

	err := cfg.Validate()
	require.Error(t, err)

	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	assert.Len(t, merr.Errors, 3)
	assert.Contains(t, err.Error(), "IDURA_CLIENT_ID is required")
	assert.Contains(t, err.Error(), "IDURA_ACR_VALUES is required")
	assert.Contains(t, err.Error(), "DATABASE_DSN is required")
}

func TestValidateCookieSecretInProduction(t *testing.T) {
	cfg := validConfig()
	cfg.AppEnv = "production"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COOKIE_SECRET is required")

	cfg.CookieSecret = "s3cret"
	assert.NoError(t, cfg.Validate())

	cfg.CookieSecret = ""
	cfg.HandshakeStore = "memory"
	assert.NoError(t, cfg.Validate())
}

func TestValidateUILocalesOptional(t *testing.T) {
	cfg := validConfig()
	cfg.BrokerUILocales = ""
	assert.NoError(t, cfg.Validate())
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("IDURA_SUBDOMAIN", "acme")
	t.Setenv("IDURA_UI_LOCALES", "")
	t.Setenv("IDURA_SCOPES", "")
	t.Setenv("BROKER_TIMEOUT", "")
	t.Setenv("IDURA_VERIFY_ID_TOKEN", "false")
	t.Setenv("APP_ENV", "production")

	cfg := Load()
	assert.Equal(t, "acme", cfg.BrokerSubdomain)
	assert.Equal(t, "en", cfg.BrokerUILocales)
	assert.Equal(t, []string{"openid", "profile"}, cfg.BrokerScopes)
	assert.Equal(t, 10*time.Second, cfg.BrokerTimeout)
	assert.False(t, cfg.VerifyIDToken)
	assert.True(t, cfg.Production())
	assert.Equal(t, "/login", cfg.LoginPath)
	assert.Equal(t, "/dashboard", cfg.LandingPath)
}
