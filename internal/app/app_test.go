package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"eid-auth-service/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig() config.Config {
	return config.Config{
		AppEnv:               "development",
		LoginPath:            "/login",
		LandingPath:          "/dashboard",
		PublicBaseURL:        "http://localhost:8080",
		BrokerSubdomain:      "acme",
		BrokerClientID:       "urn:my:application:identifier:1",
		BrokerClientSecret:   "secret",
		BrokerRedirectURI:    "http://localhost:8080/auth/callback",
		BrokerACRValues:      "urn:grn:authn:no:bankid:substantial",
		BrokerUILocales:      "en",
		BrokerScopes:         []string{"openid", "profile"},
		BrokerTimeout:        5 * time.Second,
		SyntheticEmailDomain: "bankid.local",
		SessionTTL:           time.Hour,
		HandshakeStore:       "cookie",
		AccountStore:         "memory",
		SessionStore:         "memory",
	}
}

func TestRouter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router, cleanup, err := setupHTTP(context.Background(), memoryConfig())
	require.NoError(t, err)
	defer cleanup()

	serve := func(method, target string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
		return rec
	}

	assert.Equal(t, http.StatusOK, serve(http.MethodGet, "/health").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(http.MethodGet, "/api/me").Code)
	assert.Equal(t, http.StatusNoContent, serve(http.MethodPost, "/auth/logout").Code)

	login := serve(http.MethodGet, "/auth/login")
	require.Equal(t, http.StatusFound, login.Code)
	u, err := url.Parse(login.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "acme.idura.broker", u.Host)
	assert.Equal(t, "openid profile", u.Query().Get("scope"))

	metrics := serve(http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, metrics.Code)
	assert.True(t, strings.Contains(metrics.Body.String(), "eid_login_initiated_total 1"))
}
