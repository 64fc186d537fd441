package idura

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

// TestBroker is an in-process fake of the broker token endpoint. It is
// meant for tests in this and dependent packages.
type TestBroker struct {
	Server       *httptest.Server
	ClientID     string
	ClientSecret string
	RedirectURI  string

	key *rsa.PrivateKey

	mu          sync.Mutex
	codes       map[string]map[string]any
	exchanges   int
	failStatus  int
	omitIDToken bool
	lastAuth    string
}

// StartTestBroker starts a fake broker and stops it when the test ends.
func StartTestBroker(t testing.TB) *TestBroker {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	b := &TestBroker{
		ClientID:     "urn:my:application:identifier:test",
		ClientSecret: "test-secret",
		RedirectURI:  "https://app.example.com/auth/callback",
		key:          key,
		codes:        make(map[string]map[string]any),
	}
	b.Server = httptest.NewServer(http.HandlerFunc(b.serveToken))
	t.Cleanup(b.Server.Close)
	return b
}

// Options returns provider options pointed at the fake broker.
func (b *TestBroker) Options() Options {
	return Options{
		BaseURL:      b.Server.URL,
		ClientID:     b.ClientID,
		ClientSecret: b.ClientSecret,
		RedirectURI:  b.RedirectURI,
		ACRValues:    "urn:grn:authn:no:bankid:substantial",
		UILocales:    "en",
		HTTPClient:   b.Server.Client(),
	}
}

// Verifier checks tokens against the fake broker's signing key.
func (b *TestBroker) Verifier() *oidc.IDTokenVerifier {
	keys := &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&b.key.PublicKey}}
	return oidc.NewVerifier(b.Server.URL, keys, &oidc.Config{ClientID: b.ClientID})
}

// IssueCode registers an authorization code whose ID token carries claims.
func (b *TestBroker) IssueCode(code string, claims map[string]any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.codes[code] = claims
}

// FailWith makes the token endpoint answer with status.
func (b *TestBroker) FailWith(status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failStatus = status
}

// OmitIDToken drops id_token from successful responses.
func (b *TestBroker) OmitIDToken() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.omitIDToken = true
}

// Exchanges reports how many token requests were received.
func (b *TestBroker) Exchanges() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.exchanges
}

// LastAuthorization returns the Authorization header of the last request.
func (b *TestBroker) LastAuthorization() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastAuth
}

// SignIDToken signs claims the way the broker would, adding iss, aud and
// time claims when absent.
func (b *TestBroker) SignIDToken(t testing.TB, claims map[string]any) string {
	t.Helper()
	tok, err := b.sign(claims)
	require.NoError(t, err)
	return tok
}

func (b *TestBroker) sign(claims map[string]any) (string, error) {
	now := time.Now()
	mc := jwt.MapClaims{
		"iss": b.Server.URL,
		"aud": b.ClientID,
		"iat": now.Unix(),
		"exp": now.Add(5 * time.Minute).Unix(),
	}
	for k, v := range claims {
		mc[k] = v
	}
	return jwt.NewWithClaims(jwt.SigningMethodRS256, mc).SignedString(b.key)
}

func (b *TestBroker) basicAuth() string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(b.ClientID+":"+b.ClientSecret))
}

func (b *TestBroker) serveToken(w http.ResponseWriter, req *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if req.URL.Path != "/oauth2/token" || req.Method != http.MethodPost {
		http.NotFound(w, req)
		return
	}

	b.exchanges++
	b.lastAuth = req.Header.Get("Authorization")

	if b.failStatus != 0 {
		w.WriteHeader(b.failStatus)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"code expired"}`))
		return
	}

	// client ids are URNs, so the header is compared whole rather than
	// split at the first colon
	if b.lastAuth != b.basicAuth() {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid_client"}`))
		return
	}

	if err := req.ParseForm(); err != nil ||
		req.PostForm.Get("grant_type") != "authorization_code" ||
		req.PostForm.Get("redirect_uri") != b.RedirectURI {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_request"}`))
		return
	}

	claims, found := b.codes[req.PostForm.Get("code")]
	if !found {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
		return
	}
	delete(b.codes, req.PostForm.Get("code"))

	resp := map[string]any{
		"access_token": "access-" + req.PostForm.Get("code"),
		"token_type":   "Bearer",
		"expires_in":   300,
	}
	if !b.omitIDToken {
		idToken, err := b.sign(claims)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		resp["id_token"] = idToken
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
