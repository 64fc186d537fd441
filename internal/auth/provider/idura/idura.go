package idura

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"eid-auth-service/internal/auth"
	"eid-auth-service/internal/auth/provider"
	"eid-auth-service/internal/logger"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/hashicorp/go-cleanhttp"
	"golang.org/x/oauth2"
)

const providerName = "idura"

// maxErrorBody caps how much of a failed token response is logged.
const maxErrorBody = 8 << 10

type Options struct {
	BaseURL      string // broker origin, e.g. https://acme.idura.broker
	ClientID     string
	ClientSecret string
	RedirectURI  string
	ACRValues    string
	UILocales    string
	Scopes       []string
	Timeout      time.Duration

	// HTTPClient overrides the pooled client; Timeout is ignored when set.
	HTTPClient *http.Client

	// Verifier enables ID token signature checks. Nil decodes the
	// payload without verification.
	Verifier *oidc.IDTokenVerifier
}

// Provider implements the authorization-code flow against an Idura
// (Criipto) broker tenant.
type Provider struct {
	oauthConfig *oauth2.Config
	acrValues   string
	uiLocales   string
	http        *http.Client
	verifier    *oidc.IDTokenVerifier
}

var _ provider.Broker = (*Provider)(nil)

func New(opts Options) (*Provider, error) {
	if opts.BaseURL == "" || opts.ClientID == "" || opts.ClientSecret == "" || opts.RedirectURI == "" {
		return nil, errors.New("idura config missing required fields")
	}

	base := strings.TrimRight(opts.BaseURL, "/")

	client := opts.HTTPClient
	if client == nil {
		client = cleanhttp.DefaultPooledClient()
		client.Timeout = opts.Timeout
		if client.Timeout <= 0 {
			client.Timeout = 10 * time.Second
		}
	}

	scopes := opts.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "profile"}
	}

	return &Provider{
		oauthConfig: &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			RedirectURL:  opts.RedirectURI,
			Endpoint: oauth2.Endpoint{
				AuthURL:   base + "/oauth2/authorize",
				TokenURL:  base + "/oauth2/token",
				AuthStyle: oauth2.AuthStyleInHeader,
			},
			Scopes: scopes,
		},
		acrValues: opts.ACRValues,
		uiLocales: opts.UILocales,
		http:      client,
		verifier:  opts.Verifier,
	}, nil
}

// Discover builds a signature verifier from the broker's published
// discovery document and signing keys.
func Discover(ctx context.Context, opts Options) (*oidc.IDTokenVerifier, error) {
	client := opts.HTTPClient
	if client == nil {
		client = cleanhttp.DefaultPooledClient()
		client.Timeout = opts.Timeout
	}

	oidcProvider, err := oidc.NewProvider(oidc.ClientContext(ctx, client), strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("failed to init idura oidc provider: %w", err)
	}

	return oidcProvider.Verifier(&oidc.Config{ClientID: opts.ClientID}), nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return providerName
}

// AuthCodeURL builds the broker authorization URL.
func (p *Provider) AuthCodeURL(state string, nonce string) string {
	opts := []oauth2.AuthCodeOption{
		oauth2.SetAuthURLParam("nonce", nonce),
		oauth2.SetAuthURLParam("acr_values", p.acrValues),
	}
	if p.uiLocales != "" {
		opts = append(opts, oauth2.SetAuthURLParam("ui_locales", p.uiLocales))
	}
	return p.oauthConfig.AuthCodeURL(state, opts...)
}

// ExchangeCode posts the authorization code to the token endpoint using
// HTTP Basic client authentication. The raw response body of a failed
// exchange is logged and never returned.
func (p *Provider) ExchangeCode(ctx context.Context, code string) (*provider.TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", p.oauthConfig.RedirectURL)

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		p.oauthConfig.Endpoint.TokenURL,
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: build token request: %v", auth.ErrUpstream, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(p.oauthConfig.ClientID, p.oauthConfig.ClientSecret)

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", auth.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		logger.Error("idura token exchange failed", map[string]any{
			"status": resp.StatusCode,
			"body":   string(body),
		})
		return nil, fmt.Errorf("%w: token endpoint returned %d", auth.ErrUpstream, resp.StatusCode)
	}

	var tr provider.TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("%w: decode token response: %v", auth.ErrProtocolViolation, err)
	}

	if tr.IDToken == "" {
		return nil, fmt.Errorf("%w: idura did not return id_token", auth.ErrProtocolViolation)
	}

	return &tr, nil
}

// ExtractIdentity decodes the ID token and maps broker claim names onto
// auth.Identity. The subject is not required here; the caller decides.
func (p *Provider) ExtractIdentity(ctx context.Context, rawIDToken string) (*auth.Identity, error) {
	var (
		claims map[string]any
		err    error
	)

	if p.verifier != nil {
		claims, err = p.verifiedClaims(ctx, rawIDToken)
	} else {
		claims, err = decodeClaims(rawIDToken)
	}
	if err != nil {
		return nil, err
	}

	return normalize(claims), nil
}

func (p *Provider) verifiedClaims(ctx context.Context, rawIDToken string) (map[string]any, error) {
	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("%w: id_token verification failed: %v", auth.ErrProtocolViolation, err)
	}

	var claims map[string]any
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%w: id_token claims parse failed: %v", auth.ErrProtocolViolation, err)
	}

	logger.Info("idura id_token verified", map[string]any{
		"issuer":      idToken.Issuer,
		"audience":    idToken.Audience,
		"expiry_unix": idToken.Expiry.Unix(),
	})

	return claims, nil
}
