package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
)

const (
	defaultBrokerDomain = "idura.broker"
	defaultScopes       = "openid profile"
	defaultUILocales    = "en"
)

type Config struct {
	AppPort       string
	AppEnv        string
	LogLevel      string
	PublicBaseURL string

	LoginPath   string
	LandingPath string

	// Broker (Idura / Criipto) client settings.
	BrokerSubdomain    string
	BrokerClientID     string
	BrokerClientSecret string
	BrokerRedirectURI  string
	BrokerACRValues    string
	BrokerUILocales    string
	BrokerScopes       []string
	BrokerTimeout      time.Duration
	VerifyIDToken      bool

	SyntheticEmailDomain string
	SessionTTL           time.Duration
	CookieSecret         string

	HandshakeStore string // cookie | redis | memory
	AccountStore   string // postgres | memory
	SessionStore   string // redis | memory

	RedisAddr     string
	RedisPassword string

	DatabaseDSN string
}

// Load reads configuration from the environment. A .env file in the working
// directory is honoured but never overrides variables already set.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppPort:       getenv("APP_PORT", "8080"),
		AppEnv:        getenv("APP_ENV", "development"),
		LogLevel:      getenv("LOG_LEVEL", "info"),
		PublicBaseURL: strings.TrimRight(os.Getenv("PUBLIC_BASE_URL"), "/"),

		LoginPath:   getenv("LOGIN_PATH", "/login"),
		LandingPath: getenv("LANDING_PATH", "/dashboard"),

		BrokerSubdomain:    os.Getenv("IDURA_SUBDOMAIN"),
		BrokerClientID:     os.Getenv("IDURA_CLIENT_ID"),
		BrokerClientSecret: os.Getenv("IDURA_CLIENT_SECRET"),
		BrokerRedirectURI:  os.Getenv("IDURA_REDIRECT_URI"),
		BrokerACRValues:    os.Getenv("IDURA_ACR_VALUES"),
		BrokerUILocales:    getenv("IDURA_UI_LOCALES", defaultUILocales),
		BrokerScopes:       strings.Fields(getenv("IDURA_SCOPES", defaultScopes)),
		BrokerTimeout:      getDuration("BROKER_TIMEOUT", 10*time.Second),
		VerifyIDToken:      getBool("IDURA_VERIFY_ID_TOKEN", true),

		SyntheticEmailDomain: getenv("SYNTHETIC_EMAIL_DOMAIN", "bankid.local"),
		SessionTTL:           getDuration("SESSION_TTL", 24*time.Hour),
		CookieSecret:         os.Getenv("COOKIE_SECRET"),

		HandshakeStore: getenv("HANDSHAKE_STORE", "cookie"),
		AccountStore:   getenv("ACCOUNT_STORE", "postgres"),
		SessionStore:   getenv("SESSION_STORE", "redis"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		DatabaseDSN: os.Getenv("DATABASE_DSN"),
	}

	return cfg
}

// Production reports whether cookies must carry the Secure attribute.
func (c Config) Production() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// BrokerBaseURL returns the broker origin. A value with a scheme is used
// as given, so a local broker can be reached over plain http. Without a
// scheme, a value containing a dot or a port is a host served over https,
// and anything else is a tenant subdomain of the default broker domain.
func (c Config) BrokerBaseURL() string {
	v := strings.TrimRight(strings.TrimSpace(c.BrokerSubdomain), "/")
	if strings.Contains(v, "://") {
		return v
	}
	if !strings.ContainsAny(v, ".:") {
		v = v + "." + defaultBrokerDomain
	}
	return "https://" + v
}

// Validate reports every missing or unsupported option at once.
func (c Config) Validate() error {
	var result *multierror.Error

	required := []struct {
		name  string
		value string
	}{
		{"IDURA_SUBDOMAIN", c.BrokerSubdomain},
		{"IDURA_CLIENT_ID", c.BrokerClientID},
		{"IDURA_CLIENT_SECRET", c.BrokerClientSecret},
		{"IDURA_REDIRECT_URI", c.BrokerRedirectURI},
		{"IDURA_ACR_VALUES", c.BrokerACRValues},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			result = multierror.Append(result, errors.New(r.name+" is required"))
		}
	}

	if c.Production() && c.HandshakeStore == "cookie" && c.CookieSecret == "" {
		result = multierror.Append(result, errors.New("COOKIE_SECRET is required for the cookie handshake store in production"))
	}

	if c.BrokerTimeout <= 0 {
		result = multierror.Append(result, errors.New("BROKER_TIMEOUT must be positive"))
	}

	switch c.HandshakeStore {
	case "cookie", "memory":
	case "redis":
		if c.RedisAddr == "" {
			result = multierror.Append(result, errors.New("REDIS_ADDR is required for redis handshake store"))
		}
	default:
		result = multierror.Append(result, errors.New("HANDSHAKE_STORE must be cookie, redis or memory"))
	}

	switch c.AccountStore {
	case "memory":
	case "postgres":
		if c.DatabaseDSN == "" {
			result = multierror.Append(result, errors.New("DATABASE_DSN is required for postgres account store"))
		}
	default:
		result = multierror.Append(result, errors.New("ACCOUNT_STORE must be postgres or memory"))
	}

	switch c.SessionStore {
	case "memory":
	case "redis":
		if c.RedisAddr == "" {
			result = multierror.Append(result, errors.New("REDIS_ADDR is required for redis session store"))
		}
	default:
		result = multierror.Append(result, errors.New("SESSION_STORE must be redis or memory"))
	}

	return result.ErrorOrNil()
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
