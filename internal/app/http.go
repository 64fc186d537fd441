package app

import (
	"context"
	"net/http"

	"eid-auth-service/internal/auth/handler"
	"eid-auth-service/internal/auth/provider/idura"
	"eid-auth-service/internal/auth/resolver"
	"eid-auth-service/internal/config"
	"eid-auth-service/internal/metrics"
	"eid-auth-service/internal/middleware"
	"eid-auth-service/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func setupHTTP(ctx context.Context, cfg config.Config) (*gin.Engine, func() error, error) {
	infra, err := setupInfra(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	router, err := newRouter(ctx, cfg, infra)
	if err != nil {
		_ = infra.Close()
		return nil, nil, err
	}

	return router, infra.Close, nil
}

func newRouter(ctx context.Context, cfg config.Config, infra *Infra) (*gin.Engine, error) {
	clock := clockwork.NewRealClock()

	opts := idura.Options{
		BaseURL:      cfg.BrokerBaseURL(),
		ClientID:     cfg.BrokerClientID,
		ClientSecret: cfg.BrokerClientSecret,
		RedirectURI:  cfg.BrokerRedirectURI,
		ACRValues:    cfg.BrokerACRValues,
		UILocales:    cfg.BrokerUILocales,
		Scopes:       cfg.BrokerScopes,
		Timeout:      cfg.BrokerTimeout,
	}
	if cfg.VerifyIDToken {
		verifier, err := idura.Discover(ctx, opts)
		if err != nil {
			return nil, err
		}
		opts.Verifier = verifier
	}
	broker, err := idura.New(opts)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	cookie := session.CookieOptions{
		Secure:   cfg.Production(),
		SameSite: http.SameSiteLaxMode,
	}
	sessionStore := session.NewCacheStore(infra.Cache, clock)
	authority := session.NewLocalAuthority(infra.Cache, sessionStore, infra.Accounts, session.AuthorityOptions{
		BaseURL:    cfg.PublicBaseURL,
		SessionTTL: cfg.SessionTTL,
		Cookie:     cookie,
		Clock:      clock,
	})

	authHandler := handler.NewHandler(handler.Deps{
		Broker:      broker,
		Handshakes:  infra.Handshakes,
		Resolver:    resolver.NewAccountResolver(infra.Accounts, clock, cfg.SyntheticEmailDomain),
		Bridge:      session.NewBridge(authority),
		Authority:   authority,
		Sessions:    sessionStore,
		Accounts:    infra.Accounts,
		Metrics:     metrics.New(registry),
		Clock:       clock,
		Cookie:      cookie,
		LoginPath:   cfg.LoginPath,
		LandingPath: cfg.LandingPath,
	})

	authMiddleware := middleware.NewAuthMiddleware(sessionStore, cookie)

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	authHandler.RegisterRoutes(router)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	api := router.Group("/api")
	api.Use(middleware.GinRequireAuth(authMiddleware))

	api.GET("/me", authHandler.Me)

	return router, nil
}
