package app

import (
	"context"
	"fmt"

	"eid-auth-service/internal/account"
	"eid-auth-service/internal/auth/handshake"
	"eid-auth-service/internal/cache"
	"eid-auth-service/internal/config"
	"eid-auth-service/internal/db"
	"eid-auth-service/internal/logger"
	"eid-auth-service/internal/redis"

	"github.com/hashicorp/go-multierror"
	"github.com/jonboulle/clockwork"
)

// Infra holds the backing stores selected by configuration.
type Infra struct {
	DB    *db.DB
	Redis *redis.Client

	Accounts   account.Store
	Handshakes handshake.Store
	Cache      cache.Cache
}

func setupInfra(ctx context.Context, cfg config.Config) (*Infra, error) {
	infra := &Infra{}

	if cfg.AccountStore == "postgres" {
		conn, err := db.Open(cfg.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		if err := conn.Migrate(ctx); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		logger.Info("database ready", nil)

		infra.DB = conn
		infra.Accounts = account.NewPostgresStore(conn.DB)
	} else {
		logger.Warn("using in-memory account store", nil)
		infra.Accounts = account.NewMemoryStore()
	}

	if cfg.SessionStore == "redis" || cfg.HandshakeStore == "redis" {
		client, err := redis.New(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			_ = infra.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		logger.Info("redis ready", nil)
		infra.Redis = client
	}

	if cfg.SessionStore == "redis" {
		infra.Cache = cache.NewRedis(infra.Redis.Client, "eid:")
	} else {
		infra.Cache = cache.NewMemory()
	}

	cookieOpts := handshake.CookieOptions{Secure: cfg.Production()}
	switch cfg.HandshakeStore {
	case "redis":
		infra.Handshakes = handshake.NewServerStore(cache.NewRedis(infra.Redis.Client, "eid:"), cookieOpts, clockwork.NewRealClock())
	case "memory":
		infra.Handshakes = handshake.NewServerStore(cache.NewMemory(), cookieOpts, clockwork.NewRealClock())
	default:
		store, err := handshake.NewCookieStore(infra.Cache, cookieOpts, cfg.CookieSecret)
		if err != nil {
			_ = infra.Close()
			return nil, err
		}
		infra.Handshakes = store
	}

	return infra, nil
}

func (i *Infra) Close() error {
	var result *multierror.Error
	if i.DB != nil {
		if err := i.DB.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if i.Redis != nil {
		if err := i.Redis.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
