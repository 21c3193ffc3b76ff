package main

import (
	"context"
	"errors"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/example/justwatch-gateway/internal/platform/analytics"
	"github.com/example/justwatch-gateway/internal/platform/auth"
	"github.com/example/justwatch-gateway/internal/platform/config"
	"github.com/example/justwatch-gateway/internal/platform/httpserver"
	"github.com/example/justwatch-gateway/internal/platform/logging"
	"github.com/example/justwatch-gateway/internal/platform/natsconn"
	"github.com/example/justwatch-gateway/internal/platform/run"
	gwconfig "github.com/example/justwatch-gateway/services/gateway/internal/config"
	gwhandlers "github.com/example/justwatch-gateway/services/gateway/internal/handlers"
	"github.com/example/justwatch-gateway/services/gateway/internal/justwatch"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}

	var hooks cleanupHooks
	hooks.add(func() { _ = log.Sync() })
	exit := func(code int) {
		hooks.run()
		run.Exit(code)
	}

	gwCfg, err := gwconfig.Load()
	if err != nil {
		log.Error("load gateway config", zap.Error(err))
		exit(1)
	}

	// NATS is optional: it carries cache invalidation and analytics events.
	var nc *nats.Conn
	nc, err = natsconn.Connect(natsconn.Options{URL: gwCfg.NATSURL, Name: cfg.ServiceName, Logger: log.Named("nats")})
	switch {
	case errors.Is(err, natsconn.ErrNoURL):
		log.Info("nats not configured, analytics and cache invalidation disabled")
	case err != nil:
		log.Error("nats connect", zap.Error(err))
		exit(1)
	default:
		hooks.add(func() {
			if err := nc.Drain(); err != nil {
				log.Warn("nats drain", zap.Error(err))
			}
		})
	}

	var cb *gobreaker.CircuitBreaker
	clientOpts := []justwatch.Option{
		justwatch.WithLogger(log.Named("justwatch")),
		justwatch.WithRateLimit(gwCfg.UpstreamRPS, gwCfg.UpstreamBurst),
	}
	if gwCfg.CBFailureThreshold > 0 {
		cb = justwatch.NewCircuitBreaker(gwCfg.CBFailureThreshold, gwCfg.CBTimeout, log)
		clientOpts = append(clientOpts, justwatch.WithCircuitBreaker(cb))
	}
	client := justwatch.New(justwatch.Config{
		BaseURL:   gwCfg.BaseURL,
		Country:   gwCfg.Country,
		Locale:    gwCfg.Locale,
		UserAgent: gwCfg.UserAgent,
		Timeout:   gwCfg.Timeout,
	}, clientOpts...)
	holder := justwatch.NewHolder(client, log.Named("locale"))

	if gwCfg.ResolveLocale {
		ctx, cancel := context.WithTimeout(context.Background(), gwCfg.Timeout)
		locale, _ := holder.Refresh(ctx)
		cancel()
		log.Info("justwatch locale", zap.String("country", gwCfg.Country), zap.String("locale", locale))
	}

	cache, closeCache, err := newCache(gwCfg, nc, log)
	if err != nil {
		log.Error("init cache", zap.Error(err))
		exit(1)
	}
	hooks.add(closeCache)

	var pubConn analytics.Conn
	if nc != nil {
		pubConn = nc
	}
	pub := analytics.New(pubConn, cfg.ServiceName, log.Named("analytics"))

	if gwCfg.JWTSecret == "" {
		log.Warn("JWT_SECRET not set, admin routes will reject every request")
	}

	r := newRouter(routerDeps{
		Source:         holder,
		Refresher:      holder,
		Cache:          cache,
		Publisher:      pub,
		Logger:         log,
		Verifier:       auth.JWTVerifier{Secret: []byte(gwCfg.JWTSecret)},
		AllowedOrigins: cfg.HTTP.CORSAllowedOrigins,
		ReadyFunc: func() error {
			if cb != nil && cb.State() == gobreaker.StateOpen {
				return errors.New("justwatch circuit open")
			}
			return nil
		},
		RateLimitRPS:   gwCfg.RateLimitRPS,
		RateLimitBurst: gwCfg.RateLimitBurst,
	})

	srv := httpserver.New(httpserver.Options{Addr: cfg.HTTP.Addr, ServiceName: cfg.ServiceName, Logger: log, Router: r})

	runner := run.New(log)
	code := runner.WithSignals(srv.Start, srv.Shutdown)

	log.Info("exit", zap.Int("code", code))
	exit(code)
}

// newCache picks Redis when REDIS_URL is set and the in-memory TTL cache
// otherwise. Both honour NATS invalidation messages.
func newCache(cfg gwconfig.Config, nc *nats.Conn, log *zap.Logger) (gwhandlers.Cache, func(), error) {
	if cfg.RedisURL == "" {
		c, err := gwhandlers.NewTTLCache(cfg.CacheTTL, nc, cfg.InvalidateSubject)
		return c, func() {}, err
	}
	rc, err := gwhandlers.NewRedisCache(cfg.RedisURL, cfg.CacheTTL, log.Named("cache"))
	if err != nil {
		return nil, nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx); err != nil {
		log.Warn("redis ping failed, continuing with cache misses", zap.Error(err))
	}
	if err := rc.Subscribe(nc, cfg.InvalidateSubject); err != nil {
		_ = rc.Close()
		return nil, nil, err
	}
	return rc, func() { _ = rc.Close() }, nil
}
