package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/taskmaster/internal/auth"
	"github.com/geocoder89/taskmaster/internal/cache"
	"github.com/geocoder89/taskmaster/internal/config"
	"github.com/geocoder89/taskmaster/internal/db"
	"github.com/geocoder89/taskmaster/internal/hierarchy"
	httpx "github.com/geocoder89/taskmaster/internal/http"
	"github.com/geocoder89/taskmaster/internal/http/handlers"
	"github.com/geocoder89/taskmaster/internal/http/middlewares"
	"github.com/geocoder89/taskmaster/internal/observability"
	"github.com/geocoder89/taskmaster/internal/repo/memory"
	"github.com/geocoder89/taskmaster/internal/repo/postgres"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const serviceName = "taskmaster"

type userStore interface {
	auth.UserStore
	handlers.UserFinder
}

// backend bundles one storage implementation behind the interfaces the app consumes.
type backend struct {
	users     userStore
	orgs      handlers.OrgStore
	teams     handlers.TeamStore
	bugs      handlers.BugStore
	hierarchy hierarchy.Store
	ping      handlers.Pinger
	close     func()
}

func main() {
	// Load the config set up
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	if err := run(cfg, log); err != nil {
		log.Error("server failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		shutdown, err := observability.InitTracer(ctx, observability.TracerConfig{
			ServiceName: serviceName,
			Env:         cfg.Env,
			Endpoint:    cfg.OTLPEndpoint,
			SampleRatio: cfg.TracingSampleRatio,
		})
		if err != nil {
			return fmt.Errorf("init tracer: %w", err)
		}
		defer func() {
			sctx, cancel := config.WithTimeout(5 * time.Second)
			defer cancel()
			_ = shutdown(sctx)
		}()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	prom := observability.NewProm(reg)

	store, err := openBackend(ctx, cfg, prom)
	if err != nil {
		return err
	}
	defer store.close()

	revocations, closeCache, err := openRevocationStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeCache()

	revoked := auth.NewRevocationCache(revocations, cfg.CacheTimeout)
	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.JWTTTL, revoked,
		auth.WithLogger(log),
		auth.WithMetrics(prom),
	)

	creds, err := auth.NewCredentialStore(store.users, tokens, cfg.BcryptCost, log)
	if err != nil {
		return fmt.Errorf("credential store: %w", err)
	}

	err = db.EnsureSeedUser(ctx, creds, auth.SignupInput{
		FirstName: cfg.SeedFirstName,
		LastName:  cfg.SeedLastName,
		Email:     cfg.SeedEmail,
		Password:  cfg.SeedPassword,
	})
	if err != nil {
		return fmt.Errorf("seed user: %w", err)
	}

	coordinator := hierarchy.NewCoordinator(store.hierarchy, log, prom).WithTimeout(cfg.DeleteTimeout)

	limiter := middlewares.NewRateLimiter(cfg.AuthRatePerSec, cfg.AuthRateBurst)
	go limiter.RunJanitor(ctx, time.Minute)

	router := httpx.NewRouter(httpx.Deps{
		Log:                log,
		Env:                cfg.Env,
		Prom:               prom,
		Metrics:            promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		Tokens:             tokens,
		Creds:              creds,
		Users:              store.users,
		Orgs:               store.orgs,
		Teams:              store.teams,
		Bugs:               store.bugs,
		Deleter:            coordinator,
		AuthLimiter:        limiter,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		Checks:             map[string]handlers.Pinger{"store": store.ping, "cache": revoked.Ping},
		AuthTimeout:        cfg.DBTimeout,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env, "store", cfg.StoreBackend, "revocation", cfg.RevocationBackend)
		err := srv.ListenAndServe()

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("server shutting down")

	sctx, cancel := config.WithTimeout(10 * time.Second)
	defer cancel()

	if err := srv.Shutdown(sctx); err != nil {
		log.Error("graceful shutdown failed", "err", err)
		return err
	}

	log.Info("shutdown complete")
	return nil
}

func openBackend(ctx context.Context, cfg config.Config, prom *observability.Prom) (backend, error) {
	if cfg.StoreBackend == "memory" {
		m := memory.New()
		return backend{
			users:     m.Users(),
			orgs:      m.Organizations(),
			teams:     m.Teams(),
			bugs:      m.Bugs(),
			hierarchy: m,
			ping:      m.Ping,
			close:     func() {},
		}, nil
	}

	pool, err := db.NewPool(ctx, db.PoolConfig{URL: cfg.DBURL, MaxConns: int32(cfg.DBMaxConns)})
	if err != nil {
		return backend{}, fmt.Errorf("connect postgres: %w", err)
	}

	mctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := db.Migrate(mctx, pool); err != nil {
		pool.Close()
		return backend{}, fmt.Errorf("migrate: %w", err)
	}

	return backend{
		users:     postgres.NewUsersRepo(pool, prom),
		orgs:      postgres.NewOrganizationsRepo(pool, prom),
		teams:     postgres.NewTeamsRepo(pool, prom),
		bugs:      postgres.NewBugsRepo(pool, prom),
		hierarchy: postgres.NewHierarchyStore(pool, prom),
		ping:      pool.Ping,
		close:     pool.Close,
	}, nil
}

func openRevocationStore(ctx context.Context, cfg config.Config, log *slog.Logger) (cache.Store, func(), error) {
	if cfg.RevocationBackend == "memory" {
		log.Warn("using in-process revocation list; revocations are not shared between replicas")

		m := cache.NewMemory()
		go m.RunJanitor(ctx, time.Minute)
		return m, func() {}, nil
	}

	r := cache.NewRedis(cache.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Timeout:  cfg.CacheTimeout,
	})

	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := r.Ping(pctx); err != nil {
		// verification fails closed until redis is reachable
		log.Warn("redis not reachable at startup", "addr", cfg.RedisAddr, "err", err)
	}

	breaker := cache.NewBreaker(r, cache.BreakerConfig{
		Timeout:          cfg.CacheTimeout,
		FailureThreshold: cfg.BreakerFailures,
		Cooldown:         cfg.BreakerCooldown,
	})

	return breaker, func() { _ = r.Close() }, nil
}
