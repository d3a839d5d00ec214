// Command mailpace serves the paced campaign dispatcher over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/mailpace/internal"
	"github.com/dmitrymomot/mailpace/internal/config"
	"github.com/dmitrymomot/mailpace/internal/httpapi"
	"github.com/dmitrymomot/mailpace/middlewares"
	"github.com/dmitrymomot/mailpace/pkg/cache"
	"github.com/dmitrymomot/mailpace/pkg/dispatch"
	"github.com/dmitrymomot/mailpace/pkg/health"
	"github.com/dmitrymomot/mailpace/pkg/lockout"
	"github.com/dmitrymomot/mailpace/pkg/logger"
	"github.com/dmitrymomot/mailpace/pkg/mailer"
	"github.com/dmitrymomot/mailpace/pkg/mailer/resend"
	"github.com/dmitrymomot/mailpace/pkg/mailer/ses"
	"github.com/dmitrymomot/mailpace/pkg/mailer/smtp"
	"github.com/dmitrymomot/mailpace/pkg/quota"
	"github.com/dmitrymomot/mailpace/pkg/redis"
	"github.com/dmitrymomot/mailpace/pkg/session"
	"github.com/dmitrymomot/mailpace/pkg/unsubscribe"
)

const defaultSessionPrefix = "mailpace:sessions"

func main() {
	configPath := flag.String("config", os.Getenv("MAILPACE_CONFIG"), "path to a YAML config file")
	flag.Parse()

	if err := run(context.Background(), *configPath); err != nil {
		slog.Error("mailpace stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log := logger.NewWithSentry(cfg.Log, middlewares.RequestIDExtractor(), logger.ContextAttrs())
	defer logger.Flush(2 * time.Second)

	policy, err := cfg.Policy()
	if err != nil {
		return err
	}
	ledger, err := quota.NewLedger(policy)
	if err != nil {
		return err
	}

	var hooks []internal.ShutdownHook
	checks := health.Checks{}

	var rdb goredis.UniversalClient
	if cfg.Unsubscribe.Backend == config.BackendRedis || cfg.Sessions.Backend == config.BackendRedis {
		if rdb, err = redis.Open(ctx, cfg.Redis.URL); err != nil {
			return err
		}
		checks["redis"] = redis.Healthcheck(rdb)
	}

	var registry unsubscribe.Registry = unsubscribe.NewMemory()
	if cfg.Unsubscribe.Backend == config.BackendRedis {
		registry = unsubscribe.NewRedis(rdb, cfg.Unsubscribe.Key)
	}

	var sessCache cache.Cache[session.Session]
	if cfg.Sessions.Backend == config.BackendRedis {
		prefix := cfg.Sessions.Key
		if prefix == "" {
			prefix = defaultSessionPrefix
		}
		sessCache = cache.NewRedis[session.Session](rdb, cache.WithPrefix(prefix))
	} else {
		sessCache = cache.NewMemory[session.Session](cache.WithCleanupInterval(time.Minute))
	}
	sessions := session.NewManager(session.NewCacheStore(sessCache, nil), cfg.SessionOptions()...)

	resetQuota := func(context.Context) error {
		ledger.ResetAll()
		return nil
	}
	// The dispatcher is built after the lockout it guards on; the hook
	// resolves it when a reset fires, which only happens after Start.
	var dispatcher *dispatch.Dispatcher
	interrupt := func(ctx context.Context) error {
		return dispatcher.Interrupt(ctx)
	}
	lock := lockout.New(
		lockout.WithCooldown(cfg.Lockout.Cooldown),
		lockout.WithLogger(log.With(slog.String("component", "lockout"))),
		lockout.WithEngageHook("campaigns", interrupt),
		lockout.WithEngageHook("quota", resetQuota),
		lockout.WithEngageHook("sessions", sessions.InvalidateAll),
		lockout.WithReleaseHook("quota", resetQuota),
	)
	if cfg.Lockout.Schedule != "" {
		if err := lock.Schedule(cfg.Lockout.Schedule); err != nil {
			return err
		}
	}

	transport, err := newTransport(cfg)
	if err != nil {
		return err
	}
	mode, err := dispatch.ParseMode(cfg.Dispatch.Mode)
	if err != nil {
		return err
	}
	dispatcher, err = dispatch.New(ledger, transport,
		dispatch.WithMode(mode),
		dispatch.WithPacing(cfg.Pacing.Min, cfg.Pacing.Max),
		dispatch.WithWorkers(cfg.Dispatch.Workers),
		dispatch.WithFooter(cfg.Dispatch.Footer),
		dispatch.WithGuard(lock),
		dispatch.WithBlocklist(registry),
		dispatch.WithLogger(log.With(slog.String("component", "dispatch"))),
	)
	if err != nil {
		return err
	}
	lock.Start()

	api, err := httpapi.New(httpapi.Deps{
		Dispatcher:  dispatcher,
		Ledger:      ledger,
		Lockout:     lock,
		Sessions:    sessions,
		Unsubscribe: registry,
		Checks:      checks,
		Logger:      log,
		Operator:    httpapi.Operator{Username: cfg.Auth.Username, Password: cfg.Auth.Password},
		ArmAfter:    cfg.Lockout.ArmAfter,
		LoginRate:   cfg.Auth.LoginRate,
		LoginBurst:  cfg.Auth.LoginBurst,
	})
	if err != nil {
		return err
	}

	// Campaigns drain while the server waits for sync sends; the stores
	// they use close afterwards.
	hooks = append(hooks,
		lock.Stop,
		closer(api.Close),
		closer(sessCache.Close),
	)
	if rdb != nil {
		hooks = append(hooks, redis.Closer(rdb))
	}

	log.Info("mailpace configured",
		slog.String("channel", cfg.Channel.Provider),
		slog.String("mode", string(mode)),
		slog.String("quota", fmt.Sprintf("%s %s cap=%d", policy.Window, policy.WindowDuration, policy.Cap)),
		slog.Duration("pacing_min", cfg.Pacing.Min),
		slog.Duration("pacing_max", cfg.Pacing.Max),
	)

	return internal.Run(ctx, internal.ServerConfig{
		Handler:         api.Handler(),
		Logger:          log,
		Address:         cfg.Server.Addr,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		Drain:           []internal.ShutdownHook{dispatcher.Shutdown},
		Hooks:           hooks,
	})
}

func newTransport(cfg *config.Config) (mailer.Transport, error) {
	switch cfg.Channel.Provider {
	case config.ProviderSMTP:
		return smtp.New(cfg.SMTP()), nil
	case config.ProviderResend:
		return resend.New(), nil
	case config.ProviderSES:
		return ses.New(cfg.SES()), nil
	}
	return nil, fmt.Errorf("%w: %q", mailer.ErrUnknownProvider, cfg.Channel.Provider)
}

func closer(fn func() error) internal.ShutdownHook {
	return func(context.Context) error {
		return fn()
	}
}
