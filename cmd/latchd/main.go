package main

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/template/django/v3"
	"github.com/goliatone/go-router"
	"github.com/goliatone/hashid/pkg/hashid"
	latch "github.com/phoenixsite/go-latch"
	"github.com/phoenixsite/go-latch/activitymap"
	"github.com/phoenixsite/go-latch/client"
	"github.com/phoenixsite/go-latch/config"
	"github.com/phoenixsite/go-latch/repository"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uptrace/bun"
)

//go:embed views
var viewsFS embed.FS

const activityStream = "latch:activity"

type App struct {
	config   *config.Config
	bunDB    *bun.DB
	repo     latch.RepositoryManager
	api      *client.API
	registry *prometheus.Registry
	sink     latch.ActivitySink
	throttle *latch.PairingThrottle
	srv      router.Server[*fiber.App]
	session  router.MiddlewareFunc
	gate     *latch.Gate
	provider *latch.LatchedIdentityProvider
	logs     latch.LoggerProvider
	closers  []func() error
}

func (a *App) GetLogger(name string) latch.Logger {
	return a.logs.GetLogger(name)
}

func (a *App) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.GetLogger("app").Warn("close failed", "error", err)
		}
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	app := &App{
		config: cfg,
		logs:   latch.NewZerologProvider(os.Stderr, cfg.LogLevel),
	}
	lgr := app.GetLogger("app")

	if err := cfg.Validate(); err != nil {
		lgr.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	for _, step := range startupSteps {
		if err := step(ctx, app); err != nil {
			lgr.Error("startup failed", "error", err)
			app.Close()
			os.Exit(1)
		}
	}

	app.throttle.Start()
	app.onClose(func() error {
		app.throttle.Stop()
		return nil
	})

	lgr.Info("serving", "addr", cfg.HTTPAddr, "backend", app.api.Backend())
	app.srv.Serve(cfg.HTTPAddr)

	sig := WaitExitSignal()
	lgr.Info("shutting down", "signal", sig.String())
	app.Close()
}

// startupSteps run in order. WithChecks comes before WithLatchClient so
// missing latch settings are reported together with every other failure.
var startupSteps = []func(context.Context, *App) error{
	WithPersistence,
	WithActivity,
	WithHTTPServer,
	WithHTTPAuth,
	WithChecks,
	WithLatchClient,
	WithLatchRoutes,
}

func WithPersistence(ctx context.Context, app *App) error {
	db, err := repository.Open(ctx, app.config.DatabaseDriver, app.config.DatabaseDSN)
	if err != nil {
		return err
	}
	app.bunDB = db
	app.onClose(db.Close)

	if err := repository.Migrate(ctx, db.DB, app.config.DatabaseDriver); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	app.repo = repository.NewRepositoryManager(db)
	if err := app.repo.Validate(); err != nil {
		return err
	}

	if app.config.SeedDemoUser() {
		return seedDemoUser(ctx, app)
	}
	return nil
}

// seedDemoUser creates the configured demo account once. The id is
// derived from the email so restarts find the same row.
func seedDemoUser(ctx context.Context, app *App) error {
	id, err := hashid.NewUUID(app.config.DemoEmail)
	if err != nil {
		return err
	}

	hash, err := latch.HashPassword(app.config.DemoPassword)
	if err != nil {
		return err
	}

	user, err := app.repo.Users().GetOrCreate(ctx, &latch.User{
		ID:           id,
		Username:     strings.SplitN(app.config.DemoEmail, "@", 2)[0],
		Email:        app.config.DemoEmail,
		PasswordHash: hash,
		Role:         latch.RoleMember,
	})
	if err != nil {
		return fmt.Errorf("seed demo user: %w", err)
	}

	app.GetLogger("app").Info("demo user ready", "id", user.ID, "username", user.Username)
	return nil
}

func WithLatchClient(ctx context.Context, app *App) error {
	api, err := client.New(app.config.ClientConfig())
	if err != nil {
		return err
	}
	app.api = api
	app.provider.WithClient(api)
	return nil
}

// WithActivity wires the metrics registry and, when REDIS_URL is set,
// the redis stream activity sink.
func WithActivity(ctx context.Context, app *App) error {
	app.registry = prometheus.NewRegistry()
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if app.config.RedisURL == "" {
		lgr := app.GetLogger("activity")
		app.sink = latch.ActivitySinkFunc(func(_ context.Context, event latch.ActivityEvent) error {
			lgr.Debug("activity", "type", event.EventType, "user_id", event.UserID)
			return nil
		})
		return nil
	}

	rdb, err := activitymap.NewRedisClient(ctx, app.config.RedisURL)
	if err != nil {
		return err
	}
	app.onClose(rdb.Close)
	app.sink = activitymap.NewRedisStreamSink(rdb, activityStream, 10000,
		activitymap.WithDefaultChannel("latchd"),
	)
	return nil
}

func WithHTTPServer(ctx context.Context, app *App) error {
	views, err := fs.Sub(viewsFS, "views")
	if err != nil {
		return fmt.Errorf("unable to scope embedded templates: %w", err)
	}

	engine := django.NewFileSystem(http.FS(views), ".html")

	metrics := promhttp.HandlerFor(app.registry, promhttp.HandlerOpts{})

	app.srv = router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		fa := fiber.New(fiber.Config{
			UnescapePath:      true,
			StrictRouting:     false,
			PassLocalsToViews: true,
			Views:             engine,
		})

		fa.Get("/metrics", adaptor.HTTPHandler(metrics))

		fa.Use(csrf.New(csrf.Config{
			KeyLookup:      "form:csrf_token",
			CookieName:     "latch_csrf",
			CookieSameSite: "Lax",
			CookieHTTPOnly: true,
			Expiration:     time.Hour,
			ContextKey:     "csrf",
		}))

		return router.DefaultFiberOptions(fa)
	})

	return nil
}

func WithHTTPAuth(ctx context.Context, app *App) error {
	cfg := app.config

	metrics, err := latch.NewPrometheusMetrics(app.registry)
	if err != nil {
		return err
	}

	records := app.repo.Pairings()

	userProvider := latch.NewUserProvider(latch.NewUserTracker(app.repo.Users()))
	userProvider.WithLoggerProvider(app.logs)

	app.provider = latch.NewLatchedIdentityProvider(userProvider, nil, records).
		WithOutagePolicy(cfg.OutagePolicy()).
		WithMetrics(metrics).
		WithActivitySink(app.sink).
		WithLoggerProvider(app.logs)

	tokens := latch.NewTokenService([]byte(cfg.SessionSecret), cfg.SessionTTL, "latchd")

	auther := latch.NewAuthenticator(app.provider, tokens).
		WithActivitySink(app.sink).
		WithLoggerProvider(app.logs)

	httpAuth := latch.NewRouteAuthenticator(auther, latch.RouteAuthConfig{
		SessionTTL: cfg.SessionTTL,
		Logger:     app.GetLogger("latch.http"),
	})

	app.session = latch.NewSessionMiddleware(latch.SessionConfig{
		Tokens: tokens,
		Logger: app.GetLogger("latch.session"),
	})

	r := app.srv.Router()
	r.Use(httpAuth.ErrorMiddleware(), app.session)

	app.gate = latch.NewGate(records, latch.GateConfig{Logger: app.GetLogger("latch.gate")})

	r.Get(latch.DefaultLoginURL, httpAuth.LoginShow).SetName("sign-in.get")
	r.Post(latch.DefaultLoginURL, httpAuth.LoginPost).SetName("sign-in.post")
	r.Post("/logout", httpAuth.Logout, latch.RequireAuthenticated(app.gate)).SetName("sign-out.post")

	r.Get("/", func(ctx router.Context) error {
		claims, _ := ctx.Locals(latch.DefaultContextKey).(*latch.SessionClaims)
		paired, err := records.ExistsForUser(ctx.Context(), claims.GetUserID())
		if err != nil {
			return err
		}
		return ctx.Render("home", router.ViewContext{
			"username": claims.Username,
			"paired":   paired,
		})
	}, latch.RequireAuthenticated(app.gate)).SetName("home")

	return nil
}

// WithLatchRoutes registers the pairing routes once the client exists
func WithLatchRoutes(ctx context.Context, app *App) error {
	records := app.repo.Pairings()
	app.throttle = latch.NewPairingThrottle(app.config.PairRatePerMinute, 0)

	latch.RegisterLatchRoutes(app.srv.Router(),
		latch.WithGate(app.gate),
		latch.WithPairer(latch.NewPairer(app.api, records).
			WithActivitySink(app.sink).
			WithLoggerProvider(app.logs)),
		latch.WithUnpairer(latch.NewUnpairer(app.api, records).
			WithActivitySink(app.sink).
			WithLoggerProvider(app.logs)),
		latch.WithStatusReporter(latch.NewStatusReporter(app.api, records).
			WithLogger(app.GetLogger("latch.status"))),
		latch.WithPairingThrottle(app.throttle),
		latch.WithControllerLogger(app.GetLogger("latch.controller")),
	)

	return nil
}

// WithChecks reports every wiring problem before the server starts
func WithChecks(ctx context.Context, app *App) error {
	messages := latch.RunChecks(latch.CheckTarget{
		DB:                app.bunDB,
		Providers:         []latch.IdentityProvider{app.provider},
		SessionMiddleware: app.session,
		AppID:             app.config.LatchAppID,
		SecretKey:         app.config.LatchSecretKey,
		Backend:           app.config.LatchHTTPBackend,
	})

	lgr := app.GetLogger("checks")
	for _, msg := range messages {
		lgr.Error("system check failed", "id", msg.ID, "message", msg.Message, "hint", msg.Hint)
	}
	return messages.Err()
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
