// Package app wires configuration, the database, password stores, the
// account manager and the admin console together.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/acctmgr/internal/accounts"
	"github.com/dmitrijs2005/acctmgr/internal/cli"
	"github.com/dmitrijs2005/acctmgr/internal/config"
	"github.com/dmitrijs2005/acctmgr/internal/dbx"
	"github.com/dmitrijs2005/acctmgr/internal/guard"
	"github.com/dmitrijs2005/acctmgr/internal/logging"
	"github.com/dmitrijs2005/acctmgr/internal/metrics"
	"github.com/dmitrijs2005/acctmgr/internal/registration"
	"github.com/dmitrijs2005/acctmgr/internal/repositories/repomanager"
	"github.com/dmitrijs2005/acctmgr/internal/uidchange"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	manager *accounts.Manager
	guard   *guard.Guard
	metrics metrics.Recorder
}

// NewApp opens the database, applies migrations and builds the manager from
// c. The caller owns the returned App and must Close it.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	logger := logging.New(c.LogLevel)

	d, err := dbx.ParseDialect(c.DatabaseDriver)
	if err != nil {
		return nil, err
	}
	db, rm, err := repomanager.Open(ctx, d, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	app, err := build(ctx, c, db, rm, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return app, nil
}

func build(ctx context.Context, c *config.Config, db *sql.DB, rm repomanager.RepositoryManager, logger logging.Logger) (*App, error) {
	storeList, err := buildStores(ctx, c, db, rm, logger)
	if err != nil {
		return nil, err
	}

	changers, err := uidchange.FromNames(c.UIDChangers)
	if err != nil {
		return nil, err
	}
	engine := uidchange.NewEngine(db, rm, changers, logger.With("component", "uidchange"))

	rec := metrics.Init(c.MetricsAddr != "")

	opts := accounts.Options{
		IgnoreAuthCase:          c.IgnoreAuthCase,
		RefreshPasswd:           c.RefreshPasswd,
		ForcePasswdChange:       c.ForcePasswdChange,
		GeneratedPasswordLength: c.GeneratedPasswordLength,
		RegisterChecks:          c.RegisterChecks,
		Registration: registration.Settings{
			UsernameCharBlacklist: c.UsernameCharBlacklist,
			UsernameRegexp:        c.UsernameRegexp,
			EmailRegexp:           c.EmailRegexp,
			VerifyEmail:           c.VerifyEmail,
			BasicToken:            c.RegisterBasicToken,
		},
	}
	manager, err := accounts.New(db, rm, storeList, opts, logger,
		accounts.WithEngine(engine),
		accounts.WithMetrics(rec),
		accounts.WithListeners(accounts.LogListener{Log: logger}),
	)
	if err != nil {
		return nil, err
	}

	g := guard.New(db, rm, guard.Settings{
		MaxAttempts: c.LoginAttemptMaxCount,
		LockTime:    c.UserLockTime,
		LockMaxTime: c.UserLockMaxTime,
		Progression: c.UserLockTimeProgression,
	}, logger)

	return &App{config: c, logger: logger, db: db, manager: manager, guard: g, metrics: rec}, nil
}

func (app *App) Manager() *accounts.Manager { return app.manager }

func (app *App) Guard() *guard.Guard { return app.guard }

func (app *App) Close() error { return app.db.Close() }

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// startMetricsServer serves /metrics until ctx is done. It is a no-op when
// metrics are disabled.
func (app *App) startMetricsServer(ctx context.Context) {
	m, ok := app.metrics.(*metrics.Metrics)
	if !ok {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: app.config.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	app.logger.Info(ctx, "metrics listening", "addr", app.config.MetricsAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, "metrics server failed", "error", err)
	}
}

// Run starts the metrics endpoint and the admin console on in/out. It
// returns when the console exits or a termination signal arrives.
func (app *App) Run(ctx context.Context, in io.Reader, out io.Writer) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting account manager...")
	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startMetricsServer(ctx)
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		cli.New(app.manager, app.guard, in, out, app.logger).Run(ctx)
	}()

	// a console blocked on input cannot see the cancellation
	select {
	case <-done:
	case <-ctx.Done():
	}
	cancelFunc()
	wg.Wait()
}
