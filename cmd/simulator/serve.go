package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"site-monitor/simulator/internal/auth"
	"site-monitor/simulator/internal/config"
	"site-monitor/simulator/internal/engine"
	"site-monitor/simulator/internal/pipeline"
	"site-monitor/simulator/internal/simulation"
	"site-monitor/simulator/internal/store"
	transport "site-monitor/simulator/internal/transport/http"
	"site-monitor/simulator/internal/transport/ws"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the simulation with the dashboard API and live feed",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func newEngine(catalog *config.Catalog, seed uint64) *engine.Engine {
	opts := []engine.Option{engine.WithPolicy(catalog.Policy)}
	if seed != 0 {
		opts = append(opts, engine.WithSeed(seed))
	}
	return engine.New(opts...)
}

func serve(ctx context.Context) error {
	catalog, err := config.LoadCatalog(cfg.SitesFile)
	if err != nil {
		return err
	}

	var redisStore *store.RedisStore
	if cfg.RedisEnabled() {
		redisStore, err = store.NewRedisStore(ctx, cfg, catalog.Sites)
		if err != nil {
			return err
		}
		defer redisStore.Close()
		logger.Info("redis fan-out enabled", zap.String("addr", cfg.RedisAddr))
	}

	stateSize, alertSize := 0, 0
	if redisStore != nil {
		stateSize, alertSize = cfg.StateChannelSize, cfg.AlertChannelSize
	}
	dispatcher := pipeline.NewDispatcher(cfg.LiveChannelSize, stateSize, alertSize)

	mem := store.NewMemory(cfg.LogRetention, cfg.AlertRetention)
	runner, err := simulation.NewRunner(
		newEngine(catalog, cfg.Seed),
		mem,
		dispatcher,
		catalog.SiteNames(),
		cfg.TickInterval(),
		logger.Named("simulation"),
	)
	if err != nil {
		return err
	}

	var keys auth.KeyLookup
	if redisStore != nil {
		keys = redisStore
		runner.OnReset(func(ctx context.Context, sites []string) {
			if err := redisStore.ClearSites(ctx, sites); err != nil {
				logger.Warn("failed to clear live state", zap.Error(err))
			}
		})
	}
	authenticator := auth.NewAuthenticator(cfg, catalog, keys)
	hub := ws.NewHub(logger.Named("ws"))

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()
	var wg sync.WaitGroup
	spawn := func(run func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			run(workerCtx)
		}()
	}

	spawn(func(ctx context.Context) { hub.Run(ctx, dispatcher.LiveChan) })
	if redisStore != nil {
		spawn(pipeline.NewStateWriter(
			dispatcher.StateChan, redisStore, logger.Named("state_writer"),
			cfg.StateBatchSize, cfg.StateFlushIntervalMS,
		).Run)
		spawn(pipeline.NewAlertPublisher(dispatcher.AlertChan, redisStore, logger.Named("alert_publisher")).Run)
	}

	runCtx, stopRunner := context.WithCancel(context.Background())
	runnerDone := make(chan struct{})
	go func() {
		defer close(runnerDone)
		runner.Run(runCtx)
	}()

	if cfg.AutoStart {
		runner.Start()
	}

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           transport.NewServer(authenticator, runner, mem, hub, catalog.Sites, logger.Named("http")).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening",
			zap.String("addr", srv.Addr),
			zap.Strings("sites", catalog.SiteNames()),
			zap.Duration("interval", cfg.TickInterval()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown incomplete", zap.Error(err))
	}

	// Stop the ticker before closing the channels so nothing dispatches into
	// them; the workers then drain what is queued and exit on close.
	stopRunner()
	<-runnerDone
	dispatcher.Close()
	wg.Wait()

	if serveErr != nil {
		return fmt.Errorf("http server: %w", serveErr)
	}
	return nil
}
