package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"

	"treasurehunt/config"
	"treasurehunt/core"
	"treasurehunt/indexer"
	"treasurehunt/integrations/exports"
	"treasurehunt/integrations/webhooks"
	"treasurehunt/observability/logging"
	"treasurehunt/rpc"
	"treasurehunt/storage"
)

const (
	subscriptionBuffer = 256
	// Events dropped by a slow subscriber are recovered by the periodic resync.
	resyncInterval = 5 * time.Minute
)

// daemon owns every long-lived component of huntd.
type daemon struct {
	cfg    *config.Config
	logger *slog.Logger

	db       storage.Database
	receipts *storage.ReceiptStore
	node     *core.Node
	gdb      *gorm.DB
	indexer  *indexer.Indexer
	hooks    *webhooks.Dispatcher
	exporter *exports.Exporter
	sched    gocron.Scheduler
	server   *rpc.Server

	cancels []func()
	wg      sync.WaitGroup
}

func newDaemon(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *daemon, err error) {
	d := &daemon{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			d.close()
		}
	}()

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("prepare data dir: %w", err)
	}
	if d.db, err = storage.NewLevelDB(cfg.DataDir); err != nil {
		return nil, err
	}
	if d.receipts, err = storage.OpenReceiptStore(cfg.DataDir); err != nil {
		return nil, err
	}
	d.node, err = core.NewNode(d.db, d.receipts, core.Options{
		ChainID:               cfg.ChainID,
		ProximityRadiusMeters: cfg.Treasure.ProximityRadiusMeters,
		Logger:                logger,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("node ready",
		slog.String("chain_id", d.node.ChainID()),
		slog.Uint64("height", d.node.Height()),
		slog.Float64("proximity_radius_m", cfg.Treasure.ProximityRadiusMeters),
	)

	if cfg.Webhook.URL != "" {
		d.hooks, err = webhooks.NewDispatcher(cfg.Webhook.URL, []byte(cfg.Webhook.Secret), webhooks.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		logger.Info("webhooks enabled", logging.MaskField("webhook_secret", cfg.Webhook.Secret))
	}

	if cfg.Indexer.Enabled {
		if err := d.openIndexer(ctx); err != nil {
			return nil, err
		}
	}

	if d.sched, err = gocron.NewScheduler(); err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	if err := d.scheduleJobs(ctx); err != nil {
		return nil, err
	}

	var board rpc.Leaderboard
	if d.indexer != nil {
		board = d.indexer
	}
	d.server, err = rpc.NewServer(d.node, board, rpc.ServerConfig{
		Auth: rpc.AuthConfig{
			Enabled:    cfg.RPC.AuthEnabled(),
			HMACSecret: cfg.RPC.JWTSecret,
			Issuer:     cfg.RPC.JWTIssuer,
			Audience:   cfg.RPC.JWTAudience,
		},
		RateLimit: rpc.RateLimit{
			RequestsPerMinute: float64(cfg.RPC.RequestsPerMinute),
			Burst:             int(cfg.RPC.Burst),
		},
		ReadHeaderTimeout: time.Duration(cfg.RPC.ReadHeaderTimeout) * time.Second,
		ReadTimeout:       time.Duration(cfg.RPC.ReadTimeout) * time.Second,
		WriteTimeout:      time.Duration(cfg.RPC.WriteTimeout) * time.Second,
		IdleTimeout:       time.Duration(cfg.RPC.IdleTimeout) * time.Second,
	}, logger)
	if err != nil {
		return nil, err
	}
	if cfg.RPC.AuthEnabled() {
		logger.Info("rpc write auth enabled", logging.MaskField("jwt_secret", cfg.RPC.JWTSecret))
	}
	return d, nil
}

func (d *daemon) openIndexer(ctx context.Context) error {
	cfg := d.cfg.Indexer
	if cfg.Driver == "sqlite" {
		if err := os.MkdirAll(filepath.Dir(cfg.DSN), 0o755); err != nil {
			return fmt.Errorf("prepare indexer dir: %w", err)
		}
	}
	gdb, err := indexer.Open(indexer.Config{Driver: cfg.Driver, DSN: cfg.DSN})
	if err != nil {
		return err
	}
	d.gdb = gdb
	d.indexer = indexer.New(gdb, d.logger)
	d.logger.Info("indexer opened", slog.String("driver", cfg.Driver), slog.String("dsn", logging.MaskDSN(cfg.DSN)))

	// Subscribe before syncing so nothing committed in between is missed.
	events, cancel := d.node.Subscribe(subscriptionBuffer)
	d.cancels = append(d.cancels, cancel)
	if cfg.SyncOnStart {
		n, err := d.indexer.Sync(ctx, d.node)
		if err != nil {
			return fmt.Errorf("indexer sync: %w", err)
		}
		d.logger.Info("indexer synced", slog.Int("treasures", n))
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.indexer.Run(ctx, events)
	}()
	return nil
}

func (d *daemon) scheduleJobs(ctx context.Context) error {
	if d.indexer != nil {
		_, err := d.sched.NewJob(
			gocron.DurationJob(resyncInterval),
			gocron.NewTask(func() {
				if _, err := d.indexer.Sync(ctx, d.node); err != nil && ctx.Err() == nil {
					d.logger.Warn("indexer resync failed", slog.Any("error", err))
				}
			}),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return fmt.Errorf("schedule resync: %w", err)
		}
	}

	if d.cfg.Exports.Enabled {
		var notifier exports.Notifier
		if d.hooks != nil {
			notifier = d.hooks
		}
		exporter, err := exports.NewExporter(d.cfg.Exports.Dir, d.indexer, notifier, d.logger)
		if err != nil {
			return err
		}
		d.exporter = exporter
		interval := time.Duration(d.cfg.Exports.IntervalSeconds) * time.Second
		_, err = d.sched.NewJob(
			gocron.DurationJob(interval),
			gocron.NewTask(func() {
				if _, err := exporter.Run(ctx); err != nil && ctx.Err() == nil {
					d.logger.Warn("discovery export failed", slog.Any("error", err))
				}
			}),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return fmt.Errorf("schedule exports: %w", err)
		}
		d.logger.Info("exports scheduled", slog.String("dir", d.cfg.Exports.Dir), slog.Duration("interval", interval))
	}
	return nil
}

// run serves until ctx is cancelled, then shuts everything down.
func (d *daemon) run(ctx context.Context) error {
	listener, err := net.Listen("tcp", d.cfg.RPC.ListenAddress)
	if err != nil {
		d.close()
		return fmt.Errorf("listen %s: %w", d.cfg.RPC.ListenAddress, err)
	}
	return d.serve(ctx, listener)
}

func (d *daemon) serve(ctx context.Context, listener net.Listener) error {
	if d.hooks != nil {
		events, cancel := d.node.Subscribe(subscriptionBuffer)
		d.cancels = append(d.cancels, cancel)
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.hooks.Forward(ctx, events)
		}()
	}
	d.sched.Start()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- d.server.Serve(listener)
	}()
	d.logger.Info("huntd running", slog.String("listen", listener.Addr().String()))

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			runErr = err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := d.server.Shutdown(shutdownCtx); err != nil {
		d.logger.Warn("rpc shutdown", slog.Any("error", err))
	}
	d.close()
	d.logger.Info("huntd stopped")
	return runErr
}

// close releases components in reverse order of construction.
func (d *daemon) close() {
	if d.sched != nil {
		if err := d.sched.Shutdown(); err != nil {
			d.logger.Warn("scheduler shutdown", slog.Any("error", err))
		}
	}
	for _, cancel := range d.cancels {
		cancel()
	}
	d.cancels = nil
	d.wg.Wait()
	if d.hooks != nil {
		d.hooks.Close()
	}
	if d.gdb != nil {
		if sqlDB, err := d.gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if d.receipts != nil {
		_ = d.receipts.Close()
	}
	if d.db != nil {
		_ = d.db.Close()
	}
}
