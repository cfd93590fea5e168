package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"competitoriq-engine/internal/backend"
	"competitoriq-engine/internal/config"
	"competitoriq-engine/internal/digest"
	"competitoriq-engine/internal/events"
	"competitoriq-engine/internal/httpapi"
	"competitoriq-engine/internal/logger"
	"competitoriq-engine/internal/scheduler"
	"competitoriq-engine/internal/secrets"
	"competitoriq-engine/internal/store"
	"competitoriq-engine/internal/tracker"

	"github.com/gofrs/flock"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Engine data dir: the packaged UI passes one, local runs use the cwd.
	dataDir := os.Getenv("COMPETITORIQ_DATA_DIR")
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logger.New(os.Getenv("COMPETITORIQ_LOG_LEVEL"), os.Getenv("COMPETITORIQ_PRETTY_LOG") == "1")
	defer func() { _ = log.Sync() }()

	// One engine per data dir; a second instance would fight over the
	// sqlite cache and the UI port.
	lock := flock.New(filepath.Join(dataDir, "engine.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		log.Fatal("lock failed", zap.Error(err))
	}
	if !locked {
		log.Fatal("another engine instance holds the lock", zap.String("data_dir", dataDir))
	}
	defer func() { _ = lock.Unlock() }()

	defaultCfgPath := filepath.Join("config", "config.yml")
	userCfgPath, err := config.EnsureUserConfig(dataDir, defaultCfgPath)
	if err != nil {
		log.Fatal("config bootstrap failed", zap.Error(err))
	}

	var cfgVal atomic.Value // stores config.Config
	loadCfg := func() (config.Config, error) {
		cfg, err := config.Load(userCfgPath)
		if err != nil {
			return cfg, err
		}
		cfg, _ = config.NormalizeAndValidate(cfg)
		return cfg, nil
	}
	cfg, err := loadCfg()
	if err != nil {
		log.Fatal("config load failed", zap.String("path", userCfgPath), zap.Error(err))
	}
	cfgVal.Store(cfg)

	db, err := store.Open(filepath.Join(dataDir, "competitoriq.db"))
	if err != nil {
		log.Fatal("cache open failed", zap.Error(err))
	}
	defer db.Close()
	if err := store.Migrate(db.Pool); err != nil {
		log.Fatal("cache migrate failed", zap.Error(err))
	}

	hub := events.NewHub()

	userID := func() string {
		return cfgVal.Load().(config.Config).Caller.UserID
	}
	token := func() string {
		uid := userID()
		if uid == "" {
			return ""
		}
		tok, err := secrets.GetToken(secrets.TokenAccount(uid))
		if err != nil {
			return ""
		}
		return tok
	}

	limiter := backend.NewHostLimiter(cfg.Backend.RequestsPerSec, cfg.Backend.Burst)
	client := backend.New(
		cfg.Backend.BaseURL,
		time.Duration(cfg.Backend.TimeoutSeconds)*time.Second,
		limiter,
		token,
		log,
	)

	tr := tracker.New(client, db, hub, userID, log)
	agg := digest.NewAggregator(client, db, userID, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Seed from the offline cache, then refetch everything the dashboard
	// mounts with. Failures here are surfaced in the per-flow statuses,
	// not fatal.
	tr.Restore(ctx)
	agg.Restore(ctx)
	if userID() != "" {
		var g errgroup.Group
		g.Go(func() error { return tr.Refresh(ctx) })
		g.Go(func() error { return tr.LoadPreferences(ctx) })
		g.Go(func() error { return agg.Refresh(ctx) })
		if err := g.Wait(); err != nil {
			log.Warn("initial load incomplete", zap.Error(err))
		}
	}

	if cfg.Summaries.AutoRefresh {
		go scheduler.EveryDynamic(ctx, func() time.Duration {
			prefs, _ := tr.Preferences()
			return prefs.RefreshInterval()
		}, "summaries_refresh", log, func(ctx context.Context) error {
			if userID() == "" {
				return nil
			}
			if err := agg.Refresh(ctx); err != nil {
				return err
			}
			hub.PublishEvent("", events.TypeSummariesRefresh, map[string]any{"count": agg.Status().Count})
			return nil
		})
	}

	// Keep-alive ping so proxies and webviews don't reap idle SSE streams.
	go scheduler.Every(ctx, 30*time.Second, "sse_keepalive", log, func(ctx context.Context) error {
		hub.PublishEvent("", events.TypePing, nil)
		return nil
	})

	mux := httpapi.NewMux(httpapi.Deps{
		Tracker:     tr,
		Aggregator:  agg,
		Hub:         hub,
		Log:         log,
		CfgVal:      &cfgVal,
		UserCfgPath: userCfgPath,
		LoadCfg:     loadCfg,
	})
	handler := httpapi.Chain(mux,
		httpapi.RequestID,
		httpapi.Cors,
		httpapi.Recover(log),
		httpapi.AccessLog(log),
	)

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.App.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatal("listen failed", zap.String("addr", addr), zap.Error(err))
	}
	log.Info("engine listening", zap.String("addr", addr), zap.String("data_dir", dataDir))

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
	}()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("serve failed", zap.Error(err))
	}
}
