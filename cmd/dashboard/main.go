package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"pawboard/internal/config"
	"pawboard/internal/dashboard"
	"pawboard/internal/daycareapi"
	"pawboard/internal/export"
	"pawboard/internal/metrics"
	"pawboard/internal/poller"
	"pawboard/internal/server"
	"pawboard/internal/store"
)

func main() {
	_ = godotenv.Load()

	// Initialize logger
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("PAWBOARD_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	if cfg.API.BaseURL == "" {
		logger.Fatal().Msg("set api.base_url in config")
	}

	snapshots, err := store.Open(cfg.Snapshots.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("open snapshot db error")
	}
	defer snapshots.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if pruned, err := snapshots.Prune(ctx, cfg.SnapshotRetention()); err != nil {
		logger.Warn().Err(err).Msg("prune snapshots")
	} else if pruned > 0 {
		logger.Info().Int64("pruned", pruned).Msg("old snapshots removed")
	}

	client := daycareapi.New(cfg.API.BaseURL, cfg.API.APIKey)
	var rdb *redis.Client
	if cfg.Redis.Enabled && cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		client.UseRedisCache(rdb, cfg.CacheTTL())
	}

	var renderer dashboard.Renderer
	if cfg.Export.SpreadsheetID != "" {
		publisher, err := export.NewSheetsPublisher(ctx, cfg.Export.SpreadsheetID, cfg.Export.CredentialsFile, cfg.Export.SheetName)
		if err != nil {
			logger.Fatal().Err(err).Msg("create sheets publisher error")
		}
		renderer = &sheetsRenderer{publisher: publisher, logger: &logger}
	}

	controller := dashboard.New(client, client, confirmedUpstream{}, renderer, snapshots, &logger)
	controller.WarmStart(ctx)
	go func() {
		if err := controller.Refresh(ctx); err != nil {
			logger.Warn().Err(err).Msg("initial refresh failed")
		}
	}()

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, snapshots, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	if cfg.Poller.Enabled {
		p := poller.New(poller.Config{Interval: cfg.PollInterval(), Burst: cfg.Poller.BurstLimit}, controller, &logger)
		go p.Start(ctx)
	}

	api := server.NewHTTPServer(controller, &logger)
	srv := &http.Server{Addr: cfg.Server.Address, Handler: api.Handler()}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()

	logger.Info().Str("address", cfg.Server.Address).Msg("dashboard started")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("api server error")
	}
}

// confirmedUpstream satisfies the controller's confirmation gate for the
// HTTP surface: every request already carries an explicit confirmed flag the
// handlers enforce before calling the controller.
type confirmedUpstream struct{}

func (confirmedUpstream) Confirm(string) bool { return true }

// sheetsRenderer mirrors each published invoice pane into Google Sheets.
type sheetsRenderer struct {
	publisher *export.SheetsPublisher
	logger    *zerolog.Logger
}

func (r *sheetsRenderer) Render(vm dashboard.ViewModel) {
	if vm.Invoices.WeekStart == "" || vm.Invoices.Stale {
		return
	}
	weekStart, err := time.Parse("2006-01-02", vm.Invoices.WeekStart)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := r.publisher.PublishWeek(ctx, weekStart, vm.Invoices.Rows, vm.Invoices.Summary); err != nil {
		r.logger.Warn().Err(err).Str("week_start", vm.Invoices.WeekStart).Msg("sheets publish failed")
	}
}

func startHealthServer(ctx context.Context, port int, snapshots *store.SnapshotStore, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := snapshots.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
