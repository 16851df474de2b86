package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"roomsheet/internal/api"
	"roomsheet/internal/cache"
	"roomsheet/internal/config"
	"roomsheet/internal/domain"
	"roomsheet/internal/events"
	"roomsheet/internal/export"
	"roomsheet/internal/google"
	"roomsheet/internal/journal"
	"roomsheet/internal/logging"
	"roomsheet/internal/metrics"
	"roomsheet/internal/models"
	"roomsheet/internal/notify"
	"roomsheet/internal/service"
	"roomsheet/internal/sheet"
	"roomsheet/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	rooms, err := loadRooms(cfg, &logger)
	if err != nil {
		return err
	}

	if !cfg.API.Enabled {
		logger.Warn().Msg("API is disabled in config, but starting API application. Check your config.")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	googleClient, err := google.NewClient(ctx, cfg.Google)
	if err != nil {
		return fmt.Errorf("google client: %w", err)
	}
	csvFetcher := google.NewCSVFetcher(cfg.Google.SpreadsheetID)

	store, closeCache := initCache(cfg, &logger)
	defer closeCache()

	journalDB, err := journal.New(cfg.Journal.Path, &logger)
	if err != nil {
		return fmt.Errorf("init journal: %w", err)
	}
	defer journalDB.Close()

	loc := cfg.Sheet.Location()
	locator := sheet.NewLocator(csvFetcher, googleClient, cfg.Google.ProbeGIDs, loc, &logger)
	reader := sheet.NewReader(csvFetcher, googleClient, &logger)
	writer := sheet.NewWriter(googleClient, &logger)

	bus := events.NewEventBus()

	// The worker refreshes months through the facade, and the facade hands
	// tasks to the worker; the proxy breaks the construction cycle.
	refresher := &facadeRefresher{}
	tasks := worker.New(googleClient, refresher, journalDB, bus, worker.RetryPolicy{}, &logger)

	facade := service.NewFacade(service.Deps{
		Rooms:       rooms,
		Locator:     locator,
		Reader:      reader,
		Writer:      writer,
		URLs:        googleClient,
		Store:       store,
		Journal:     journalDB,
		Bus:         bus,
		Tasks:       tasks,
		Location:    loc,
		SettleDelay: cfg.Sheet.SettleDelay(),
	}, &logger)
	refresher.svc = facade

	notifier, err := notify.New(cfg.Notify, &logger)
	if err != nil {
		logger.Warn().Err(err).Msg("telegram notifier init failed, continuing without it")
	}
	notifier.Subscribe(bus)

	exporter := export.New(facade, facade, cfg.Exports, loc, &logger)

	httpServer := api.NewHTTPServer(cfg.API, api.Deps{
		Bookings:  facade,
		Schedules: facade,
		Journal:   journalDB,
		Exporter:  exporter,
		Version:   cfg.App.Version,
	}, &logger)

	pruner := journal.NewPruner(journalDB, cfg.Journal.RetentionDays, &logger)

	go tasks.Start(ctx)
	go pruner.Start(ctx)
	startMetrics(ctx, cfg, &logger)

	return startServer(ctx, httpServer, &logger)
}

// facadeRefresher forwards refresh requests to the facade once it exists.
type facadeRefresher struct {
	svc *service.Facade
}

func (r *facadeRefresher) RefreshMonth(ctx context.Context, year int, month time.Month) error {
	if r.svc == nil {
		return fmt.Errorf("service not ready")
	}
	return r.svc.RefreshMonth(ctx, year, month)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

// loadRooms overlays the room catalogue from a standalone file when one
// exists; otherwise the catalogue embedded in the main config is used.
func loadRooms(cfg *config.Config, logger *zerolog.Logger) ([]models.Room, error) {
	roomsPath := os.Getenv("ROOMS_PATH")
	if roomsPath == "" {
		roomsPath = "configs/rooms.yaml"
	}

	data, err := os.ReadFile(roomsPath)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Info().Str("rooms_path", roomsPath).Msg("rooms file absent, using configured catalogue")
			return cfg.Rooms, nil
		}
		return nil, fmt.Errorf("read rooms: %w", err)
	}

	var roomsConfig struct {
		Rooms []models.Room `yaml:"rooms"`
	}
	if err := yaml.Unmarshal(data, &roomsConfig); err != nil {
		return nil, fmt.Errorf("parse rooms: %w", err)
	}
	if len(roomsConfig.Rooms) == 0 {
		return cfg.Rooms, nil
	}
	if err := config.ValidateRooms(roomsConfig.Rooms); err != nil {
		return nil, fmt.Errorf("rooms file: %w", err)
	}

	logger.Info().Str("rooms_path", roomsPath).Int("rooms", len(roomsConfig.Rooms)).Msg("room catalogue loaded")
	return roomsConfig.Rooms, nil
}

func initCache(cfg *config.Config, logger *zerolog.Logger) (domain.Store, func()) {
	memory := cache.NewMemoryStore()
	if cfg.Redis.Address == "" {
		logger.Info().Msg("redis not configured, memory cache only")
		return memory, func() {}
	}

	client := cache.NewRedisClient(cfg.Redis)
	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing with memory cache")
		_ = client.Close()
		return memory, func() {}
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	primary := cache.NewRedisStore(client, cfg.Redis.CacheTTL())
	return cache.NewFailoverStore(primary, memory, logger), func() { _ = client.Close() }
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
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

func startServer(ctx context.Context, httpServer *api.HTTPServer, logger *zerolog.Logger) error {
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("server stopped")
	return nil
}
