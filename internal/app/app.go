package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"baz-car-admin/internal/cache"
	"baz-car-admin/internal/config"
	"baz-car-admin/internal/database"
	"baz-car-admin/internal/event"
	"baz-car-admin/internal/handler"
	"baz-car-admin/internal/middleware"
	"baz-car-admin/internal/queue"
	"baz-car-admin/internal/repository"
	"baz-car-admin/internal/router"
	"baz-car-admin/internal/service"
	"baz-car-admin/internal/storage"
)

const Version = "1.0.0"

type App struct {
	server       *http.Server
	workers      sync.WaitGroup
	cancel       context.CancelFunc
	cleanupFuncs []func()
}

func New(cfg config.Config) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())
	a := &App{cancel: cancel}

	fail := func(err error) (*App, error) {
		a.shutdownWorkers()
		return nil, err
	}

	dbPath, err := cfg.DatabasePath()
	if err != nil {
		return fail(err)
	}

	db, err := database.New(ctx, dbPath)
	if err != nil {
		return fail(fmt.Errorf("failed to open database: %w", err))
	}
	a.cleanupFuncs = append(a.cleanupFuncs, func() { _ = db.Close() })

	if err := db.Migrate(); err != nil {
		return fail(fmt.Errorf("failed to migrate database: %w", err))
	}

	userRepo := repository.NewUserRepository(db.SQL)
	tokenRepo := repository.NewTokenRepository(db.SQL)
	carRepo := repository.NewCarRepository(db.SQL)
	addonRepo := repository.NewAdditionalServiceRepository(db.SQL)

	if n, err := tokenRepo.CleanExpired(ctx, time.Now().UTC()); err != nil {
		slog.Warn("failed to clean expired refresh tokens", "error", err)
	} else if n > 0 {
		slog.Info("expired refresh tokens removed", "count", n)
	}

	store, err := storage.New(cfg.UploadDir)
	if err != nil {
		return fail(fmt.Errorf("failed to initialize upload storage: %w", err))
	}

	bus := event.NewBus()

	responseCache, err := cache.New(ctx, cfg.RedisURL, cfg.CachePrefix, cfg.CacheTTL)
	if err != nil {
		slog.Warn("response cache disabled", "error", err)
		responseCache = nil
	}
	if responseCache.Enabled() {
		a.cleanupFuncs = append(a.cleanupFuncs, func() { _ = responseCache.Close() })
		a.spawn(func() { responseCache.Run(ctx, bus) })
		slog.Info("response cache enabled", "ttl", cfg.CacheTTL)
	}

	if cfg.RabbitMQURL != "" {
		forwarder, dialErr := queue.Dial(cfg.RabbitMQURL, cfg.RabbitMQQueue)
		if dialErr != nil {
			slog.Warn("event forwarding disabled", "error", dialErr)
		} else {
			a.cleanupFuncs = append(a.cleanupFuncs, func() { _ = forwarder.Close() })
			a.spawn(func() { forwarder.Run(ctx, bus) })
			slog.Info("event forwarding enabled", "queue", cfg.RabbitMQQueue)
		}
	}

	fileService, err := service.NewFileService(store, cfg.TempRelDir(), cfg.MaxFileSize, cfg.AllowedMIMETypes, cfg.ThumbnailDir)
	if err != nil {
		return fail(fmt.Errorf("failed to initialize file service: %w", err))
	}

	authService := service.NewAuthService(userRepo, tokenRepo, cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)
	carService := service.NewCarService(carRepo, addonRepo, fileService, bus)
	addonService := service.NewAddonService(addonRepo, bus)
	bookingService := service.NewBookingService(carRepo, addonRepo, bus, cfg.WhatsAppNumber)

	appRouter := router.New(cfg, middleware.NewAuthMiddleware(authService), responseCache, router.Handlers{
		System:  handler.NewSystemHandler(Version),
		Auth:    handler.NewAuthHandler(authService),
		Cars:    handler.NewCarHandler(carService),
		Files:   handler.NewFileHandler(fileService, carService, cfg.MaxUploadRequestSize),
		Addons:  handler.NewAddonHandler(addonService),
		Booking: handler.NewBookingHandler(bookingService),
	})

	a.server = &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return a, nil
}

func (a *App) Run() error {
	go func() {
		slog.Info("server starting", "addr", a.server.Addr, "version", Version)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("server failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	shutdownErr := a.server.Shutdown(ctx)
	a.shutdownWorkers()

	if shutdownErr != nil {
		return fmt.Errorf("graceful shutdown failed: %w", shutdownErr)
	}

	slog.Info("server stopped")
	return nil
}

func (a *App) spawn(fn func()) {
	a.workers.Add(1)
	go func() {
		defer a.workers.Done()
		fn()
	}()
}

// shutdownWorkers stops background consumers and releases resources in
// reverse order of acquisition.
func (a *App) shutdownWorkers() {
	a.cancel()
	a.workers.Wait()

	for i := len(a.cleanupFuncs) - 1; i >= 0; i-- {
		a.cleanupFuncs[i]()
	}
	a.cleanupFuncs = nil
}
