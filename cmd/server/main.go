package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/iliyamo/localmarket/internal/cache"
	"github.com/iliyamo/localmarket/internal/config"
	"github.com/iliyamo/localmarket/internal/database"
	"github.com/iliyamo/localmarket/internal/delivery"
	"github.com/iliyamo/localmarket/internal/discovery"
	"github.com/iliyamo/localmarket/internal/handler"
	"github.com/iliyamo/localmarket/internal/logging"
	"github.com/iliyamo/localmarket/internal/middleware"
	"github.com/iliyamo/localmarket/internal/queue"
	"github.com/iliyamo/localmarket/internal/repository"
	"github.com/iliyamo/localmarket/internal/router"
	"github.com/iliyamo/localmarket/internal/tracing"
)

const serviceName = "localmarket-discovery"

func main() {
	_ = godotenv.Load() // .env is optional

	cfg, err := config.Load()
	if err != nil {
		zlog.Fatal().Err(err).Msg("load config")
	}
	log := logging.Setup(serviceName, cfg.LogLevel, cfg.Env == "development")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(serviceName, cfg.Tracing.JaegerEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("init tracing")
	}

	db, err := database.Open(cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()
	gdb, err := database.Gorm(db)
	if err != nil {
		log.Fatal().Err(err).Msg("open gorm")
	}

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil {
		log.Warn().Str("addr", cfg.Redis.Address()).Msg("redis unreachable; cache and rate limiting disabled")
	} else {
		defer rdb.Close()
	}
	cacheRDB := rdb
	if !cfg.Cache.Enabled {
		cacheRDB = nil
	}
	cc := cache.NewClient(cacheRDB, cache.Options{
		Prefix:       cfg.Cache.Prefix,
		WriteTimeout: cfg.Cache.WriteTimeout,
		FetchTimeout: cfg.Cache.FetchTimeout,
		ScanCount:    cfg.Cache.ScanCount,
		Logger:       log,
	})
	invalidator := cache.NewInvalidator(cc)

	deliveryRepo := repository.NewDeliveryRepo(gdb)
	svc := discovery.NewService(repository.NewSpatialRepo(db), deliveryRepo, cc, discovery.Options{
		HomeTTL:         cfg.Cache.HomeTTL,
		PlacesTTL:       cfg.Cache.PlacesTTL,
		ZoneTTL:         cfg.Cache.ZoneTTL,
		Attempts:        cfg.Discovery.QueryAttempts,
		Backoff:         cfg.Discovery.RetryBackoff,
		DefaultRadiusKm: cfg.Discovery.DefaultRadiusKm,
		MaxRadiusKm:     cfg.Discovery.MaxRadiusKm,
		DefaultLimit:    cfg.Discovery.DefaultLimit,
		MaxLimit:        cfg.Discovery.MaxLimit,
	})
	engine := delivery.NewEngine(deliveryRepo, cfg.Location())

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(logging.RequestLogger(log))
	e.Use(echomw.Recover())

	router.RegisterRoutes(e, &handler.HealthHandler{DB: db, CacheEnabled: cc.Enabled()})
	router.RegisterPublic(e,
		handler.NewDiscoveryHandler(svc),
		handler.NewDeliveryHandler(engine),
		middleware.RateLimit(cfg.RateLimit, rdb),
	)
	router.RegisterAdmin(e, handler.NewAdminCacheHandler(invalidator), cfg.Auth.JWTSecret, cfg.Auth.AdminRole)

	consumerDone := make(chan struct{})
	if cfg.Queue.Enabled {
		consumer := queue.NewConsumer(cfg.Queue.URL, cfg.Queue.Exchange, cfg.Queue.Queue, invalidator, log)
		go func() {
			defer close(consumerDone)
			_ = consumer.Run(ctx)
		}()
	} else {
		close(consumerDone)
	}

	go func() {
		addr := ":" + cfg.Port
		log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdown(log, e, cc, consumerDone, shutdownTracing)
}

func shutdown(log zerolog.Logger, e *echo.Echo, cc *cache.Client, consumerDone <-chan struct{}, shutdownTracing func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	<-consumerDone
	cc.Wait()
	if err := shutdownTracing(ctx); err != nil {
		log.Error().Err(err).Msg("tracing shutdown")
	}
}
