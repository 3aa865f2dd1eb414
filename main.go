package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/expanova/cita-watcher/common"
	"github.com/expanova/cita-watcher/common/browser"
	"github.com/expanova/cita-watcher/common/config"
	"github.com/expanova/cita-watcher/common/constants"
	"github.com/expanova/cita-watcher/common/db"
	"github.com/expanova/cita-watcher/common/logger"
	"github.com/expanova/cita-watcher/common/messaging"
	"github.com/expanova/cita-watcher/common/ratelimit"
	"github.com/expanova/cita-watcher/common/redis"
	"github.com/expanova/cita-watcher/common/services"
	"github.com/expanova/cita-watcher/common/storage"
	"github.com/expanova/cita-watcher/notification"
	"github.com/expanova/cita-watcher/portals"
	"github.com/expanova/cita-watcher/watcher"

	"github.com/rs/zerolog/log"

	"github.com/joho/godotenv"

	_ "github.com/expanova/cita-watcher/docs"
)

// @title          Cita Watcher API
// @version        1.0
// @description    Watches Spanish government appointment portals and reports matching slots

// @host     localhost:8080
// @BasePath /v1
// @schemes  http https

// @securityDefinitions.apikey ApiKeyAuth
// @in                         header
// @name                       X-API-KEY

func main() {
	// INITIATE CONFIGURATION
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("Error loading .env file, using environment variables")
	}

	cfg := config.DefaultConfig()
	cfg.LoadFromEnv()
	logger.InitializeLogging(cfg.Log, nil)

	// Create a base context with cancel for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	server, err := NewAppHttpServer(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create the server")
	}

	var schedulerOpts []watcher.Option

	// INITIATE DATABASES
	var events services.EventService
	if cfg.PgSql.Enabled {
		dbConn, err := db.SetupDatabase(ctx, cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to setup database")
		}
		defer dbConn.Close()

		if err := services.EnsureSchema(ctx, dbConn.Pool); err != nil {
			log.Fatal().Err(err).Msg("Failed to ensure database schema")
		}

		events = services.NewEventRepository(dbConn.Pool)
		schedulerOpts = append(schedulerOpts, watcher.WithStore(services.NewWatcherRepository(dbConn.Pool)))

		// Persist warnings and errors as watcher events
		logger.InitializeLogging(cfg.Log, events)
		log.Info().Msg("Zerolog database hooks initialized")

		server.SetDB(dbConn)
		server.SetEventService(events)
	} else {
		log.Warn().Msg("PostgreSQL disabled, watchers will not survive a restart")
	}

	var sink logger.EventSink
	if events != nil {
		sink = events
	}
	schedulerOpts = append(schedulerOpts, watcher.WithEventLog(logger.NewLogService(sink)))

	// INITIATE REDIS
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(ctx, cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to setup Redis")
		}
		defer redisClient.Close()
		server.AddHealthCheck("redis", redisClient.Ping)

		if cfg.Watcher.PortalRateLimit {
			owner, _ := os.Hostname()
			schedulerOpts = append(schedulerOpts, watcher.WithPortalLimiter(ratelimit.NewRedisLimiter(redisClient, owner)))
			log.Info().Msg("Portal rate limit shared through Redis")
		}
	} else if cfg.Watcher.PortalRateLimit {
		schedulerOpts = append(schedulerOpts, watcher.WithPortalLimiter(ratelimit.NewMemoryLimiter()))
		log.Info().Msg("Portal rate limit kept in memory")
	}

	// INITIATE NATS CLIENT
	notifiers := notification.Multi{notification.LogNotifier{}}
	if cfg.Nats.Enabled {
		natsClient, err := messaging.SetupNatsBroker(ctx, cfg, constants.AppointmentFoundSubjects)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to setup NATS client")
		}
		defer natsClient.Close()
		server.AddHealthCheck("nats", func(context.Context) error { return natsClient.Ping() })

		notifiers = append(notifiers, notification.NewNatsNotifier(natsClient))
	} else {
		log.Warn().Msg("NATS disabled, appointment matches are only logged")
	}

	// gcs
	if cfg.GCS.Enabled {
		gcsStorage, err := storage.NewGCSStorage(ctx, cfg.GCS)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to setup GCS storage")
		}
		defer gcsStorage.Close()

		snapshots, err := storage.NewBucketStore(gcsStorage, cfg.GCS.Bucket)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to setup snapshot storage")
		}
		schedulerOpts = append(schedulerOpts, watcher.WithArtifactStore(snapshots))
	}

	// PORTALS
	registry := portals.DefaultRegistry()
	if cfg.Watcher.PortalsFile != "" {
		if err := portals.LoadFile(registry, cfg.Watcher.PortalsFile); err != nil {
			log.Fatal().Err(err).Str("file", cfg.Watcher.PortalsFile).Msg("Failed to load portal configuration")
		}
	}

	// BROWSER
	chromium := browser.NewRodBrowser(cfg.Browser)
	defer func() {
		if err := chromium.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close browser")
		}
	}()

	// SCHEDULER
	scheduler, err := watcher.NewScheduler(cfg, registry, chromium, notifiers, schedulerOpts...)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create scheduler")
	}
	if err := scheduler.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start scheduler")
	}

	server.SetScheduler(scheduler, registry)

	// Setup routes
	server.setupRoute()

	// Start server in a goroutine
	go func() {
		if err := server.start(); err != nil {
			log.Error().Err(err).Msg("Server error")
			shutdown <- syscall.SIGTERM
		}
	}()

	log.Info().Str("service", common.AppName).Str("address", cfg.Listen.Addr()).Msg("Server started successfully")
	log.Info().Str("swagger", fmt.Sprintf("http://%s/swagger/index.html", cfg.Listen.Addr())).Msg("Swagger documentation available at")

	// Wait for shutdown signal
	<-shutdown
	log.Info().Msg("Shutdown signal received")

	// Create a timeout context for graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	if err := scheduler.Close(); err != nil {
		log.Error().Err(err).Msg("Scheduler shutdown failed")
	}

	log.Info().Msg("Server gracefully stopped")
}
