package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/playzone-reservation/internal/announce"
	"github.com/iliyamo/playzone-reservation/internal/config"
	"github.com/iliyamo/playzone-reservation/internal/database"
	"github.com/iliyamo/playzone-reservation/internal/handler"
	"github.com/iliyamo/playzone-reservation/internal/jobs"
	"github.com/iliyamo/playzone-reservation/internal/lifecycle"
	"github.com/iliyamo/playzone-reservation/internal/logging"
	"github.com/iliyamo/playzone-reservation/internal/middleware"
	"github.com/iliyamo/playzone-reservation/internal/queue"
	"github.com/iliyamo/playzone-reservation/internal/repository"
	"github.com/iliyamo/playzone-reservation/internal/router"
	"github.com/iliyamo/playzone-reservation/internal/service"
	"github.com/iliyamo/playzone-reservation/internal/storage"
	"github.com/iliyamo/playzone-reservation/internal/tts"
	"github.com/iliyamo/playzone-reservation/internal/voice"
)

func main() {
	cfg := config.Load()
	logging.Init(cfg.Env, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("open database")
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}

	ttsCfg := config.LoadTTSConfig()
	store := openStore(ctx, config.LoadStorageConfig())

	var hot tts.HotCache
	if rdb != nil {
		hot = tts.NewRedisHotCache(rdb, ttsCfg.HotCachePrefix, ttsCfg.HotCacheTTL)
	}
	cache := tts.New(repository.NewTTSCacheRepo(db), hot, store, voice.NewClient(ttsCfg), tts.Options{
		Voices:  ttsCfg.Voices,
		Timeout: ttsCfg.Timeout,
		Ext:     ttsCfg.Format,
	})
	announcer := announce.NewService(announce.NewTemplateStore(repository.NewSettingsRepo(db)), cache)

	brokerURL := config.BrokerURL()
	reservations := repository.NewReservationRepo(db)
	machine := lifecycle.New(reservations, service.NewPublisher(brokerURL))

	runner, err := jobs.Start(ctx, config.LoadJobsConfig(), machine)
	if err != nil {
		logrus.WithError(err).Fatal("start background jobs")
	}
	defer func() {
		if err := runner.Shutdown(); err != nil {
			logrus.WithError(err).Warn("jobs shutdown")
		}
	}()

	if cfg.EventLog {
		consumer := queue.NewLogConsumer(brokerURL, cfg.EventLogDir)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logrus.WithError(err).Warn("event log consumer stopped")
			}
		}()
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(logging.EchoMiddleware())

	router.RegisterRoutes(e)
	router.RegisterAPI(e, router.Handlers{
		Auth: handler.NewAuthHandler(cfg, repository.NewUserRepo(db)),
		Reservations: handler.NewReservationHandler(
			reservations,
			repository.NewCustomerRepo(db),
			repository.NewPlaytimeRepo(db),
			machine,
		),
		Announcements: handler.NewAnnouncementHandler(announcer),
		Playtime:      handler.NewPlaytimeHandler(repository.NewPlaytimeRepo(db)),
	}, cfg.JWTSecret, middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	addr := ":" + cfg.Port
	go func() {
		logrus.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("http server")
		}
	}()

	<-ctx.Done()
	logrus.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("http shutdown")
	}
}

// openStore returns the S3 store when a bucket is configured and an
// in-memory store otherwise.
func openStore(ctx context.Context, cfg config.StorageConfig) storage.Store {
	if cfg.Bucket == "" {
		logrus.Warn("S3_AUDIO_BUCKET not set; synthesized audio is kept in memory")
		return storage.NewMemoryStore("memory://" + cfg.Prefix)
	}
	s3, err := storage.NewS3Store(ctx, cfg)
	if err != nil {
		logrus.WithError(err).Fatal("open audio storage")
	}
	return s3
}
