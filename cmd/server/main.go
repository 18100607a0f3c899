package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/mvoronin/learnhub/internal/cache"
	"github.com/mvoronin/learnhub/internal/config"
	"github.com/mvoronin/learnhub/internal/db"
	"github.com/mvoronin/learnhub/internal/es"
	"github.com/mvoronin/learnhub/internal/handlers"
	"github.com/mvoronin/learnhub/internal/httpserver"
	"github.com/mvoronin/learnhub/internal/logging"
	"github.com/mvoronin/learnhub/internal/mail"
	authmw "github.com/mvoronin/learnhub/internal/middleware/auth"
	loggingmw "github.com/mvoronin/learnhub/internal/middleware/logging"
	"github.com/mvoronin/learnhub/internal/mykafka"
	"github.com/mvoronin/learnhub/internal/session"
	"github.com/mvoronin/learnhub/internal/tokens"

	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	cfg.MustValidate()

	logger := logging.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gormDB, err := db.Open(ctx, cfg.DatabaseDSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	if err := db.Migrate(gormDB); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	sessions := session.NewStoreWithClient(redisClient)
	if err := sessions.Ping(ctx); err != nil {
		log.Fatalf("redis: %v", err)
	}
	courseCache := cache.NewCourseCache(redisClient, cache.DefaultTTL)

	var searchClient *elasticsearch.Client
	if cfg.ES_URL != "" {
		searchClient, err = es.NewClient(cfg)
		if err != nil {
			logger.Warn("elasticsearch unavailable, search disabled", "error", err)
			searchClient = nil
		}
	}

	var producer *mykafka.Producer
	if cfg.KafkaAddress != "" {
		producer = mykafka.NewProducer(cfg.KafkaAddress)
		defer producer.Close()
	}

	var mailer handlers.Mailer
	if cfg.SMTPAddr != "" {
		mailer = mail.NewSMTPMailer(cfg.SMTPAddr, cfg.SMTPFrom)
	}

	issuer := &tokens.Issuer{
		AccessSecret:  cfg.JWTSecret,
		RefreshSecret: cfg.RefreshSecret,
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
	}

	gate := authmw.New(cfg.JWTSecret, sessions)

	deps := &httpserver.Deps{
		Auth: gate,
		AuthHandler: &handlers.AuthHandler{
			DB:           gormDB,
			Issuer:       issuer,
			Sessions:     sessions,
			Producer:     producer,
			Mailer:       mailer,
			CookieSecure: cfg.CookieSecure,
		},
		UserHandler: &handlers.UserHandler{
			DB:       gormDB,
			Sessions: sessions,
			Issuer:   issuer,
		},
		CourseHandler: &handlers.CourseHandler{
			DB:       gormDB,
			Cache:    courseCache,
			ES:       searchClient,
			Producer: producer,
		},
		SearchHandler:       &handlers.SearchHandler{ES: searchClient},
		OrderHandler:        &handlers.OrderHandler{DB: gormDB, Producer: producer, Mailer: mailer},
		NotificationHandler: &handlers.NotificationHandler{DB: gormDB},
		AnalyticsHandler:    &handlers.AnalyticsHandler{DB: gormDB},
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(loggingmw.RequestLogger(logger))
	httpserver.Register(e, deps)

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil {
			logger.Info("server stopped", "error", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
	if err := sessions.Close(); err != nil {
		logger.Error("redis close", "error", err)
	}
}
