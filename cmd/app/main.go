package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"trivia_duel/internal/cache"
	"trivia_duel/internal/config"
	"trivia_duel/internal/db"
	"trivia_duel/internal/events"
	httpServer "trivia_duel/internal/http"
	"trivia_duel/internal/http/handlers"
	"trivia_duel/internal/http/middleware"
	"trivia_duel/internal/logger"
	"trivia_duel/internal/repository"
	"trivia_duel/internal/service"
	"trivia_duel/internal/ws"

	"github.com/gin-gonic/gin"
)

// Version устанавливается при сборке
var Version = "dev"

func main() {
	cfg := config.Load()

	logger.Init(cfg.LogLevel, cfg.LogJSON)
	log := logger.Get()

	if cfg.JWTSecret == "" {
		logger.Fatal("JWT_SECRET is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool := db.Connect(cfg.DatabaseURL)
	defer dbPool.Close()
	if err := db.Migrate(ctx, dbPool); err != nil {
		logger.Fatal("migration failed", "error", err)
	}

	// банк вопросов
	var pool service.QuestionPool
	switch cfg.QuestionPoolDriver {
	case "sqlite":
		sq, err := repository.OpenSQLiteQuestions(cfg.QuestionPoolDSN)
		if err != nil {
			logger.Fatal("failed to open sqlite question pool", "error", err)
		}
		defer sq.Close()
		pool = sq
	case "postgres", "":
		pool = repository.NewQuestionRepository(dbPool)
	default:
		logger.Fatal("unknown QUESTION_POOL_DRIVER", "driver", cfg.QuestionPoolDriver)
	}

	// история показов: redis поверх postgres, если redis настроен
	var exposure service.ExposureStore = repository.NewExposureRepository(dbPool)
	var limiter middleware.Limiter
	if cfg.RedisAddr != "" {
		rc := cache.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer rc.Close()
		if err := rc.Ping(ctx); err != nil {
			log.Warn("redis unavailable, using postgres only", "addr", cfg.RedisAddr, "error", err)
		} else {
			exposure = cache.NewExposureCache(rc, repository.NewExposureRepository(dbPool))
			limiter = rc
			log.Info("redis connected", "addr", cfg.RedisAddr)
		}
	}

	var publisher service.EventPublisher = events.NoopPublisher{}
	if cfg.RabbitURL != "" {
		p, err := events.NewPublisher(cfg.RabbitURL)
		if err != nil {
			log.Warn("rabbitmq unavailable, match events disabled", "error", err)
		} else {
			defer p.Close()
			publisher = p
		}
	}

	audit := service.NewAuditService(repository.NewAuditRepository(dbPool))
	matches := repository.NewMatchRepository(dbPool)
	progress := repository.NewProgressRepository(dbPool)

	settler := service.NewSettler(progress, matches, audit, publisher, cfg.Rewards, cfg.Settle.MaxAttempts)
	sched, err := settler.StartRetryScheduler(cfg.Settle.RetryInterval)
	if err != nil {
		logger.Fatal("failed to start settlement scheduler", "error", err)
	}

	selector := service.NewSelector(pool, exposure)
	hub := ws.NewHub(selector, settler, audit, cfg.Match, cfg.Categories)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	httpServer.RegisterRoutes(r, handlers.New(matches, progress, hub), hub, limiter, httpServer.RouterConfig{
		JWTSecret:     cfg.JWTSecret,
		AllowedOrigin: cfg.AllowedOrigin,
		RateLimit:     cfg.RateLimit,
		Version:       Version,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}

	go func() {
		log.Info("server started", "port", cfg.AppPort, "version", Version, "question_pool", cfg.QuestionPoolDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}
	hub.Shutdown()

	if err := sched.Shutdown(); err != nil {
		log.Warn("scheduler shutdown", "error", err)
	}
	// последняя попытка доначислить отложенные матчи
	settler.RetryPending(shutdownCtx)
	if n := settler.Pending(); n > 0 {
		log.Error("unsettled matches lost on shutdown", "count", n)
	}

	log.Info("server exited")
}
