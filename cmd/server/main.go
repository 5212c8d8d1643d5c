package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/openclaw/checkin-kiosk-go/internal/biometric"
	"github.com/openclaw/checkin-kiosk-go/internal/chatsession"
	"github.com/openclaw/checkin-kiosk-go/internal/completion"
	"github.com/openclaw/checkin-kiosk-go/internal/config"
	"github.com/openclaw/checkin-kiosk-go/internal/database"
	"github.com/openclaw/checkin-kiosk-go/internal/handler"
	"github.com/openclaw/checkin-kiosk-go/internal/jobs"
	"github.com/openclaw/checkin-kiosk-go/internal/middleware"
	"github.com/openclaw/checkin-kiosk-go/internal/prompt"
	"github.com/openclaw/checkin-kiosk-go/internal/redis"
	"github.com/openclaw/checkin-kiosk-go/internal/repository"
	"github.com/openclaw/checkin-kiosk-go/internal/service"
	"github.com/openclaw/checkin-kiosk-go/internal/sse"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := os.Getenv("FLY_APP_NAME") != ""
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()

	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to apply migrations")
	}
	log.Info().Msg("database connected")

	redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	faces := biometric.NewClient(cfg.BiometricBaseURL, cfg.BiometricAPIKey, cfg.BiometricTimeout())
	healthCtx, healthCancel := context.WithTimeout(ctx, cfg.BiometricTimeout())
	if err := faces.Health(healthCtx); err != nil {
		// Face check-in degrades to service_unavailable; manual lookup still works.
		log.Warn().Err(err).Str("baseUrl", cfg.BiometricBaseURL).Msg("biometric gateway not healthy at startup")
	}
	healthCancel()

	var completer completion.Completer = completion.Disabled{}
	completionClient, err := completion.New(completion.Config{
		BaseURL:    cfg.CompletionBaseURL,
		APIKey:     cfg.CompletionAPIKey,
		Model:      cfg.CompletionModel,
		Timeout:    cfg.CompletionTimeout(),
		RatePerSec: cfg.CompletionRatePerSec,
	})
	switch {
	case errors.Is(err, completion.ErrDisabled):
		log.Warn().Msg("COMPLETION_API_KEY not set: kiosk chat answers service unavailable")
	case err != nil:
		log.Fatal().Err(err).Msg("failed to create completion client")
	default:
		completer = completionClient
	}

	var sessions chatsession.Store
	switch cfg.ChatSessionBackend {
	case config.SessionBackendRedis:
		sessions = chatsession.NewRedisStore(redisClient.Client, cfg.ChatSessionTTL())
	default:
		sessions = chatsession.NewMemoryStore(cfg.ChatSessionTTL())
	}
	log.Info().
		Str("backend", cfg.ChatSessionBackend).
		Dur("ttl", cfg.ChatSessionTTL()).
		Msg("chat session store ready")

	guestRepo := repository.NewGuestRepository(db.DB)
	eventRepo := repository.NewEventRepository(db.DB)
	activityRepo := repository.NewActivityLogRepository(db.DB)

	broker := sse.NewBroker(redisClient)
	defer broker.Close()

	checkInService := service.NewCheckInService(db, guestRepo, activityRepo, broker)
	identityService := service.NewIdentityService(faces, guestRepo, eventRepo, checkInService, service.IdentityConfig{
		MinScore:       cfg.FaceMinScore,
		EnforceQuality: cfg.FaceEnforceQuality,
	})
	enrollmentService := service.NewEnrollmentService(faces, db, guestRepo, activityRepo)
	chatService := service.NewChatService(sessions, completer, prompt.NewBuilder(cfg.VenueName), guestRepo, eventRepo)

	var kioskLimiter middleware.Limiter
	switch cfg.RateLimitBackend {
	case config.SessionBackendMemory:
		kioskLimiter = middleware.NewMemoryRateLimiter(config.KioskRateLimitWindow)
	default:
		kioskLimiter = middleware.NewRedisRateLimiter(redisClient.Client, config.KioskRateLimitWindow)
	}
	kioskRateLimit := middleware.NewIPRateLimitMiddleware(kioskLimiter, cfg.KioskRateLimitPerMin, "kiosk")
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(config.KioskMaxBodySize)
	securityHeadersMiddleware := middleware.NewSecurityHeadersMiddleware(isProduction)

	kioskHandler := handler.NewKioskHandler(identityService, checkInService, enrollmentService)
	chatHandler := handler.NewChatHandler(chatService)
	eventsHandler := handler.NewEventsHandler(broker, activityRepo)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(bodyLimitMiddleware.Handler)

	r.Method(http.MethodGet, "/health", handler.NewHealthHandler(broker.TotalClients,
		handler.HealthCheck{Name: "database", Critical: true, Check: db.Ready},
		handler.HealthCheck{Name: "redis", Critical: true, Check: redisClient.Ready},
		handler.HealthCheck{Name: "biometric", Check: faces.Health},
	))

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1/kiosk", func(r chi.Router) {
		r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
		r.Use(securityHeadersMiddleware.Handler)
		r.Use(kioskRateLimit.Handler)

		kiosk := kioskHandler.Routes()
		kiosk.Post("/chat", chatHandler.Chat)
		r.Mount("/", kiosk)
	})

	r.Route("/v1/events/{eventID}", func(r chi.Router) {
		r.Use(securityHeadersMiddleware.Handler)
		r.With(chimiddleware.Timeout(config.ServerRequestTimeout)).Get("/activity", eventsHandler.Activity)
		// Long-lived; no request timeout.
		r.Get("/checkins/stream", eventsHandler.Stream)
	})

	sweepJob := jobs.NewSweepJob(sessions, cfg.ChatSweepInterval())
	sweepJob.Start()
	defer sweepJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
