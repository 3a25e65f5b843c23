package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/dgarridoc/citabot/internal/api/router"
	"github.com/dgarridoc/citabot/internal/appointments"
	"github.com/dgarridoc/citabot/internal/calendar"
	"github.com/dgarridoc/citabot/internal/chat"
	appconfig "github.com/dgarridoc/citabot/internal/config"
	"github.com/dgarridoc/citabot/internal/dialogue"
	"github.com/dgarridoc/citabot/internal/dispatch"
	"github.com/dgarridoc/citabot/internal/llm"
	"github.com/dgarridoc/citabot/internal/notify"
	"github.com/dgarridoc/citabot/internal/observability/metrics"
	"github.com/dgarridoc/citabot/internal/session"
	"github.com/dgarridoc/citabot/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.NewWithFormat(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting citabot API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("database unreachable", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer func() { _ = redisClient.Close() }()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Error("redis unreachable", "error", err, "addr", cfg.RedisAddr)
		os.Exit(1)
	}

	chatMetrics := metrics.NewChatMetrics(nil)

	client := buildLLMClient(ctx, cfg, logger)
	mirror := buildMirror(ctx, cfg, logger)

	var mail notify.EmailSender
	if sg := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger); sg != nil {
		mail = sg
	} else {
		logger.Warn("sendgrid not configured, confirmation emails will be logged only")
		mail = notify.NewStubEmailSender(logger)
	}

	repo := appointments.NewRepository(pool)

	dispatcher := dispatch.New(repo, mirror, mail, chatMetrics, logger)
	dispatcher.InviteAttendee = cfg.InviteAttendee

	manager := dialogue.NewManager(dispatcher, client, chatMetrics, logger, dialogue.Options{
		MaxTokens:   int32(cfg.LLMMaxTokens),
		Temperature: float32(cfg.LLMTemperature),
		DocLimit:    cfg.DocumentCharLimit,
	})

	var seed func(string) session.Identity
	if cfg.DefaultUserEmail != "" {
		seed = func(string) session.Identity {
			return session.Identity{Name: cfg.DefaultUserName, Email: cfg.DefaultUserEmail}
		}
	}
	registry := session.NewRegistry(seed)

	transcripts := chat.NewTranscriptStore(redisClient, cfg.TranscriptTTL)
	chatHandler := chat.NewHandler(manager, registry, transcripts, logger)

	r := router.New(&router.Config{
		Logger:             logger,
		ChatHandler:        chatHandler,
		AdminAppointments:  appointments.NewHandler(repo, mirror, logger),
		MetricsHandler:     promhttp.Handler(),
		JWTSecret:          cfg.JWTSecret,
		AdminAuthSecret:    cfg.AdminJWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// buildLLMClient wires the Gemini primary with an optional backup model.
// Without an API key the assistant runs on rules alone.
func buildLLMClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) llm.Client {
	if cfg.GeminiAPIKey == "" {
		logger.Warn("GEMINI_API_KEY not set, generative fallback disabled")
		return nil
	}
	primary, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
	if err != nil {
		logger.Error("failed to create gemini client", "error", err)
		os.Exit(1)
	}
	var backup llm.Client
	if cfg.GeminiBackupModelID != "" {
		b, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiBackupModelID)
		if err != nil {
			logger.Warn("failed to create backup gemini client", "error", err)
		} else {
			backup = b
		}
	}
	return llm.WithTimeout(llm.NewFallbackClient(primary, backup, logger), cfg.LLMTimeout)
}

// buildMirror returns the calendar mirror, falling back to the noop mirror
// when the calendar is disabled or the stored OAuth token cannot be loaded.
func buildMirror(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) calendar.Mirror {
	if cfg.CalendarDisabled {
		logger.Info("calendar mirroring disabled")
		return calendar.NoopMirror{}
	}
	mirror, err := calendar.NewGoogleMirror(ctx, calendar.Options{
		CalendarID:   cfg.CalendarID,
		Timezone:     cfg.CalendarTimezone,
		TokenFile:    cfg.CalendarTokenFile,
		ClientID:     cfg.CalendarClientID,
		ClientSecret: cfg.CalendarClientSecret,
		Duration:     time.Duration(cfg.EventDurationMinutes) * time.Minute,
	}, logger)
	if err != nil {
		logger.Warn("calendar mirror unavailable, bookings will not be mirrored", "error", err)
		return calendar.NoopMirror{}
	}
	return mirror
}
