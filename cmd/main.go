package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/robonova/competition-core/config"
	"github.com/robonova/competition-core/db"
	"github.com/robonova/competition-core/events"
	"github.com/robonova/competition-core/handlers"
	"github.com/robonova/competition-core/live"
	"github.com/robonova/competition-core/middleware"
	"github.com/robonova/competition-core/repositories"
	"github.com/robonova/competition-core/roster"
	api "github.com/robonova/competition-core/routes"
	"github.com/robonova/competition-core/scheduler"
	"github.com/robonova/competition-core/services"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		}
	}()
	logger.Info("database connection established")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Repositories.
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	seedingRepo := repositories.NewPostgresSeedingRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	sessionRepo := repositories.NewPostgresSessionRepository(dbConn)
	scoreRepo := repositories.NewPostgresScoreRepository(dbConn)
	standingRepo := repositories.NewPostgresStandingRepository(dbConn)
	scheduleRepo := repositories.NewPostgresScheduleRepository(dbConn)
	conflictRepo := repositories.NewPostgresConflictRepository(dbConn)
	logger.Info("repositories initialized")

	// Ports to the registration service, which owns teams, judges and
	// rubrics.
	rosterClient := roster.NewClient(cfg.RegistrationURL)

	// Event bus and live hub.
	bus := events.NewBus(logger)
	defer func() {
		if err := bus.Close(); err != nil {
			logger.Error("bus close failed", slog.Any("error", err))
		}
	}()

	// Services that do not need the hub snapshot.
	books := services.NewBooks()
	tournamentService := services.NewTournamentService(tournamentRepo, logger)
	seedingService := services.NewSeedingService(tournamentRepo, seedingRepo, rosterClient, logger)
	standingsService := services.NewStandingsService(standingRepo, matchRepo, scoreRepo, seedingRepo, bus, logger)
	bracketService := services.NewBracketService(dbConn, tournamentRepo, seedingRepo, matchRepo, standingsService, bus, logger)
	scheduleService := services.NewScheduleService(scheduleRepo, matchRepo, rosterClient, scheduler.New(cfg.MinTeamBuffer), logger)
	sessionService := services.NewSessionService(
		sessionRepo, tournamentRepo, matchRepo, scoreRepo, rosterClient, books,
		standingsService, bus, cfg.SessionIdleTimeout, logger)
	scoringService := services.NewScoringService(
		sessionRepo, tournamentRepo, scoreRepo, conflictRepo, rosterClient, rosterClient,
		books, bus, cfg.MinorConflictPercent, logger)
	logger.Info("services initialized")

	// The hub resyncs stale clients with a snapshot when the requested
	// sequence has left the retention window.
	snapshot := func(ctx context.Context, topic string, redacted bool) (json.RawMessage, error) {
		switch {
		case strings.HasPrefix(topic, "session:"):
			var sessionID int
			if _, err := fmt.Sscanf(topic, "session:%d", &sessionID); err != nil {
				return nil, err
			}
			agg, err := scoringService.Aggregate(ctx, sessionID)
			if err != nil {
				return nil, err
			}
			if redacted {
				agg = agg.Redacted()
			}
			return json.Marshal(agg)
		case strings.HasPrefix(topic, "tournament:"):
			var tournamentID int
			if _, err := fmt.Sscanf(topic, "tournament:%d", &tournamentID); err != nil {
				return nil, err
			}
			standings, err := standingsService.List(ctx, tournamentID, 0, 0)
			if err != nil {
				return nil, err
			}
			return json.Marshal(standings)
		default:
			return nil, fmt.Errorf("unknown topic %q", topic)
		}
	}

	hub := live.NewHub(cfg.HubRetention, snapshot, logger)
	go hub.Run(ctx)
	logger.Info("live hub started", slog.Int("retention", cfg.HubRetention))

	go func() {
		if err := events.RunForwarder(ctx, bus, hub, logger); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("delta forwarder stopped", slog.Any("error", err))
		}
	}()
	go func() {
		if err := events.RunOutbox(ctx, bus, &events.LogNotifier{Logger: logger}, logger); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("notification outbox stopped", slog.Any("error", err))
		}
	}()
	go sessionService.RunIdleSweeper(ctx, cfg.SweepInterval)

	// HTTP layer.
	auth := middleware.NewAuthenticator(cfg.JWTSecretKey)
	scoreLimiter := middleware.NewScoreRateLimiter(cfg.ScoreRatePerSecond, cfg.ScoreRateBurst)
	tournamentHandler := handlers.NewTournamentHandler(tournamentService, seedingService, bracketService, standingsService)
	matchHandler := handlers.NewMatchHandler(bracketService, scheduleService)
	sessionHandler := handlers.NewSessionHandler(sessionService)
	scoreHandler := handlers.NewScoreHandler(scoringService)
	wsHandler := handlers.NewWebSocketHandler(hub, tournamentService, sessionService, logger)

	router := chi.NewRouter()
	api.SetupRoutes(router, auth, scoreLimiter, tournamentHandler, matchHandler, sessionHandler, scoreHandler, wsHandler)
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			_ = server.Close()
		}
	}
	cancel()
	logger.Info("server stopped")
}
