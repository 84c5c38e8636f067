package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/robonova/competition-core/handlers"
	"github.com/robonova/competition-core/middleware"
	"github.com/robonova/competition-core/services"
)

// SetupRoutes wires every HTTP and websocket endpoint onto the router.
// Read endpoints are public; mutations are role-gated.
func SetupRoutes(
	router *chi.Mux,
	auth *middleware.Authenticator,
	scoreLimiter *middleware.ScoreRateLimiter,
	tournamentHandler *handlers.TournamentHandler,
	matchHandler *handlers.MatchHandler,
	sessionHandler *handlers.SessionHandler,
	scoreHandler *handlers.ScoreHandler,
	wsHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/healthz", handlers.Health)
	router.Handle("/metrics", promhttp.Handler())

	router.Route("/tournaments", func(r chi.Router) {
		r.Get("/", tournamentHandler.List)
		r.Get("/{tournamentID}", tournamentHandler.Get)
		r.Get("/{tournamentID}/seeding", tournamentHandler.ListSeeding)
		r.Get("/{tournamentID}/matches", tournamentHandler.ListMatches)
		r.Get("/{tournamentID}/standings", tournamentHandler.Standings)
		r.Get("/{tournamentID}/schedule", matchHandler.ListSchedule)
		r.Get("/{tournamentID}/sessions", sessionHandler.List)

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)
			r.Use(middleware.Authorize(services.RoleAdmin))

			r.Post("/", tournamentHandler.Create)
			r.Patch("/{tournamentID}/status", tournamentHandler.UpdateStatus)
			r.Post("/{tournamentID}/seeding", tournamentHandler.Reseed)
			r.Post("/{tournamentID}/bracket", tournamentHandler.GenerateBracket)
			r.Post("/{tournamentID}/swiss/next-round", tournamentHandler.NextSwissRound)
		})
	})

	router.Route("/matches", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)
			r.Use(middleware.Authorize(services.RoleAdmin, services.RoleHeadJudge))

			r.Post("/{matchID}/start", matchHandler.Start)
			r.Post("/{matchID}/result", matchHandler.ReportResult)
			r.Post("/{matchID}/forfeit", matchHandler.Forfeit)
			r.Post("/{matchID}/schedule", matchHandler.Schedule)
			r.Put("/{matchID}/schedule", matchHandler.Reschedule)
		})
	})

	router.Route("/schedule", func(r chi.Router) {
		r.Use(auth.Authenticate)
		r.Use(middleware.Authorize(services.RoleAdmin))
		r.Post("/{scheduleID}/confirm", matchHandler.ConfirmSchedule)
	})

	router.Route("/venues", func(r chi.Router) {
		r.Get("/", matchHandler.ListVenues)
		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)
			r.Use(middleware.Authorize(services.RoleAdmin))
			r.Post("/", matchHandler.CreateVenue)
		})
	})

	router.Route("/sessions", func(r chi.Router) {
		r.Get("/{sessionID}", sessionHandler.Get)
		r.Get("/{sessionID}/aggregate", scoreHandler.Aggregate)
		r.Get("/{sessionID}/conflicts", scoreHandler.ListConflicts)

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)
			r.Use(middleware.Authorize(services.RoleAdmin, services.RoleHeadJudge))

			r.Post("/", sessionHandler.Create)
			r.Post("/{sessionID}/activate", sessionHandler.Activate)
			r.Post("/{sessionID}/pause", sessionHandler.Pause)
			r.Post("/{sessionID}/resume", sessionHandler.Resume)
			r.Post("/{sessionID}/complete", sessionHandler.Complete)
			r.Post("/{sessionID}/cancel", sessionHandler.Cancel)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)
			r.Use(middleware.Authorize(services.RoleJudge, services.RoleHeadJudge))
			r.Use(scoreLimiter.Limit)

			r.Post("/{sessionID}/scores", scoreHandler.Submit)
		})
	})

	router.Route("/conflicts", func(r chi.Router) {
		r.Use(auth.Authenticate)
		r.Use(middleware.Authorize(services.RoleHeadJudge, services.RoleAdmin))
		r.Post("/{conflictID}/resolve", scoreHandler.ResolveConflict)
	})

	// Live feeds. Auth is optional: anonymous connections become
	// spectators.
	router.Group(func(r chi.Router) {
		r.Use(auth.Optional)
		r.Get("/ws/sessions/{sessionID}", wsHandler.ServeSession)
		r.Get("/ws/tournaments/{tournamentID}", wsHandler.ServeTournament)
	})
}
