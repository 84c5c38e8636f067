package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"

	"github.com/robonova/competition-core/live"
	"github.com/robonova/competition-core/metrics"
	"github.com/robonova/competition-core/middleware"
	"github.com/robonova/competition-core/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: restrict to the frontend origins once they are fixed.
		return true
	},
}

type WebSocketHandler struct {
	hub         *live.Hub
	tournaments *services.TournamentService
	sessions    *services.SessionService
	logger      *slog.Logger
}

func NewWebSocketHandler(
	hub *live.Hub,
	tournaments *services.TournamentService,
	sessions *services.SessionService,
	logger *slog.Logger,
) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, tournaments: tournaments, sessions: sessions, logger: logger}
}

// ServeSession upgrades a connection onto a session topic. Spectators get
// redacted deltas unless the tournament publishes raw scores; ?last_seq
// resumes from the given sequence.
func (h *WebSocketHandler) ServeSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := urlParamInt(r, "sessionID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	sess, err := h.sessions.Get(r.Context(), sessionID)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	tournament, err := h.tournaments.GetByID(r.Context(), sess.TournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	h.serve(w, r, live.SessionTopic(sessionID), tournament.PublicRawScores)
}

// ServeTournament upgrades a connection onto a tournament topic.
func (h *WebSocketHandler) ServeTournament(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	tournament, err := h.tournaments.GetByID(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	h.serve(w, r, live.TournamentTopic(tournamentID), tournament.PublicRawScores)
}

func (h *WebSocketHandler) serve(w http.ResponseWriter, r *http.Request, topic string, publicRaw bool) {
	role := viewerRole(r)
	lastSeq, _ := strconv.ParseUint(r.URL.Query().Get("last_seq"), 10, 64)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.String("topic", topic), slog.Any("error", err))
		return
	}

	redact := role == live.RoleSpectator && !publicRaw
	client := live.NewClient(h.hub, conn, topic, role, redact, lastSeq)
	h.hub.Register <- client

	metrics.LiveConnections.Inc()
	go func() {
		defer metrics.LiveConnections.Dec()
		client.ReadPump()
	}()
	go client.WritePump()
}

// viewerRole maps the auth role to a hub role; unauthenticated
// connections are spectators.
func viewerRole(r *http.Request) live.ViewerRole {
	role, err := middleware.GetRoleFromContext(r.Context())
	if err != nil {
		return live.RoleSpectator
	}
	switch role {
	case services.RoleAdmin:
		return live.RoleAdmin
	case services.RoleJudge, services.RoleHeadJudge:
		return live.RoleJudge
	default:
		return live.RoleSpectator
	}
}
