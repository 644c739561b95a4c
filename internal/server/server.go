// Package server is the thin JSON transport over the matchmaking core. All
// behavior lives in the services; handlers only decode, delegate, and map
// domain errors to status codes.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"arena-backend/internal/constants"
	"arena-backend/internal/domain"
	"arena-backend/internal/service"
)

type ArenaServer struct {
	queue     *service.QueueCoordinator
	processor *service.MatchEventProcessor
	logger    zerolog.Logger
}

func NewArenaServer(queue *service.QueueCoordinator, processor *service.MatchEventProcessor, logger zerolog.Logger) *ArenaServer {
	return &ArenaServer{queue: queue, processor: processor, logger: logger}
}

func (s *ArenaServer) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/queue/join", s.handleQueueJoin)
	mux.HandleFunc("POST /api/queue/leave", s.handleQueueLeave)
	mux.HandleFunc("POST /api/matches/report", s.handleMatchReport)
	mux.HandleFunc("POST /api/telemetry", s.handleTelemetry)
	return mux
}

type queueRequest struct {
	UserID string        `json:"user_id"`
	Ladder domain.Ladder `json:"ladder"`
}

type matchReportRequest struct {
	MatchID string              `json:"match_id"`
	Stats   []matchReportedStat `json:"stats"`
}

type matchReportedStat struct {
	UserID      string             `json:"user_id"`
	Kills       int                `json:"kills"`
	Deaths      int                `json:"deaths"`
	Headshots   int                `json:"headshots"`
	MVPs        int                `json:"mvps"`
	Clutches    int                `json:"clutches"`
	RatingDelta float64            `json:"rating_delta"`
	Result      domain.MatchResult `json:"result"`
}

func (s *ArenaServer) handleQueueJoin(w http.ResponseWriter, r *http.Request) {
	var req queueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "invalid queue-join request")
		return
	}

	ticket, err := s.queue.Enqueue(r.Context(), req.UserID, req.Ladder)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"ticket_id": ticket.ID,
		"ladder":    ticket.Ladder,
	})
}

func (s *ArenaServer) handleQueueLeave(w http.ResponseWriter, r *http.Request) {
	var req queueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "invalid queue-leave request")
		return
	}

	if err := s.queue.Leave(r.Context(), req.UserID, req.Ladder); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *ArenaServer) handleMatchReport(w http.ResponseWriter, r *http.Request) {
	var req matchReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.MatchID == "" || len(req.Stats) == 0 {
		writeError(w, http.StatusBadRequest, "invalid match report")
		return
	}

	stats := make([]domain.PlayerMatchStat, len(req.Stats))
	for i, line := range req.Stats {
		stats[i] = domain.PlayerMatchStat{
			MatchID:     req.MatchID,
			SteamID:     line.UserID,
			Kills:       line.Kills,
			Deaths:      line.Deaths,
			Headshots:   line.Headshots,
			MVPs:        line.MVPs,
			Clutches:    line.Clutches,
			RatingDelta: line.RatingDelta,
			Result:      line.Result,
		}
	}

	if err := s.queue.ReportMatch(r.Context(), req.MatchID, stats); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleTelemetry accepts raw game-server events. Ingestion always
// acknowledges: malformed messages are logged and dropped inside the
// processor, never bounced back to the game server.
func (s *ArenaServer) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable telemetry body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), constants.RequestTimeout)
	defer cancel()
	s.processor.HandleGameEvent(ctx, body)
	w.WriteHeader(http.StatusAccepted)
}

func (s *ArenaServer) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrUserNotFound), errors.Is(err, domain.ErrMatchNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidLadder):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
