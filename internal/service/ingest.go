package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"arena-backend/internal/bus"
	"arena-backend/internal/constants"
	"arena-backend/internal/domain"
	"arena-backend/internal/events"
	"arena-backend/internal/repository"
)

// Game-server telemetry message tags.
const (
	gameEventRoundWin    = "round_win"
	gameEventPlayerStats = "player_stats"
	gameEventMatchEnd    = "match_end"
)

type gameEventEnvelope struct {
	Type string `json:"type"`
}

type roundWinEvent struct {
	MatchID string `json:"match_id"`
	Team    string `json:"team"`
}

type playerStatsEvent struct {
	MatchID string  `json:"match_id"`
	SteamID string  `json:"steam_id"`
	Kills   int     `json:"kills"`
	Deaths  int     `json:"deaths"`
	Assists int     `json:"assists"`
	HS      int     `json:"hs"`
	Clutch  int     `json:"clutch"`
	ADR     float64 `json:"adr"`
	Score   int     `json:"score"`
}

type matchEndEvent struct {
	MatchID           string   `json:"match_id"`
	WinnerTeam        string   `json:"winner_team"`
	WinnerTeamPlayers []string `json:"winner_team_players"`
}

// MatchEventProcessor ingests live telemetry from running game servers and
// drives the spawn and completion sides of the match lifecycle. Ingestion
// never propagates an error past its boundary: bad input is logged and
// dropped.
type MatchEventProcessor struct {
	provisioner  *ServerProvisioner
	matchRepo    *repository.MatchRepository
	instanceRepo *repository.ServerInstanceRepository
	eventBus     bus.Bus
	logger       zerolog.Logger
}

func NewMatchEventProcessor(
	provisioner *ServerProvisioner,
	matchRepo *repository.MatchRepository,
	instanceRepo *repository.ServerInstanceRepository,
	eventBus bus.Bus,
	logger zerolog.Logger,
) *MatchEventProcessor {
	return &MatchEventProcessor{
		provisioner:  provisioner,
		matchRepo:    matchRepo,
		instanceRepo: instanceRepo,
		eventBus:     eventBus,
		logger:       logger,
	}
}

// Register wires the processor onto the bus.
func (p *MatchEventProcessor) Register() {
	p.eventBus.Subscribe(events.ChannelSpawnRequested, p.onSpawnRequested)
}

func (p *MatchEventProcessor) onSpawnRequested(ctx context.Context, evt events.BusEvent) error {
	var req events.SpawnRequested
	if err := json.Unmarshal(evt.Payload, &req); err != nil {
		return err
	}

	inst, err := p.provisioner.SpawnServer(ctx, req)
	if err != nil {
		return err
	}

	if err := p.instanceRepo.Create(ctx, inst); err != nil {
		return err
	}
	if err := p.matchRepo.AttachServer(ctx, req.MatchID, inst.ID, inst.Address); err != nil {
		return err
	}

	return p.eventBus.Publish(ctx, events.ChannelServerSpawned, events.ServerSpawned{
		MatchID:      req.MatchID,
		Address:      inst.Address,
		Port:         inst.Port,
		InstanceName: inst.Name,
	})
}

// HandleGameEvent ingests one raw telemetry message from a game server.
func (p *MatchEventProcessor) HandleGameEvent(ctx context.Context, raw []byte) {
	var envelope gameEventEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		p.logger.Warn().Err(err).Msg("malformed game event dropped")
		return
	}

	switch envelope.Type {
	case gameEventRoundWin:
		p.handleRoundWin(raw)
	case gameEventPlayerStats:
		p.handlePlayerStats(ctx, raw)
	case gameEventMatchEnd:
		p.handleMatchEnd(ctx, raw)
	default:
		p.logger.Warn().Str("type", envelope.Type).Msg("unrecognized game event dropped")
	}
}

func (p *MatchEventProcessor) handleRoundWin(raw []byte) {
	var evt roundWinEvent
	if err := json.Unmarshal(raw, &evt); err != nil {
		p.logger.Warn().Err(err).Msg("malformed round_win dropped")
		return
	}
	// Round wins are acknowledged only; scores come with match_end.
	p.logger.Debug().Str("match_id", evt.MatchID).Str("team", evt.Team).Msg("round won")
}

func (p *MatchEventProcessor) handlePlayerStats(ctx context.Context, raw []byte) {
	var evt playerStatsEvent
	if err := json.Unmarshal(raw, &evt); err != nil {
		p.logger.Warn().Err(err).Msg("malformed player_stats dropped")
		return
	}
	if evt.MatchID == "" || evt.SteamID == "" {
		p.logger.Warn().Msg("player_stats without match or player dropped")
		return
	}

	match, err := p.matchRepo.Get(ctx, evt.MatchID)
	if err != nil {
		p.logger.Warn().Err(err).Str("match_id", evt.MatchID).Msg("player_stats for unknown match dropped")
		return
	}
	if match.Status == domain.MatchCompleted {
		// Stats arriving after match_end never re-open aggregation; the
		// settlement payload is immutable once published.
		p.logger.Warn().Str("match_id", evt.MatchID).Str("steam_id", evt.SteamID).Msg("late player_stats rejected")
		return
	}

	stat := &domain.PlayerMatchStat{
		MatchID:   evt.MatchID,
		SteamID:   evt.SteamID,
		Kills:     evt.Kills,
		Deaths:    evt.Deaths,
		Assists:   evt.Assists,
		Headshots: evt.HS,
		Clutches:  evt.Clutch,
		ADR:       evt.ADR,
		Score:     evt.Score,
	}
	if err := p.matchRepo.InsertStat(ctx, stat); err != nil {
		p.logger.Error().Err(err).Str("match_id", evt.MatchID).Str("steam_id", evt.SteamID).Msg("failed to persist player stats")
	}
}

func (p *MatchEventProcessor) handleMatchEnd(ctx context.Context, raw []byte) {
	var evt matchEndEvent
	if err := json.Unmarshal(raw, &evt); err != nil {
		p.logger.Warn().Err(err).Msg("malformed match_end dropped")
		return
	}
	if evt.MatchID == "" {
		p.logger.Warn().Msg("match_end without match id dropped")
		return
	}

	match, err := p.matchRepo.Get(ctx, evt.MatchID)
	if err != nil {
		p.logger.Warn().Err(err).Str("match_id", evt.MatchID).Msg("match_end for unknown match dropped")
		return
	}

	if err := p.matchRepo.Complete(ctx, evt.MatchID, evt.WinnerTeam, time.Now()); err != nil {
		if errors.Is(err, domain.ErrMatchAlreadyEnded) {
			p.logger.Warn().Str("match_id", evt.MatchID).Msg("duplicate match_end dropped")
			return
		}
		p.logger.Error().Err(err).Str("match_id", evt.MatchID).Msg("failed to complete match")
		return
	}

	stats, err := p.matchRepo.StatsByMatch(ctx, evt.MatchID)
	if err != nil {
		p.logger.Error().Err(err).Str("match_id", evt.MatchID).Msg("failed to aggregate match stats")
		return
	}

	winners := winnerSet(evt, match)
	results := make([]events.PlayerResult, len(stats))
	for i, stat := range stats {
		result := domain.ResultDraw
		if evt.WinnerTeam != "" {
			if winners[stat.SteamID] {
				result = domain.ResultWin
			} else {
				result = domain.ResultLoss
			}
		}
		results[i] = events.PlayerResult{
			UserID:      stat.SteamID,
			Kills:       stat.Kills,
			Deaths:      stat.Deaths,
			Headshots:   stat.Headshots,
			Clutches:    stat.Clutches,
			MVPs:        stat.MVPs,
			RatingDelta: stat.RatingDelta,
			Result:      result,
		}
	}

	p.logger.Info().
		Str("match_id", evt.MatchID).
		Str("winner_team", evt.WinnerTeam).
		Int("players", len(results)).
		Msg("match completed")

	if err := p.eventBus.Publish(ctx, events.ChannelMatchCompleted, events.MatchCompleted{
		MatchID: evt.MatchID,
		Stats:   results,
	}); err != nil {
		p.logger.Error().Err(err).Str("match_id", evt.MatchID).Msg("failed to publish completion")
	}

	p.teardown(ctx, match)
}

// winnerSet resolves the winning roster: the game server's explicit player
// list when present, otherwise the match's stored roster for the winning
// side.
func winnerSet(evt matchEndEvent, match *domain.Match) map[string]bool {
	roster := evt.WinnerTeamPlayers
	if len(roster) == 0 {
		switch evt.WinnerTeam {
		case domain.TeamA:
			roster = match.TeamA
		case domain.TeamB:
			roster = match.TeamB
		}
	}

	winners := make(map[string]bool, len(roster))
	for _, steamID := range roster {
		winners[steamID] = true
	}
	return winners
}

func (p *MatchEventProcessor) teardown(ctx context.Context, match *domain.Match) {
	if match.ServerInstanceID == "" {
		return
	}

	inst, err := p.instanceRepo.GetByID(ctx, match.ServerInstanceID)
	if err != nil {
		p.logger.Warn().Err(err).Str("match_id", match.ID).Msg("no instance to tear down")
		return
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, constants.ShutdownTimeout+constants.ProviderAPITimeout)
	defer cancel()

	if err := p.provisioner.ShutdownInstance(shutdownCtx, inst.Name); err != nil {
		// A leaked machine is an ops cost, not a pipeline failure.
		p.logger.Error().Err(err).Str("instance", inst.Name).Msg("teardown failed, instance may be leaked")
	}
}
