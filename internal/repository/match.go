package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"arena-backend/internal/domain"
)

type MatchRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewMatchRepository(sqlDB *sql.DB, logger zerolog.Logger) *MatchRepository {
	return &MatchRepository{db: sqlDB, logger: logger}
}

func joinRoster(steamIDs []string) string {
	return strings.Join(steamIDs, ",")
}

func splitRoster(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func (r *MatchRepository) Create(ctx context.Context, match *domain.Match) error {
	now := time.Now()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO matches (id, ladder, team_a_players, team_b_players, status,
		                      server_instance_id, server_address, match_start, winner_team,
		                      created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, '', '', ?, '', ?, ?)`,
		match.ID, match.Ladder, joinRoster(match.TeamA), joinRoster(match.TeamB),
		domain.MatchActive, match.MatchStart, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create match %s: %w", match.ID, err)
	}
	return nil
}

func (r *MatchRepository) Get(ctx context.Context, id string) (*domain.Match, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, ladder, team_a_players, team_b_players, status,
		        server_instance_id, server_address, match_start, match_end, winner_team,
		        created_at, updated_at
		 FROM matches WHERE id = ?`, id)

	var match domain.Match
	var teamA, teamB string
	var matchEnd sql.NullTime
	err := row.Scan(&match.ID, &match.Ladder, &teamA, &teamB, &match.Status,
		&match.ServerInstanceID, &match.ServerAddress, &match.MatchStart, &matchEnd,
		&match.WinnerTeam, &match.CreatedAt, &match.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrMatchNotFound
	}
	if err != nil {
		return nil, err
	}

	match.TeamA = splitRoster(teamA)
	match.TeamB = splitRoster(teamB)
	if matchEnd.Valid {
		match.MatchEnd = &matchEnd.Time
	}
	return &match, nil
}

// AttachServer records the provisioned instance on the match and moves it to
// active-with-server.
func (r *MatchRepository) AttachServer(ctx context.Context, matchID, instanceID, address string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE matches SET server_instance_id = ?, server_address = ?, status = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		instanceID, address, domain.MatchActiveWithServer, time.Now(), matchID, domain.MatchActive,
	)
	if err != nil {
		return fmt.Errorf("failed to attach server to match %s: %w", matchID, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return domain.ErrMatchNotFound
	}
	return nil
}

// Complete transitions a match to completed with its winner and end time.
// Completing an already-completed match fails with ErrMatchAlreadyEnded.
func (r *MatchRepository) Complete(ctx context.Context, matchID, winnerTeam string, end time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE matches SET status = ?, winner_team = ?, match_end = ?, updated_at = ?
		 WHERE id = ? AND status != ?`,
		domain.MatchCompleted, winnerTeam, end, time.Now(), matchID, domain.MatchCompleted,
	)
	if err != nil {
		return fmt.Errorf("failed to complete match %s: %w", matchID, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		if _, err := r.Get(ctx, matchID); err != nil {
			return err
		}
		return domain.ErrMatchAlreadyEnded
	}
	return nil
}

func (r *MatchRepository) InsertStat(ctx context.Context, stat *domain.PlayerMatchStat) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO match_stats (match_id, steam_id, kills, deaths, assists, headshots,
		                          mvps, clutches, adr, score, rating_delta, result, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		stat.MatchID, stat.SteamID, stat.Kills, stat.Deaths, stat.Assists, stat.Headshots,
		stat.MVPs, stat.Clutches, stat.ADR, stat.Score, stat.RatingDelta, stat.Result, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert stat for %s in match %s: %w", stat.SteamID, stat.MatchID, err)
	}
	return nil
}

func (r *MatchRepository) StatsByMatch(ctx context.Context, matchID string) ([]domain.PlayerMatchStat, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT match_id, steam_id, kills, deaths, assists, headshots, mvps, clutches,
		        adr, score, rating_delta, result, created_at
		 FROM match_stats WHERE match_id = ? ORDER BY created_at`, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to read stats for match %s: %w", matchID, err)
	}
	defer rows.Close()

	var stats []domain.PlayerMatchStat
	for rows.Next() {
		var stat domain.PlayerMatchStat
		err := rows.Scan(&stat.MatchID, &stat.SteamID, &stat.Kills, &stat.Deaths, &stat.Assists,
			&stat.Headshots, &stat.MVPs, &stat.Clutches, &stat.ADR, &stat.Score,
			&stat.RatingDelta, &stat.Result, &stat.CreatedAt)
		if err != nil {
			return nil, err
		}
		stats = append(stats, stat)
	}
	return stats, rows.Err()
}

// ReportBatch writes a full set of per-player stats and completes the match
// in one transaction, for results that arrive as a single report instead of
// a live stream.
func (r *MatchRepository) ReportBatch(ctx context.Context, matchID string, stats []domain.PlayerMatchStat, end time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	for _, stat := range stats {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO match_stats (match_id, steam_id, kills, deaths, assists, headshots,
			                          mvps, clutches, adr, score, rating_delta, result, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			matchID, stat.SteamID, stat.Kills, stat.Deaths, stat.Assists, stat.Headshots,
			stat.MVPs, stat.Clutches, stat.ADR, stat.Score, stat.RatingDelta, stat.Result, now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert stat for %s in match %s: %w", stat.SteamID, matchID, err)
		}
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE matches SET status = ?, match_end = ?, updated_at = ? WHERE id = ? AND status != ?`,
		domain.MatchCompleted, end, now, matchID, domain.MatchCompleted,
	)
	if err != nil {
		return fmt.Errorf("failed to complete match %s: %w", matchID, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return domain.ErrMatchNotFound
	}

	return tx.Commit()
}
