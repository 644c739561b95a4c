// Package events is the bus channel catalogue: channel names and the payload
// shapes that cross component boundaries.
package events

import (
	"encoding/json"
	"time"

	"arena-backend/internal/domain"
)

const (
	ChannelQueueJoined    = "matchmaking.queue.joined"
	ChannelSpawnRequested = "server.spawn.requested"
	ChannelServerSpawned  = "server.spawned"
	ChannelMatchCompleted = "match.completed"
	ChannelWalletReward   = "wallet.reward"
	ChannelACFlagged      = "ac.flagged"
)

// BusEvent is the only shape delivered to subscribers. Payload stays raw so
// both bus variants carry the same envelope; handlers unmarshal what they
// consume.
type BusEvent struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

type QueueJoined struct {
	TicketID string        `json:"ticket_id"`
	UserID   string        `json:"user_id"`
	Ladder   domain.Ladder `json:"ladder"`
}

type SpawnRequested struct {
	MatchID string        `json:"match_id"`
	Ladder  domain.Ladder `json:"ladder"`
	TeamA   []string      `json:"team_a"`
	TeamB   []string      `json:"team_b"`
}

type ServerSpawned struct {
	MatchID      string `json:"match_id"`
	Address      string `json:"address"`
	Port         int    `json:"port"`
	InstanceName string `json:"instance_name"`
}

type PlayerResult struct {
	UserID      string             `json:"user_id"`
	Kills       int                `json:"kills"`
	Deaths      int                `json:"deaths"`
	Headshots   int                `json:"headshots"`
	Clutches    int                `json:"clutches"`
	MVPs        int                `json:"mvps"`
	RatingDelta float64            `json:"rating_delta"`
	Result      domain.MatchResult `json:"result"`
}

type MatchCompleted struct {
	MatchID string         `json:"match_id"`
	Stats   []PlayerResult `json:"stats"`
}

type WalletReward struct {
	MatchID string `json:"match_id"`
}

// ACFlagged is produced by the anti-cheat ingestion outside this core; the
// shape is declared here so observers can subscribe.
type ACFlagged struct {
	SteamID  string `json:"steam_id"`
	Severity int    `json:"severity"`
	Type     string `json:"type"`
}
