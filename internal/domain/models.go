package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID         string
	SteamID    string
	RankPoints int
	Coins      decimal.Decimal
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Ladder is a matchmaking pool with a fixed team size.
type Ladder string

const (
	Ladder5v5 Ladder = "5v5"
	Ladder1v1 Ladder = "1v1"
)

func (l Ladder) Valid() bool {
	return l == Ladder5v5 || l == Ladder1v1
}

func (l Ladder) TeamSize() int {
	switch l {
	case Ladder5v5:
		return 5
	case Ladder1v1:
		return 1
	}
	return 0
}

// Ladders lists every ladder the queue scheduler ticks over.
func Ladders() []Ladder {
	return []Ladder{Ladder5v5, Ladder1v1}
}

// QueueTicket is a queued intent to play, scored by rank points. Immutable
// once created; it leaves the pool when a match forms or the player cancels.
type QueueTicket struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	SteamID    string    `json:"steam_id"`
	Ladder     Ladder    `json:"ladder"`
	RankPoints int       `json:"rank_points"`
	CreatedAt  time.Time `json:"created_at"`
}

func (t *QueueTicket) MarshalBinary() ([]byte, error) {
	return json.Marshal(t)
}

func (t *QueueTicket) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, t)
}

type MatchStatus string

const (
	MatchActive           MatchStatus = "active"
	MatchActiveWithServer MatchStatus = "active-with-server"
	MatchCompleted        MatchStatus = "completed"
)

const (
	TeamA = "1"
	TeamB = "2"
)

type Match struct {
	ID               string
	Ladder           Ladder
	TeamA            []string // steam ids
	TeamB            []string
	Status           MatchStatus
	ServerInstanceID string
	ServerAddress    string
	MatchStart       time.Time
	MatchEnd         *time.Time
	WinnerTeam       string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type PlayerMatchStat struct {
	MatchID     string
	SteamID     string
	Kills       int
	Deaths      int
	Assists     int
	Headshots   int
	MVPs        int
	Clutches    int
	ADR         float64
	Score       int
	RatingDelta float64
	Result      MatchResult
	CreatedAt   time.Time
}

type InstanceStatus string

const (
	InstanceActive  InstanceStatus = "active"
	InstanceStopped InstanceStatus = "stopped"
)

type ServerInstance struct {
	ID        string
	Name      string
	Provider  string
	Region    string
	Zone      string
	Address   string
	Port      int
	Status    InstanceStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Wallet struct {
	ID        string
	UserID    string
	Balance   decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

const TransactionEarn = "earn"

// Transaction is an append-only ledger entry; a wallet's balance is the
// signed sum of its transactions.
type Transaction struct {
	ID        string
	WalletID  string
	Amount    decimal.Decimal
	Type      string
	Reason    string
	CreatedAt time.Time
}
