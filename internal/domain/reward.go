package domain

import "github.com/shopspring/decimal"

type MatchResult string

const (
	ResultWin  MatchResult = "win"
	ResultLoss MatchResult = "loss"
	ResultDraw MatchResult = "draw"
)

var (
	rewardWin  = decimal.RequireFromString("0.10")
	rewardLoss = decimal.RequireFromString("0.01")
	rewardDraw = decimal.RequireFromString("0.05")
)

// RewardFor returns the coin amount for a match result. The schedule is
// fixed per result, not weighted by skill or performance.
func RewardFor(result MatchResult) decimal.Decimal {
	switch result {
	case ResultWin:
		return rewardWin
	case ResultLoss:
		return rewardLoss
	default:
		return rewardDraw
	}
}
