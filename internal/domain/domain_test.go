package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestLadderTeamSize(t *testing.T) {
	assert.Equal(t, 5, Ladder5v5.TeamSize())
	assert.Equal(t, 1, Ladder1v1.TeamSize())
	assert.Zero(t, Ladder("3v3").TeamSize())
}

func TestLadderValid(t *testing.T) {
	assert.True(t, Ladder5v5.Valid())
	assert.True(t, Ladder1v1.Valid())
	assert.False(t, Ladder("").Valid())
	assert.False(t, Ladder("10v10").Valid())
}

func TestRewardSchedule(t *testing.T) {
	assert.True(t, RewardFor(ResultWin).Equal(decimal.RequireFromString("0.10")))
	assert.True(t, RewardFor(ResultLoss).Equal(decimal.RequireFromString("0.01")))
	assert.True(t, RewardFor(ResultDraw).Equal(decimal.RequireFromString("0.05")))
	assert.True(t, RewardFor(MatchResult("")).Equal(decimal.RequireFromString("0.05")), "unknown results settle as draw")
}
