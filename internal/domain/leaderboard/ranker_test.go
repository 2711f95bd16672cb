package leaderboard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/socialdetox/detox-hub/internal/domain/usage"
)

func TestRank_OrdersByScoreDescending(t *testing.T) {
	ranker := NewRanker()
	entries := ranker.Rank([]*usage.MonthlyAggregate{
		{UserID: "u1", Username: "anna", MonthlyScore: 1200},
		{UserID: "u2", Username: "ben", MonthlyScore: 2600},
		{UserID: "u3", Username: "cara", MonthlyScore: 800},
	}, "u3")

	assert.Len(t, entries, 3)
	assert.Equal(t, Rank(1), entries[0].Rank)
	assert.Equal(t, "u2", entries[0].UserID)
	assert.Equal(t, Rank(2), entries[1].Rank)
	assert.Equal(t, "u1", entries[1].UserID)
	assert.Equal(t, Rank(3), entries[2].Rank)
	assert.Equal(t, "u3", entries[2].UserID)
	assert.True(t, entries[2].IsCurrentUser)
	assert.False(t, entries[0].IsCurrentUser)
}

func TestRank_RanksArePermutationOfOneToN(t *testing.T) {
	ranker := NewRanker()
	input := []*usage.MonthlyAggregate{
		{UserID: "a", MonthlyScore: 500},
		{UserID: "b", MonthlyScore: 500},
		{UserID: "c", MonthlyScore: 500},
		{UserID: "d", MonthlyScore: 900},
		{UserID: "e", MonthlyScore: 100},
	}

	entries := ranker.Rank(input, "")

	seen := make(map[Rank]bool)
	for _, entry := range entries {
		assert.False(t, seen[entry.Rank], "rank %d assigned twice", entry.Rank)
		seen[entry.Rank] = true
		assert.GreaterOrEqual(t, int(entry.Rank), 1)
		assert.LessOrEqual(t, int(entry.Rank), len(input))
	}
	assert.Len(t, seen, len(input))
}

func TestRank_TiesBreakByUserIDAscending(t *testing.T) {
	ranker := NewRanker()

	// Same scores fed in two different input orders give the same result.
	first := ranker.Rank([]*usage.MonthlyAggregate{
		{UserID: "u9", MonthlyScore: 1000},
		{UserID: "u2", MonthlyScore: 1000},
	}, "")
	second := ranker.Rank([]*usage.MonthlyAggregate{
		{UserID: "u2", MonthlyScore: 1000},
		{UserID: "u9", MonthlyScore: 1000},
	}, "")

	assert.Equal(t, first, second)
	assert.Equal(t, "u2", first[0].UserID)
	assert.Equal(t, Rank(1), first[0].Rank)
	assert.Equal(t, "u9", first[1].UserID)
	assert.Equal(t, Rank(2), first[1].Rank)
}

func TestRank_EmptyInput(t *testing.T) {
	ranker := NewRanker()
	entries := ranker.Rank(nil, "u1")
	assert.Empty(t, entries)
}

func TestRank_DoesNotMutateInput(t *testing.T) {
	ranker := NewRanker()
	input := []*usage.MonthlyAggregate{
		{UserID: "a", MonthlyScore: 100},
		{UserID: "b", MonthlyScore: 900},
	}

	ranker.Rank(input, "")

	assert.Equal(t, "a", input[0].UserID.String())
	assert.Equal(t, "b", input[1].UserID.String())
}

func TestTierForScore_Thresholds(t *testing.T) {
	assert.Equal(t, TierMaster, TierForScore(2501))
	assert.Equal(t, TierDiamond, TierForScore(2500))
	assert.Equal(t, TierDiamond, TierForScore(2001))
	assert.Equal(t, TierPlatinum, TierForScore(2000))
	assert.Equal(t, TierPlatinum, TierForScore(1501))
	assert.Equal(t, TierGold, TierForScore(1500))
	assert.Equal(t, TierGold, TierForScore(1001))
	assert.Equal(t, TierSilver, TierForScore(1000))
	assert.Equal(t, TierSilver, TierForScore(501))
	assert.Equal(t, TierBronze, TierForScore(500))
	assert.Equal(t, TierBronze, TierForScore(0))
}

func TestRankOf(t *testing.T) {
	entries := []Entry{
		{Rank: 1, UserID: "u2"},
		{Rank: 2, UserID: "u1"},
	}

	assert.Equal(t, Rank(2), RankOf(entries, "u1"))
	assert.Equal(t, Rank(0), RankOf(entries, "missing"))
}
