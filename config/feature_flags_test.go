package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadFeatureFlags_Defaults(t *testing.T) {
	ff := LoadFeatureFlags()

	assert.True(t, ff.IsEnabled(FeatureBattles, nil))
	assert.True(t, ff.IsEnabled(FeatureBattleMonthLong, nil))
	// Sweeps ship disabled; expired battles resolve on read.
	assert.False(t, ff.IsEnabled(FeatureBattleSweep, nil))
	assert.False(t, ff.IsEnabled(FeatureLeaderboardCacheWarm, nil))
}

func TestLoadFeatureFlags_EveryFlagIsCataloged(t *testing.T) {
	all := LoadFeatureFlags().GetAllFeatures()

	assert.Len(t, all, 4)
	for _, name := range []string{
		FeatureBattles,
		FeatureBattleMonthLong,
		FeatureBattleSweep,
		FeatureLeaderboardCacheWarm,
	} {
		assert.Contains(t, all, name)
	}
}

func TestLoadFeatureFlags_EnvBoolOverride(t *testing.T) {
	t.Setenv("FEATURE_BATTLES_SWEEP", "true")
	t.Setenv("FEATURE_BATTLES_ENABLED", "false")

	ff := LoadFeatureFlags()

	assert.True(t, ff.IsEnabled(FeatureBattleSweep, nil))
	assert.False(t, ff.IsEnabled(FeatureBattles, nil))
}

func TestLoadFeatureFlags_EnvPercentRollout(t *testing.T) {
	t.Setenv("FEATURE_BATTLES_MONTH_LONG", "50")

	ff := LoadFeatureFlags()

	// The hash bucket is consistent: a user keeps their answer.
	userCtx := &FeatureContext{UserID: "alice"}
	first := ff.IsEnabled(FeatureBattleMonthLong, userCtx)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, ff.IsEnabled(FeatureBattleMonthLong, userCtx))
	}
}

func TestFeatureFlags_UserOverrideWins(t *testing.T) {
	ff := LoadFeatureFlags()
	ff.SetUserOverride("alice", FeatureBattles, false)

	assert.False(t, ff.IsEnabled(FeatureBattles, &FeatureContext{UserID: "alice"}))
	assert.True(t, ff.IsEnabled(FeatureBattles, &FeatureContext{UserID: "bob"}))

	ff.ClearUserOverrides("alice")
	assert.True(t, ff.IsEnabled(FeatureBattles, &FeatureContext{UserID: "alice"}))
}

func TestFeatureFlags_EnableDisableAndBounds(t *testing.T) {
	ff := LoadFeatureFlags()

	assert.NoError(t, ff.DisableFeature(FeatureBattles))
	assert.False(t, ff.IsEnabled(FeatureBattles, nil))

	assert.NoError(t, ff.EnableFeature(FeatureBattles))
	assert.True(t, ff.IsEnabled(FeatureBattles, nil))

	assert.ErrorIs(t, ff.SetRolloutPercent("battles.unknown", 50), ErrFeatureNotFound)
	assert.ErrorIs(t, ff.SetRolloutPercent(FeatureBattles, 150), ErrInvalidRolloutPercent)
}
