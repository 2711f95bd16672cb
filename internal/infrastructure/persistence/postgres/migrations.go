// Package postgres implements the PostgreSQL persistence layer for the
// SocialDetox core.
package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: PROFILES AND USAGE DATA
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create profiles and usage tables
-- Version: 001

-- User profiles. Written by the auth/profile service; read-only here.
CREATE TABLE IF NOT EXISTS profiles (
    id UUID PRIMARY KEY,
    username VARCHAR(50) NOT NULL,
    avatar_color VARCHAR(20) NOT NULL DEFAULT 'blue',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

-- Per-user per-day usage minutes and the precomputed daily score.
-- Written once per user per day by the external tracking process.
CREATE TABLE IF NOT EXISTS daily_stats (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    user_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
    date DATE NOT NULL,
    instagram_min INTEGER NOT NULL DEFAULT 0,
    tiktok_min INTEGER NOT NULL DEFAULT 0,
    youtube_min INTEGER NOT NULL DEFAULT 0,
    snapchat_min INTEGER NOT NULL DEFAULT 0,
    daily_score INTEGER NOT NULL DEFAULT 100,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT daily_stats_user_day UNIQUE (user_id, date),
    CONSTRAINT valid_minutes CHECK (
        instagram_min >= 0 AND tiktok_min >= 0 AND
        youtube_min >= 0 AND snapchat_min >= 0
    )
);

CREATE INDEX IF NOT EXISTS idx_daily_stats_user_date ON daily_stats(user_id, date DESC);

-- One row per user for the current calendar month, recomputed by an
-- external aggregation process.
CREATE TABLE IF NOT EXISTS monthly_scores (
    user_id UUID PRIMARY KEY REFERENCES profiles(id) ON DELETE CASCADE,
    monthly_score INTEGER NOT NULL DEFAULT 0,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_monthly_scores_score ON monthly_scores(monthly_score DESC);
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: BATTLES
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create battles table
-- Version: 002

CREATE TABLE IF NOT EXISTS battles (
    id UUID PRIMARY KEY,
    challenger_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
    opponent_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
    duration VARCHAR(10) NOT NULL,
    status VARCHAR(10) NOT NULL DEFAULT 'pending',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    start_date TIMESTAMP WITH TIME ZONE,
    end_date TIMESTAMP WITH TIME ZONE,
    winner_id UUID REFERENCES profiles(id) ON DELETE SET NULL,

    CONSTRAINT valid_duration CHECK (duration IN ('1_day', '7_days', '30_days')),
    CONSTRAINT valid_status CHECK (status IN ('pending', 'active', 'finished')),
    CONSTRAINT no_self_battle CHECK (challenger_id <> opponent_id),
    -- Window stamps appear together when the battle leaves pending.
    CONSTRAINT window_consistency CHECK (
        (status = 'pending' AND start_date IS NULL AND end_date IS NULL) OR
        (status <> 'pending' AND start_date IS NOT NULL AND end_date IS NOT NULL)
    )
);

-- At most one live battle per unordered pair. The partial unique index
-- makes the duplicate check and the insert a single atomic operation:
-- two concurrent challenges between the same pair cannot both land.
CREATE UNIQUE INDEX IF NOT EXISTS idx_battles_live_pair
    ON battles (LEAST(challenger_id, opponent_id), GREATEST(challenger_id, opponent_id))
    WHERE status IN ('pending', 'active');

CREATE INDEX IF NOT EXISTS idx_battles_challenger ON battles(challenger_id);
CREATE INDEX IF NOT EXISTS idx_battles_opponent ON battles(opponent_id);
CREATE INDEX IF NOT EXISTS idx_battles_active_end ON battles(end_date) WHERE status = 'active';
`

// Migrations returns all embedded migrations in order.
func Migrations() []Migration {
	return []Migration{
		{Version: 1, Name: "create_profiles_and_usage", UpSQL: migration001Up},
		{Version: 2, Name: "create_battles", UpSQL: migration002Up},
	}
}
