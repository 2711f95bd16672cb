// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"

	"github.com/socialdetox/detox-hub/internal/domain/battle"
	"github.com/socialdetox/detox-hub/internal/domain/shared"
	"github.com/socialdetox/detox-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CHALLENGE USER COMMAND
// Creates a new pending battle between two users. At most one pending or
// active battle may exist per unordered pair; the store enforces this
// atomically on insert.
// ══════════════════════════════════════════════════════════════════════════════

// ChallengeUserCommand contains the data to create a challenge.
type ChallengeUserCommand struct {
	// ChallengerID is the user issuing the challenge.
	ChallengerID string

	// OpponentID is the user being challenged.
	OpponentID string

	// Duration is the battle window: "1_day", "7_days" or "30_days".
	Duration string
}

// Validate validates the command.
func (c ChallengeUserCommand) Validate() error {
	if _, err := shared.NewUserID(c.ChallengerID); err != nil {
		return shared.NewDomainError("command", "ChallengeUser", shared.ErrInvalidID, "challenger_id is required")
	}
	if _, err := shared.NewUserID(c.OpponentID); err != nil {
		return shared.NewDomainError("command", "ChallengeUser", shared.ErrInvalidID, "opponent_id is required")
	}
	if c.ChallengerID == c.OpponentID {
		return shared.ErrSelfChallenge
	}
	if _, err := battle.ParseDuration(c.Duration); err != nil {
		return err
	}
	return nil
}

// ChallengeUserResult contains the created battle.
type ChallengeUserResult struct {
	// BattleID is the ID of the created battle.
	BattleID string

	// Status is always "pending" on success.
	Status string
}

// ChallengeUserHandler handles challenge creation.
type ChallengeUserHandler struct {
	engine *battle.Engine
	log    *logger.Logger
}

// NewChallengeUserHandler creates the handler.
func NewChallengeUserHandler(engine *battle.Engine, log *logger.Logger) *ChallengeUserHandler {
	if log == nil {
		log = logger.Default()
	}
	return &ChallengeUserHandler{
		engine: engine,
		log:    log.With(logger.Component("challenge_command")),
	}
}

// Handle executes the command.
// A duplicate challenge surfaces as shared.ErrDuplicateChallenge with no
// record written.
func (h *ChallengeUserHandler) Handle(ctx context.Context, cmd ChallengeUserCommand) (*ChallengeUserResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	duration, _ := battle.ParseDuration(cmd.Duration)

	b, err := h.engine.Challenge(ctx, shared.UserID(cmd.ChallengerID), shared.UserID(cmd.OpponentID), duration)
	if err != nil {
		return nil, err
	}

	return &ChallengeUserResult{
		BattleID: b.ID,
		Status:   b.Status.String(),
	}, nil
}
