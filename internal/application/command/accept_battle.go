package command

import (
	"context"
	"time"

	"github.com/socialdetox/detox-hub/internal/domain/battle"
	"github.com/socialdetox/detox-hub/internal/domain/shared"
	"github.com/socialdetox/detox-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACCEPT BATTLE COMMAND
// Activates a pending battle on behalf of the challenged user. Acceptance
// stamps the battle window: start now, end now plus duration.
// ══════════════════════════════════════════════════════════════════════════════

// AcceptBattleCommand contains the data to accept a challenge.
type AcceptBattleCommand struct {
	// BattleID is the battle being accepted.
	BattleID string

	// CallerID is the user accepting; must be the battle's opponent.
	CallerID string
}

// Validate validates the command.
func (c AcceptBattleCommand) Validate() error {
	if c.BattleID == "" {
		return shared.NewDomainError("command", "AcceptBattle", shared.ErrInvalidID, "battle_id is required")
	}
	if _, err := shared.NewUserID(c.CallerID); err != nil {
		return shared.NewDomainError("command", "AcceptBattle", shared.ErrInvalidID, "caller_id is required")
	}
	return nil
}

// AcceptBattleResult contains the activated battle window.
type AcceptBattleResult struct {
	// BattleID is the accepted battle.
	BattleID string

	// Status is always "active" on success.
	Status string

	// StartDate is the window start.
	StartDate time.Time

	// EndDate is the window end.
	EndDate time.Time
}

// AcceptBattleHandler handles battle acceptance.
type AcceptBattleHandler struct {
	engine *battle.Engine
	log    *logger.Logger
}

// NewAcceptBattleHandler creates the handler.
func NewAcceptBattleHandler(engine *battle.Engine, log *logger.Logger) *AcceptBattleHandler {
	if log == nil {
		log = logger.Default()
	}
	return &AcceptBattleHandler{
		engine: engine,
		log:    log.With(logger.Component("accept_command")),
	}
}

// Handle executes the command.
func (h *AcceptBattleHandler) Handle(ctx context.Context, cmd AcceptBattleCommand) (*AcceptBattleResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	b, err := h.engine.Accept(ctx, cmd.BattleID, shared.UserID(cmd.CallerID))
	if err != nil {
		return nil, err
	}

	return &AcceptBattleResult{
		BattleID:  b.ID,
		Status:    b.Status.String(),
		StartDate: *b.StartDate,
		EndDate:   *b.EndDate,
	}, nil
}
