package command

import (
	"context"

	"github.com/socialdetox/detox-hub/internal/domain/battle"
	"github.com/socialdetox/detox-hub/internal/domain/shared"
	"github.com/socialdetox/detox-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// DELETE BATTLE COMMAND
// Removes a battle outright regardless of state. Covers both rejecting a
// pending challenge and abandoning an active or finished battle. There is
// no soft delete and no audit trail.
// ══════════════════════════════════════════════════════════════════════════════

// DeleteBattleCommand contains the data to delete a battle.
type DeleteBattleCommand struct {
	// BattleID is the battle to remove.
	BattleID string
}

// Validate validates the command.
func (c DeleteBattleCommand) Validate() error {
	if c.BattleID == "" {
		return shared.NewDomainError("command", "DeleteBattle", shared.ErrInvalidID, "battle_id is required")
	}
	return nil
}

// DeleteBattleHandler handles battle deletion.
type DeleteBattleHandler struct {
	engine *battle.Engine
	log    *logger.Logger
}

// NewDeleteBattleHandler creates the handler.
func NewDeleteBattleHandler(engine *battle.Engine, log *logger.Logger) *DeleteBattleHandler {
	if log == nil {
		log = logger.Default()
	}
	return &DeleteBattleHandler{
		engine: engine,
		log:    log.With(logger.Component("delete_command")),
	}
}

// Handle executes the command.
// Deleting a battle that is already gone is not an error; if a delete
// races an in-flight resolve, whichever write lands last wins.
func (h *DeleteBattleHandler) Handle(ctx context.Context, cmd DeleteBattleCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	return h.engine.Delete(ctx, cmd.BattleID)
}
