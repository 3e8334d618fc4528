package service

import (
	"fmt"

	"github.com/Skotchmaster/storefront/internal/models"
)

// CanTransition decides whether actor may move order from one status to
// another. A nil error with from == to means there is nothing to write.
//
// Cancelled is terminal for everybody, which is what keeps the restock that
// comes with a cancellation to exactly once. Admins may make any other move.
// Owners may only cancel an order that is still pending.
func CanTransition(actor Actor, order *models.Order, from, to models.OrderStatus) error {
	if !to.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, to)
	}
	if err := requireAuth(actor); err != nil {
		return err
	}
	if !actor.IsAdmin() && order.UserID != actor.UserID {
		return fmt.Errorf("%w: order %s belongs to another user", ErrForbidden, order.Code)
	}
	if from == to {
		return nil
	}
	if from == models.StatusCancelled {
		return fmt.Errorf("%w: order %s is already cancelled", ErrConflict, order.Code)
	}
	if actor.IsAdmin() {
		return nil
	}
	if to != models.StatusCancelled {
		return fmt.Errorf("%w: only an admin can move an order to %s", ErrForbidden, to)
	}
	if from != models.StatusPending {
		return fmt.Errorf("%w: order %s is %s and can no longer be cancelled", ErrForbidden, order.Code, from)
	}
	return nil
}
