package interfaces

import (
	"context"

	"github.com/akylbek/payment-system/cod-verifier/internal/models"
)

// SessionService is the verification controller as seen by the ops HTTP surface.
type SessionService interface {
	Dispatch(intent models.Intent) error
	Snapshot(ctx context.Context) (models.SessionSnapshot, error)
	Transitions(ctx context.Context) ([]models.TransitionEvent, error)
}
