package interfaces

import (
	"context"

	"github.com/akylbek/payment-system/cod-verifier/internal/models"
)

// TransitionRepository defines the contract for the transition audit log
type TransitionRepository interface {
	Insert(ctx context.Context, event models.TransitionEvent) error
	ListBySession(ctx context.Context, sessionID string) ([]models.TransitionEvent, error)
}
