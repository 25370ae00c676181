package interfaces

import (
	"context"

	"github.com/akylbek/payment-system/cod-verifier/internal/models"
)

// EventPublisher receives every verification state transition.
type EventPublisher interface {
	Publish(ctx context.Context, event models.TransitionEvent) error
	Close() error
}
