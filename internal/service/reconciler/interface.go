package reconciler

import (
	"context"

	"github.com/google/uuid"

	"github.com/Temutjin2k/ride-hail-client/internal/domain/models"
)

// RideStore is the remote source of truth for rides.
type RideStore interface {
	Fetch(ctx context.Context, filter models.RideFilter, order models.Order) ([]models.Ride, error)
	Insert(ctx context.Context, ride models.Ride) (*models.Ride, error)
	// Update applies patch only if pre holds for the stored record at commit time.
	// A failed precondition returns types.ErrCommandRejected.
	Update(ctx context.Context, id uuid.UUID, patch models.RidePatch, pre *models.Precondition) (*models.Ride, error)
}

// EventHandler receives change feed events. It is called from a single goroutine per subscription.
type EventHandler func(ctx context.Context, event models.ChangeEvent)

// ChangeFeed pushes ride mutations at-least-once, with no ordering guarantee
// relative to locally issued commands.
type ChangeFeed interface {
	Subscribe(ctx context.Context, handler EventHandler) (Subscription, error)
}

// Subscription is a live change feed subscription.
// Unsubscribe returns only after the last handler call has finished.
type Subscription interface {
	Unsubscribe()
}
