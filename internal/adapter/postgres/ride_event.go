package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Temutjin2k/ride-hail-client/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-client/pkg/metrics"
)

// RideEvent is the append-only audit trail of ride mutations.
type RideEvent struct {
	db *pgxpool.Pool
}

func NewRideEvent(db *pgxpool.Pool) *RideEvent {
	return &RideEvent{db: db}
}

// CreateEvent appends a ride event. It joins the transaction in ctx, if any.
func (r *RideEvent) CreateEvent(ctx context.Context, rideID uuid.UUID, eventType string, ride models.Ride) (err error) {
	defer func(start time.Time) { metrics.RecordDatabaseQuery("ride_events_insert", err, time.Since(start)) }(time.Now())

	data, err := json.Marshal(ride)
	if err != nil {
		return fmt.Errorf("ride event repo: marshal: %w", err)
	}

	q := TxorDB(ctx, r.db)
	query := `INSERT INTO ride_events (ride_id, event_type, event_data)
			  VALUES ($1, $2, $3);`

	if _, err = q.Exec(ctx, query, rideID, eventType, data); err != nil {
		return fmt.Errorf("ride event repo: CreateEvent: %w", err)
	}
	return nil
}
