package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Temutjin2k/ride-hail-client/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-client/internal/domain/types"
	pg "github.com/Temutjin2k/ride-hail-client/pkg/postgres"
	"github.com/Temutjin2k/ride-hail-client/pkg/metrics"
	"github.com/Temutjin2k/ride-hail-client/pkg/trm"
)

const rideColumns = `id, created_at, status,
	pickup_lat, pickup_lng, pickup_address,
	dropoff_lat, dropoff_lng, dropoff_address,
	estimated_fare, final_fare, passenger_id, driver_id, vehicle_type`

// RideRepo is the ride store backed by the rides table.
type RideRepo struct {
	db     *pgxpool.Pool
	trm    trm.TxManager
	events *RideEvent
}

func NewRideRepo(db *pgxpool.Pool, tm trm.TxManager, events *RideEvent) *RideRepo {
	return &RideRepo{db: db, trm: tm, events: events}
}

// Fetch returns the rides matching filter in the given creation order.
func (r *RideRepo) Fetch(ctx context.Context, filter models.RideFilter, order models.Order) (_ []models.Ride, err error) {
	defer func(start time.Time) { metrics.RecordDatabaseQuery("rides_fetch", err, time.Since(start)) }(time.Now())

	query, args := buildFetchQuery(filter, order)

	q := TxorDB(ctx, r.db)
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ride repo: Fetch: %w", err)
	}
	defer rows.Close()

	rides := make([]models.Ride, 0)
	for rows.Next() {
		ride, err := scanRide(rows)
		if err != nil {
			return nil, fmt.Errorf("ride repo: Fetch scan: %w", err)
		}
		rides = append(rides, *ride)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("ride repo: Fetch rows: %w", err)
	}
	return rides, nil
}

func buildFetchQuery(filter models.RideFilter, order models.Order) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.ID != nil {
		add("id = $%d", *filter.ID)
	}
	if filter.PassengerID != nil {
		add("passenger_id = $%d", *filter.PassengerID)
	}
	if filter.DriverID != nil {
		add("driver_id = $%d", *filter.DriverID)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = s.String()
		}
		add("status = ANY($%d)", statuses)
	}

	var b strings.Builder
	b.WriteString("SELECT " + rideColumns + " FROM rides")
	if len(conds) > 0 {
		b.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}
	if order == models.OldestFirst {
		b.WriteString(" ORDER BY created_at ASC, id ASC")
	} else {
		b.WriteString(" ORDER BY created_at DESC, id DESC")
	}
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}
	return b.String(), args
}

// Insert stores a new ride with its client generated id.
func (r *RideRepo) Insert(ctx context.Context, ride models.Ride) (_ *models.Ride, err error) {
	defer func(start time.Time) { metrics.RecordDatabaseQuery("rides_insert", err, time.Since(start)) }(time.Now())

	if err := ride.Validate(); err != nil {
		return nil, err
	}

	var stored *models.Ride
	err = r.trm.Do(ctx, func(ctx context.Context) error {
		q := TxorDB(ctx, r.db)

		query := `INSERT INTO rides (id, created_at, status,
				pickup_lat, pickup_lng, pickup_address,
				dropoff_lat, dropoff_lng, dropoff_address,
				estimated_fare, passenger_id, vehicle_type)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			RETURNING ` + rideColumns + `;`

		row := q.QueryRow(ctx, query,
			ride.ID, ride.CreatedAt, ride.Status.String(),
			ride.Pickup.Latitude, ride.Pickup.Longitude, ride.Pickup.Address,
			ride.Dropoff.Latitude, ride.Dropoff.Longitude, ride.Dropoff.Address,
			ride.EstimatedPrice, ride.PassengerID, string(ride.VehicleClass),
		)

		var err error
		stored, err = scanRide(row)
		if err != nil {
			if pg.IsUniqueViolation(err) {
				return fmt.Errorf("%w: ride %s already exists", types.ErrInvalidRide, ride.ID)
			}
			if pg.IsCheckViolation(err) {
				return fmt.Errorf("%w: %w", types.ErrInvalidRide, err)
			}
			return fmt.Errorf("ride repo: Insert: %w", err)
		}

		return r.events.CreateEvent(ctx, stored.ID, string(types.CommandCreate), *stored)
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// Update applies patch in one conditional statement. When pre does not
// hold at commit time nothing is written and types.ErrCommandRejected is
// returned, so of two concurrent accepts exactly one wins.
func (r *RideRepo) Update(ctx context.Context, id uuid.UUID, patch models.RidePatch, pre *models.Precondition) (_ *models.Ride, err error) {
	defer func(start time.Time) { metrics.RecordDatabaseQuery("rides_update", err, time.Since(start)) }(time.Now())

	var status, preStatus *string
	if patch.Status != nil {
		s := patch.Status.String()
		status = &s
	}
	var preDriver *uuid.UUID
	if pre != nil {
		s := pre.Status.String()
		preStatus = &s
		preDriver = pre.DriverID
	}

	var stored *models.Ride
	err = r.trm.Do(ctx, func(ctx context.Context) error {
		q := TxorDB(ctx, r.db)

		query := `
			UPDATE rides
			SET
				status       = COALESCE($2::text, status),
				driver_id    = COALESCE($3::uuid, driver_id),
				final_fare   = COALESCE($4::double precision, final_fare),
				matched_at   = CASE WHEN $2::text = 'accepted' THEN now() ELSE matched_at END,
				started_at   = CASE WHEN $2::text = 'in_progress' THEN now() ELSE started_at END,
				completed_at = CASE WHEN $2::text = 'completed' THEN now() ELSE completed_at END,
				updated_at   = now()
			WHERE id = $1
				AND ($5::text IS NULL OR status = $5::text)
				AND ($6::uuid IS NULL OR driver_id = $6::uuid)
			RETURNING ` + rideColumns + `;`

		row := q.QueryRow(ctx, query, id, status, patch.DriverID, patch.FinalPrice, preStatus, preDriver)

		var err error
		stored, err = scanRide(row)
		if errors.Is(err, pgx.ErrNoRows) {
			return r.explainNoRows(ctx, id)
		}
		if err != nil {
			return updateError(err)
		}

		eventType := "update"
		if patch.Status != nil {
			eventType = patch.Status.String()
		}
		return r.events.CreateEvent(ctx, id, eventType, *stored)
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// driverActiveIndex keeps a driver to one accepted or in_progress ride.
const driverActiveIndex = "rides_driver_active_uniq"

func updateError(err error) error {
	switch {
	case pg.IsUniqueViolation(err) && pg.ConstraintName(err) == driverActiveIndex:
		return fmt.Errorf("%w: %w", types.ErrDriverBusy, err)
	case pg.IsCheckViolation(err):
		return fmt.Errorf("%w: %w", types.ErrInvalidTransition, err)
	default:
		return fmt.Errorf("ride repo: Update: %w", err)
	}
}

// explainNoRows tells a missing ride from a failed precondition.
func (r *RideRepo) explainNoRows(ctx context.Context, id uuid.UUID) error {
	q := TxorDB(ctx, r.db)

	var status string
	err := q.QueryRow(ctx, `SELECT status FROM rides WHERE id = $1;`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return types.ErrRideNotFound
	}
	if err != nil {
		return fmt.Errorf("ride repo: Update lookup: %w", err)
	}
	return fmt.Errorf("%w: ride %s is %s", types.ErrCommandRejected, id, status)
}

func scanRide(row pgx.Row) (*models.Ride, error) {
	var (
		ride         models.Ride
		status       string
		vehicleClass string
	)
	err := row.Scan(
		&ride.ID, &ride.CreatedAt, &status,
		&ride.Pickup.Latitude, &ride.Pickup.Longitude, &ride.Pickup.Address,
		&ride.Dropoff.Latitude, &ride.Dropoff.Longitude, &ride.Dropoff.Address,
		&ride.EstimatedPrice, &ride.FinalPrice, &ride.PassengerID, &ride.DriverID, &vehicleClass,
	)
	if err != nil {
		return nil, err
	}

	if err := ride.Status.UnmarshalText([]byte(status)); err != nil {
		return nil, err
	}
	ride.VehicleClass = types.VehicleClass(vehicleClass)
	ride.CreatedAt = ride.CreatedAt.UTC()
	return &ride, nil
}
