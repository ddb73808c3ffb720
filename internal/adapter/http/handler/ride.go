package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/Temutjin2k/ride-hail-client/internal/adapter/http/handler/dto"
	"github.com/Temutjin2k/ride-hail-client/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-client/internal/domain/types"
	"github.com/Temutjin2k/ride-hail-client/internal/service/pricing"
	"github.com/Temutjin2k/ride-hail-client/internal/service/reconciler"
	"github.com/Temutjin2k/ride-hail-client/pkg/logger"
	wrap "github.com/Temutjin2k/ride-hail-client/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-hail-client/pkg/validator"
)

type (
	// Sessions hands out the live reconciler of an actor.
	Sessions interface {
		Get(ctx context.Context, actor models.Actor) (*reconciler.Reconciler, error)
		End(actorID uuid.UUID)
	}

	Geocoder interface {
		Geocode(ctx context.Context, address string) (models.Location, error)
		ReverseGeocode(ctx context.Context, latitude, longitude float64) (string, error)
	}
)

type Ride struct {
	sessions Sessions
	geocoder Geocoder // nil disables address lookup
	l        logger.Logger
}

func NewRide(sessions Sessions, geocoder Geocoder, l logger.Logger) *Ride {
	return &Ride{
		sessions: sessions,
		geocoder: geocoder,
		l:        l,
	}
}

// GetView godoc
// @Summary      Current ride view
// @Description  Available and active rides for a driver, ride history for a passenger
// @Tags         Rides
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]reconciler.View
// @Failure      401  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /rides/view [get]
func (h *Ride) GetView(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "get_ride_view")

	rec, err := h.sessions.Get(ctx, models.ActorFromContext(ctx))
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to get ride view", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"view": rec.View()}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
	}
}

// CreateRide godoc
// @Summary      Request a ride
// @Description  Books a ride for the passenger. Locations without coordinates are geocoded from their address.
// @Tags         Rides
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      dto.CreateRideRequest  true  "pickup and dropoff"
// @Success      201      {object}  map[string]models.Ride
// @Failure      401      {object}  map[string]string
// @Failure      403      {object}  map[string]string
// @Failure      422      {object}  map[string]string
// @Router       /rides [post]
func (h *Ride) CreateRide(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "create_ride")

	var req dto.CreateRideRequest
	if err := readJSON(w, r, &req); err != nil {
		h.l.Warn(ctx, "failed to read request JSON data", "error", err.Error())
		badRequestResponse(w, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		h.l.Warn(ctx, "invalid request data", "errors", v.String())
		failedValidationResponse(w, v.Errors)
		return
	}

	cmd := req.ToCommand()
	ctx = wrap.WithRideID(ctx, cmd.ID.String())

	var err error
	if cmd.Pickup, err = h.resolve(ctx, req.Pickup); err != nil {
		h.writeResolveError(ctx, w, "pickup", err)
		return
	}
	if cmd.Dropoff, err = h.resolve(ctx, req.Dropoff); err != nil {
		h.writeResolveError(ctx, w, "dropoff", err)
		return
	}

	h.dispatch(ctx, w, cmd, http.StatusCreated)
}

// AcceptRide godoc
// @Summary      Accept a pending ride
// @Tags         Rides
// @Produce      json
// @Security     BearerAuth
// @Param        ride_id  path      string  true  "ride id"
// @Success      200      {object}  map[string]models.Ride
// @Failure      404      {object}  map[string]string
// @Failure      409      {object}  map[string]string  "another driver won, or the driver is busy"
// @Router       /rides/{ride_id}/accept [post]
func (h *Ride) AcceptRide(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "accept_ride")

	rideID, ok := h.rideID(ctx, w, r)
	if !ok {
		return
	}

	h.dispatch(wrap.WithRideID(ctx, rideID.String()), w, models.AcceptRide{RideID: rideID}, http.StatusOK)
}

// AdvanceRide godoc
// @Summary      Advance the active ride
// @Description  accepted becomes in_progress, in_progress becomes completed
// @Tags         Rides
// @Produce      json
// @Security     BearerAuth
// @Param        ride_id  path      string  true  "ride id"
// @Success      200      {object}  map[string]models.Ride
// @Failure      403      {object}  map[string]string
// @Failure      409      {object}  map[string]string
// @Router       /rides/{ride_id}/advance [post]
func (h *Ride) AdvanceRide(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "advance_ride")

	rideID, ok := h.rideID(ctx, w, r)
	if !ok {
		return
	}

	h.dispatch(wrap.WithRideID(ctx, rideID.String()), w, models.AdvanceStatus{RideID: rideID}, http.StatusOK)
}

// Refresh godoc
// @Summary      Reload the ride view
// @Description  Fetches a fresh snapshot, e.g. after a failed bootstrap
// @Tags         Rides
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]reconciler.View
// @Failure      502  {object}  map[string]string
// @Router       /rides/refresh [post]
func (h *Ride) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "refresh_rides")

	rec, err := h.sessions.Get(ctx, models.ActorFromContext(ctx))
	if err == nil {
		err = rec.Refresh(ctx)
	}
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to refresh rides", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"view": rec.View()}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
	}
}

// Estimate godoc
// @Summary      Price estimate
// @Tags         Rides
// @Produce      json
// @Param        pickup_lat   query     number  true  "pickup latitude"
// @Param        pickup_lng   query     number  true  "pickup longitude"
// @Param        dropoff_lat  query     number  true  "dropoff latitude"
// @Param        dropoff_lng  query     number  true  "dropoff longitude"
// @Success      200          {object}  map[string]float64
// @Failure      422          {object}  map[string]string
// @Router       /estimate [get]
func (h *Ride) Estimate(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "estimate_price")

	v := validator.New()
	q := dto.ParseEstimateQuery(r.URL.Query().Get, v)
	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return
	}

	response := envelope{
		"estimated_price": pricing.EstimatePrice(q.Pickup, q.Dropoff),
		"distance_km":     pricing.RoundCents(pricing.Distance(q.Pickup, q.Dropoff)),
	}

	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
	}
}

func (h *Ride) dispatch(ctx context.Context, w http.ResponseWriter, cmd models.Command, status int) {
	actor := models.ActorFromContext(ctx)

	rec, err := h.sessions.Get(ctx, actor)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to get reconciler", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	ride, err := rec.Dispatch(ctx, actor, cmd)
	if err != nil {
		if GetCode(err) >= http.StatusInternalServerError {
			h.l.Error(wrap.ErrorCtx(ctx, err), "failed to dispatch ride command", err, "command", cmd.Kind())
		} else {
			h.l.Warn(ctx, "ride command refused", "command", cmd.Kind(), "error", err.Error())
		}
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	if err := writeJSON(w, status, envelope{"ride": ride}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
		return
	}

	h.l.Info(ctx, "ride command applied", "command", cmd.Kind(), "status", ride.Status)
}

// resolve returns the location with coordinates, geocoding its address if
// needed. Coordinates without an address get one by reverse lookup when a
// geocoder is configured; a failed lookup leaves the address empty.
func (h *Ride) resolve(ctx context.Context, req dto.LocationRequest) (models.Location, error) {
	if req.HasCoordinates() {
		loc := req.ToModel()
		if loc.Address != "" || h.geocoder == nil {
			return loc, nil
		}
		address, err := h.geocoder.ReverseGeocode(ctx, loc.Latitude, loc.Longitude)
		if err != nil {
			h.l.Warn(ctx, "failed to look up address", "error", err.Error())
			return loc, nil
		}
		loc.Address = address
		return loc, nil
	}
	if h.geocoder == nil {
		return models.Location{}, errGeocoderDisabled
	}

	loc, err := h.geocoder.Geocode(ctx, req.Address)
	if err != nil {
		return models.Location{}, err
	}
	loc.Address = req.Address
	return loc, nil
}

var errGeocoderDisabled = errors.New("coordinates are required, address lookup is disabled")

func (h *Ride) writeResolveError(ctx context.Context, w http.ResponseWriter, key string, err error) {
	switch {
	case errors.Is(err, errGeocoderDisabled):
		failedValidationResponse(w, map[string]string{key: err.Error()})
	case errors.Is(err, types.ErrLocationNotFound):
		failedValidationResponse(w, map[string]string{key + ".address": "address not found"})
	default:
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to geocode address", err, "location", key)
		errorResponse(w, http.StatusBadGateway, fmt.Sprintf("failed to resolve %s address", key))
	}
}

func (h *Ride) rideID(ctx context.Context, w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("ride_id"))
	if err != nil || id == uuid.Nil {
		h.l.Warn(ctx, "invalid ride uuid format")
		badRequestResponse(w, "invalid ride uuid format")
		return uuid.Nil, false
	}
	return id, true
}
