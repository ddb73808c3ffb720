package dto

import (
	"strconv"

	"github.com/google/uuid"

	"github.com/Temutjin2k/ride-hail-client/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-client/internal/domain/types"
	"github.com/Temutjin2k/ride-hail-client/pkg/validator"
)

const maxAddressLen = 255

// LocationRequest carries coordinates, an address to geocode, or both.
type LocationRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Address   string   `json:"address"`
}

// HasCoordinates reports whether both coordinates were sent.
func (l LocationRequest) HasCoordinates() bool {
	return l.Latitude != nil && l.Longitude != nil
}

func (l LocationRequest) validate(v *validator.Validator, key string) {
	v.Check(len(l.Address) <= maxAddressLen, key+".address", "must not be more than 255 characters long")
	v.Check((l.Latitude == nil) == (l.Longitude == nil), key, "latitude and longitude must be sent together")

	if l.Latitude != nil {
		v.CheckLatitude(*l.Latitude, key+".latitude")
	}
	if l.Longitude != nil {
		v.CheckLongitude(*l.Longitude, key+".longitude")
	}
	if !l.HasCoordinates() {
		v.Check(l.Address != "", key, "coordinates or address must be provided")
	}
}

func (l LocationRequest) ToModel() models.Location {
	loc := models.Location{Address: l.Address}
	if l.HasCoordinates() {
		loc.Latitude = *l.Latitude
		loc.Longitude = *l.Longitude
	}
	return loc
}

type CreateRideRequest struct {
	// optional client generated id; resending it returns the ride booked first
	ID          string          `json:"id"`
	Pickup      LocationRequest `json:"pickup"`
	Dropoff     LocationRequest `json:"dropoff"`
	VehicleType string          `json:"vehicle_type"`
}

func (r *CreateRideRequest) Validate(v *validator.Validator) {
	if r.ID != "" {
		id, err := uuid.Parse(r.ID)
		v.Check(err == nil && id != uuid.Nil, "id", "must be a valid UUID")
	}

	r.Pickup.validate(v, "pickup")
	r.Dropoff.validate(v, "dropoff")

	v.Check(len(r.VehicleType) <= 32, "vehicle_type", "must not be more than 32 characters long")
}

// ToCommand builds the create command. Locations without coordinates are
// resolved by the caller before dispatch.
func (r *CreateRideRequest) ToCommand() models.CreateRide {
	id, err := uuid.Parse(r.ID)
	if err != nil || id == uuid.Nil {
		id = uuid.New()
	}

	class := types.VehicleClass(r.VehicleType)
	if class == "" {
		class = types.DefaultVehicleClass
	}

	return models.CreateRide{
		ID:           id,
		Pickup:       r.Pickup.ToModel(),
		Dropoff:      r.Dropoff.ToModel(),
		VehicleClass: class,
	}
}

// EstimateQuery is the query string of GET /estimate.
type EstimateQuery struct {
	Pickup  models.Location
	Dropoff models.Location
}

// ParseEstimateQuery reads pickup_lat, pickup_lng, dropoff_lat and dropoff_lng.
func ParseEstimateQuery(get func(string) string, v *validator.Validator) EstimateQuery {
	parse := func(key string, check func(float64, string)) float64 {
		raw := get(key)
		if raw == "" {
			v.AddError(key, "must be provided")
			return 0
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			v.AddError(key, "must be a number")
			return 0
		}
		check(f, key)
		return f
	}

	return EstimateQuery{
		Pickup: models.Location{
			Latitude:  parse("pickup_lat", v.CheckLatitude),
			Longitude: parse("pickup_lng", v.CheckLongitude),
		},
		Dropoff: models.Location{
			Latitude:  parse("dropoff_lat", v.CheckLatitude),
			Longitude: parse("dropoff_lng", v.CheckLongitude),
		},
	}
}
