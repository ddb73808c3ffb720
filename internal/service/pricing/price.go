package pricing

import (
	"math"

	"github.com/Temutjin2k/ride-hail-client/internal/domain/models"
)

const (
	earthRadiusKm = 6371

	baseFare  = 5.0
	ratePerKm = 2.0
)

// Distance is the great-circle distance in km between two points (haversine formula).
func Distance(p1, p2 models.Location) float64 {
	lat1 := toRadians(p1.Latitude)
	lat2 := toRadians(p2.Latitude)
	diffLat := lat2 - lat1
	diffLon := toRadians(p2.Longitude) - toRadians(p1.Longitude)

	a := math.Pow(math.Sin(diffLat/2), 2) + math.Cos(lat1)*math.Cos(lat2)*math.Pow(math.Sin(diffLon/2), 2)
	// rounding can push a a hair above 1 for antipodal points
	a = math.Min(1, math.Max(0, a))
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// EstimatePrice returns base fare plus per-km rate for the trip, rounded to cents.
// It is total: it never fails and never returns NaN for finite input.
func EstimatePrice(pickup, dropoff models.Location) float64 {
	return FareForDistance(Distance(pickup, dropoff))
}

// FareForDistance prices a trip of distanceKm.
func FareForDistance(distanceKm float64) float64 {
	return RoundCents(baseFare + distanceKm*ratePerKm)
}

// RoundCents rounds half away from zero at the cent level.
func RoundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
