package geo

import (
	"math"

	"github.com/resqlink/resqlink/core/model"
)

// EarthRadiusKm is the mean Earth radius used by the haversine formula.
const EarthRadiusKm = 6371.0

// DefaultSpeedKmh is the assumed travel speed for ETA estimates.
const DefaultSpeedKmh = 30.0

// kmPerDegreeLat approximates the length of one degree of latitude.
const kmPerDegreeLat = 111.0

// DistanceKm returns the great-circle distance between two points using the
// haversine formula. The result is symmetric in its arguments.
func DistanceKm(a, b model.Location) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * EarthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// BearingDegrees returns the initial compass bearing from a to b in [0,360).
// It is meant for display only, not for routing.
func BearingDegrees(a, b model.Location) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	deg := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(deg+360, 360)
}

// BoundingBox is a rectangular pre-filter around a center point. It is a
// deliberate cheap first phase before exact haversine filtering, because the
// remote store has no native proximity index.
type BoundingBox struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// BoxAround computes the bounding box containing all points within radiusKm of
// center. One degree of latitude is taken as 111 km and the longitude delta is
// corrected by cos(latitude). Near the poles the box degenerates to the full
// longitude range. Longitude is clamped to [-180, 180] rather than wrapped: a
// radius straddling the antimeridian truncates at the line instead of carrying
// over to the far side, so candidates just across it are pre-filtered out.
func BoxAround(center model.Location, radiusKm float64) BoundingBox {
	dLat := radiusKm / kmPerDegreeLat
	box := BoundingBox{
		MinLat: math.Max(center.Latitude-dLat, -90),
		MaxLat: math.Min(center.Latitude+dLat, 90),
	}
	cosLat := math.Cos(center.Latitude * math.Pi / 180)
	if cosLat < 1e-6 {
		box.MinLon, box.MaxLon = -180, 180
		return box
	}
	dLon := radiusKm / (kmPerDegreeLat * cosLat)
	box.MinLon = math.Max(center.Longitude-dLon, -180)
	box.MaxLon = math.Min(center.Longitude+dLon, 180)
	return box
}

// Contains reports whether the point falls inside the box.
func (b BoundingBox) Contains(p model.Location) bool {
	return p.Latitude >= b.MinLat && p.Latitude <= b.MaxLat &&
		p.Longitude >= b.MinLon && p.Longitude <= b.MaxLon
}

// EstimateETAMinutes converts a straight-line distance into a rough travel
// time at the given speed, never returning less than one minute. This is a
// linear heuristic, not a road-aware estimate.
func EstimateETAMinutes(distanceMeters, speedKmh float64) int {
	if speedKmh <= 0 {
		speedKmh = DefaultSpeedKmh
	}
	minutes := int(math.Round(distanceMeters / 1000 / speedKmh * 60))
	if minutes < 1 {
		return 1
	}
	return minutes
}

// IsWithinRadius reports whether point lies within radiusKm of center. The
// boundary is inclusive.
func IsWithinRadius(center, point model.Location, radiusKm float64) bool {
	return DistanceKm(center, point) <= radiusKm
}
