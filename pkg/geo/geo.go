// Package geo provides the spherical geometry used by the live overlay:
// bounding boxes around an observer point, great-circle paths for rendering,
// and great-circle distances.
//
// All coordinates are WGS84 decimal degrees. Calculations use a spherical
// Earth approximation, which is accurate enough for map overlays.
package geo

import "math"

// Constants for geometry calculations
const (
	// DegreesToRadians converts degrees to radians
	DegreesToRadians = math.Pi / 180.0

	// RadiansToDegrees converts radians to degrees
	RadiansToDegrees = 180.0 / math.Pi

	// EarthRadiusKm is the Earth's mean radius in kilometers
	EarthRadiusKm = 6371.0

	// DefaultPathSteps is the default number of samples in a great-circle path.
	// Higher values trade payload size for smoother polylines.
	DefaultPathSteps = 100
)

// Point represents a position on Earth's surface.
type Point struct {
	// Lat is latitude in decimal degrees (-90 to +90)
	Lat float64

	// Lon is longitude in decimal degrees (-180 to +180)
	Lon float64
}

// Box is a latitude/longitude rectangle approximating a circular coverage
// area around a center point.
type Box struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// BoundingBox computes the lat/lon rectangle covering a circle of radiusKm
// around center. The longitude delta is divided by the cosine of the center
// latitude so the box stays roughly circular on the sphere instead of
// collapsing toward the poles.
//
// Inputs are not validated: NaN in, NaN out. Validation is the caller's job.
func BoundingBox(center Point, radiusKm float64) Box {
	latChange := (radiusKm / EarthRadiusKm) * RadiansToDegrees
	lonChange := latChange / math.Cos(center.Lat*DegreesToRadians)

	return Box{
		MinLat: center.Lat - latChange,
		MaxLat: center.Lat + latChange,
		MinLon: center.Lon - lonChange,
		MaxLon: center.Lon + lonChange,
	}
}

// GreatCirclePath samples the shortest spherical path from start to end into
// exactly steps points, endpoints included. The result depends only on the
// inputs: calling it twice yields an identical sequence.
//
// When start and end coincide (or are close enough that the angular distance
// underflows), every sample equals start.
func GreatCirclePath(start, end Point, steps int) []Point {
	if steps <= 0 {
		steps = DefaultPathSteps
	}
	if steps == 1 {
		return []Point{start}
	}

	lat1 := start.Lat * DegreesToRadians
	lon1 := start.Lon * DegreesToRadians
	lat2 := end.Lat * DegreesToRadians
	lon2 := end.Lon * DegreesToRadians

	// Angular distance between the endpoints (haversine).
	dLat := lat2 - lat1
	dLon := lon2 - lon1
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	d := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	path := make([]Point, 0, steps)

	if math.Sin(d) == 0 {
		// Degenerate path: the slerp denominator vanishes.
		for i := 0; i < steps; i++ {
			path = append(path, start)
		}
		return path
	}

	// Spherical linear interpolation between the two endpoint vectors.
	for i := 0; i < steps; i++ {
		f := float64(i) / float64(steps-1)

		A := math.Sin((1-f)*d) / math.Sin(d)
		B := math.Sin(f*d) / math.Sin(d)

		x := A*math.Cos(lat1)*math.Cos(lon1) + B*math.Cos(lat2)*math.Cos(lon2)
		y := A*math.Cos(lat1)*math.Sin(lon1) + B*math.Cos(lat2)*math.Sin(lon2)
		z := A*math.Sin(lat1) + B*math.Sin(lat2)

		path = append(path, Point{
			Lat: math.Atan2(z, math.Sqrt(x*x+y*y)) * RadiansToDegrees,
			Lon: math.Atan2(y, x) * RadiansToDegrees,
		})
	}

	return path
}

// DistanceKm calculates the great-circle distance between two points using
// the haversine formula. Symmetric: DistanceKm(a, b) == DistanceKm(b, a).
func DistanceKm(a, b Point) float64 {
	lat1 := a.Lat * DegreesToRadians
	lon1 := a.Lon * DegreesToRadians
	lat2 := b.Lat * DegreesToRadians
	lon2 := b.Lon * DegreesToRadians

	dLat := lat2 - lat1
	dLon := lon2 - lon1

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusKm * c
}

// Bearing calculates the initial bearing (forward azimuth) from one point to
// another along the great circle, in degrees 0-360 clockwise from north.
func Bearing(from, to Point) float64 {
	lat1 := from.Lat * DegreesToRadians
	lon1 := from.Lon * DegreesToRadians
	lat2 := to.Lat * DegreesToRadians
	lon2 := to.Lon * DegreesToRadians

	dLon := lon2 - lon1
	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	bearing := math.Atan2(y, x) * RadiansToDegrees

	if bearing < 0 {
		bearing += 360
	}

	return bearing
}
