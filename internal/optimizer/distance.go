package optimizer

import "math"

const earthRadiusKm = 6371.0

// Distance returns the great-circle distance between two points in
// kilometers using the haversine formula. Symmetric, zero for identical
// points.
func Distance(a, b Coordinates) float64 {
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Lat*math.Pi/180)*math.Cos(b.Lat*math.Pi/180)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// routeDistance totals the legs of [start, route..., end] where end is
// optional.
func routeDistance(start Location, end *Location, route []Location) float64 {
	total := 0.0
	prev := start.Coordinates
	for _, stop := range route {
		total += Distance(prev, stop.Coordinates)
		prev = stop.Coordinates
	}
	if end != nil {
		total += Distance(prev, end.Coordinates)
	}
	return total
}
