package optimizer

// routeStartMinutes seeds the running clock used for traffic-aware legs.
const routeStartMinutes = 9 * 60 // 09:00

type routeTotals struct {
	distanceKm float64
	minutes    int
}

// measure walks [start, route..., end] carrying a running clock so each
// leg's traffic multiplier reflects the estimated time of day it is driven.
// The clock advances by travel time plus the arriving stop's service time
// before the next leg is costed.
func measure(route []Location, opts Options) routeTotals {
	var t routeTotals
	clock := routeStartMinutes
	prev := opts.StartLocation.Coordinates
	for _, stop := range route {
		d := Distance(prev, stop.Coordinates)
		travel := TravelMinutes(d, opts.VehicleType, clock, opts.TrafficConsideration)
		t.distanceKm += d
		t.minutes += travel + stop.ServiceTime
		clock += travel + stop.ServiceTime
		prev = stop.Coordinates
	}
	if opts.EndLocation != nil {
		d := Distance(prev, opts.EndLocation.Coordinates)
		t.distanceKm += d
		t.minutes += TravelMinutes(d, opts.VehicleType, clock, opts.TrafficConsideration)
	}
	return t
}
