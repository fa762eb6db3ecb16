package optimizer

import "math"

// TravelMinutes estimates the travel time for a leg of distanceKm at the
// given minute of day. When traffic is enabled the base time is scaled by a
// time-of-day multiplier; otherwise the multiplier is 1.
func TravelMinutes(distanceKm float64, v VehicleType, minuteOfDay int, traffic bool) int {
	mult := 1.0
	if traffic {
		mult = trafficMultiplier(minuteOfDay / 60)
	}
	return int(math.Round(distanceKm / v.baseSpeedKph() * 60 * mult))
}

// trafficMultiplier maps an hour of day to a congestion scalar. The bands
// cover the full day; everything outside 07:00-20:00 is the overnight band.
func trafficMultiplier(hour int) float64 {
	hour = ((hour % 24) + 24) % 24
	switch {
	case hour >= 7 && hour < 9:
		return 1.5
	case hour >= 9 && hour < 11:
		return 1.2
	case hour >= 11 && hour < 14:
		return 1.0
	case hour >= 14 && hour < 16:
		return 1.1
	case hour >= 16 && hour < 18:
		return 1.4
	case hour >= 18 && hour < 20:
		return 1.3
	default:
		return 0.9
	}
}
