package optimizer

// refineStopLimit gates 2-opt refinement. Each candidate reversal recomputes
// the whole route distance, so the pass is at least cubic per sweep; larger
// routes keep the constructor's order.
const refineStopLimit = 10

// refine2Opt improves the route by segment reversal until a full sweep finds
// no strictly shorter variant. The start point (and end point, when set) stay
// fixed.
func refine2Opt(start Location, end *Location, route []Location) []Location {
	if len(route) > refineStopLimit || len(route) < 2 {
		return route
	}
	best := append([]Location(nil), route...)
	bestDist := routeDistance(start, end, best)
	for {
		improved := false
		for i := 0; i < len(best)-1; i++ {
			for j := i + 1; j < len(best); j++ {
				cand := reverseSegment(best, i, j)
				if d := routeDistance(start, end, cand); d < bestDist {
					best, bestDist = cand, d
					improved = true
				}
			}
		}
		if !improved {
			break
		}
	}
	return best
}

// reverseSegment returns a copy of route with route[i..j] reversed.
func reverseSegment(route []Location, i, j int) []Location {
	out := make([]Location, len(route))
	copy(out, route[:i])
	pos := i
	for k := j; k >= i; k-- {
		out[pos] = route[k]
		pos++
	}
	copy(out[pos:], route[j+1:])
	return out
}
