package optimizer

// nearestNeighbor builds an initial visiting order greedily from start. At
// each step the closest unvisited stop wins, except that a challenger must
// beat the incumbent's distance scaled by the incumbent's priority weight, so
// a high-priority incumbent survives near-ties against closer low-priority
// stops. O(n^2) in candidate count.
func nearestNeighbor(start Location, candidates []Location) []Location {
	if len(candidates) <= 1 {
		return append([]Location(nil), candidates...)
	}
	unvisited := append([]Location(nil), candidates...)
	route := make([]Location, 0, len(candidates))
	current := start
	for len(unvisited) > 0 {
		best := 0
		bestDist := Distance(current.Coordinates, unvisited[0].Coordinates)
		for i := 1; i < len(unvisited); i++ {
			d := Distance(current.Coordinates, unvisited[i].Coordinates)
			if d < bestDist*unvisited[best].Priority.weight() {
				best, bestDist = i, d
			}
		}
		current = unvisited[best]
		route = append(route, current)
		unvisited = append(unvisited[:best], unvisited[best+1:]...)
	}
	return route
}
