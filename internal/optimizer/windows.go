package optimizer

import "sort"

// resequenceByWindows reorders the route so stops carrying a delivery window
// are visited in ascending window-start order. Unconstrained stops are
// interleaved one at a time between windowed stops rather than batched at the
// end; the interleave alternates strictly so identical inputs always produce
// identical routes. No stop is dropped or duplicated.
func resequenceByWindows(route []Location) []Location {
	var windowed, free []Location
	for _, stop := range route {
		if stop.TimeWindow != nil {
			windowed = append(windowed, stop)
		} else {
			free = append(free, stop)
		}
	}
	if len(windowed) == 0 {
		return route
	}
	sort.SliceStable(windowed, func(i, j int) bool {
		return windowStart(windowed[i]) < windowStart(windowed[j])
	})
	out := make([]Location, 0, len(route))
	fi := 0
	for _, stop := range windowed {
		out = append(out, stop)
		if fi < len(free) {
			out = append(out, free[fi])
			fi++
		}
	}
	return append(out, free[fi:]...)
}

func windowStart(l Location) int {
	m, err := parseClock(l.TimeWindow.Start)
	if err != nil {
		return 0
	}
	return m
}
