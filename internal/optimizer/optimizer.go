package optimizer

import (
	"fmt"
	"math"
	"sort"
)

// Optimize computes a visiting order for stops that approximately minimizes
// total travel distance while honoring priorities and time windows.
//
// Pipeline: truncate to MaxStops, stable-sort by descending priority, build
// greedily (nearest neighbor with priority weighting), refine with 2-opt when
// small enough, then re-sequence time-windowed stops. Inputs with at most one
// stop short-circuit with zero totals. The inputs are never mutated.
func Optimize(stops []Location, opts Options) (Result, error) {
	if err := validate(stops, opts); err != nil {
		return Result{}, err
	}

	if len(stops) <= 1 {
		return Result{OptimizedRoute: append([]Location{}, stops...)}, nil
	}

	candidates := append([]Location(nil), stops...)
	if opts.MaxStops < len(candidates) {
		candidates = candidates[:opts.MaxStops]
	}

	// Savings baseline keeps the caller's order, truncated the same way.
	naive := append([]Location(nil), candidates...)

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Priority.rank() > candidates[j].Priority.rank()
	})

	route := nearestNeighbor(opts.StartLocation, candidates)
	route = refine2Opt(opts.StartLocation, opts.EndLocation, route)
	route = resequenceByWindows(route)

	optTotals := measure(route, opts)
	naiveTotals := measure(naive, opts)

	res := Result{
		OptimizedRoute: route,
		TotalDistance:  optTotals.distanceKm,
		EstimatedTime:  optTotals.minutes,
		Savings: Savings{
			Distance: naiveTotals.distanceKm - optTotals.distanceKm,
			Time:     naiveTotals.minutes - optTotals.minutes,
		},
	}
	if tc := opts.TimeConstraints; tc != nil && tc.MaxWorkingHours > 0 {
		limit := int(tc.MaxWorkingHours * 60)
		if res.EstimatedTime > limit {
			res.EstimatedTime += tc.BreakTime
			res.Warnings = append(res.Warnings, fmt.Sprintf(
				"estimated %d min exceeds max working time of %d min; %d min break added",
				optTotals.minutes, limit, tc.BreakTime))
		}
	}
	return res, nil
}

func validate(stops []Location, opts Options) error {
	if opts.MaxStops < 0 {
		return fmt.Errorf("%w: maxStops must be >= 0", ErrInvalidInput)
	}
	if !opts.VehicleType.valid() {
		return fmt.Errorf("%w: unknown vehicle type %q", ErrInvalidInput, opts.VehicleType)
	}
	if err := validateStop(opts.StartLocation); err != nil {
		return err
	}
	if opts.EndLocation != nil {
		if err := validateStop(*opts.EndLocation); err != nil {
			return err
		}
	}
	if tc := opts.TimeConstraints; tc != nil && (tc.MaxWorkingHours < 0 || tc.BreakTime < 0) {
		return fmt.Errorf("%w: time constraints must be non-negative", ErrInvalidInput)
	}
	for i := range stops {
		if err := validateStop(stops[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateStop(l Location) error {
	lat, lng := l.Coordinates.Lat, l.Coordinates.Lng
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lng) || math.IsInf(lng, 0) {
		return fmt.Errorf("%w: stop %q has non-finite coordinates", ErrInvalidInput, l.ID)
	}
	if l.ServiceTime < 0 {
		return fmt.Errorf("%w: stop %q has negative service time", ErrInvalidInput, l.ID)
	}
	if !l.Priority.valid() {
		return fmt.Errorf("%w: stop %q has unknown priority %q", ErrInvalidInput, l.ID, l.Priority)
	}
	if tw := l.TimeWindow; tw != nil {
		start, err := parseClock(tw.Start)
		if err != nil {
			return fmt.Errorf("%w: stop %q: %v", ErrInvalidInput, l.ID, err)
		}
		end, err := parseClock(tw.End)
		if err != nil {
			return fmt.Errorf("%w: stop %q: %v", ErrInvalidInput, l.ID, err)
		}
		if start > end {
			return fmt.Errorf("%w: stop %q window starts after it ends", ErrInvalidInput, l.ID)
		}
	}
	return nil
}
