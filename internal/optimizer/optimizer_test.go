package optimizer

import (
	"errors"
	"fmt"
	"math"
	"testing"
)

func defaultOpts(maxStops int) Options {
	return Options{
		StartLocation: stopAt("depot", 32.0853, 34.7818, ""),
		MaxStops:      maxStops,
		VehicleType:   VehicleCar,
	}
}

func TestOptimizeTwoStopScenario(t *testing.T) {
	a := stopAt("A", 32.09, 34.79, PriorityHigh)
	a.ServiceTime = 5
	b := stopAt("B", 32.10, 34.80, PriorityLow)
	b.ServiceTime = 7
	b.TimeWindow = &TimeWindow{Start: "09:00", End: "10:00"}

	res, err := Optimize([]Location{a, b}, defaultOpts(2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.OptimizedRoute) != 2 {
		t.Fatalf("route length %d, want 2", len(res.OptimizedRoute))
	}
	seen := map[string]int{}
	for _, s := range res.OptimizedRoute {
		seen[s.ID]++
	}
	if seen["A"] != 1 || seen["B"] != 1 {
		t.Fatalf("stops not present exactly once: %v", seen)
	}
	if res.TotalDistance <= 0 {
		t.Fatalf("total distance %v, want > 0", res.TotalDistance)
	}
	if res.EstimatedTime < 12 {
		t.Fatalf("estimated time %d, want >= combined service time 12", res.EstimatedTime)
	}
}

func TestOptimizeSingleStop(t *testing.T) {
	only := stopAt("only", 32.09, 34.79, PriorityMedium)
	res, err := Optimize([]Location{only}, defaultOpts(5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.OptimizedRoute) != 1 || res.OptimizedRoute[0].ID != "only" {
		t.Fatalf("route %v, want [only]", ids(res.OptimizedRoute))
	}
	if res.TotalDistance != 0 || res.EstimatedTime != 0 {
		t.Fatalf("totals %v/%d, want zeros", res.TotalDistance, res.EstimatedTime)
	}
	if res.Savings != (Savings{}) {
		t.Fatalf("savings %+v, want zero", res.Savings)
	}
}

func TestOptimizeEmptyInput(t *testing.T) {
	res, err := Optimize(nil, defaultOpts(5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.OptimizedRoute) != 0 || res.TotalDistance != 0 {
		t.Fatalf("want empty zero result, got %+v", res)
	}
}

func TestOptimizeTruncatesBeforeOptimizing(t *testing.T) {
	stops := make([]Location, 15)
	for i := range stops {
		stops[i] = stopAt(fmt.Sprintf("s%02d", i), 32.0+float64(i)*0.01, 34.7+float64(i)*0.01, PriorityLow)
	}
	res, err := Optimize(stops, defaultOpts(10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.OptimizedRoute) != 10 {
		t.Fatalf("route length %d, want 10", len(res.OptimizedRoute))
	}
	surviving := map[string]bool{}
	for i := 0; i < 10; i++ {
		surviving[stops[i].ID] = true
	}
	for _, s := range res.OptimizedRoute {
		if !surviving[s.ID] {
			t.Fatalf("stop %s survived truncation but should not have", s.ID)
		}
	}
}

func TestOptimizeZeroMaxStops(t *testing.T) {
	stops := []Location{
		stopAt("a", 32.09, 34.79, ""),
		stopAt("b", 32.10, 34.80, ""),
	}
	res, err := Optimize(stops, defaultOpts(0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.OptimizedRoute) != 0 || res.TotalDistance != 0 || res.EstimatedTime != 0 {
		t.Fatalf("want empty degenerate result, got %+v", res)
	}
}

func TestOptimizeCardinality(t *testing.T) {
	stops := []Location{
		stopAt("a", 32.09, 34.79, PriorityHigh),
		stopAt("b", 32.10, 34.80, PriorityLow),
		stopAt("c", 32.08, 34.77, PriorityMedium),
		stopAt("d", 32.11, 34.81, PriorityLow),
	}
	for _, maxStops := range []int{1, 2, 3, 4, 10} {
		res, err := Optimize(stops, defaultOpts(maxStops))
		if err != nil {
			t.Fatalf("maxStops=%d: %v", maxStops, err)
		}
		want := maxStops
		if want > len(stops) {
			want = len(stops)
		}
		if len(res.OptimizedRoute) != want {
			t.Fatalf("maxStops=%d: length %d, want %d", maxStops, len(res.OptimizedRoute), want)
		}
		seen := map[string]bool{}
		for _, s := range res.OptimizedRoute {
			if seen[s.ID] {
				t.Fatalf("maxStops=%d: duplicate stop %s", maxStops, s.ID)
			}
			seen[s.ID] = true
		}
	}
}

func TestOptimizeImprovesOnBadOrder(t *testing.T) {
	// Zigzag presentation of collinear stops; the refined route must not be
	// longer than visiting them in the given order.
	stops := []Location{
		stopAt("s4", 0, 0.4, ""),
		stopAt("s1", 0, 0.1, ""),
		stopAt("s5", 0, 0.5, ""),
		stopAt("s2", 0, 0.2, ""),
		stopAt("s6", 0, 0.6, ""),
		stopAt("s3", 0, 0.3, ""),
	}
	opts := Options{StartLocation: stopAt("depot", 0, 0, ""), MaxStops: 6, VehicleType: VehicleCar}
	res, err := Optimize(stops, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Savings.Distance < 0 {
		t.Fatalf("optimized order worse than input: savings %v km", res.Savings.Distance)
	}
	assertOrder(t, res.OptimizedRoute, "s1", "s2", "s3", "s4", "s5", "s6")
}

func TestOptimizeWindowOrdering(t *testing.T) {
	w1 := stopAt("w1", 32.11, 34.81, "")
	w1.TimeWindow = &TimeWindow{Start: "09:00", End: "10:00"}
	w2 := stopAt("w2", 32.08, 34.77, "")
	w2.TimeWindow = &TimeWindow{Start: "13:00", End: "14:00"}
	free := stopAt("free", 32.09, 34.79, "")

	res, err := Optimize([]Location{w2, free, w1}, defaultOpts(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pos := map[string]int{}
	for i, s := range res.OptimizedRoute {
		pos[s.ID] = i
	}
	if pos["w1"] > pos["w2"] {
		t.Fatalf("window order violated: %v", ids(res.OptimizedRoute))
	}
}

func TestOptimizeEndLocationAddsReturnLeg(t *testing.T) {
	stops := []Location{stopAt("a", 0, 0.1, ""), stopAt("b", 0, 0.2, "")}
	base := Options{StartLocation: stopAt("depot", 0, 0, ""), MaxStops: 2, VehicleType: VehicleCar}
	withEnd := base
	end := stopAt("depot-return", 0, 0, "")
	withEnd.EndLocation = &end

	open, err := Optimize(stops, base)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	closed, err := Optimize(stops, withEnd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if closed.TotalDistance <= open.TotalDistance {
		t.Fatalf("return leg not counted: closed %v <= open %v", closed.TotalDistance, open.TotalDistance)
	}
}

func TestOptimizeMaxWorkingHoursWarning(t *testing.T) {
	a := stopAt("a", 33.0, 35.7, "")
	a.ServiceTime = 30
	b := stopAt("b", 31.2, 34.0, "")
	b.ServiceTime = 30
	opts := defaultOpts(2)
	opts.TimeConstraints = &TimeConstraints{MaxWorkingHours: 1, BreakTime: 45}

	res, err := Optimize([]Location{a, b}, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Warnings) == 0 {
		t.Fatalf("expected a max-working-time warning, got none")
	}
	if len(res.OptimizedRoute) != 2 {
		t.Fatalf("constraint must not drop stops: %v", ids(res.OptimizedRoute))
	}
	// The 45 minute break is part of the estimate.
	noBreak := opts
	noBreak.TimeConstraints = nil
	plain, err := Optimize([]Location{a, b}, noBreak)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.EstimatedTime != plain.EstimatedTime+45 {
		t.Fatalf("estimate %d, want %d", res.EstimatedTime, plain.EstimatedTime+45)
	}
}

func TestOptimizeDeterministic(t *testing.T) {
	stops := []Location{
		stopAt("a", 32.09, 34.79, PriorityHigh),
		stopAt("b", 32.10, 34.80, PriorityLow),
		stopAt("c", 32.08, 34.77, PriorityMedium),
	}
	stops[1].TimeWindow = &TimeWindow{Start: "09:00", End: "10:00"}
	first, err := Optimize(stops, defaultOpts(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := Optimize(stops, defaultOpts(3))
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if again.TotalDistance != first.TotalDistance || again.EstimatedTime != first.EstimatedTime {
			t.Fatalf("run %d diverged: %+v vs %+v", i, again, first)
		}
		for j := range first.OptimizedRoute {
			if again.OptimizedRoute[j].ID != first.OptimizedRoute[j].ID {
				t.Fatalf("run %d route diverged: %v vs %v", i, ids(again.OptimizedRoute), ids(first.OptimizedRoute))
			}
		}
	}
}

func TestOptimizeInvalidInput(t *testing.T) {
	good := stopAt("ok", 32.09, 34.79, "")
	cases := []struct {
		name  string
		stops []Location
		opts  Options
	}{
		{"negative maxStops", []Location{good}, Options{StartLocation: good, MaxStops: -1}},
		{"unknown vehicle", []Location{good}, Options{StartLocation: good, MaxStops: 1, VehicleType: "bicycle"}},
		{"nan coordinates", []Location{stopAt("bad", math.NaN(), 34.79, "")}, defaultOpts(1)},
		{"negative service time", []Location{{ID: "bad", Coordinates: Coordinates{Lat: 1, Lng: 1}, ServiceTime: -5}}, defaultOpts(1)},
		{"unknown priority", []Location{stopAt("bad", 1, 1, "urgent")}, defaultOpts(1)},
		{"bad window format", []Location{{ID: "bad", Coordinates: Coordinates{Lat: 1, Lng: 1}, TimeWindow: &TimeWindow{Start: "9am", End: "10:00"}}}, defaultOpts(1)},
		{"inverted window", []Location{{ID: "bad", Coordinates: Coordinates{Lat: 1, Lng: 1}, TimeWindow: &TimeWindow{Start: "12:00", End: "11:00"}}}, defaultOpts(1)},
	}
	for _, tc := range cases {
		if _, err := Optimize(tc.stops, tc.opts); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("%s: got %v, want ErrInvalidInput", tc.name, err)
		}
	}
}

func TestOptimizeDoesNotMutateInput(t *testing.T) {
	stops := []Location{
		stopAt("z", 32.12, 34.82, PriorityLow),
		stopAt("a", 32.09, 34.79, PriorityHigh),
	}
	if _, err := Optimize(stops, defaultOpts(2)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stops[0].ID != "z" || stops[1].ID != "a" {
		t.Fatalf("input mutated: %v", ids(stops))
	}
}
