// Package optimizer implements the multi-stop route optimization engine:
// great-circle distances, traffic-aware travel times, a priority-weighted
// nearest-neighbor constructor, 2-opt refinement, and time-window
// re-sequencing. The engine is pure compute over in-memory inputs; callers
// own validation of everything beyond the request shape.
package optimizer

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidInput marks request shapes rejected at the engine boundary
// (non-finite coordinates, negative service time, malformed time windows).
// Degenerate but well-formed inputs are not errors.
var ErrInvalidInput = errors.New("invalid input")

// Coordinates is a latitude/longitude pair in decimal degrees.
type Coordinates struct {
	Lat float64
	Lng float64
}

// Priority biases stop selection during route construction.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// weight scales the incumbent's distance during nearest-neighbor selection.
// An unset priority behaves like low.
func (p Priority) weight() float64 {
	switch p {
	case PriorityHigh:
		return 0.8
	case PriorityMedium:
		return 0.9
	default:
		return 1.0
	}
}

// rank orders priorities for the stable pre-construction sort.
func (p Priority) rank() int {
	switch p {
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	default:
		return 0
	}
}

func (p Priority) valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, "":
		return true
	}
	return false
}

// VehicleType selects the base average speed used for travel-time estimates.
type VehicleType string

const (
	VehicleCar        VehicleType = "car"
	VehicleMotorcycle VehicleType = "motorcycle"
	VehicleTruck      VehicleType = "truck"
)

func (v VehicleType) baseSpeedKph() float64 {
	switch v {
	case VehicleMotorcycle:
		return 35
	case VehicleTruck:
		return 30
	default:
		return 40 // car
	}
}

func (v VehicleType) valid() bool {
	switch v {
	case VehicleCar, VehicleMotorcycle, VehicleTruck, "":
		return true
	}
	return false
}

// TimeWindow is an optional HH:MM clock-time constraint for visiting a stop.
type TimeWindow struct {
	Start string
	End   string
}

// Location is one deliverable point. Name and Address are display-only.
type Location struct {
	ID          string
	Name        string
	Address     string
	Coordinates Coordinates
	Priority    Priority
	TimeWindow  *TimeWindow
	ServiceTime int // minutes spent at the stop, added to duration only
}

// TimeConstraints caps the working day. When the estimated duration exceeds
// MaxWorkingHours, BreakTime minutes are added and the result carries a
// warning; stops are never dropped.
type TimeConstraints struct {
	MaxWorkingHours float64
	BreakTime       int // minutes
}

// Options parameterizes a single optimization call.
type Options struct {
	StartLocation        Location
	EndLocation          *Location // optional return point, included in totals
	MaxStops             int       // input is truncated to this length before optimization
	TimeConstraints      *TimeConstraints
	VehicleType          VehicleType
	TrafficConsideration bool
}

// Savings is the naive-order totals minus the optimized totals. Negative
// values are a legitimate outcome, not an error.
type Savings struct {
	Distance float64 // km
	Time     int     // minutes
}

// Result is the output of one optimization call. OptimizedRoute excludes the
// start point.
type Result struct {
	OptimizedRoute []Location
	TotalDistance  float64 // km
	EstimatedTime  int     // minutes, travel plus service time
	Savings        Savings
	Warnings       []string
}

// parseClock converts "HH:MM" to minutes since midnight.
func parseClock(s string) (int, error) {
	h, m, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("clock %q: want HH:MM", s)
	}
	hh, err := strconv.Atoi(h)
	if err != nil {
		return 0, fmt.Errorf("clock %q: %w", s, err)
	}
	mm, err := strconv.Atoi(m)
	if err != nil {
		return 0, fmt.Errorf("clock %q: %w", s, err)
	}
	if hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return 0, fmt.Errorf("clock %q: out of range", s)
	}
	return hh*60 + mm, nil
}
