package model

// Wire and storage shapes shared by the API and store layers. The engine has
// its own types; conversions live here so handlers stay thin.

import "routeopt/internal/optimizer"

type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type TimeWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Stop is one deliverable point as carried over the wire.
type Stop struct {
	ID          string      `json:"id"`
	Name        string      `json:"name,omitempty"`
	Address     string      `json:"address,omitempty"`
	Coordinates GeoPoint    `json:"coordinates"`
	Priority    string      `json:"priority,omitempty"`
	TimeWindow  *TimeWindow `json:"timeWindow,omitempty"`
	ServiceTime int         `json:"serviceTime,omitempty"` // minutes
}

type TimeConstraints struct {
	MaxWorkingHours float64 `json:"maxWorkingHours,omitempty"`
	BreakTime       int     `json:"breakTime,omitempty"` // minutes
}

// OptimizeRequest is the body of POST /v1/optimize. Stops may be supplied
// inline or by reference to a stored stop set.
type OptimizeRequest struct {
	TenantID             string           `json:"tenantId,omitempty"`
	StopSetID            string           `json:"stopSetId,omitempty"`
	Stops                []Stop           `json:"stops,omitempty"`
	StartLocation        *Stop            `json:"startLocation"`
	EndLocation          *Stop            `json:"endLocation,omitempty"`
	MaxStops             *int             `json:"maxStops,omitempty"` // nil means no cap
	TimeConstraints      *TimeConstraints `json:"timeConstraints,omitempty"`
	VehicleType          string           `json:"vehicleType,omitempty"`
	TrafficConsideration bool             `json:"trafficConsideration,omitempty"`
}

type Savings struct {
	Distance float64 `json:"distance"` // km
	Time     int     `json:"time"`     // minutes
}

// RoutePlan is a computed plan: the optimization result plus identifiers for
// storage and event payloads.
type RoutePlan struct {
	ID             string   `json:"id"`
	TenantID       string   `json:"tenantId,omitempty"`
	StopSetID      string   `json:"stopSetId,omitempty"`
	VehicleType    string   `json:"vehicleType,omitempty"`
	OptimizedRoute []Stop   `json:"optimizedRoute"`
	TotalDistance  float64  `json:"totalDistance"` // km
	EstimatedTime  int      `json:"estimatedTime"` // minutes
	Savings        Savings  `json:"savings"`
	Warnings       []string `json:"warnings,omitempty"`
	CreatedAt      string   `json:"createdAt,omitempty"`
}

// StopSetIn is the creation body for a stored stop set.
type StopSetIn struct {
	Name  string `json:"name,omitempty"`
	Stops []Stop `json:"stops"`
}

// StopSet is a named collection of candidate stops owned by a tenant.
type StopSet struct {
	ID        string `json:"id"`
	TenantID  string `json:"tenantId,omitempty"`
	Name      string `json:"name,omitempty"`
	Stops     []Stop `json:"stops"`
	CreatedAt string `json:"createdAt,omitempty"`
}

type SubscriptionRequest struct {
	TenantID string   `json:"tenantId,omitempty"`
	URL      string   `json:"url"`
	Events   []string `json:"events"`
	Secret   string   `json:"secret,omitempty"`
}

type Subscription struct {
	ID       string   `json:"id"`
	TenantID string   `json:"tenantId,omitempty"`
	URL      string   `json:"url"`
	Events   []string `json:"events"`
	Secret   string   `json:"-"`
}

// ToEngine converts a wire stop to the engine's location type.
func (s Stop) ToEngine() optimizer.Location {
	loc := optimizer.Location{
		ID:          s.ID,
		Name:        s.Name,
		Address:     s.Address,
		Coordinates: optimizer.Coordinates{Lat: s.Coordinates.Lat, Lng: s.Coordinates.Lng},
		Priority:    optimizer.Priority(s.Priority),
		ServiceTime: s.ServiceTime,
	}
	if s.TimeWindow != nil {
		loc.TimeWindow = &optimizer.TimeWindow{Start: s.TimeWindow.Start, End: s.TimeWindow.End}
	}
	return loc
}

// StopFromEngine converts an engine location back to the wire shape.
func StopFromEngine(l optimizer.Location) Stop {
	s := Stop{
		ID:          l.ID,
		Name:        l.Name,
		Address:     l.Address,
		Coordinates: GeoPoint{Lat: l.Coordinates.Lat, Lng: l.Coordinates.Lng},
		Priority:    string(l.Priority),
		ServiceTime: l.ServiceTime,
	}
	if l.TimeWindow != nil {
		s.TimeWindow = &TimeWindow{Start: l.TimeWindow.Start, End: l.TimeWindow.End}
	}
	return s
}

// StopsToEngine converts a slice of wire stops.
func StopsToEngine(stops []Stop) []optimizer.Location {
	out := make([]optimizer.Location, len(stops))
	for i, s := range stops {
		out[i] = s.ToEngine()
	}
	return out
}

// StopsFromEngine converts a slice of engine locations.
func StopsFromEngine(route []optimizer.Location) []Stop {
	out := make([]Stop, len(route))
	for i, l := range route {
		out[i] = StopFromEngine(l)
	}
	return out
}
