package api

import (
	"fmt"

	"routeopt/internal/model"
)

func validateOptimizeRequest(req *model.OptimizeRequest) error {
	if req.StartLocation == nil {
		return fmt.Errorf("startLocation is required")
	}
	if len(req.Stops) == 0 && req.StopSetID == "" {
		return fmt.Errorf("either stops or stopSetId is required")
	}
	if len(req.Stops) > 0 && req.StopSetID != "" {
		return fmt.Errorf("stops and stopSetId are mutually exclusive")
	}
	if req.MaxStops != nil && *req.MaxStops < 0 {
		return fmt.Errorf("maxStops must be >= 0")
	}
	switch req.VehicleType {
	case "", "car", "motorcycle", "truck":
	default:
		return fmt.Errorf("invalid vehicleType: %s (allowed: car,motorcycle,truck)", req.VehicleType)
	}
	if req.TimeConstraints != nil {
		if req.TimeConstraints.MaxWorkingHours < 0 {
			return fmt.Errorf("timeConstraints.maxWorkingHours must be >= 0")
		}
		if req.TimeConstraints.BreakTime < 0 {
			return fmt.Errorf("timeConstraints.breakTime must be >= 0")
		}
	}
	for i, st := range req.Stops {
		switch st.Priority {
		case "", "low", "medium", "high":
		default:
			return fmt.Errorf("stops[%d]: invalid priority: %s (allowed: low,medium,high)", i, st.Priority)
		}
	}
	return nil
}
