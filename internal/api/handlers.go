package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"routeopt/internal/buildinfo"
	"routeopt/internal/integrations"
	"routeopt/internal/integrations/csvstops"
	"routeopt/internal/metrics"
	"routeopt/internal/model"
	"routeopt/internal/optimizer"
	"routeopt/internal/webhooks"
)

// OptimizeHandler handles POST /v1/optimize
func (s *Server) OptimizeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	p := s.getPrincipal(r)
	if !p.CanOptimize() {
		writeProblem(w, 403, "Forbidden", "dispatcher or admin required", r.URL.Path)
		return
	}
	if s.limiter != nil && !s.limiter.Allow() {
		writeProblem(w, http.StatusTooManyRequests, "Rate limited", "optimize rate limit exceeded", r.URL.Path)
		return
	}
	var req model.OptimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if err := validateOptimizeRequest(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid optimize request", err.Error(), r.URL.Path)
		return
	}
	if req.TenantID == "" {
		_, req.TenantID = s.withTenant(r)
	}

	stops := req.Stops
	if req.StopSetID != "" {
		set, err := s.Store.GetStopSet(r.Context(), req.TenantID, req.StopSetID)
		if err != nil {
			writeProblem(w, http.StatusNotFound, "Stop set not found", err.Error(), r.URL.Path)
			return
		}
		stops = set.Stops
	}

	maxStops := len(stops)
	if req.MaxStops != nil {
		maxStops = *req.MaxStops
	}
	opts := optimizer.Options{
		StartLocation:        req.StartLocation.ToEngine(),
		MaxStops:             maxStops,
		VehicleType:          optimizer.VehicleType(req.VehicleType),
		TrafficConsideration: req.TrafficConsideration,
	}
	if req.EndLocation != nil {
		end := req.EndLocation.ToEngine()
		opts.EndLocation = &end
	}
	if req.TimeConstraints != nil {
		opts.TimeConstraints = &optimizer.TimeConstraints{
			MaxWorkingHours: req.TimeConstraints.MaxWorkingHours,
			BreakTime:       req.TimeConstraints.BreakTime,
		}
	}

	start := time.Now()
	res, err := optimizer.Optimize(model.StopsToEngine(stops), opts)
	metrics.OptimizeDuration.Observe(time.Since(start).Seconds())
	metrics.OptimizeStops.Observe(float64(len(stops)))
	if err != nil {
		if errors.Is(err, optimizer.ErrInvalidInput) {
			metrics.OptimizeRequests.WithLabelValues("invalid").Inc()
			writeProblem(w, http.StatusBadRequest, "Invalid optimize request", err.Error(), r.URL.Path)
			return
		}
		metrics.OptimizeRequests.WithLabelValues("error").Inc()
		writeProblem(w, http.StatusInternalServerError, "Optimize failed", err.Error(), r.URL.Path)
		return
	}
	metrics.OptimizeRequests.WithLabelValues("ok").Inc()
	metrics.OptimizeSavingsKm.Observe(res.Savings.Distance)

	plan := model.RoutePlan{
		TenantID:       req.TenantID,
		StopSetID:      req.StopSetID,
		VehicleType:    req.VehicleType,
		OptimizedRoute: model.StopsFromEngine(res.OptimizedRoute),
		TotalDistance:  res.TotalDistance,
		EstimatedTime:  res.EstimatedTime,
		Savings:        model.Savings{Distance: res.Savings.Distance, Time: res.Savings.Time},
		Warnings:       res.Warnings,
	}
	saved, err := s.Store.SavePlan(r.Context(), req.TenantID, plan)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Save plan failed", err.Error(), r.URL.Path)
		return
	}
	evt := map[string]any{
		"planId":        saved.ID,
		"stopSetId":     saved.StopSetID,
		"stops":         len(saved.OptimizedRoute),
		"totalDistance": saved.TotalDistance,
		"estimatedTime": saved.EstimatedTime,
		"savings":       saved.Savings,
	}
	s.Broker.Publish(req.TenantID, PlanEvent{Type: webhooks.EventPlanComputed, Data: evt})
	s.Pub.Emit(r.Context(), req.TenantID, webhooks.EventPlanComputed, evt)
	writeJSON(w, http.StatusOK, saved)
}

// StopSetsHandler handles POST/GET /v1/stopsets
func (s *Server) StopSetsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		_, tenant := s.withTenant(r)
		var in model.StopSetIn
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if len(in.Stops) == 0 {
			writeProblem(w, http.StatusBadRequest, "Missing stops", "a stop set needs at least one stop", r.URL.Path)
			return
		}
		set, err := s.Store.CreateStopSet(r.Context(), tenant, in)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Create stop set failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusCreated, set)
	case http.MethodGet:
		_, tenant := s.withTenant(r)
		cursor := r.URL.Query().Get("cursor")
		limit := 100
		if v := r.URL.Query().Get("limit"); v != "" {
			fmt.Sscanf(v, "%d", &limit)
		}
		items, next, err := s.Store.ListStopSets(r.Context(), tenant, cursor, limit)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List stop sets failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// StopSetImportHandler handles POST /v1/stopsets/import with a CSV body.
func (s *Server) StopSetImportHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	_, tenant := s.withTenant(r)
	body, err := io.ReadAll(io.LimitReader(r.Body, 4<<20))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Read failed", err.Error(), r.URL.Path)
		return
	}
	var src integrations.StopSource = csvstops.NewSource(body)
	batch, err := src.Fetch("")
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid CSV", err.Error(), r.URL.Path)
		return
	}
	stops := batch.Stops
	if len(stops) == 0 {
		writeProblem(w, http.StatusBadRequest, "Empty CSV", "no stops parsed", r.URL.Path)
		return
	}
	name := r.URL.Query().Get("name")
	set, err := s.Store.CreateStopSet(r.Context(), tenant, model.StopSetIn{Name: name, Stops: stops})
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Create stop set failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"stopSet": set, "imported": len(stops)})
}

// StopSetByIDHandler handles GET/DELETE /v1/stopsets/{id}
func (s *Server) StopSetByIDHandler(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/stopsets/")
	if id == "" || strings.Contains(id, "/") {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	_, tenant := s.withTenant(r)
	switch r.Method {
	case http.MethodGet:
		set, err := s.Store.GetStopSet(r.Context(), tenant, id)
		if err != nil {
			writeProblem(w, http.StatusNotFound, "Stop set not found", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, set)
	case http.MethodDelete:
		p := s.getPrincipal(r)
		if !p.CanOptimize() {
			writeProblem(w, 403, "Forbidden", "dispatcher or admin required", r.URL.Path)
			return
		}
		if err := s.Store.DeleteStopSet(r.Context(), tenant, id); err != nil {
			writeProblem(w, http.StatusNotFound, "Stop set not found", err.Error(), r.URL.Path)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// PlansHandler handles GET /v1/plans
func (s *Server) PlansHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/plans" {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	_, tenant := s.withTenant(r)
	cursor := r.URL.Query().Get("cursor")
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		fmt.Sscanf(v, "%d", &limit)
	}
	items, next, err := s.Store.ListPlans(r.Context(), tenant, cursor, limit)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "List plans failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
}

// PlanByIDHandler handles GET /v1/plans/{id}
func (s *Server) PlanByIDHandler(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/plans/")
	if id == "" || strings.Contains(id, "/") {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	_, tenant := s.withTenant(r)
	plan, err := s.Store.GetPlan(r.Context(), tenant, id)
	if err != nil {
		writeProblem(w, http.StatusNotFound, "Plan not found", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// SubscriptionsHandler handles POST/GET /v1/subscriptions
func (s *Server) SubscriptionsHandler(w http.ResponseWriter, r *http.Request) {
	p := s.getPrincipal(r)
	if !p.IsAdmin() {
		writeProblem(w, 403, "Forbidden", "admin required", r.URL.Path)
		return
	}
	switch r.Method {
	case http.MethodPost:
		var req model.SubscriptionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if req.URL == "" || len(req.Events) == 0 {
			writeProblem(w, http.StatusBadRequest, "Invalid subscription", "url and events are required", r.URL.Path)
			return
		}
		if req.TenantID == "" {
			req.TenantID = p.Tenant
		}
		sub, err := s.Store.CreateSubscription(r.Context(), req)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Create subscription failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusCreated, sub)
	case http.MethodGet:
		cursor := r.URL.Query().Get("cursor")
		limit := 100
		if v := r.URL.Query().Get("limit"); v != "" {
			fmt.Sscanf(v, "%d", &limit)
		}
		items, next, err := s.Store.ListSubscriptions(r.Context(), p.Tenant, cursor, limit)
		if err != nil {
			writeProblem(w, 500, "List subscriptions failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, 200, map[string]any{"items": items, "nextCursor": next})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// SubscriptionByIDHandler handles DELETE /v1/subscriptions/{id}
func (s *Server) SubscriptionByIDHandler(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.URL.Path, "/v1/subscriptions/") {
		writeProblem(w, 404, "Not Found", "", r.URL.Path)
		return
	}
	if r.Method != http.MethodDelete {
		w.WriteHeader(405)
		return
	}
	p := s.getPrincipal(r)
	if !p.IsAdmin() {
		writeProblem(w, 403, "Forbidden", "admin required", r.URL.Path)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/v1/subscriptions/")
	if err := s.Store.DeleteSubscription(r.Context(), p.Tenant, id); err != nil {
		writeProblem(w, http.StatusNotFound, "Subscription not found", err.Error(), r.URL.Path)
		return
	}
	w.WriteHeader(204)
}

// Health
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
	defer cancel()
	if err := s.Store.Ping(ctx); err != nil {
		writeProblem(w, 503, "Not Ready", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, 200, map[string]string{"status": "ready"})
}

// VersionHandler reports build metadata.
func (s *Server) VersionHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, buildinfo.Info())
}
