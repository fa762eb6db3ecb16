package store

import (
	"context"
	"testing"
	"time"

	"routeopt/internal/model"
)

func TestMemoryStopSetCRUD(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	set, err := m.CreateStopSet(ctx, "t1", model.StopSetIn{
		Name: "morning run",
		Stops: []model.Stop{
			{ID: "a", Coordinates: model.GeoPoint{Lat: 32.09, Lng: 34.79}},
			{ID: "b", Coordinates: model.GeoPoint{Lat: 32.10, Lng: 34.80}},
		},
	})
	if err != nil {
		t.Fatalf("CreateStopSet: %v", err)
	}
	if set.ID == "" || len(set.Stops) != 2 {
		t.Fatalf("bad stop set: %+v", set)
	}

	got, err := m.GetStopSet(ctx, "t1", set.ID)
	if err != nil || got.Name != "morning run" {
		t.Fatalf("GetStopSet: %v %+v", err, got)
	}
	if _, err := m.GetStopSet(ctx, "t2", set.ID); err != ErrNotFound {
		t.Fatalf("cross-tenant get: %v, want ErrNotFound", err)
	}

	items, next, err := m.ListStopSets(ctx, "t1", "", 10)
	if err != nil || len(items) != 1 || next != "" {
		t.Fatalf("ListStopSets: %v %d %q", err, len(items), next)
	}

	if err := m.DeleteStopSet(ctx, "t1", set.ID); err != nil {
		t.Fatalf("DeleteStopSet: %v", err)
	}
	if _, err := m.GetStopSet(ctx, "t1", set.ID); err != ErrNotFound {
		t.Fatalf("get after delete: %v, want ErrNotFound", err)
	}
}

func TestMemoryPlans(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	saved, err := m.SavePlan(ctx, "t1", model.RoutePlan{
		OptimizedRoute: []model.Stop{{ID: "a"}},
		TotalDistance:  1.5,
		EstimatedTime:  12,
	})
	if err != nil {
		t.Fatalf("SavePlan: %v", err)
	}
	if saved.ID == "" || saved.CreatedAt == "" {
		t.Fatalf("missing id/createdAt: %+v", saved)
	}
	got, err := m.GetPlan(ctx, "t1", saved.ID)
	if err != nil || got.TotalDistance != 1.5 {
		t.Fatalf("GetPlan: %v %+v", err, got)
	}
	if _, err := m.GetPlan(ctx, "t2", saved.ID); err != ErrNotFound {
		t.Fatalf("cross-tenant plan: %v, want ErrNotFound", err)
	}
}

func TestMemoryPlanListPagination(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := m.SavePlan(ctx, "t1", model.RoutePlan{EstimatedTime: i}); err != nil {
			t.Fatalf("SavePlan %d: %v", i, err)
		}
	}
	page1, next, err := m.ListPlans(ctx, "t1", "", 3)
	if err != nil || len(page1) != 3 || next == "" {
		t.Fatalf("page1: %v len=%d next=%q", err, len(page1), next)
	}
	page2, next2, err := m.ListPlans(ctx, "t1", next, 3)
	if err != nil || len(page2) != 2 || next2 != "" {
		t.Fatalf("page2: %v len=%d next=%q", err, len(page2), next2)
	}
}

func TestMemorySubscriptionsAndQueue(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	sub, err := m.CreateSubscription(ctx, model.SubscriptionRequest{
		TenantID: "t1", URL: "https://example.test/hook", Events: []string{"plan.computed"}, Secret: "s",
	})
	if err != nil || sub.ID == "" {
		t.Fatalf("CreateSubscription: %v", err)
	}
	subs, err := m.GetSubscriptionsForEvent(ctx, "t1", "plan.computed")
	if err != nil || len(subs) != 1 {
		t.Fatalf("GetSubscriptionsForEvent: %v len=%d", err, len(subs))
	}
	if subs, _ := m.GetSubscriptionsForEvent(ctx, "t1", "other.event"); len(subs) != 0 {
		t.Fatalf("unexpected match for other.event")
	}

	id, err := m.EnqueueWebhook(ctx, "t1", sub.ID, "plan.computed", sub.URL, "s", []byte(`{}`))
	if err != nil || id == "" {
		t.Fatalf("EnqueueWebhook: %v", err)
	}
	due, err := m.FetchDueWebhookDeliveries(ctx, 10)
	if err != nil || len(due) != 1 || due[0].ID != id {
		t.Fatalf("FetchDue: %v %+v", err, due)
	}

	// A retry pushed into the future is not due.
	next := time.Now().Add(time.Hour)
	if err := m.MarkWebhookDelivery(ctx, id, false, &next, "boom", 500, 12); err != nil {
		t.Fatalf("MarkWebhookDelivery: %v", err)
	}
	due, _ = m.FetchDueWebhookDeliveries(ctx, 10)
	if len(due) != 0 {
		t.Fatalf("future retry fetched: %+v", due)
	}

	if err := m.FailWebhookDelivery(ctx, id, "gave up", 500, 10); err != nil {
		t.Fatalf("FailWebhookDelivery: %v", err)
	}
	due, _ = m.FetchDueWebhookDeliveries(ctx, 10)
	if len(due) != 0 {
		t.Fatalf("failed delivery fetched: %+v", due)
	}
}
