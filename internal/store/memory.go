package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"routeopt/internal/model"
)

// Memory is a simple in-memory store used when no DATABASE_URL is set.
type Memory struct {
	mu          sync.Mutex
	stopSets    map[string]model.StopSet   // id -> set
	setsByTen   map[string][]string        // tenant -> set ids, insertion order
	plans       map[string]model.RoutePlan // id -> plan
	plansByTen  map[string][]string        // tenant -> plan ids, insertion order
	subs        map[string][]model.Subscription
	deliveries  map[string]*memDelivery
	deliverySeq []string // fetch order
}

func NewMemory() *Memory {
	return &Memory{
		stopSets:   map[string]model.StopSet{},
		setsByTen:  map[string][]string{},
		plans:      map[string]model.RoutePlan{},
		plansByTen: map[string][]string{},
		subs:       map[string][]model.Subscription{},
		deliveries: map[string]*memDelivery{},
	}
}

// memDelivery augments WebhookDelivery with scheduling state.
type memDelivery struct {
	WebhookDelivery
	NextAttemptAt time.Time
	LastError     string
	ResponseCode  int
	LatencyMs     int
	DeliveredAt   *time.Time
}

func (m *Memory) CreateStopSet(ctx context.Context, tenantID string, in model.StopSetIn) (model.StopSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := model.StopSet{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		Name:      in.Name,
		Stops:     append([]model.Stop(nil), in.Stops...),
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	m.stopSets[set.ID] = set
	m.setsByTen[tenantID] = append(m.setsByTen[tenantID], set.ID)
	return set, nil
}

func (m *Memory) GetStopSet(ctx context.Context, tenantID, id string) (model.StopSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.stopSets[id]
	if !ok || set.TenantID != tenantID {
		return model.StopSet{}, ErrNotFound
	}
	return set, nil
}

func (m *Memory) ListStopSets(ctx context.Context, tenantID, cursor string, limit int) ([]model.StopSet, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := m.setsByTen[tenantID]
	start := cursorIndex(ids, cursor)
	if limit <= 0 {
		limit = 100
	}
	out := []model.StopSet{}
	next := ""
	for i := start; i < len(ids); i++ {
		if len(out) == limit {
			next = ids[i-1]
			break
		}
		out = append(out, m.stopSets[ids[i]])
	}
	return out, next, nil
}

func (m *Memory) DeleteStopSet(ctx context.Context, tenantID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.stopSets[id]
	if !ok || set.TenantID != tenantID {
		return ErrNotFound
	}
	delete(m.stopSets, id)
	ids := m.setsByTen[tenantID]
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	m.setsByTen[tenantID] = out
	return nil
}

func (m *Memory) SavePlan(ctx context.Context, tenantID string, plan model.RoutePlan) (model.RoutePlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if plan.ID == "" {
		plan.ID = uuid.New().String()
	}
	plan.TenantID = tenantID
	if plan.CreatedAt == "" {
		plan.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	m.plans[plan.ID] = plan
	m.plansByTen[tenantID] = append(m.plansByTen[tenantID], plan.ID)
	return plan, nil
}

func (m *Memory) GetPlan(ctx context.Context, tenantID, id string) (model.RoutePlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	plan, ok := m.plans[id]
	if !ok || plan.TenantID != tenantID {
		return model.RoutePlan{}, ErrNotFound
	}
	return plan, nil
}

func (m *Memory) ListPlans(ctx context.Context, tenantID, cursor string, limit int) ([]model.RoutePlan, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := m.plansByTen[tenantID]
	start := cursorIndex(ids, cursor)
	if limit <= 0 {
		limit = 100
	}
	out := []model.RoutePlan{}
	next := ""
	for i := start; i < len(ids); i++ {
		if len(out) == limit {
			next = ids[i-1]
			break
		}
		out = append(out, m.plans[ids[i]])
	}
	return out, next, nil
}

func (m *Memory) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := model.Subscription{ID: uuid.New().String(), TenantID: req.TenantID, URL: req.URL, Events: req.Events, Secret: req.Secret}
	m.subs[req.TenantID] = append(m.subs[req.TenantID], s)
	return s, nil
}

func (m *Memory) GetSubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Subscription
	for _, s := range m.subs[tenantID] {
		for _, e := range s.Events {
			if e == eventType {
				out = append(out, s)
				break
			}
		}
	}
	return out, nil
}

func (m *Memory) ListSubscriptions(ctx context.Context, tenantID, cursor string, limit int) ([]model.Subscription, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.subs[tenantID]
	start := 0
	if cursor != "" {
		for i := range list {
			if list[i].ID == cursor {
				start = i + 1
				break
			}
		}
	}
	if limit <= 0 {
		limit = 100
	}
	end := start + limit
	if end > len(list) {
		end = len(list)
	}
	items := append([]model.Subscription(nil), list[start:end]...)
	next := ""
	if end < len(list) {
		next = list[end-1].ID
	}
	return items, next, nil
}

func (m *Memory) DeleteSubscription(ctx context.Context, tenantID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	arr := m.subs[tenantID]
	out := make([]model.Subscription, 0, len(arr))
	for _, s := range arr {
		if s.ID != id {
			out = append(out, s)
		}
	}
	m.subs[tenantID] = out
	return nil
}

func (m *Memory) EnqueueWebhook(ctx context.Context, tenantID, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New().String()
	m.deliveries[id] = &memDelivery{
		WebhookDelivery: WebhookDelivery{
			ID: id, TenantID: tenantID, SubscriptionID: subscriptionID,
			EventType: eventType, URL: url, Secret: secret,
			Payload: payload, Status: "pending",
		},
		NextAttemptAt: time.Now(),
	}
	m.deliverySeq = append(m.deliverySeq, id)
	return id, nil
}

func (m *Memory) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = 50
	}
	now := time.Now()
	out := []WebhookDelivery{}
	for _, id := range m.deliverySeq {
		d := m.deliveries[id]
		if d == nil || d.Status != "pending" || d.NextAttemptAt.After(now) {
			continue
		}
		out = append(out, d.WebhookDelivery)
		if len(out) == limit {
			break
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Attempts < out[j].Attempts })
	return out, nil
}

func (m *Memory) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[id]
	if !ok {
		return ErrNotFound
	}
	d.Attempts++
	d.LastError = lastError
	d.ResponseCode = responseCode
	d.LatencyMs = latencyMs
	if success {
		d.Status = "delivered"
		now := time.Now()
		d.DeliveredAt = &now
		return nil
	}
	if nextAttemptAt != nil {
		d.NextAttemptAt = *nextAttemptAt
	}
	return nil
}

func (m *Memory) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[id]
	if !ok {
		return ErrNotFound
	}
	d.Attempts++
	d.Status = "failed"
	d.LastError = lastError
	d.ResponseCode = responseCode
	d.LatencyMs = latencyMs
	return nil
}

func (m *Memory) Ping(ctx context.Context) error { return nil }

// cursorIndex resolves a cursor id to the next index in insertion order.
func cursorIndex(ids []string, cursor string) int {
	if cursor == "" {
		return 0
	}
	for i, id := range ids {
		if id == cursor {
			return i + 1
		}
	}
	return 0
}
