package store

import (
	"context"
	"errors"
	"time"

	"routeopt/internal/model"
)

// Store persists stop sets, computed plans, webhook subscriptions and the
// webhook delivery queue. The optimization engine itself never touches it.
type Store interface {
	// Stop sets (the location-provider side of the service)
	CreateStopSet(ctx context.Context, tenantID string, in model.StopSetIn) (model.StopSet, error)
	GetStopSet(ctx context.Context, tenantID, id string) (model.StopSet, error)
	ListStopSets(ctx context.Context, tenantID, cursor string, limit int) ([]model.StopSet, string, error)
	DeleteStopSet(ctx context.Context, tenantID, id string) error

	// Computed plans
	SavePlan(ctx context.Context, tenantID string, plan model.RoutePlan) (model.RoutePlan, error)
	GetPlan(ctx context.Context, tenantID, id string) (model.RoutePlan, error)
	ListPlans(ctx context.Context, tenantID, cursor string, limit int) ([]model.RoutePlan, string, error)

	// Subscriptions
	CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error)
	GetSubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]model.Subscription, error)
	ListSubscriptions(ctx context.Context, tenantID, cursor string, limit int) ([]model.Subscription, string, error)
	DeleteSubscription(ctx context.Context, tenantID, id string) error

	// Webhook deliveries
	EnqueueWebhook(ctx context.Context, tenantID, subscriptionID, eventType, url, secret string, payload []byte) (string, error)
	FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error)
	MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error
	FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error

	// Health
	Ping(ctx context.Context) error
}

var ErrNotFound = errors.New("not found")
