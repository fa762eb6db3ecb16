package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"routeopt/internal/model"
)

// Postgres stores stop sets, plans and the webhook queue in PostgreSQL.
// Stop and route payloads are kept as JSONB documents; the engine's output is
// opaque to SQL.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

// Migrate creates the schema if missing. Dev helper; production deployments
// run migrations out of band.
func (p *Postgres) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS stop_sets (
			id UUID PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			stops JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS stop_sets_tenant_idx ON stop_sets (tenant_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS plans (
			id UUID PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			stop_set_id TEXT NOT NULL DEFAULT '',
			payload JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS plans_tenant_idx ON plans (tenant_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS subscriptions (
			id UUID PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			url TEXT NOT NULL,
			events TEXT[] NOT NULL,
			secret TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS webhook_deliveries (
			id UUID PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			subscription_id TEXT NOT NULL DEFAULT '',
			event_type TEXT NOT NULL,
			url TEXT NOT NULL,
			secret TEXT NOT NULL DEFAULT '',
			payload BYTEA NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			attempts INT NOT NULL DEFAULT 0,
			next_attempt_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			last_error TEXT NOT NULL DEFAULT '',
			response_code INT NOT NULL DEFAULT 0,
			latency_ms INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS webhook_due_idx ON webhook_deliveries (status, next_attempt_at)`,
	}
	for _, s := range stmts {
		if _, err := p.db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (p *Postgres) CreateStopSet(ctx context.Context, tenantID string, in model.StopSetIn) (model.StopSet, error) {
	id := uuid.New().String()
	stops, err := json.Marshal(in.Stops)
	if err != nil {
		return model.StopSet{}, err
	}
	var created time.Time
	err = p.db.QueryRowContext(ctx,
		`INSERT INTO stop_sets (id, tenant_id, name, stops) VALUES ($1,$2,$3,$4) RETURNING created_at`,
		id, tenantID, in.Name, stops).Scan(&created)
	if err != nil {
		return model.StopSet{}, err
	}
	return model.StopSet{ID: id, TenantID: tenantID, Name: in.Name, Stops: in.Stops,
		CreatedAt: created.UTC().Format(time.RFC3339)}, nil
}

func (p *Postgres) GetStopSet(ctx context.Context, tenantID, id string) (model.StopSet, error) {
	var (
		set     model.StopSet
		stops   []byte
		created time.Time
	)
	err := p.db.QueryRowContext(ctx,
		`SELECT id, name, stops, created_at FROM stop_sets WHERE tenant_id=$1 AND id=$2`,
		tenantID, id).Scan(&set.ID, &set.Name, &stops, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return model.StopSet{}, ErrNotFound
	}
	if err != nil {
		return model.StopSet{}, err
	}
	if err := json.Unmarshal(stops, &set.Stops); err != nil {
		return model.StopSet{}, err
	}
	set.TenantID = tenantID
	set.CreatedAt = created.UTC().Format(time.RFC3339)
	return set, nil
}

func (p *Postgres) ListStopSets(ctx context.Context, tenantID, cursor string, limit int) ([]model.StopSet, string, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, name, stops, created_at FROM stop_sets
		 WHERE tenant_id=$1 AND ($2 = '' OR id::text > $2)
		 ORDER BY id LIMIT $3`,
		tenantID, cursor, limit+1)
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = rows.Close() }()
	out := []model.StopSet{}
	for rows.Next() {
		var (
			set     model.StopSet
			stops   []byte
			created time.Time
		)
		if err := rows.Scan(&set.ID, &set.Name, &stops, &created); err != nil {
			return nil, "", err
		}
		if err := json.Unmarshal(stops, &set.Stops); err != nil {
			return nil, "", err
		}
		set.TenantID = tenantID
		set.CreatedAt = created.UTC().Format(time.RFC3339)
		out = append(out, set)
	}
	next := ""
	if len(out) > limit {
		out = out[:limit]
		next = out[limit-1].ID
	}
	return out, next, rows.Err()
}

func (p *Postgres) DeleteStopSet(ctx context.Context, tenantID, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM stop_sets WHERE tenant_id=$1 AND id=$2`, tenantID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) SavePlan(ctx context.Context, tenantID string, plan model.RoutePlan) (model.RoutePlan, error) {
	if plan.ID == "" {
		plan.ID = uuid.New().String()
	}
	plan.TenantID = tenantID
	if plan.CreatedAt == "" {
		plan.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	payload, err := json.Marshal(plan)
	if err != nil {
		return model.RoutePlan{}, err
	}
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO plans (id, tenant_id, stop_set_id, payload) VALUES ($1,$2,$3,$4)`,
		plan.ID, tenantID, plan.StopSetID, payload)
	if err != nil {
		return model.RoutePlan{}, err
	}
	return plan, nil
}

func (p *Postgres) GetPlan(ctx context.Context, tenantID, id string) (model.RoutePlan, error) {
	var payload []byte
	err := p.db.QueryRowContext(ctx,
		`SELECT payload FROM plans WHERE tenant_id=$1 AND id=$2`, tenantID, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RoutePlan{}, ErrNotFound
	}
	if err != nil {
		return model.RoutePlan{}, err
	}
	var plan model.RoutePlan
	if err := json.Unmarshal(payload, &plan); err != nil {
		return model.RoutePlan{}, err
	}
	return plan, nil
}

func (p *Postgres) ListPlans(ctx context.Context, tenantID, cursor string, limit int) ([]model.RoutePlan, string, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := p.db.QueryContext(ctx,
		`SELECT payload FROM plans
		 WHERE tenant_id=$1 AND ($2 = '' OR id::text > $2)
		 ORDER BY id LIMIT $3`,
		tenantID, cursor, limit+1)
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = rows.Close() }()
	out := []model.RoutePlan{}
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, "", err
		}
		var plan model.RoutePlan
		if err := json.Unmarshal(payload, &plan); err != nil {
			return nil, "", err
		}
		out = append(out, plan)
	}
	next := ""
	if len(out) > limit {
		out = out[:limit]
		next = out[limit-1].ID
	}
	return out, next, rows.Err()
}

func (p *Postgres) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
	id := uuid.New().String()
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO subscriptions (id, tenant_id, url, events, secret) VALUES ($1,$2,$3,$4,$5)`,
		id, req.TenantID, req.URL, pqTextArray(req.Events), req.Secret)
	if err != nil {
		return model.Subscription{}, err
	}
	return model.Subscription{ID: id, TenantID: req.TenantID, URL: req.URL, Events: req.Events, Secret: req.Secret}, nil
}

func (p *Postgres) GetSubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]model.Subscription, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, url, events, secret FROM subscriptions WHERE tenant_id=$1 AND $2 = ANY(events)`,
		tenantID, eventType)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []model.Subscription
	for rows.Next() {
		var (
			s      model.Subscription
			events string
		)
		if err := rows.Scan(&s.ID, &s.URL, &events, &s.Secret); err != nil {
			return nil, err
		}
		s.TenantID = tenantID
		s.Events = parseTextArray(events)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *Postgres) ListSubscriptions(ctx context.Context, tenantID, cursor string, limit int) ([]model.Subscription, string, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, url, events, secret FROM subscriptions
		 WHERE tenant_id=$1 AND ($2 = '' OR id::text > $2)
		 ORDER BY id LIMIT $3`,
		tenantID, cursor, limit+1)
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = rows.Close() }()
	out := []model.Subscription{}
	for rows.Next() {
		var (
			s      model.Subscription
			events string
		)
		if err := rows.Scan(&s.ID, &s.URL, &events, &s.Secret); err != nil {
			return nil, "", err
		}
		s.TenantID = tenantID
		s.Events = parseTextArray(events)
		out = append(out, s)
	}
	next := ""
	if len(out) > limit {
		out = out[:limit]
		next = out[limit-1].ID
	}
	return out, next, rows.Err()
}

func (p *Postgres) DeleteSubscription(ctx context.Context, tenantID, id string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE tenant_id=$1 AND id=$2`, tenantID, id)
	return err
}

func (p *Postgres) EnqueueWebhook(ctx context.Context, tenantID, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
	id := uuid.New().String()
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO webhook_deliveries (id, tenant_id, subscription_id, event_type, url, secret, payload)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		id, tenantID, subscriptionID, eventType, url, secret, payload)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (p *Postgres) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, tenant_id, subscription_id, event_type, url, secret, payload, status, attempts
		 FROM webhook_deliveries
		 WHERE status='pending' AND next_attempt_at <= now()
		 ORDER BY next_attempt_at LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []WebhookDelivery
	for rows.Next() {
		var d WebhookDelivery
		if err := rows.Scan(&d.ID, &d.TenantID, &d.SubscriptionID, &d.EventType, &d.URL, &d.Secret, &d.Payload, &d.Status, &d.Attempts); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (p *Postgres) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
	if success {
		_, err := p.db.ExecContext(ctx,
			`UPDATE webhook_deliveries
			 SET status='delivered', attempts=attempts+1, last_error=$2, response_code=$3, latency_ms=$4
			 WHERE id=$1`, id, lastError, responseCode, latencyMs)
		return err
	}
	next := time.Now()
	if nextAttemptAt != nil {
		next = *nextAttemptAt
	}
	_, err := p.db.ExecContext(ctx,
		`UPDATE webhook_deliveries
		 SET attempts=attempts+1, next_attempt_at=$2, last_error=$3, response_code=$4, latency_ms=$5
		 WHERE id=$1`, id, next, lastError, responseCode, latencyMs)
	return err
}

func (p *Postgres) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
	_, err := p.db.ExecContext(ctx,
		`UPDATE webhook_deliveries
		 SET status='failed', attempts=attempts+1, last_error=$2, response_code=$3, latency_ms=$4
		 WHERE id=$1`, id, lastError, responseCode, latencyMs)
	return err
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

// pqTextArray renders a text[] literal. nil/empty slices map to an empty
// array rather than NULL.
func pqTextArray(vals []string) string {
	if len(vals) == 0 {
		return "{}"
	}
	quoted := make([]string, len(vals))
	for i, v := range vals {
		v = strings.ReplaceAll(v, `\`, `\\`)
		v = strings.ReplaceAll(v, `"`, `\"`)
		quoted[i] = `"` + v + `"`
	}
	return "{" + strings.Join(quoted, ",") + "}"
}

// parseTextArray decodes the text[] wire form produced for simple event-name
// values ({a,b} or {"a","b"}).
func parseTextArray(s string) []string {
	s = strings.TrimPrefix(s, "{")
	s = strings.TrimSuffix(s, "}")
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(p, `"`)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
