package store

// WebhookDelivery is one queued delivery attempt of an event payload to a
// subscriber endpoint.
type WebhookDelivery struct {
	ID             string
	TenantID       string
	SubscriptionID string
	EventType      string
	URL            string
	Secret         string
	Payload        []byte
	Status         string
	Attempts       int
}
