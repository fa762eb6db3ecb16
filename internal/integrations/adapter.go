// Package integrations defines the interface external stop providers
// implement to feed candidate stops into the service.
package integrations

import "routeopt/internal/model"

// StopSource is implemented by integrations that supply candidate stops
// (CSV uploads, order feeds, external TMS pulls).
type StopSource interface {
	Name() string
	// Fetch returns a batch of stops plus an opaque cursor for the next page.
	// An empty cursor means the source is drained.
	Fetch(cursor string) (StopBatch, error)
}

type StopBatch struct {
	Stops  []model.Stop
	Cursor string
}
