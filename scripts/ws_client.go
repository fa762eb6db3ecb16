// Package main runs a demo WebSocket client for computed-plan events.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

type wsMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	// Connect WS first so the plan event is not missed
	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/plans/stream"}
	hdr := http.Header{}
	hdr.Set("X-Tenant-Id", "t_demo")
	hdr.Set("X-Role", "admin")
	c, _, err := websocket.DefaultDialer.Dial(u.String(), hdr)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	// connection_init
	if err := c.WriteJSON(wsMessage{Type: "connection_init"}); err != nil {
		log.Fatal(err)
	}
	// subscribe to plan events
	if err := c.WriteJSON(wsMessage{Type: "subscribe", ID: "1"}); err != nil {
		log.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var m wsMessage
			if err := c.ReadJSON(&m); err != nil {
				log.Printf("read: %v", err)
				return
			}
			log.Printf("WS <- %s: %s", m.Type, string(m.Payload))
		}
	}()

	// Trigger a plan via optimize
	time.Sleep(500 * time.Millisecond)
	body := []byte(`{
		"startLocation": {"id": "depot", "coordinates": {"lat": 32.0853, "lng": 34.7818}},
		"stops": [
			{"id": "s1", "coordinates": {"lat": 32.0944, "lng": 34.7806}, "priority": "high"},
			{"id": "s2", "coordinates": {"lat": 32.0700, "lng": 34.7900}}
		],
		"vehicleType": "car",
		"trafficConsideration": true
	}`)
	req, _ := http.NewRequest(http.MethodPost, base+"/v1/optimize", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-Id", "t_demo")
	req.Header.Set("X-Role", "admin")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	var plan struct {
		ID            string  `json:"id"`
		TotalDistance float64 `json:"totalDistance"`
		EstimatedTime int     `json:"estimatedTime"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&plan); err != nil {
		log.Fatal(err)
	}
	log.Printf("Plan %s: %.2f km, %d min", plan.ID, plan.TotalDistance, plan.EstimatedTime)

	// Wait briefly to receive the plan.computed event
	select {
	case <-time.After(2 * time.Second):
	case <-done:
	}
}
