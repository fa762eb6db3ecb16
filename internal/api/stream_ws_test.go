package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// dialPlanStream connects to the plan stream and completes the
// connection_init handshake.
func dialPlanStream(t *testing.T, s *Server) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(s.PlanStreamHandler))
	t.Cleanup(srv.Close)
	u := "ws" + strings.TrimPrefix(srv.URL, "http")
	hdr := http.Header{}
	hdr.Set("X-Tenant-Id", "t_test")
	c, _, err := websocket.DefaultDialer.Dial(u, hdr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	if err := c.WriteJSON(wsMessage{Type: "connection_init"}); err != nil {
		t.Fatalf("init: %v", err)
	}
	var m wsMessage
	_ = c.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := c.ReadJSON(&m); err != nil || m.Type != "connection_ack" {
		t.Fatalf("expected connection_ack, got %+v (err %v)", m, err)
	}
	return c
}

// publishUntilStopped fires plan events at the tenant until stop is closed.
// Subscribe messages are handled asynchronously, so single publishes can
// land before the subscription exists.
func publishUntilStopped(s *Server, stop chan struct{}) {
	tick := time.NewTicker(2 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case <-stop:
			return
		case <-tick.C:
			s.Broker.Publish("t_test", PlanEvent{Type: "plan.computed", Data: map[string]any{"planId": "p1"}})
		}
	}
}

func TestPlanStreamDeliversPlanEvents(t *testing.T) {
	s := newTestServer(t)
	c := dialPlanStream(t, s)
	if err := c.WriteJSON(wsMessage{Type: "subscribe", ID: "1"}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	stop := make(chan struct{})
	defer close(stop)
	go publishUntilStopped(s, stop)

	deadline := time.Now().Add(5 * time.Second)
	for {
		_ = c.SetReadDeadline(deadline)
		var m wsMessage
		if err := c.ReadJSON(&m); err != nil {
			t.Fatalf("read: %v", err)
		}
		if m.Type != "next" {
			continue
		}
		if m.ID != "1" || !strings.Contains(string(m.Payload), "plan.computed") {
			t.Fatalf("unexpected next message: %+v", m)
		}
		return
	}
}

// Pongs from the read loop race against next messages from the subscription
// pump unless connection writes are serialized; run with -race.
func TestPlanStreamConcurrentPongsAndEvents(t *testing.T) {
	s := newTestServer(t)
	c := dialPlanStream(t, s)
	if err := c.WriteJSON(wsMessage{Type: "subscribe", ID: "1"}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	stop := make(chan struct{})
	defer close(stop)
	go publishUntilStopped(s, stop)

	const pings = 50
	errc := make(chan error, 1)
	go func() {
		for i := 0; i < pings; i++ {
			if err := c.WriteJSON(wsMessage{Type: "ping"}); err != nil {
				errc <- err
				return
			}
		}
		errc <- nil
	}()

	pongs, nexts := 0, 0
	deadline := time.Now().Add(10 * time.Second)
	for pongs < pings || nexts == 0 {
		_ = c.SetReadDeadline(deadline)
		var m wsMessage
		if err := c.ReadJSON(&m); err != nil {
			t.Fatalf("read after %d pongs, %d events: %v", pongs, nexts, err)
		}
		switch m.Type {
		case "pong":
			pongs++
		case "next":
			nexts++
		}
	}
	if err := <-errc; err != nil {
		t.Fatalf("ping writes: %v", err)
	}
}
